package service

import (
	"context"
	"fmt"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/logger"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// MergeService defines the merge operator interface
// MergeService 定义合并业务服务接口
type MergeService interface {
	// MergeBranch fast-forwards target to the head of source
	// MergeBranch 将目标分支快进到来源分支头
	MergeBranch(ctx context.Context, documentID, source, target, changeReason string) (*domain.Revision, error)

	// CompareBranches counts revisions reachable from one branch and not the other
	// CompareBranches 统计仅能从一侧分支到达的修订数量
	CompareBranches(ctx context.Context, documentID, branchA, branchB string) (*domain.BranchComparison, error)
}

// mergeService implementation of MergeService interface
// mergeService 实现 MergeService 接口
type mergeService struct {
	revisionRepo domain.RevisionRepository // Revision repository // 修订仓库
	tx           domain.Transactor         // Per-document write transactions // 文档写事务
	appender     *revisionAppender         // Revision writer // 修订写入
	branches     branchResolver            // Branch lookups // 分支查找
	logger       *zap.Logger               // Logger // 日志对象
}

// NewMergeService creates MergeService instance
// NewMergeService 创建 MergeService 实例
func NewMergeService(revisionRepo domain.RevisionRepository, branchRepo domain.BranchRepository, tx domain.Transactor, checker domain.DocumentChecker, logger *zap.Logger, config *ServiceConfig) MergeService {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	branches := branchResolver{branchRepo: branchRepo, defaultBranch: config.History.DefaultBranch}
	return &mergeService{
		revisionRepo: revisionRepo,
		tx:           tx,
		appender:     newRevisionAppender(revisionRepo, branchRepo, checker, branches, logger),
		branches:     branches,
		logger:       logger,
	}
}

var _ MergeService = (*mergeService)(nil)

// MergeBranch appends a copy of the source head on target when target has not moved since the fork
// MergeBranch 目标分支自分叉后未前进时，在目标分支追加来源分支头的副本
func (s *mergeService) MergeBranch(ctx context.Context, documentID, source, target, changeReason string) (*domain.Revision, error) {
	reason := changeReason
	if reason == "" {
		reason = fmt.Sprintf("Merge from %s", source)
	}

	var merged *domain.Revision
	err := s.tx.ExecuteWrite(ctx, documentID, func(ctx context.Context) error {
		src, err := s.branches.byName(ctx, documentID, source)
		if err != nil {
			return err
		}
		dst, err := s.branches.byName(ctx, documentID, target)
		if err != nil {
			return err
		}

		sourceHead, err := s.head(ctx, documentID, src.Name)
		if err != nil {
			return err
		}
		if sourceHead == nil {
			return &domain.NotFoundError{Resource: domain.ResourceHead, DocumentID: documentID, Detail: src.Name}
		}

		targetHead, err := s.head(ctx, documentID, dst.Name)
		if err != nil {
			return err
		}
		if !canFastForward(src, targetHead) {
			return &domain.MergeConflictError{
				DocumentID:   documentID,
				Source:       src.Name,
				Target:       dst.Name,
				SourceOrigin: src.OriginRevisionNumber,
				TargetHead:   targetHead.RevisionNumber,
			}
		}

		merged, err = s.appender.append(ctx, appendInput{
			DocumentID:   documentID,
			Branch:       dst.Name,
			Content:      sourceHead.Content,
			Metadata:     sourceHead.Metadata,
			ChangeReason: reason,
			Origin:       originMerge,
		})
		return err
	})

	fields := []zap.Field{
		zap.String(logger.FieldDocumentID, documentID),
		zap.String(logger.FieldSourceBranch, source),
		zap.String(logger.FieldTargetBranch, target),
	}
	if err != nil {
		if domain.KindOf(err) == domain.KindMergeConflict {
			mergeAttempts.WithLabelValues("conflict").Inc()
			s.logger.Info("merge rejected, target advanced past fork point", append(fields, zap.Error(err))...)
		} else {
			mergeAttempts.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	mergeAttempts.WithLabelValues("fast_forward").Inc()
	s.logger.Info("branch merged", append(fields, zap.Int64(logger.FieldRevision, merged.RevisionNumber))...)
	return merged, nil
}

// CompareBranches walks both parent chains; the shared ancestry is excluded from both counts
// CompareBranches 沿两侧父修订链遍历，共同祖先不计入
func (s *mergeService) CompareBranches(ctx context.Context, documentID, branchA, branchB string) (*domain.BranchComparison, error) {
	a, err := s.branches.byName(ctx, documentID, branchA)
	if err != nil {
		return nil, err
	}
	b, err := s.branches.byName(ctx, documentID, branchB)
	if err != nil {
		return nil, err
	}

	headA, err := s.head(ctx, documentID, a.Name)
	if err != nil {
		return nil, err
	}
	headB, err := s.head(ctx, documentID, b.Name)
	if err != nil {
		return nil, err
	}

	links, err := s.revisionRepo.ParentLinks(ctx, documentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "load revision ancestry")
	}

	reachA := ancestry(links, tip(a, headA))
	reachB := ancestry(links, tip(b, headB))

	cmp := &domain.BranchComparison{
		CanMerge: headA != nil && canFastForward(a, headB),
	}
	for n := range reachA {
		if _, ok := reachB[n]; !ok {
			cmp.Ahead++
		}
	}
	for n := range reachB {
		if _, ok := reachA[n]; !ok {
			cmp.Behind++
		}
	}
	return cmp, nil
}

// head returns the branch head, nil when the branch has no revisions
// head 返回分支头，分支没有修订时返回 nil
func (s *mergeService) head(ctx context.Context, documentID, branch string) (*domain.Revision, error) {
	rev, err := s.revisionRepo.GetHead(ctx, documentID, branch)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrapf(err, "get head of %s", branch)
	}
	return rev, nil
}

// canFastForward an empty target always accepts; otherwise nothing may have landed since the fork
// canFastForward 目标为空时总是可以；否则目标自分叉后不能有新修订
func canFastForward(source *domain.Branch, targetHead *domain.Revision) bool {
	if targetHead == nil {
		return true
	}
	return source.OriginRevisionNumber != nil && *source.OriginRevisionNumber == targetHead.RevisionNumber
}

// tip the newest revision a branch points at: its head, else its fork point
// tip 分支指向的最新修订：分支头，否则为分叉点
func tip(b *domain.Branch, head *domain.Revision) *int64 {
	if head != nil {
		n := head.RevisionNumber
		return &n
	}
	return b.OriginRevisionNumber
}

// ancestry collects start and every revision reachable through parent links
// ancestry 收集 start 及其通过父修订可到达的全部修订
func ancestry(links map[int64]*int64, start *int64) map[int64]struct{} {
	seen := make(map[int64]struct{})
	for cur := start; cur != nil; {
		if _, ok := seen[*cur]; ok {
			break
		}
		seen[*cur] = struct{}{}
		parent, ok := links[*cur]
		if !ok {
			break
		}
		cur = parent
	}
	return seen
}
