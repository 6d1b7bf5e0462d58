package service

import (
	"context"
	"fmt"

	"github.com/haierkeys/prompt-history/internal/domain"

	"go.uber.org/zap"
)

// RollbackOptions rollback parameters
// RollbackOptions 回滚参数
type RollbackOptions struct {
	// Branch receiving the new revision, the active branch when empty
	// Branch 接收新修订的分支，为空时使用活动分支
	Branch string
	// ChangeReason defaults to "Rollback to revision N"
	// ChangeReason 默认为 "Rollback to revision N"
	ChangeReason string
}

// RollbackService defines the rollback operator interface
// RollbackService 定义回滚业务服务接口
type RollbackService interface {
	// Rollback appends a revision equal to a past one
	// Rollback 追加一个与历史修订内容相同的新修订
	Rollback(ctx context.Context, documentID string, targetRevision int64, opts RollbackOptions) (*domain.Revision, error)
}

// rollbackService implementation of RollbackService interface
// rollbackService 实现 RollbackService 接口
type rollbackService struct {
	revisionRepo domain.RevisionRepository
	tx           domain.Transactor
	appender     *revisionAppender
	logger       *zap.Logger
}

// NewRollbackService creates RollbackService instance
// NewRollbackService 创建 RollbackService 实例
func NewRollbackService(revisionRepo domain.RevisionRepository, branchRepo domain.BranchRepository, tx domain.Transactor, checker domain.DocumentChecker, logger *zap.Logger, config *ServiceConfig) RollbackService {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	branches := branchResolver{branchRepo: branchRepo, defaultBranch: config.History.DefaultBranch}
	return &rollbackService{
		revisionRepo: revisionRepo,
		tx:           tx,
		appender:     newRevisionAppender(revisionRepo, branchRepo, checker, branches, logger),
		logger:       logger,
	}
}

var _ RollbackService = (*rollbackService)(nil)

// Rollback copies the target revision onto the branch; history is never rewritten
// Rollback 将目标修订复制到分支上，不改写历史
func (s *rollbackService) Rollback(ctx context.Context, documentID string, targetRevision int64, opts RollbackOptions) (*domain.Revision, error) {
	reason := opts.ChangeReason
	if reason == "" {
		reason = fmt.Sprintf("Rollback to revision %d", targetRevision)
	}

	var rev *domain.Revision
	err := s.tx.ExecuteWrite(ctx, documentID, func(ctx context.Context) error {
		target, err := getRevision(ctx, s.revisionRepo, documentID, targetRevision)
		if err != nil {
			return err
		}
		rev, err = s.appender.append(ctx, appendInput{
			DocumentID:   documentID,
			Branch:       opts.Branch,
			Content:      target.Content,
			Metadata:     target.Metadata,
			ChangeReason: reason,
			Origin:       originRollback,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}
