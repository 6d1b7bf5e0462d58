package service

import (
	"context"
	"strconv"
	"time"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/logger"

	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"
)

// Revision origins used as metric labels
// 修订来源，用作指标标签
const (
	originEdit     = "edit"
	originRollback = "rollback"
	originMerge    = "merge"
)

// RevisionService defines the revision store business service interface
// RevisionService 定义修订存储业务服务接口
type RevisionService interface {
	// CreateRevision appends a revision to a branch; empty branch means the active branch
	// CreateRevision 在分支上追加修订，分支为空时使用活动分支
	CreateRevision(ctx context.Context, documentID, branch, content string, metadata map[string]any, changeReason string) (*domain.Revision, error)

	// GetHead returns the newest revision of a branch; empty branch means the active branch
	// GetHead 获取分支最新修订，分支为空时使用活动分支
	GetHead(ctx context.Context, documentID, branch string) (*domain.Revision, error)

	// GetRevision returns a revision by number
	// GetRevision 根据修订号获取修订
	GetRevision(ctx context.Context, documentID string, revisionNumber int64) (*domain.Revision, error)

	// ListRevisions lists revisions most-recent-first and returns the total count
	// ListRevisions 按修订号倒序列出修订并返回总数
	ListRevisions(ctx context.Context, documentID string, opts domain.ListOptions) ([]*domain.Revision, int64, error)
}

// appendInput one revision to append
// appendInput 待追加的修订
type appendInput struct {
	DocumentID   string
	Branch       string
	Content      string
	Metadata     map[string]any
	ChangeReason string
	Origin       string
}

// revisionAppender appends revisions; callers hold the document write transaction
// revisionAppender 追加修订，调用方必须持有文档写事务
type revisionAppender struct {
	revisionRepo domain.RevisionRepository
	branchRepo   domain.BranchRepository
	checker      domain.DocumentChecker
	branches     branchResolver
	logger       *zap.Logger
}

func (a *revisionAppender) append(ctx context.Context, in appendInput) (*domain.Revision, error) {
	exists, err := a.checker.Exists(ctx, in.DocumentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "check document")
	}
	if !exists {
		return nil, &domain.NotFoundError{Resource: domain.ResourceDocument, DocumentID: in.DocumentID}
	}

	branch, err := a.targetBranch(ctx, in.DocumentID, in.Branch)
	if err != nil {
		return nil, err
	}

	parent := branch.OriginRevisionNumber
	head, err := a.revisionRepo.GetHead(ctx, in.DocumentID, branch.Name)
	switch {
	case err == nil:
		n := head.RevisionNumber
		parent = &n
	case !isNotFound(err):
		return nil, pkgerrors.Wrap(err, "get branch head")
	}

	number, err := a.revisionRepo.NextNumber(ctx, in.DocumentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "allocate revision number")
	}

	rev, err := a.revisionRepo.Create(ctx, &domain.Revision{
		DocumentID:           in.DocumentID,
		RevisionNumber:       number,
		Branch:               branch.Name,
		Content:              in.Content,
		Metadata:             in.Metadata,
		ParentRevisionNumber: parent,
		ChangeReason:         in.ChangeReason,
		CreatedAt:            time.Now(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(err, "create revision")
	}

	revisionsCreated.WithLabelValues(in.Origin).Inc()
	a.logger.Info("revision created",
		zap.String(logger.FieldDocumentID, rev.DocumentID),
		zap.String(logger.FieldBranch, rev.Branch),
		zap.Int64(logger.FieldRevision, rev.RevisionNumber),
		zap.Int64p(logger.FieldParentRevision, rev.ParentRevisionNumber),
		zap.String(logger.FieldAction, in.Origin))
	return rev, nil
}

// targetBranch resolves the branch a write lands on, creating the default branch for a
// document's first revision and persisting the active flag when it had to be recovered
// targetBranch 解析写入的目标分支；文档首次写入时创建默认分支，活动标记丢失时写回
func (a *revisionAppender) targetBranch(ctx context.Context, documentID, name string) (*domain.Branch, error) {
	count, err := a.branchRepo.Count(ctx, documentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "count branches")
	}
	if count == 0 {
		if name != "" && name != a.branches.defaultBranch {
			return nil, &domain.BranchNotFoundError{DocumentID: documentID, Name: name}
		}
		b, err := a.branchRepo.Create(ctx, &domain.Branch{
			DocumentID: documentID,
			Name:       a.branches.defaultBranch,
			CreatedAt:  time.Now(),
			IsActive:   true,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(err, "create default branch")
		}
		a.logger.Info("default branch created",
			zap.String(logger.FieldDocumentID, documentID),
			zap.String(logger.FieldBranch, b.Name))
		return b, nil
	}

	if name != "" {
		return a.branches.byName(ctx, documentID, name)
	}

	b, recovered, err := a.branches.active(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if recovered {
		noteRecovery(a.logger, documentID, b.Name)
		if err := a.branchRepo.SetActive(ctx, documentID, b.Name); err != nil {
			return nil, pkgerrors.Wrap(err, "restore active branch")
		}
		b.IsActive = true
	}
	return b, nil
}

// revisionService implementation of RevisionService interface
// revisionService 实现 RevisionService 接口
type revisionService struct {
	revisionRepo domain.RevisionRepository // Revision repository // 修订仓库
	tx           domain.Transactor         // Per-document write transactions // 文档写事务
	appender     *revisionAppender         // Revision writer // 修订写入
	branches     branchResolver            // Branch lookups // 分支查找
	logger       *zap.Logger               // Logger // 日志对象
	config       *ServiceConfig            // Service configuration // 服务配置
}

// NewRevisionService creates RevisionService instance
// NewRevisionService 创建 RevisionService 实例
func NewRevisionService(revisionRepo domain.RevisionRepository, branchRepo domain.BranchRepository, tx domain.Transactor, checker domain.DocumentChecker, logger *zap.Logger, config *ServiceConfig) RevisionService {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	branches := branchResolver{branchRepo: branchRepo, defaultBranch: config.History.DefaultBranch}
	return &revisionService{
		revisionRepo: revisionRepo,
		tx:           tx,
		appender:     newRevisionAppender(revisionRepo, branchRepo, checker, branches, logger),
		branches:     branches,
		logger:       logger,
		config:       config,
	}
}

var _ RevisionService = (*revisionService)(nil)

func newRevisionAppender(revisionRepo domain.RevisionRepository, branchRepo domain.BranchRepository, checker domain.DocumentChecker, branches branchResolver, logger *zap.Logger) *revisionAppender {
	return &revisionAppender{
		revisionRepo: revisionRepo,
		branchRepo:   branchRepo,
		checker:      checker,
		branches:     branches,
		logger:       logger,
	}
}

// CreateRevision appends a revision inside the document write queue
// CreateRevision 在文档写队列中追加修订
func (s *revisionService) CreateRevision(ctx context.Context, documentID, branch, content string, metadata map[string]any, changeReason string) (*domain.Revision, error) {
	var rev *domain.Revision
	err := s.tx.ExecuteWrite(ctx, documentID, func(ctx context.Context) error {
		var err error
		rev, err = s.appender.append(ctx, appendInput{
			DocumentID:   documentID,
			Branch:       branch,
			Content:      content,
			Metadata:     metadata,
			ChangeReason: changeReason,
			Origin:       originEdit,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return rev, nil
}

// GetHead returns the newest revision of a branch
// GetHead 获取分支最新修订
func (s *revisionService) GetHead(ctx context.Context, documentID, branch string) (*domain.Revision, error) {
	b, err := s.resolveBranch(ctx, documentID, branch)
	if err != nil {
		return nil, err
	}

	head, err := s.revisionRepo.GetHead(ctx, documentID, b.Name)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.NotFoundError{Resource: domain.ResourceHead, DocumentID: documentID, Detail: b.Name}
		}
		return nil, pkgerrors.Wrap(err, "get branch head")
	}
	return head, nil
}

// GetRevision returns a revision by number
// GetRevision 根据修订号获取修订
func (s *revisionService) GetRevision(ctx context.Context, documentID string, revisionNumber int64) (*domain.Revision, error) {
	return getRevision(ctx, s.revisionRepo, documentID, revisionNumber)
}

// ListRevisions lists revisions most-recent-first
// ListRevisions 按修订号倒序列出修订
func (s *revisionService) ListRevisions(ctx context.Context, documentID string, opts domain.ListOptions) ([]*domain.Revision, int64, error) {
	if opts.Branch != "" {
		if _, err := s.branches.byName(ctx, documentID, opts.Branch); err != nil {
			return nil, 0, err
		}
	}
	if opts.Limit <= 0 || opts.Limit > s.config.History.MaxListLimit {
		opts.Limit = s.config.History.MaxListLimit
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}

	list, err := s.revisionRepo.List(ctx, documentID, opts)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "list revisions")
	}
	total, err := s.revisionRepo.Count(ctx, documentID, opts.Branch)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(err, "count revisions")
	}
	return list, total, nil
}

// resolveBranch returns the named branch, or the active one when name is empty
// resolveBranch 返回指定分支，名称为空时返回活动分支
func (s *revisionService) resolveBranch(ctx context.Context, documentID, name string) (*domain.Branch, error) {
	if name != "" {
		return s.branches.byName(ctx, documentID, name)
	}
	b, recovered, err := s.branches.active(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if recovered {
		noteRecovery(s.logger, documentID, b.Name)
	}
	return b, nil
}

func getRevision(ctx context.Context, repo domain.RevisionRepository, documentID string, revisionNumber int64) (*domain.Revision, error) {
	rev, err := repo.GetByNumber(ctx, documentID, revisionNumber)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.NotFoundError{
				Resource:   domain.ResourceRevision,
				DocumentID: documentID,
				Detail:     strconv.FormatInt(revisionNumber, 10),
			}
		}
		return nil, pkgerrors.Wrapf(err, "get revision %d", revisionNumber)
	}
	return rev, nil
}

// noteRecovery records a read that fell back to a default active branch
// noteRecovery 记录一次活动分支回退
func noteRecovery(l *zap.Logger, documentID, branch string) {
	activeBranchRecoveries.Inc()
	l.Warn("no active branch flagged, falling back",
		zap.String(logger.FieldDocumentID, documentID),
		zap.String(logger.FieldBranch, branch))
}
