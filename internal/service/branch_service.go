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

// BranchService defines the branch registry business service interface
// BranchService 定义分支注册业务服务接口
type BranchService interface {
	// CreateBranch forks a branch from a revision, the default branch head when nil
	// CreateBranch 从指定修订创建分支，为 nil 时从默认分支头创建
	CreateBranch(ctx context.Context, documentID, name string, fromRevisionNumber *int64) (*domain.Branch, error)

	// ListBranches lists branches in creation order
	// ListBranches 按创建顺序列出分支
	ListBranches(ctx context.Context, documentID string) ([]*domain.Branch, error)

	// GetActiveBranch returns the active branch, falling back to the default branch
	// GetActiveBranch 获取活动分支，没有标记时回退到默认分支
	GetActiveBranch(ctx context.Context, documentID string) (*domain.Branch, error)

	// SwitchBranch makes the named branch the only active one
	// SwitchBranch 将指定分支设为唯一的活动分支
	SwitchBranch(ctx context.Context, documentID, name string) (*domain.Branch, error)

	// DeleteBranch deletes an empty, non-sole branch
	// DeleteBranch 删除没有修订且不是唯一分支的分支
	DeleteBranch(ctx context.Context, documentID, name string) error

	// RepairActiveBranch persists exactly one active branch, reports whether anything changed
	// RepairActiveBranch 修复文档使其恰好有一个活动分支，返回是否有修改
	RepairActiveBranch(ctx context.Context, documentID string) (bool, error)

	// ListDocumentIDs lists documents that own at least one branch
	// ListDocumentIDs 列出拥有分支的文档
	ListDocumentIDs(ctx context.Context) ([]string, error)
}

// branchService implementation of BranchService interface
// branchService 实现 BranchService 接口
type branchService struct {
	revisionRepo domain.RevisionRepository // Revision repository // 修订仓库
	branchRepo   domain.BranchRepository   // Branch repository // 分支仓库
	tx           domain.Transactor         // Per-document write transactions // 文档写事务
	checker      domain.DocumentChecker    // Document existence // 文档存在性检查
	branches     branchResolver            // Branch lookups // 分支查找
	logger       *zap.Logger               // Logger // 日志对象
	config       *ServiceConfig            // Service configuration // 服务配置
}

// NewBranchService creates BranchService instance
// NewBranchService 创建 BranchService 实例
func NewBranchService(revisionRepo domain.RevisionRepository, branchRepo domain.BranchRepository, tx domain.Transactor, checker domain.DocumentChecker, logger *zap.Logger, config *ServiceConfig) BranchService {
	config = config.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &branchService{
		revisionRepo: revisionRepo,
		branchRepo:   branchRepo,
		tx:           tx,
		checker:      checker,
		branches:     branchResolver{branchRepo: branchRepo, defaultBranch: config.History.DefaultBranch},
		logger:       logger,
		config:       config,
	}
}

var _ BranchService = (*branchService)(nil)

// CreateBranch forks a new inactive branch
// CreateBranch 创建新的非活动分支
func (s *branchService) CreateBranch(ctx context.Context, documentID, name string, fromRevisionNumber *int64) (*domain.Branch, error) {
	if err := domain.ValidateBranchName(documentID, name); err != nil {
		return nil, err
	}

	var created *domain.Branch
	err := s.tx.ExecuteWrite(ctx, documentID, func(ctx context.Context) error {
		exists, err := s.checker.Exists(ctx, documentID)
		if err != nil {
			return pkgerrors.Wrap(err, "check document")
		}
		if !exists {
			return &domain.NotFoundError{Resource: domain.ResourceDocument, DocumentID: documentID}
		}

		if _, err := s.branchRepo.GetByName(ctx, documentID, name); err == nil {
			return &domain.BranchAlreadyExistsError{DocumentID: documentID, Name: name}
		} else if !isNotFound(err) {
			return pkgerrors.Wrap(err, "get branch")
		}

		origin, err := s.forkPoint(ctx, documentID, fromRevisionNumber)
		if err != nil {
			return err
		}

		created, err = s.branchRepo.Create(ctx, &domain.Branch{
			DocumentID:           documentID,
			Name:                 name,
			CreatedAt:            time.Now(),
			OriginRevisionNumber: &origin,
		})
		if err != nil {
			return pkgerrors.Wrap(err, "create branch")
		}
		return nil
	})
	branchOperations.WithLabelValues("create", resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Info("branch created",
		zap.String(logger.FieldDocumentID, documentID),
		zap.String(logger.FieldBranch, name),
		zap.Int64p(logger.FieldRevision, created.OriginRevisionNumber))
	return created, nil
}

// forkPoint resolves the origin revision of a new branch
// forkPoint 解析新分支的分叉点
func (s *branchService) forkPoint(ctx context.Context, documentID string, from *int64) (int64, error) {
	if from != nil {
		if _, err := s.revisionRepo.GetByNumber(ctx, documentID, *from); err != nil {
			if isNotFound(err) {
				return 0, &domain.NotFoundError{
					Resource:   domain.ResourceRevision,
					DocumentID: documentID,
					Detail:     strconv.FormatInt(*from, 10),
				}
			}
			return 0, pkgerrors.Wrap(err, "get fork revision")
		}
		return *from, nil
	}

	head, err := s.revisionRepo.GetHead(ctx, documentID, s.config.History.DefaultBranch)
	if err != nil {
		if isNotFound(err) {
			return 0, &domain.NotFoundError{
				Resource:   domain.ResourceHead,
				DocumentID: documentID,
				Detail:     s.config.History.DefaultBranch,
			}
		}
		return 0, pkgerrors.Wrap(err, "get default branch head")
	}
	return head.RevisionNumber, nil
}

// ListBranches lists branches in creation order
// ListBranches 按创建顺序列出分支
func (s *branchService) ListBranches(ctx context.Context, documentID string) ([]*domain.Branch, error) {
	list, err := s.branchRepo.List(ctx, documentID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list branches")
	}
	return list, nil
}

// GetActiveBranch returns the active branch
// GetActiveBranch 获取活动分支
func (s *branchService) GetActiveBranch(ctx context.Context, documentID string) (*domain.Branch, error) {
	b, recovered, err := s.branches.active(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if recovered {
		noteRecovery(s.logger, documentID, b.Name)
	}
	return b, nil
}

// SwitchBranch clears every active flag of the document and sets the target in one transaction
// SwitchBranch 在同一事务中清除所有活动标记并设置目标分支
func (s *branchService) SwitchBranch(ctx context.Context, documentID, name string) (*domain.Branch, error) {
	var switched *domain.Branch
	err := s.tx.ExecuteWrite(ctx, documentID, func(ctx context.Context) error {
		b, err := s.branches.byName(ctx, documentID, name)
		if err != nil {
			return err
		}
		if err := s.branchRepo.SetActive(ctx, documentID, name); err != nil {
			return pkgerrors.Wrap(err, "set active branch")
		}
		b.IsActive = true
		switched = b
		return nil
	})
	branchOperations.WithLabelValues("switch", resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Info("branch switched",
		zap.String(logger.FieldDocumentID, documentID),
		zap.String(logger.FieldBranch, name))
	return switched, nil
}

// DeleteBranch deletes a branch, moving the active flag first when needed
// DeleteBranch 删除分支，必要时先转移活动标记
func (s *branchService) DeleteBranch(ctx context.Context, documentID, name string) error {
	var successor string
	err := s.tx.ExecuteWrite(ctx, documentID, func(ctx context.Context) error {
		b, err := s.branches.byName(ctx, documentID, name)
		if err != nil {
			return err
		}

		count, err := s.branchRepo.Count(ctx, documentID)
		if err != nil {
			return pkgerrors.Wrap(err, "count branches")
		}
		if count <= 1 {
			return &domain.BranchError{DocumentID: documentID, Branch: name, Reason: domain.BranchReasonOnlyBranch}
		}

		revisions, err := s.revisionRepo.Count(ctx, documentID, name)
		if err != nil {
			return pkgerrors.Wrap(err, "count branch revisions")
		}
		if revisions > 0 {
			return &domain.BranchError{
				DocumentID: documentID,
				Branch:     name,
				Reason:     domain.BranchReasonUnmergedChanges,
				Count:      revisions,
			}
		}

		if b.IsActive {
			next, err := s.branches.successor(ctx, documentID, name)
			if err != nil {
				return err
			}
			if next == nil {
				return &domain.BranchError{DocumentID: documentID, Branch: name, Reason: domain.BranchReasonOnlyBranch}
			}
			if err := s.branchRepo.SetActive(ctx, documentID, next.Name); err != nil {
				return pkgerrors.Wrap(err, "reassign active branch")
			}
			successor = next.Name
		}

		if err := s.branchRepo.Delete(ctx, documentID, name); err != nil {
			return pkgerrors.Wrap(err, "delete branch")
		}
		return nil
	})
	branchOperations.WithLabelValues("delete", resultLabel(err)).Inc()
	if err != nil {
		return err
	}

	fields := []zap.Field{
		zap.String(logger.FieldDocumentID, documentID),
		zap.String(logger.FieldBranch, name),
	}
	if successor != "" {
		fields = append(fields, zap.String(logger.FieldTargetBranch, successor))
	}
	s.logger.Info("branch deleted", fields...)
	return nil
}

// RepairActiveBranch flags one branch when none is active and unflags extras when several are
// RepairActiveBranch 没有活动分支时设置一个，多个活动分支时只保留第一个
func (s *branchService) RepairActiveBranch(ctx context.Context, documentID string) (bool, error) {
	var repaired string
	err := s.tx.ExecuteWrite(ctx, documentID, func(ctx context.Context) error {
		flagged, err := s.branchRepo.ListActive(ctx, documentID)
		if err != nil {
			return pkgerrors.Wrap(err, "list active branches")
		}

		var keep string
		switch len(flagged) {
		case 1:
			return nil
		case 0:
			next, err := s.branches.successor(ctx, documentID, "")
			if err != nil {
				return err
			}
			if next == nil {
				return nil
			}
			keep = next.Name
		default:
			keep = flagged[0].Name
		}

		if err := s.branchRepo.SetActive(ctx, documentID, keep); err != nil {
			return pkgerrors.Wrap(err, "set active branch")
		}
		repaired = keep
		return nil
	})
	if err != nil {
		branchOperations.WithLabelValues("repair", resultLabel(err)).Inc()
		return false, err
	}
	if repaired == "" {
		return false, nil
	}

	branchOperations.WithLabelValues("repair", resultLabel(nil)).Inc()
	s.logger.Warn("active branch repaired",
		zap.String(logger.FieldDocumentID, documentID),
		zap.String(logger.FieldBranch, repaired))
	return true, nil
}

// ListDocumentIDs lists documents that own at least one branch
// ListDocumentIDs 列出拥有分支的文档
func (s *branchService) ListDocumentIDs(ctx context.Context) ([]string, error) {
	ids, err := s.branchRepo.ListDocumentIDs(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list documents")
	}
	return ids, nil
}
