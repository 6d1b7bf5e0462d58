package dao

import (
	"context"
	"time"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/internal/model"
	"github.com/haierkeys/prompt-history/pkg/logger"
	"github.com/haierkeys/prompt-history/pkg/timex"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// revisionRepository 实现 domain.RevisionRepository 接口
type revisionRepository struct {
	dao *Dao
}

// NewRevisionRepository 创建 RevisionRepository 实例
func NewRevisionRepository(dao *Dao) domain.RevisionRepository {
	return &revisionRepository{dao: dao}
}

var _ domain.RevisionRepository = (*revisionRepository)(nil)

// toDomain 将数据库模型转换为领域模型
func (r *revisionRepository) toDomain(m *model.Revision) *domain.Revision {
	if m == nil {
		return nil
	}
	rev := &domain.Revision{
		DocumentID:           m.DocumentID,
		RevisionNumber:       m.RevisionNumber,
		Branch:               m.Branch,
		Content:              m.Content,
		ParentRevisionNumber: m.ParentRevisionNumber,
		ChangeReason:         m.ChangeReason,
		CreatedAt:            time.Time(m.CreatedAt),
	}
	if m.Metadata != "" {
		var metadata map[string]any
		if err := sonic.UnmarshalString(m.Metadata, &metadata); err != nil {
			// 元数据损坏不影响内容读取
			r.dao.Logger().Warn("decode revision metadata failed",
				zap.String(logger.FieldDocumentID, m.DocumentID),
				zap.Int64(logger.FieldRevision, m.RevisionNumber),
				zap.String(logger.FieldMethod, "revisionRepository.toDomain"),
				zap.Error(err))
		} else {
			rev.Metadata = metadata
		}
	}
	return rev
}

// NextNumber 返回文档下一个修订号
func (r *revisionRepository) NextNumber(ctx context.Context, documentID string) (int64, error) {
	var current int64
	err := r.dao.conn(ctx).Model(&model.Revision{}).
		Where("document_id = ?", documentID).
		Select("COALESCE(MAX(revision_number), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// Create 追加修订
func (r *revisionRepository) Create(ctx context.Context, revision *domain.Revision) (*domain.Revision, error) {
	m := &model.Revision{
		DocumentID:           revision.DocumentID,
		RevisionNumber:       revision.RevisionNumber,
		Branch:               revision.Branch,
		Content:              revision.Content,
		ParentRevisionNumber: revision.ParentRevisionNumber,
		ChangeReason:         revision.ChangeReason,
		CreatedAt:            timex.Time(revision.CreatedAt),
	}
	if revision.Metadata != nil {
		metadata, err := sonic.MarshalString(revision.Metadata)
		if err != nil {
			return nil, err
		}
		m.Metadata = metadata
	}
	if err := r.dao.conn(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// GetByNumber 根据修订号获取修订
func (r *revisionRepository) GetByNumber(ctx context.Context, documentID string, revisionNumber int64) (*domain.Revision, error) {
	var m model.Revision
	err := r.dao.conn(ctx).
		Where("document_id = ? AND revision_number = ?", documentID, revisionNumber).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// GetHead 获取分支上修订号最大的修订
func (r *revisionRepository) GetHead(ctx context.Context, documentID, branch string) (*domain.Revision, error) {
	var m model.Revision
	err := r.dao.conn(ctx).
		Where("document_id = ? AND branch = ?", documentID, branch).
		Order("revision_number DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// List 按修订号倒序分页获取修订
func (r *revisionRepository) List(ctx context.Context, documentID string, opts domain.ListOptions) ([]*domain.Revision, error) {
	q := r.dao.conn(ctx).Where("document_id = ?", documentID)
	if opts.Branch != "" {
		q = q.Where("branch = ?", opts.Branch)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	var modelList []*model.Revision
	if err := q.Order("revision_number DESC").Find(&modelList).Error; err != nil {
		return nil, err
	}

	results := make([]*domain.Revision, 0, len(modelList))
	for _, m := range modelList {
		results = append(results, r.toDomain(m))
	}
	return results, nil
}

// Count 获取修订数量
func (r *revisionRepository) Count(ctx context.Context, documentID, branch string) (int64, error) {
	q := r.dao.conn(ctx).Model(&model.Revision{}).Where("document_id = ?", documentID)
	if branch != "" {
		q = q.Where("branch = ?", branch)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ParentLinks 获取文档所有修订的父修订映射
func (r *revisionRepository) ParentLinks(ctx context.Context, documentID string) (map[int64]*int64, error) {
	var rows []struct {
		RevisionNumber       int64
		ParentRevisionNumber *int64
	}
	err := r.dao.conn(ctx).Model(&model.Revision{}).
		Select("revision_number", "parent_revision_number").
		Where("document_id = ?", documentID).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	links := make(map[int64]*int64, len(rows))
	for _, row := range rows {
		links[row.RevisionNumber] = row.ParentRevisionNumber
	}
	return links, nil
}
