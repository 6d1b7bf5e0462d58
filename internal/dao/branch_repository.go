package dao

import (
	"context"
	"time"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/internal/model"
	"github.com/haierkeys/prompt-history/pkg/timex"

	"gorm.io/gorm"
)

// branchRepository 实现 domain.BranchRepository 接口
type branchRepository struct {
	dao *Dao
}

// NewBranchRepository 创建 BranchRepository 实例
func NewBranchRepository(dao *Dao) domain.BranchRepository {
	return &branchRepository{dao: dao}
}

var _ domain.BranchRepository = (*branchRepository)(nil)

func (r *branchRepository) toDomain(m *model.Branch) *domain.Branch {
	if m == nil {
		return nil
	}
	return &domain.Branch{
		DocumentID:           m.DocumentID,
		Name:                 m.Name,
		CreatedAt:            time.Time(m.CreatedAt),
		OriginRevisionNumber: m.OriginRevisionNumber,
		IsActive:             m.IsActive,
	}
}

func (r *branchRepository) toDomainList(modelList []*model.Branch) []*domain.Branch {
	results := make([]*domain.Branch, 0, len(modelList))
	for _, m := range modelList {
		results = append(results, r.toDomain(m))
	}
	return results
}

// Create 创建分支
func (r *branchRepository) Create(ctx context.Context, branch *domain.Branch) (*domain.Branch, error) {
	m := &model.Branch{
		DocumentID:           branch.DocumentID,
		Name:                 branch.Name,
		OriginRevisionNumber: branch.OriginRevisionNumber,
		IsActive:             branch.IsActive,
		CreatedAt:            timex.Time(branch.CreatedAt),
	}
	if err := r.dao.conn(ctx).Create(m).Error; err != nil {
		return nil, err
	}
	return r.toDomain(m), nil
}

// GetByName 根据名称获取分支
func (r *branchRepository) GetByName(ctx context.Context, documentID, name string) (*domain.Branch, error) {
	var m model.Branch
	err := r.dao.conn(ctx).
		Where("document_id = ? AND name = ?", documentID, name).
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return r.toDomain(&m), nil
}

// List 按创建顺序获取文档所有分支
func (r *branchRepository) List(ctx context.Context, documentID string) ([]*domain.Branch, error) {
	var modelList []*model.Branch
	err := r.dao.conn(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC").Order("id ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainList(modelList), nil
}

// ListActive 获取文档所有被标记为活动的分支
func (r *branchRepository) ListActive(ctx context.Context, documentID string) ([]*domain.Branch, error) {
	var modelList []*model.Branch
	err := r.dao.conn(ctx).
		Where("document_id = ? AND is_active = ?", documentID, true).
		Order("created_at ASC").Order("id ASC").
		Find(&modelList).Error
	if err != nil {
		return nil, err
	}
	return r.toDomainList(modelList), nil
}

// Count 获取文档分支数量
func (r *branchRepository) Count(ctx context.Context, documentID string) (int64, error) {
	var count int64
	err := r.dao.conn(ctx).Model(&model.Branch{}).
		Where("document_id = ?", documentID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SetActive 先清除所有活动标记再设置目标分支，必须在写事务中调用
func (r *branchRepository) SetActive(ctx context.Context, documentID, name string) error {
	db := r.dao.conn(ctx)

	err := db.Model(&model.Branch{}).
		Where("document_id = ? AND is_active = ?", documentID, true).
		Update("is_active", false).Error
	if err != nil {
		return err
	}

	result := db.Model(&model.Branch{}).
		Where("document_id = ? AND name = ?", documentID, name).
		Update("is_active", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 删除分支
func (r *branchRepository) Delete(ctx context.Context, documentID, name string) error {
	result := r.dao.conn(ctx).
		Where("document_id = ? AND name = ?", documentID, name).
		Delete(&model.Branch{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListDocumentIDs 获取所有拥有分支的文档 ID
func (r *branchRepository) ListDocumentIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.dao.conn(ctx).Model(&model.Branch{}).
		Distinct("document_id").
		Order("document_id").
		Pluck("document_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
