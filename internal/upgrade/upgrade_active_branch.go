package upgrade

import (
	"context"

	"github.com/haierkeys/prompt-history/internal/model"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ActiveBranchIndexMigrate 清理重复的活动分支标记并创建部分唯一索引
type ActiveBranchIndexMigrate struct {
	logger *zap.Logger
}

// Version 返回版本号
func (m *ActiveBranchIndexMigrate) Version() string {
	return "1.0.1"
}

// Description 返回描述
func (m *ActiveBranchIndexMigrate) Description() string {
	return "Keep one active branch per document and add the partial unique index on branch.is_active"
}

// Up 执行升级
func (m *ActiveBranchIndexMigrate) Up(db *gorm.DB, ctx context.Context) error {
	var documentIDs []string
	err := db.WithContext(ctx).Model(&model.Branch{}).
		Where("is_active = ?", true).
		Group("document_id").
		Having("COUNT(*) > 1").
		Pluck("document_id", &documentIDs).Error
	if err != nil {
		return err
	}

	for _, documentID := range documentIDs {
		var keep model.Branch
		err := db.WithContext(ctx).
			Where("document_id = ? AND is_active = ?", documentID, true).
			Order("created_at ASC").Order("id ASC").
			First(&keep).Error
		if err != nil {
			return err
		}

		err = db.WithContext(ctx).Model(&model.Branch{}).
			Where("document_id = ? AND is_active = ? AND id <> ?", documentID, true, keep.ID).
			Update("is_active", false).Error
		if err != nil {
			return err
		}

		m.logger.Info("ActiveBranchIndexMigrate: duplicate active flags cleared",
			zap.String("documentId", documentID),
			zap.String("branch", keep.Name))
	}

	created, err := model.CreateActiveBranchIndex(db.WithContext(ctx))
	if err != nil {
		return err
	}
	if !created {
		m.logger.Warn("ActiveBranchIndexMigrate: dialect has no partial indexes, skipping",
			zap.String("dialect", db.Dialector.Name()))
	}
	return nil
}
