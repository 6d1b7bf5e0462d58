package model

import (
	"github.com/haierkeys/prompt-history/pkg/timex"

	"gorm.io/gorm"
)

const TableNameBranch = "branch"

// Branch mapped from table <branch>
type Branch struct {
	ID                   int64      `gorm:"column:id;primaryKey" json:"id" form:"id"`
	DocumentID           string     `gorm:"column:document_id;size:191;not null;uniqueIndex:idx_branch_document_name,priority:1" json:"documentId" form:"documentId"`
	Name                 string     `gorm:"column:name;size:255;not null;uniqueIndex:idx_branch_document_name,priority:2" json:"name" form:"name"`
	OriginRevisionNumber *int64     `gorm:"column:origin_revision_number" json:"originRevisionNumber" form:"originRevisionNumber"`
	IsActive             bool       `gorm:"column:is_active;not null;default:false" json:"isActive" form:"isActive"`
	CreatedAt            timex.Time `gorm:"column:created_at;autoCreateTime:false" json:"createdAt" form:"createdAt"`
}

// TableName Branch's table name
func (*Branch) TableName() string {
	return TableNameBranch
}

// IndexActiveBranch 每个文档至多一个活动分支的部分唯一索引
const IndexActiveBranch = "idx_branch_document_active"

// CreateActiveBranchIndex 创建活动分支的部分唯一索引
// MySQL 不支持部分索引，返回 false 且不报错
func CreateActiveBranchIndex(db *gorm.DB) (bool, error) {
	var stmt string
	switch db.Dialector.Name() {
	case "sqlite":
		stmt = "CREATE UNIQUE INDEX IF NOT EXISTS " + IndexActiveBranch + " ON " + TableNameBranch + " (document_id) WHERE is_active = 1"
	case "postgres":
		stmt = "CREATE UNIQUE INDEX IF NOT EXISTS " + IndexActiveBranch + " ON " + TableNameBranch + " (document_id) WHERE is_active"
	default:
		return false, nil
	}
	if err := db.Exec(stmt).Error; err != nil {
		return false, err
	}
	return true, nil
}
