package model

import "github.com/haierkeys/prompt-history/pkg/timex"

const TableNameRevision = "revision"

// Revision mapped from table <revision>
type Revision struct {
	ID                   int64      `gorm:"column:id;primaryKey" json:"id" form:"id"`
	DocumentID           string     `gorm:"column:document_id;size:191;not null;uniqueIndex:idx_revision_document_number,priority:1;index:idx_revision_document_branch,priority:1" json:"documentId" form:"documentId"`
	RevisionNumber       int64      `gorm:"column:revision_number;not null;uniqueIndex:idx_revision_document_number,priority:2;index:idx_revision_document_branch,priority:3" json:"revisionNumber" form:"revisionNumber"`
	Branch               string     `gorm:"column:branch;size:255;not null;index:idx_revision_document_branch,priority:2" json:"branch" form:"branch"`
	Content              string     `gorm:"column:content;not null" json:"content" form:"content"`
	Metadata             string     `gorm:"column:metadata" json:"metadata" form:"metadata"`
	ParentRevisionNumber *int64     `gorm:"column:parent_revision_number" json:"parentRevisionNumber" form:"parentRevisionNumber"`
	ChangeReason         string     `gorm:"column:change_reason;size:1024" json:"changeReason" form:"changeReason"`
	CreatedAt            timex.Time `gorm:"column:created_at;autoCreateTime:false" json:"createdAt" form:"createdAt"`
}

// TableName Revision's table name
func (*Revision) TableName() string {
	return TableNameRevision
}
