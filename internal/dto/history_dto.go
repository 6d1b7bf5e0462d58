// Package dto Defines data transfer objects (request parameters and response structs)
// Package dto 定义数据传输对象（请求参数和响应结构体）
package dto

import (
	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/convert"
	"github.com/haierkeys/prompt-history/pkg/diff"
	"github.com/haierkeys/prompt-history/pkg/timex"
)

// RevisionDTO Revision data transfer object
// RevisionDTO 修订数据传输对象
type RevisionDTO struct {
	DocumentID           string         `json:"documentId"`
	RevisionNumber       int64          `json:"revisionNumber"`
	Branch               string         `json:"branch"`
	Content              string         `json:"content"`
	Metadata             map[string]any `json:"metadata"`
	ParentRevisionNumber *int64         `json:"parentRevisionNumber"`
	ChangeReason         string         `json:"changeReason"`
	CreatedAt            timex.Time     `json:"createdAt"`
}

// BranchDTO Branch data transfer object
// BranchDTO 分支数据传输对象
type BranchDTO struct {
	DocumentID           string     `json:"documentId"`
	Name                 string     `json:"name"`
	CreatedAt            timex.Time `json:"createdAt"`
	OriginRevisionNumber *int64     `json:"originRevisionNumber"`
	IsActive             bool       `json:"isActive"`
}

// MetadataChangeDTO one JSON Patch operation on metadata
// MetadataChangeDTO 元数据的一条 JSON Patch 操作
type MetadataChangeDTO struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	From  string `json:"from,omitempty"`
	Value any    `json:"value,omitempty"`
}

// DiffDTO Diff between two revisions
// DiffDTO 两个修订之间的差异
type DiffDTO struct {
	DocumentID      string              `json:"documentId"`
	FromRevision    int64               `json:"fromRevision"`
	ToRevision      int64               `json:"toRevision"`
	Hunks           []diff.Hunk         `json:"hunks"`
	Stats           diff.Stats          `json:"stats"`
	MetadataChanges []MetadataChangeDTO `json:"metadataChanges"`
	// Unified 统一差异格式文本
	Unified string `json:"unified"`
}

// ComparisonDTO ahead / behind counts of two branches
// ComparisonDTO 两个分支的领先/落后数量
type ComparisonDTO struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Ahead    int    `json:"ahead"`
	Behind   int    `json:"behind"`
	CanMerge bool   `json:"canMerge"`
}

// RevisionCreateRequest Request parameters for appending a revision
// RevisionCreateRequest 追加修订的请求参数
type RevisionCreateRequest struct {
	Branch       string         `json:"branch" form:"branch" binding:"max=255"`
	Content      string         `json:"content" form:"content"`
	Metadata     map[string]any `json:"metadata"`
	ChangeReason string         `json:"changeReason" form:"changeReason"`
}

// RevisionListRequest Request parameters for listing revisions
// RevisionListRequest 修订列表请求参数
type RevisionListRequest struct {
	Branch   string `form:"branch" binding:"max=255"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"pageSize" binding:"omitempty,min=1"`
}

// BranchCreateRequest Request parameters for creating a branch
// BranchCreateRequest 创建分支的请求参数
type BranchCreateRequest struct {
	Name         string `json:"name" form:"name" binding:"required,max=255"`
	FromRevision *int64 `json:"fromRevision" form:"fromRevision" binding:"omitempty,min=1"`
}

// BranchSwitchRequest Request parameters for switching the active branch
// BranchSwitchRequest 切换活动分支的请求参数
type BranchSwitchRequest struct {
	Name string `json:"name" form:"name" binding:"required,max=255"`
}

// DiffRequest Request parameters for diffing two revisions
// DiffRequest 比较两个修订的请求参数
type DiffRequest struct {
	From int64 `form:"from" binding:"required,min=1"`
	To   int64 `form:"to" binding:"required,min=1"`
}

// RollbackRequest Request parameters for rolling back to a revision
// RollbackRequest 回滚到指定修订的请求参数
type RollbackRequest struct {
	Revision     int64  `json:"revision" form:"revision" binding:"required,min=1"`
	Branch       string `json:"branch" form:"branch" binding:"max=255"`
	ChangeReason string `json:"changeReason" form:"changeReason"`
}

// MergeRequest Request parameters for merging two branches
// MergeRequest 合并分支的请求参数
type MergeRequest struct {
	Source       string `json:"source" form:"source" binding:"required,max=255"`
	Target       string `json:"target" form:"target" binding:"required,max=255"`
	ChangeReason string `json:"changeReason" form:"changeReason"`
}

// CompareRequest Request parameters for comparing two branches
// CompareRequest 比较两个分支的请求参数
type CompareRequest struct {
	Source string `form:"source" binding:"required,max=255"`
	Target string `form:"target" binding:"required,max=255"`
}

// NewRevisionDTO 从领域修订构造 DTO
func NewRevisionDTO(rev *domain.Revision) (*RevisionDTO, error) {
	out := &RevisionDTO{}
	if err := convert.StructAssign(rev, out); err != nil {
		return nil, err
	}
	if out.Metadata == nil {
		out.Metadata = map[string]any{}
	}
	return out, nil
}

// NewRevisionDTOs 批量构造修订 DTO
func NewRevisionDTOs(revs []*domain.Revision) ([]*RevisionDTO, error) {
	out := make([]*RevisionDTO, 0, len(revs))
	for _, rev := range revs {
		d, err := NewRevisionDTO(rev)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// NewBranchDTO 从领域分支构造 DTO
func NewBranchDTO(b *domain.Branch) (*BranchDTO, error) {
	out := &BranchDTO{}
	if err := convert.StructAssign(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// NewBranchDTOs 批量构造分支 DTO
func NewBranchDTOs(branches []*domain.Branch) ([]*BranchDTO, error) {
	out := make([]*BranchDTO, 0, len(branches))
	for _, b := range branches {
		d, err := NewBranchDTO(b)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// NewDiffDTO 从领域差异构造 DTO
func NewDiffDTO(d *domain.Diff) *DiffDTO {
	out := &DiffDTO{
		DocumentID:      d.DocumentID,
		FromRevision:    d.FromRevision,
		ToRevision:      d.ToRevision,
		Hunks:           d.Hunks,
		Stats:           d.Stats,
		MetadataChanges: make([]MetadataChangeDTO, 0, len(d.MetadataChanges)),
		Unified:         diff.Render(d.Hunks),
	}
	if out.Hunks == nil {
		out.Hunks = []diff.Hunk{}
	}
	for _, mc := range d.MetadataChanges {
		out.MetadataChanges = append(out.MetadataChanges, MetadataChangeDTO(mc))
	}
	return out
}

// NewComparisonDTO 构造分支比较结果
func NewComparisonDTO(source, target string, cmp *domain.BranchComparison) *ComparisonDTO {
	return &ComparisonDTO{
		Source:   source,
		Target:   target,
		Ahead:    cmp.Ahead,
		Behind:   cmp.Behind,
		CanMerge: cmp.CanMerge,
	}
}
