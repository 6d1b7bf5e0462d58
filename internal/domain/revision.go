// Package domain 定义领域模型和接口
package domain

import (
	"context"
	"time"
)

// Revision 文档的一次不可变内容快照
type Revision struct {
	DocumentID     string
	RevisionNumber int64
	Branch         string
	Content        string
	Metadata       map[string]any
	// ParentRevisionNumber 所在分支的上一个修订号，分支为空时为分支起点，首个修订为 nil
	ParentRevisionNumber *int64
	ChangeReason         string
	CreatedAt            time.Time
}

// ListOptions 修订列表查询条件
type ListOptions struct {
	// Branch 为空时返回文档所有分支的修订
	Branch string
	Limit  int
	Offset int
}

// RevisionRepository 修订仓储接口
// 写方法必须在 Transactor.ExecuteWrite 内调用
type RevisionRepository interface {
	// NextNumber 返回文档下一个修订号（所有分支共享）
	NextNumber(ctx context.Context, documentID string) (int64, error)

	// Create 追加修订
	Create(ctx context.Context, revision *Revision) (*Revision, error)

	// GetByNumber 根据修订号获取修订
	GetByNumber(ctx context.Context, documentID string, revisionNumber int64) (*Revision, error)

	// GetHead 获取分支上修订号最大的修订
	GetHead(ctx context.Context, documentID, branch string) (*Revision, error)

	// List 按修订号倒序分页获取修订
	List(ctx context.Context, documentID string, opts ListOptions) ([]*Revision, error)

	// Count 获取修订数量，branch 为空时统计整个文档
	Count(ctx context.Context, documentID, branch string) (int64, error)

	// ParentLinks 获取文档所有修订的父修订映射
	ParentLinks(ctx context.Context, documentID string) (map[int64]*int64, error)
}
