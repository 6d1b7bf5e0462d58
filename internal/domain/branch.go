package domain

import (
	"context"
	"strings"
	"time"
	"unicode"
)

// DefaultBranch 文档首个修订隐式创建的分支
const DefaultBranch = "main"

// MaxBranchNameLength 分支名称最大字节数
const MaxBranchNameLength = 255

// Branch 文档的一条命名修订线
type Branch struct {
	DocumentID string
	Name       string
	CreatedAt  time.Time
	// OriginRevisionNumber 分支创建时的分叉点，隐式创建的 main 为 nil
	OriginRevisionNumber *int64
	IsActive             bool
}

// BranchComparison 两个分支的领先/落后情况
type BranchComparison struct {
	// Ahead A 可达而 B 不可达的修订数
	Ahead int
	// Behind B 可达而 A 不可达的修订数
	Behind int
	// CanMerge A 合并到 B 是否可以快进
	CanMerge bool
}

// ValidateBranchName 校验分支名称
func ValidateBranchName(documentID, name string) error {
	switch {
	case name == "":
		return &BranchError{DocumentID: documentID, Branch: name, Reason: BranchReasonInvalidName}
	case len(name) > MaxBranchNameLength:
		return &BranchError{DocumentID: documentID, Branch: name, Reason: BranchReasonInvalidName}
	case strings.IndexFunc(name, unicode.IsSpace) >= 0:
		return &BranchError{DocumentID: documentID, Branch: name, Reason: BranchReasonInvalidName}
	}
	return nil
}

// BranchRepository 分支仓储接口
// 写方法必须在 Transactor.ExecuteWrite 内调用
type BranchRepository interface {
	// Create 创建分支
	Create(ctx context.Context, branch *Branch) (*Branch, error)

	// GetByName 根据名称获取分支
	GetByName(ctx context.Context, documentID, name string) (*Branch, error)

	// List 按创建顺序获取文档所有分支
	List(ctx context.Context, documentID string) ([]*Branch, error)

	// ListActive 获取文档所有被标记为活动的分支
	ListActive(ctx context.Context, documentID string) ([]*Branch, error)

	// Count 获取文档分支数量
	Count(ctx context.Context, documentID string) (int64, error)

	// SetActive 清除文档所有活动标记后设置目标分支为活动
	SetActive(ctx context.Context, documentID, name string) error

	// Delete 删除分支
	Delete(ctx context.Context, documentID, name string) error

	// ListDocumentIDs 获取所有拥有分支的文档 ID
	ListDocumentIDs(ctx context.Context) ([]string, error)
}
