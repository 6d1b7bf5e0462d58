package domain

import (
	"errors"
	"fmt"
)

// ErrorKind 领域错误类别
type ErrorKind int

const (
	// KindUnknown 非领域错误（基础设施故障等）
	KindUnknown ErrorKind = iota
	KindNotFound
	KindBranchNotFound
	KindBranchAlreadyExists
	KindBranch
	KindMergeConflict
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not-found"
	case KindBranchNotFound:
		return "branch-not-found"
	case KindBranchAlreadyExists:
		return "branch-already-exists"
	case KindBranch:
		return "branch-rule"
	case KindMergeConflict:
		return "merge-conflict"
	default:
		return "unknown"
	}
}

// HistoryError 领域错误的封闭集合，只有本包中的类型可以实现
type HistoryError interface {
	error
	Kind() ErrorKind
	historyError()
}

// KindOf 返回错误链中第一个领域错误的类别
func KindOf(err error) ErrorKind {
	var he HistoryError
	if errors.As(err, &he) {
		return he.Kind()
	}
	return KindUnknown
}

// Resource 未找到的资源类型
type Resource string

const (
	ResourceDocument Resource = "document"
	ResourceRevision Resource = "revision"
	ResourceHead     Resource = "branch head"
	ResourceBranch   Resource = "branch"
)

// NotFoundError 文档或修订不存在
type NotFoundError struct {
	Resource   Resource
	DocumentID string
	Detail     string
}

func (e *NotFoundError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s not found in document %q", e.Resource, e.DocumentID)
	}
	return fmt.Sprintf("%s %s not found in document %q", e.Resource, e.Detail, e.DocumentID)
}

func (e *NotFoundError) Kind() ErrorKind { return KindNotFound }
func (e *NotFoundError) historyError()   {}

// BranchNotFoundError 指定分支不存在
type BranchNotFoundError struct {
	DocumentID string
	Name       string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %q not found in document %q", e.Name, e.DocumentID)
}

func (e *BranchNotFoundError) Kind() ErrorKind { return KindBranchNotFound }
func (e *BranchNotFoundError) historyError()   {}

// BranchAlreadyExistsError 分支名称已被占用
type BranchAlreadyExistsError struct {
	DocumentID string
	Name       string
}

func (e *BranchAlreadyExistsError) Error() string {
	return fmt.Sprintf("branch %q already exists in document %q", e.Name, e.DocumentID)
}

func (e *BranchAlreadyExistsError) Kind() ErrorKind { return KindBranchAlreadyExists }
func (e *BranchAlreadyExistsError) historyError()   {}

// BranchErrorReason 分支规则被违反的原因
type BranchErrorReason string

const (
	BranchReasonOnlyBranch      BranchErrorReason = "only-branch"
	BranchReasonUnmergedChanges BranchErrorReason = "unmerged-changes"
	BranchReasonInvalidName     BranchErrorReason = "invalid-name"
)

// BranchError 违反分支规则
type BranchError struct {
	DocumentID string
	Branch     string
	Reason     BranchErrorReason
	// Count 阻止删除的修订数量，仅 unmerged-changes 有效
	Count int64
}

func (e *BranchError) Error() string {
	switch e.Reason {
	case BranchReasonOnlyBranch:
		return fmt.Sprintf("branch %q is the only branch of document %q", e.Branch, e.DocumentID)
	case BranchReasonUnmergedChanges:
		return fmt.Sprintf("branch %q of document %q has %d unmerged revision(s)", e.Branch, e.DocumentID, e.Count)
	case BranchReasonInvalidName:
		return fmt.Sprintf("invalid branch name %q", e.Branch)
	default:
		return fmt.Sprintf("branch %q of document %q: %s", e.Branch, e.DocumentID, e.Reason)
	}
}

func (e *BranchError) Kind() ErrorKind { return KindBranch }
func (e *BranchError) historyError()   {}

// MergeConflictError 无法快进合并
type MergeConflictError struct {
	DocumentID string
	Source     string
	Target     string
	// SourceOrigin 来源分支的分叉点
	SourceOrigin *int64
	// TargetHead 目标分支当前头修订号
	TargetHead int64
}

func (e *MergeConflictError) Error() string {
	origin := "none"
	if e.SourceOrigin != nil {
		origin = fmt.Sprint(*e.SourceOrigin)
	}
	return fmt.Sprintf("cannot fast-forward %q into %q in document %q: forked at %s, target head is %d",
		e.Source, e.Target, e.DocumentID, origin, e.TargetHead)
}

func (e *MergeConflictError) Kind() ErrorKind { return KindMergeConflict }
func (e *MergeConflictError) historyError()   {}
