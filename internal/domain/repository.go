package domain

import "context"

// Transactor 按文档串行执行写事务
type Transactor interface {
	// ExecuteWrite 在文档写队列中以单个事务执行 fn，fn 返回错误时回滚
	ExecuteWrite(ctx context.Context, documentID string, fn func(ctx context.Context) error) error
}

// DocumentChecker 外部文档存储的存在性检查
type DocumentChecker interface {
	Exists(ctx context.Context, documentID string) (bool, error)
}
