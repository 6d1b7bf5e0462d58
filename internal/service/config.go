// Package service implements the business logic layer
// Package service 实现业务逻辑层
package service

import (
	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/diff"
)

// ServiceConfig service layer configuration
// ServiceConfig 服务层配置
type ServiceConfig struct {
	History HistoryServiceConfig // History related config // 历史相关配置
}

// HistoryServiceConfig revision history configuration
// HistoryServiceConfig 修订历史配置
type HistoryServiceConfig struct {
	DefaultBranch string // Branch created with the first revision // 首个修订隐式创建的分支
	DiffContext   int    // Context lines around diff hunks // 差异块上下文行数
	MaxListLimit  int    // Upper bound of a revision page // 修订分页上限
}

// DefaultServiceConfig returns default configuration
// DefaultServiceConfig 返回默认配置
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		History: HistoryServiceConfig{
			DefaultBranch: domain.DefaultBranch,
			DiffContext:   diff.DefaultContext,
			MaxListLimit:  100,
		},
	}
}

func (c *ServiceConfig) withDefaults() *ServiceConfig {
	def := DefaultServiceConfig()
	if c == nil {
		return def
	}
	out := *c
	if out.History.DefaultBranch == "" {
		out.History.DefaultBranch = def.History.DefaultBranch
	}
	if out.History.DiffContext < 0 {
		out.History.DiffContext = def.History.DiffContext
	}
	if out.History.MaxListLimit <= 0 {
		out.History.MaxListLimit = def.History.MaxListLimit
	}
	return &out
}
