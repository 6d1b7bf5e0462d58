// Package limiter token bucket rate limiting keyed per client
// Package limiter 按客户端划分的令牌桶限流
package limiter

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face 限流器接口
type Face interface {
	Key(c *gin.Context) string
	GetBucket(key string) (*ratelimit.Bucket, bool)
}

// BucketRule 令牌桶规则
type BucketRule struct {
	FillInterval time.Duration // 填充间隔
	Capacity     int64         // 桶容量
	Quantum      int64         // 每次填充的令牌数
}

// ClientLimiter 为每个客户端 IP 懒创建一个令牌桶
type ClientLimiter struct {
	rule    BucketRule
	mu      sync.Mutex
	buckets map[string]*ratelimit.Bucket
}

var _ Face = (*ClientLimiter)(nil)

// NewClientLimiter 创建按客户端 IP 限流的限流器
func NewClientLimiter(rule BucketRule) *ClientLimiter {
	if rule.FillInterval <= 0 {
		rule.FillInterval = time.Second
	}
	if rule.Capacity <= 0 {
		rule.Capacity = 100
	}
	if rule.Quantum <= 0 {
		rule.Quantum = rule.Capacity
	}
	return &ClientLimiter{
		rule:    rule,
		buckets: make(map[string]*ratelimit.Bucket),
	}
}

// Key 以客户端 IP 作为限流键
func (l *ClientLimiter) Key(c *gin.Context) string {
	return c.ClientIP()
}

// GetBucket 获取键对应的令牌桶，不存在时创建
func (l *ClientLimiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if !ok {
		bucket = ratelimit.NewBucketWithQuantum(l.rule.FillInterval, l.rule.Capacity, l.rule.Quantum)
		l.buckets[key] = bucket
	}
	return bucket, true
}

// Len 当前令牌桶数量
func (l *ClientLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
