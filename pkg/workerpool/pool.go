// Package workerpool 提供有界并发的批处理执行器
// 每个键独立执行，单个键失败不会中断其他键
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// 错误定义
var (
	// ErrWorkerPoolClosed 当 Worker Pool 已关闭时返回
	ErrWorkerPoolClosed = errors.New("worker pool is closed")
	// ErrTaskCancelled 批处理被取消时未执行的键返回此错误
	ErrTaskCancelled = errors.New("task was cancelled")
)

// Config Worker Pool 配置
type Config struct {
	// MaxWorkers 单个批次的最大并发数，默认 8
	MaxWorkers int
	// WarningPercent 告警阈值百分比，默认 0.8 (80%)
	WarningPercent float64
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		MaxWorkers:     8,
		WarningPercent: 0.8,
	}
}

// Result 一次批处理的结果
type Result struct {
	Total     int
	Succeeded int
	// Failed 失败的键及其错误
	Failed map[string]error
}

// Err 合并所有失败，没有失败时返回 nil
func (r Result) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for key, err := range r.Failed {
		errs = append(errs, fmt.Errorf("%s: %w", key, err))
	}
	return errors.Join(errs...)
}

// Pool 有界并发的批处理执行器
type Pool struct {
	config Config
	logger *zap.Logger

	activeCount atomic.Int64
	batchWg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New 创建新的 Worker Pool
// cfg: 配置，如果为 nil 则使用默认配置
// logger: zap 日志器，如果为 nil 则使用 nop logger
func New(cfg *Config, logger *zap.Logger) *Pool {
	c := DefaultConfig()
	if cfg != nil {
		if cfg.MaxWorkers > 0 {
			c.MaxWorkers = cfg.MaxWorkers
		}
		if cfg.WarningPercent > 0 && cfg.WarningPercent <= 1 {
			c.WarningPercent = cfg.WarningPercent
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{config: c, logger: logger}
}

// Each 以最多 MaxWorkers 的并发对每个键执行 fn，等待全部完成
// fn 的错误和 panic 记录在结果中，不会取消其他键
func (p *Pool) Each(ctx context.Context, keys []string, fn func(ctx context.Context, key string) error) (Result, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return Result{}, ErrWorkerPoolClosed
	}
	p.batchWg.Add(1)
	p.mu.RUnlock()
	defer p.batchWg.Done()

	var (
		mu  sync.Mutex
		res = Result{Total: len(keys), Failed: make(map[string]error)}
	)
	record := func(key string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			res.Failed[key] = err
			return
		}
		res.Succeeded++
	}

	var g errgroup.Group
	g.SetLimit(p.config.MaxWorkers)
	for _, key := range keys {
		if ctx.Err() != nil {
			record(key, ErrTaskCancelled)
			continue
		}
		key := key
		g.Go(func() error {
			record(key, p.execute(ctx, key, fn))
			return nil
		})
	}
	_ = g.Wait()

	return res, nil
}

// execute 执行单个键，panic 转换为错误
func (p *Pool) execute(ctx context.Context, key string, fn func(ctx context.Context, key string) error) (err error) {
	p.activeCount.Add(1)
	defer p.activeCount.Add(-1)
	p.checkWarningThreshold()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker pool task panic",
				zap.String("key", key),
				zap.Any("panic", r),
				zap.Stack("stack"))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if ctx.Err() != nil {
		return ErrTaskCancelled
	}
	return fn(ctx, key)
}

// checkWarningThreshold 检查是否超过告警阈值
func (p *Pool) checkWarningThreshold() {
	active := p.activeCount.Load()
	threshold := int64(float64(p.config.MaxWorkers) * p.config.WarningPercent)

	if threshold > 0 && active >= threshold {
		p.logger.Debug("worker pool approaching capacity",
			zap.Int64("activeCount", active),
			zap.Int("maxWorkers", p.config.MaxWorkers))
	}
}

// ActiveCount 返回当前活跃任务数
func (p *Pool) ActiveCount() int64 {
	return p.activeCount.Load()
}

// IsClosed 返回 Worker Pool 是否已关闭
func (p *Pool) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// Shutdown 拒绝新批次并等待运行中的批次完成
// ctx 用于控制关闭超时
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	p.logger.Info("worker pool shutting down", zap.Int64("activeCount", p.activeCount.Load()))

	done := make(chan struct{})
	go func() {
		p.batchWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("worker pool shutdown completed")
		return nil
	case <-ctx.Done():
		p.logger.Warn("worker pool shutdown timeout")
		return ctx.Err()
	}
}

// Metrics 返回 Worker Pool 的指标
type Metrics struct {
	MaxWorkers  int
	ActiveCount int64
	IsClosed    bool
}

// GetMetrics 获取当前指标
func (p *Pool) GetMetrics() Metrics {
	return Metrics{
		MaxWorkers:  p.config.MaxWorkers,
		ActiveCount: p.activeCount.Load(),
		IsClosed:    p.IsClosed(),
	}
}
