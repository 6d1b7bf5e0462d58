// Package writequeue provides a per-document single-writer queue
// Package writequeue 提供按文档划分的单写者队列
// Every mutation of one document runs on that document's worker in FIFO order,
// so revision numbering and the active-branch flag never race.
// 同一文档的所有写操作在该文档的 worker 上按 FIFO 顺序执行，
// 保证修订号分配与活动分支标记不会产生竞争。
package writequeue

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Error definitions
// 错误定义
var (
	// ErrWriteQueueFull returned when the document write queue is full
	// ErrWriteQueueFull 当文档写队列已满时返回
	ErrWriteQueueFull = errors.New("write queue is full")
	// ErrWriteQueueClosed returned when the manager is closed
	// ErrWriteQueueClosed 当写队列管理器已关闭时返回
	ErrWriteQueueClosed = errors.New("write queue is closed")
	// ErrWriteTimeout returned when a write operation times out
	// ErrWriteTimeout 当写操作超时时返回
	ErrWriteTimeout = errors.New("write operation timeout")
)

// Config write queue configuration
// Config 写队列配置
type Config struct {
	// QueueCapacity per-document queue capacity, default 100
	// QueueCapacity 每个文档的队列容量，默认 100
	QueueCapacity int
	// WriteTimeout write operation timeout, default 30 seconds
	// WriteTimeout 写操作超时时间，默认 30 秒
	WriteTimeout time.Duration
	// IdleTimeout idle cleanup timeout, default 10 minutes
	// IdleTimeout 空闲清理超时时间，默认 10 分钟
	IdleTimeout time.Duration
}

// DefaultConfig returns default configuration
// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		QueueCapacity: 100,
		WriteTimeout:  30 * time.Second,
		IdleTimeout:   10 * time.Minute,
	}
}

// op states; the waiter and the worker race to move an op out of opPending
// 操作状态，等待方与 worker 竞争把操作移出 opPending
const (
	opPending int32 = iota
	opRunning
	opAbandoned
)

type writeOp struct {
	ctx    context.Context
	fn     func(ctx context.Context) error
	result chan error
	state  *atomic.Int32
}

// documentQueue write queue of a single document
// documentQueue 单个文档的写队列
type documentQueue struct {
	documentID string
	ch         chan writeOp
	lastUsed   atomic.Int64
	// inflight ops enqueued and not yet finished, cleanup skips the queue while > 0
	// inflight 已入队但未完成的操作数，大于 0 时清理跳过该队列
	inflight   atomic.Int64
	closed     atomic.Bool
	workerWg   sync.WaitGroup
	stopCh     chan struct{}
}

// Manager manages write queues for all documents
// Manager 管理所有文档的写队列
type Manager struct {
	config Config
	logger *zap.Logger

	queues sync.Map // map[string]*documentQueue

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool

	cleanupWg   sync.WaitGroup
	cleanupDone chan struct{}
}

// New creates write queue manager
// New 创建写队列管理器
// cfg: configuration, nil means default
// logger: zap logger, nil means nop logger
func New(cfg *Config, logger *zap.Logger) *Manager {
	if cfg == nil {
		defaultCfg := DefaultConfig()
		cfg = &defaultCfg
	}

	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 100
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 30 * time.Second
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 10 * time.Minute
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		config:      *cfg,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}

	m.cleanupWg.Add(1)
	go m.cleanupIdleQueues()

	m.logger.Info("write queue manager started",
		zap.Int("queueCapacity", cfg.QueueCapacity),
		zap.Duration("writeTimeout", cfg.WriteTimeout),
		zap.Duration("idleTimeout", cfg.IdleTimeout))

	return m
}

// Execute runs fn on the document's worker and waits for its result
// Operations for the same document are processed one at a time in FIFO order
// fn receives a context bounded by WriteTimeout. An op that has not started when the
// caller gives up is skipped; a started op is cancelled and its real outcome returned.
// Execute 在文档的 worker 上执行 fn 并等待结果
// 同一文档的操作按 FIFO 顺序逐个执行
// fn 收到受 WriteTimeout 约束的 ctx；调用方放弃时尚未开始的操作被跳过，
// 已开始的操作被取消并返回其真实结果
func (m *Manager) Execute(ctx context.Context, documentID string, fn func(ctx context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, m.config.WriteTimeout)
	defer cancel()

	result := make(chan error, 1)
	op := writeOp{
		ctx:    opCtx,
		fn:     fn,
		result: result,
		state:  new(atomic.Int32),
	}

	// The read lock is held until the op is enqueued so idle cleanup
	// cannot stop the queue in between
	// 持有读锁直到操作入队，避免空闲清理在此期间停止队列
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return ErrWriteQueueClosed
	}
	queue := m.getOrCreateQueue(documentID)
	queue.inflight.Add(1)
	select {
	case queue.ch <- op:
		m.mu.RUnlock()
	default:
		queue.inflight.Add(-1)
		m.mu.RUnlock()
		return ErrWriteQueueFull
	}

	var stopErr error
	select {
	case err := <-result:
		return err
	case <-opCtx.Done():
		stopErr = ErrWriteTimeout
		if err := ctx.Err(); err != nil {
			stopErr = err
		}
	case <-m.ctx.Done():
		stopErr = ErrWriteQueueClosed
	}

	if op.state.CompareAndSwap(opPending, opAbandoned) {
		return stopErr
	}

	// fn is running: cancel it and report what actually happened
	// fn 正在执行：取消并返回实际结果
	cancel()
	err := <-result
	if err != nil && opCtx.Err() != nil && isCancellation(err) {
		return stopErr
	}
	return err
}

// isCancellation reports errors caused by the op context ending; a transaction
// interrupted this way has been rolled back
// isCancellation 判断错误是否由操作 ctx 结束引起，此类事务已回滚
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, sql.ErrTxDone)
}

// getOrCreateQueue gets or lazily creates the document write queue, caller holds m.mu
// getOrCreateQueue 获取或懒加载创建文档写队列，调用方需持有 m.mu
func (m *Manager) getOrCreateQueue(documentID string) *documentQueue {
	if v, ok := m.queues.Load(documentID); ok {
		queue := v.(*documentQueue)
		if !queue.closed.Load() {
			queue.lastUsed.Store(time.Now().UnixNano())
			return queue
		}
	}

	queue := &documentQueue{
		documentID: documentID,
		ch:         make(chan writeOp, m.config.QueueCapacity),
		stopCh:     make(chan struct{}),
	}
	queue.lastUsed.Store(time.Now().UnixNano())

	// LoadOrStore guarantees a single queue per document
	// 使用 LoadOrStore 确保每个文档只有一个队列
	actual, loaded := m.queues.LoadOrStore(documentID, queue)
	if loaded {
		existing := actual.(*documentQueue)
		if !existing.closed.Load() {
			existing.lastUsed.Store(time.Now().UnixNano())
			return existing
		}
		if !m.queues.CompareAndSwap(documentID, existing, queue) {
			return m.getOrCreateQueue(documentID)
		}
	}

	queue.workerWg.Add(1)
	go m.worker(queue)

	m.logger.Debug("created write queue for document",
		zap.String("documentId", documentID),
		zap.Int("capacity", m.config.QueueCapacity))

	return queue
}

func (m *Manager) worker(queue *documentQueue) {
	defer queue.workerWg.Done()
	defer func() {
		queue.closed.Store(true)
		m.logger.Debug("write queue worker stopped", zap.String("documentId", queue.documentID))
	}()

	for {
		select {
		case <-m.ctx.Done():
			m.drainQueue(queue)
			return
		case <-queue.stopCh:
			m.drainQueue(queue)
			return
		case op := <-queue.ch:
			m.executeOp(queue, op)
		}
	}
}

func (m *Manager) executeOp(queue *documentQueue, op writeOp) {
	defer func() {
		queue.lastUsed.Store(time.Now().UnixNano())
		queue.inflight.Add(-1)
	}()

	if !op.state.CompareAndSwap(opPending, opRunning) {
		m.logger.Debug("skip abandoned write operation", zap.String("documentId", queue.documentID))
		return
	}

	if err := op.ctx.Err(); err != nil {
		op.result <- err
		return
	}

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("write operation panic",
					zap.String("documentId", queue.documentID),
					zap.Any("panic", r),
					zap.Stack("stack"))
				err = errors.New("write operation panicked")
			}
		}()
		err = op.fn(op.ctx)
	}()

	op.result <- err
}

func (m *Manager) drainQueue(queue *documentQueue) {
	for {
		select {
		case op := <-queue.ch:
			m.executeOp(queue, op)
		default:
			return
		}
	}
}

func (m *Manager) cleanupIdleQueues() {
	defer m.cleanupWg.Done()

	ticker := time.NewTicker(m.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-m.cleanupDone:
			return
		case <-ticker.C:
			m.doCleanup()
		}
	}
}

// doCleanup stops queues that have been idle longer than IdleTimeout
// doCleanup 停止空闲时间超过 IdleTimeout 的队列
func (m *Manager) doCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UnixNano()
	idleThreshold := m.config.IdleTimeout.Nanoseconds()

	m.queues.Range(func(key, value interface{}) bool {
		documentID := key.(string)
		queue := value.(*documentQueue)

		lastUsed := queue.lastUsed.Load()
		if queue.inflight.Load() > 0 {
			return true
		}
		if now-lastUsed > idleThreshold && len(queue.ch) == 0 && queue.closed.CompareAndSwap(false, true) {
			m.logger.Debug("cleaning up idle write queue",
				zap.String("documentId", documentID),
				zap.Duration("idleTime", time.Duration(now-lastUsed)))
			close(queue.stopCh)
			m.queues.CompareAndDelete(documentID, queue)
		}
		return true
	})
}

// Shutdown closes the manager and waits for queued operations to finish
// Shutdown 关闭写队列管理器，等待已排队操作完成
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.logger.Info("write queue manager shutting down")

	close(m.cleanupDone)

	done := make(chan struct{})
	go func() {
		m.queues.Range(func(key, value interface{}) bool {
			queue := value.(*documentQueue)
			if queue.closed.CompareAndSwap(false, true) {
				close(queue.stopCh)
			}
			return true
		})

		m.queues.Range(func(key, value interface{}) bool {
			value.(*documentQueue).workerWg.Wait()
			return true
		})

		m.cleanupWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		m.logger.Info("write queue manager shutdown completed")
		m.cancel()
		return nil
	case <-ctx.Done():
		m.logger.Warn("write queue manager shutdown timeout, forcing cancellation")
		m.cancel()
		return ctx.Err()
	}
}

// QueueCount returns the number of live document queues
// QueueCount 返回当前活跃队列数量
func (m *Manager) QueueCount() int {
	count := 0
	m.queues.Range(func(key, value interface{}) bool {
		if !value.(*documentQueue).closed.Load() {
			count++
		}
		return true
	})
	return count
}

// QueuedCount returns the number of operations waiting for a document
// QueuedCount 返回指定文档队列中等待的操作数
func (m *Manager) QueuedCount(documentID string) int {
	if v, ok := m.queues.Load(documentID); ok {
		return len(v.(*documentQueue).ch)
	}
	return 0
}

// IsClosed reports whether the manager is closed
// IsClosed 返回管理器是否已关闭
func (m *Manager) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Metrics write queue manager metrics
// Metrics 写队列管理器指标
type Metrics struct {
	QueueCapacity int
	ActiveQueues  int
	IsClosed      bool
}

// GetMetrics gets current metrics
// GetMetrics 获取当前指标
func (m *Manager) GetMetrics() Metrics {
	return Metrics{
		QueueCapacity: m.config.QueueCapacity,
		ActiveQueues:  m.QueueCount(),
		IsClosed:      m.IsClosed(),
	}
}
