package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Task 定义任务接口
type Task interface {
	Name() string                  // 任务名称
	Run(ctx context.Context) error // 执行任务
	Schedule() cron.Schedule       // 执行计划，nil 表示只在启动时执行
	IsStartupRun() bool            // 是否立即执行一次
}

// Scheduler 任务调度器
type Scheduler struct {
	logger *zap.Logger
	tasks  []Task

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewScheduler 创建任务调度器
func NewScheduler(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		logger: logger,
		tasks:  make([]Task, 0),
	}
}

// AddTask 添加任务
func (s *Scheduler) AddTask(task Task) {
	s.tasks = append(s.tasks, task)
}

// Start 启动所有任务，ctx 取消或调用 Stop 时停止
func (s *Scheduler) Start(ctx context.Context) {
	if len(s.tasks) == 0 {
		s.logger.Info("no tasks to schedule")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.logger.Info("tasks starting", zap.Int("count", len(s.tasks)))

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.startTask(ctx, task)
	}
}

// Stop 停止调度并等待运行中的任务结束
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startTask 运行单个任务直到 ctx 取消
func (s *Scheduler) startTask(ctx context.Context, task Task) {
	defer s.wg.Done()

	if task.IsStartupRun() {
		s.runOnce(ctx, task, "startupRun")
	}

	schedule := task.Schedule()
	if schedule == nil {
		return
	}

	for {
		next := schedule.Next(time.Now())
		if next.IsZero() {
			return
		}
		timer := time.NewTimer(time.Until(next))

		select {
		case <-timer.C:
			s.runOnce(ctx, task, "loopRun")
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("task stopped", zap.String("name", task.Name()))
			return
		}
	}
}

// runOnce 执行一次任务，panic 被记录而不会终止调度
func (s *Scheduler) runOnce(ctx context.Context, task Task, trigger string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("task panic",
				zap.String("name", task.Name()),
				zap.String("trigger", trigger),
				zap.Any("panic", r),
				zap.Stack("stack"))
		}
	}()

	s.logger.Info("task running", zap.String("name", task.Name()), zap.String("trigger", trigger))
	if err := task.Run(ctx); err != nil {
		s.logger.Error("task running error",
			zap.String("name", task.Name()),
			zap.String("trigger", trigger),
			zap.Error(err))
	}
}
