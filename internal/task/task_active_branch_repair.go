package task

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/service"
	"github.com/haierkeys/prompt-history/pkg/logger"
	"github.com/haierkeys/prompt-history/pkg/workerpool"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// RepairDisabled 关闭活动分支修复任务的配置值
const RepairDisabled = "off"

var repairedDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "prompt_history_active_branch_repairs_total",
	Help: "Documents visited by the active branch repair task, by result.",
}, []string{"result"})

// ActiveBranchRepairTask 定期检查每个文档恰好有一个活动分支
type ActiveBranchRepairTask struct {
	branches   service.BranchService
	pool       *workerpool.Pool
	schedule   cron.Schedule
	startupRun bool
	logger     *zap.Logger
}

func init() {
	Register(NewActiveBranchRepairTask)
}

// NewActiveBranchRepairTask 根据配置创建修复任务，禁用时返回 nil
func NewActiveBranchRepairTask(appContainer *app.App) (Task, error) {
	cfg := appContainer.Config().Task
	spec := strings.TrimSpace(cfg.RepairSpec)
	if spec == "" || strings.EqualFold(spec, RepairDisabled) {
		appContainer.Logger().Info("ActiveBranchRepairTask disabled")
		return nil, nil
	}

	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid task.repair-spec %q: %w", spec, err)
	}

	return newActiveBranchRepairTask(
		appContainer.BranchService,
		appContainer.WorkerPool(),
		schedule,
		cfg.RepairOnStartup,
		appContainer.Logger(),
	), nil
}

func newActiveBranchRepairTask(branches service.BranchService, pool *workerpool.Pool, schedule cron.Schedule, startupRun bool, log *zap.Logger) *ActiveBranchRepairTask {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActiveBranchRepairTask{
		branches:   branches,
		pool:       pool,
		schedule:   schedule,
		startupRun: startupRun,
		logger:     log,
	}
}

// Name 返回任务名称
func (t *ActiveBranchRepairTask) Name() string {
	return "ActiveBranchRepairTask"
}

// Run 遍历所有文档并修复活动分支，单个文档失败只记录日志
func (t *ActiveBranchRepairTask) Run(ctx context.Context) error {
	start := time.Now()

	documentIDs, err := t.branches.ListDocumentIDs(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	var repaired atomic.Int64
	res, err := t.pool.Each(ctx, documentIDs, func(ctx context.Context, documentID string) error {
		changed, err := t.branches.RepairActiveBranch(ctx, documentID)
		if err != nil {
			return err
		}
		if changed {
			repaired.Add(1)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for documentID, ferr := range res.Failed {
		t.logger.Warn("active branch repair failed",
			zap.String(logger.FieldDocumentID, documentID),
			zap.Error(ferr))
	}

	repairedDocuments.WithLabelValues("repaired").Add(float64(repaired.Load()))
	repairedDocuments.WithLabelValues("unchanged").Add(float64(int64(res.Succeeded) - repaired.Load()))
	repairedDocuments.WithLabelValues("failed").Add(float64(len(res.Failed)))

	t.logger.Info("active branch repair finished",
		zap.String("task", t.Name()),
		zap.Int(logger.FieldCount, res.Total),
		zap.Int64("repaired", repaired.Load()),
		zap.Int("failed", len(res.Failed)),
		zap.Duration(logger.FieldDuration, time.Since(start)))
	return nil
}

// Schedule 返回执行计划
func (t *ActiveBranchRepairTask) Schedule() cron.Schedule {
	return t.schedule
}

// IsStartupRun 是否立即执行一次
func (t *ActiveBranchRepairTask) IsStartupRun() bool {
	return t.startupRun
}
