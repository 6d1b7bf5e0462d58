package service

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/diff"
	"github.com/haierkeys/prompt-history/pkg/logger"

	"github.com/bytedance/sonic"
	pkgerrors "github.com/pkg/errors"
	"github.com/wI2L/jsondiff"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DiffService defines the diff engine business service interface
// DiffService 定义差异计算业务服务接口
type DiffService interface {
	// ComputeDiff compares the content and metadata of two revisions
	// ComputeDiff 比较两个修订的内容和元数据
	ComputeDiff(ctx context.Context, documentID string, fromRevision, toRevision int64) (*domain.Diff, error)
}

// diffService implementation of DiffService interface
// diffService 实现 DiffService 接口
type diffService struct {
	revisionRepo domain.RevisionRepository // Revision repository // 修订仓库
	sf           *singleflight.Group       // Singleflight group // 并发请求合并组
	logger       *zap.Logger               // Logger // 日志对象
	config       *ServiceConfig            // Service configuration // 服务配置
}

// NewDiffService creates DiffService instance
// NewDiffService 创建 DiffService 实例
func NewDiffService(revisionRepo domain.RevisionRepository, logger *zap.Logger, config *ServiceConfig) DiffService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &diffService{
		revisionRepo: revisionRepo,
		sf:           &singleflight.Group{},
		logger:       logger,
		config:       config.withDefaults(),
	}
}

var _ DiffService = (*diffService)(nil)

// ComputeDiff compares two revisions; identical concurrent requests share one computation
// ComputeDiff 比较两个修订，相同的并发请求共享一次计算
func (s *diffService) ComputeDiff(ctx context.Context, documentID string, fromRevision, toRevision int64) (*domain.Diff, error) {
	key := fmt.Sprintf("%s:%d:%d", documentID, fromRevision, toRevision)
	// 共享计算不随首个调用方取消，每个调用方只等待自己的 ctx
	ch := s.sf.DoChan(key, func() (interface{}, error) {
		return s.compute(context.WithoutCancel(ctx), documentID, fromRevision, toRevision)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return cloneDiff(res.Val.(*domain.Diff)), nil
	}
}

// cloneDiff copies the slices shared between coalesced callers
// cloneDiff 复制合并调用方之间共享的切片
func cloneDiff(d *domain.Diff) *domain.Diff {
	out := *d
	out.Hunks = make([]diff.Hunk, len(d.Hunks))
	for i, h := range d.Hunks {
		h.Lines = slices.Clone(h.Lines)
		out.Hunks[i] = h
	}
	out.MetadataChanges = slices.Clone(d.MetadataChanges)
	return &out
}

func (s *diffService) compute(ctx context.Context, documentID string, fromRevision, toRevision int64) (*domain.Diff, error) {
	from, err := getRevision(ctx, s.revisionRepo, documentID, fromRevision)
	if err != nil {
		return nil, err
	}
	to, err := getRevision(ctx, s.revisionRepo, documentID, toRevision)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := diff.Compute(from.Content, to.Content, s.config.History.DiffContext)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "diff content")
	}
	changes, err := metadataChanges(from.Metadata, to.Metadata)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)
	diffDuration.Observe(elapsed.Seconds())

	s.logger.Debug("diff computed",
		zap.String(logger.FieldDocumentID, documentID),
		zap.Int64("from", fromRevision),
		zap.Int64("to", toRevision),
		zap.Int(logger.FieldCount, len(result.Hunks)),
		zap.Duration(logger.FieldDuration, elapsed))

	return &domain.Diff{
		DocumentID:      documentID,
		FromRevision:    fromRevision,
		ToRevision:      toRevision,
		Hunks:           result.Hunks,
		Stats:           result.Stats,
		MetadataChanges: changes,
	}, nil
}

// metadataChanges returns the JSON Patch turning from into to; nil maps compare as empty objects
// metadataChanges 返回从 from 到 to 的 JSON Patch，nil 视为空对象
func metadataChanges(from, to map[string]any) ([]domain.MetadataChange, error) {
	if from == nil {
		from = map[string]any{}
	}
	if to == nil {
		to = map[string]any{}
	}
	source, err := sonic.Marshal(from)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode metadata")
	}
	target, err := sonic.Marshal(to)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "encode metadata")
	}

	patch, err := jsondiff.CompareJSON(source, target)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "diff metadata")
	}
	if len(patch) == 0 {
		return nil, nil
	}

	changes := make([]domain.MetadataChange, 0, len(patch))
	for _, op := range patch {
		changes = append(changes, domain.MetadataChange{
			Op:    op.Type,
			Path:  fmt.Sprint(op.Path),
			From:  fmt.Sprint(op.From),
			Value: op.Value,
		})
	}
	return changes, nil
}
