package api_router

import (
	"github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/dto"
	"github.com/haierkeys/prompt-history/internal/service"
	pkgapp "github.com/haierkeys/prompt-history/pkg/app"
	"github.com/haierkeys/prompt-history/pkg/code"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 差异、回滚、合并与分支比较 API 路由处理器
type HistoryHandler struct {
	*Handler
}

// NewHistoryHandler 创建 HistoryHandler 实例
func NewHistoryHandler(a *app.App) *HistoryHandler {
	return &HistoryHandler{Handler: NewHandler(a)}
}

// Diff 比较两个修订
// @Summary 比较两个修订
// @Tags 历史
// @Produce json
// @Param document path string true "文档 ID"
// @Param params query dto.DiffRequest true "修订号"
// @Success 200 {object} pkgapp.Res{data=dto.DiffDTO} "成功"
// @Router /api/documents/{document}/diff [get]
func (h *HistoryHandler) Diff(c *gin.Context) {
	params := &dto.DiffRequest{}
	if !h.bind(c, "HistoryHandler.Diff", params) {
		return
	}

	d, err := h.App.DiffService.ComputeDiff(c.Request.Context(), c.Param(DocumentParam), params.From, params.To)
	if err != nil {
		h.respondError(c, "HistoryHandler.Diff", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.NewDiffDTO(d)))
}

// Rollback 回滚到指定修订
// @Summary 回滚
// @Description 以目标修订的内容和元数据追加一个新修订，历史不会被改写
// @Tags 历史
// @Accept json
// @Produce json
// @Param document path string true "文档 ID"
// @Param params body dto.RollbackRequest true "回滚参数"
// @Success 200 {object} pkgapp.Res{data=dto.RevisionDTO} "成功"
// @Router /api/documents/{document}/rollback [post]
func (h *HistoryHandler) Rollback(c *gin.Context) {
	params := &dto.RollbackRequest{}
	if !h.bind(c, "HistoryHandler.Rollback", params) {
		return
	}

	rev, err := h.App.RollbackService.Rollback(c.Request.Context(), c.Param(DocumentParam), params.Revision, service.RollbackOptions{
		Branch:       params.Branch,
		ChangeReason: params.ChangeReason,
	})
	if err != nil {
		h.respondError(c, "HistoryHandler.Rollback", err)
		return
	}
	h.respondRevision(c, "HistoryHandler.Rollback", rev)
}

// Merge 快进合并
// @Summary 合并分支
// @Description 来源分支分叉于目标分支头时，把来源头内容追加到目标分支
// @Tags 历史
// @Accept json
// @Produce json
// @Param document path string true "文档 ID"
// @Param params body dto.MergeRequest true "合并参数"
// @Success 200 {object} pkgapp.Res{data=dto.RevisionDTO} "成功"
// @Router /api/documents/{document}/merge [post]
func (h *HistoryHandler) Merge(c *gin.Context) {
	params := &dto.MergeRequest{}
	if !h.bind(c, "HistoryHandler.Merge", params) {
		return
	}

	rev, err := h.App.MergeService.MergeBranch(c.Request.Context(), c.Param(DocumentParam),
		params.Source, params.Target, params.ChangeReason)
	if err != nil {
		h.respondError(c, "HistoryHandler.Merge", err)
		return
	}
	h.respondRevision(c, "HistoryHandler.Merge", rev)
}

// Compare 比较两个分支
// @Summary 比较分支
// @Tags 历史
// @Produce json
// @Param document path string true "文档 ID"
// @Param params query dto.CompareRequest true "分支名称"
// @Success 200 {object} pkgapp.Res{data=dto.ComparisonDTO} "成功"
// @Router /api/documents/{document}/compare [get]
func (h *HistoryHandler) Compare(c *gin.Context) {
	params := &dto.CompareRequest{}
	if !h.bind(c, "HistoryHandler.Compare", params) {
		return
	}

	cmp, err := h.App.MergeService.CompareBranches(c.Request.Context(), c.Param(DocumentParam), params.Source, params.Target)
	if err != nil {
		h.respondError(c, "HistoryHandler.Compare", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(dto.NewComparisonDTO(params.Source, params.Target, cmp)))
}
