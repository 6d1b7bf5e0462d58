package api_router

import (
	"github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/internal/dto"
	pkgapp "github.com/haierkeys/prompt-history/pkg/app"
	"github.com/haierkeys/prompt-history/pkg/code"

	"github.com/gin-gonic/gin"
)

// BranchHandler 分支 API 路由处理器
type BranchHandler struct {
	*Handler
}

// NewBranchHandler 创建 BranchHandler 实例
func NewBranchHandler(a *app.App) *BranchHandler {
	return &BranchHandler{Handler: NewHandler(a)}
}

// List 分支列表
// @Summary 分支列表
// @Description 按创建顺序返回文档所有分支
// @Tags 分支
// @Produce json
// @Param document path string true "文档 ID"
// @Success 200 {object} pkgapp.Res{data=[]dto.BranchDTO} "成功"
// @Router /api/documents/{document}/branches [get]
func (h *BranchHandler) List(c *gin.Context) {
	branches, err := h.App.BranchService.ListBranches(c.Request.Context(), c.Param(DocumentParam))
	if err != nil {
		h.respondError(c, "BranchHandler.List", err)
		return
	}

	list, err := dto.NewBranchDTOs(branches)
	if err != nil {
		h.respondError(c, "BranchHandler.List", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(list))
}

// Create 创建分支
// @Summary 创建分支
// @Description 从指定修订（为空时为默认分支头）创建分支，不改变活动分支
// @Tags 分支
// @Accept json
// @Produce json
// @Param document path string true "文档 ID"
// @Param params body dto.BranchCreateRequest true "分支参数"
// @Success 200 {object} pkgapp.Res{data=dto.BranchDTO} "成功"
// @Router /api/documents/{document}/branches [post]
func (h *BranchHandler) Create(c *gin.Context) {
	params := &dto.BranchCreateRequest{}
	if !h.bind(c, "BranchHandler.Create", params) {
		return
	}

	b, err := h.App.BranchService.CreateBranch(c.Request.Context(), c.Param(DocumentParam), params.Name, params.FromRevision)
	if err != nil {
		h.respondError(c, "BranchHandler.Create", err)
		return
	}
	h.respondBranch(c, "BranchHandler.Create", b)
}

// Active 获取活动分支
// @Summary 获取活动分支
// @Tags 分支
// @Produce json
// @Param document path string true "文档 ID"
// @Success 200 {object} pkgapp.Res{data=dto.BranchDTO} "成功"
// @Router /api/documents/{document}/branches/active [get]
func (h *BranchHandler) Active(c *gin.Context) {
	b, err := h.App.BranchService.GetActiveBranch(c.Request.Context(), c.Param(DocumentParam))
	if err != nil {
		h.respondError(c, "BranchHandler.Active", err)
		return
	}
	h.respondBranch(c, "BranchHandler.Active", b)
}

// Switch 切换活动分支
// @Summary 切换活动分支
// @Tags 分支
// @Accept json
// @Produce json
// @Param document path string true "文档 ID"
// @Param params body dto.BranchSwitchRequest true "分支名称"
// @Success 200 {object} pkgapp.Res{data=dto.BranchDTO} "成功"
// @Router /api/documents/{document}/branches/active [put]
func (h *BranchHandler) Switch(c *gin.Context) {
	params := &dto.BranchSwitchRequest{}
	if !h.bind(c, "BranchHandler.Switch", params) {
		return
	}

	b, err := h.App.BranchService.SwitchBranch(c.Request.Context(), c.Param(DocumentParam), params.Name)
	if err != nil {
		h.respondError(c, "BranchHandler.Switch", err)
		return
	}
	h.respondBranch(c, "BranchHandler.Switch", b)
}

// Delete 删除分支
// @Summary 删除分支
// @Description 只能删除没有修订且不是唯一分支的分支
// @Tags 分支
// @Produce json
// @Param document path string true "文档 ID"
// @Param branch path string true "分支名称"
// @Success 200 {object} pkgapp.Res "成功"
// @Router /api/documents/{document}/branches/{branch} [delete]
func (h *BranchHandler) Delete(c *gin.Context) {
	if err := h.App.BranchService.DeleteBranch(c.Request.Context(), c.Param(DocumentParam), c.Param("branch")); err != nil {
		h.respondError(c, "BranchHandler.Delete", err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success)
}

func (h *Handler) respondBranch(c *gin.Context, method string, b *domain.Branch) {
	out, err := dto.NewBranchDTO(b)
	if err != nil {
		h.respondError(c, method, err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(out))
}
