package api_router

import (
	"github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/internal/dto"
	pkgapp "github.com/haierkeys/prompt-history/pkg/app"
	"github.com/haierkeys/prompt-history/pkg/code"
	"github.com/haierkeys/prompt-history/pkg/convert"

	"github.com/gin-gonic/gin"
)

// RevisionHandler 修订 API 路由处理器
type RevisionHandler struct {
	*Handler
}

// NewRevisionHandler 创建 RevisionHandler 实例
func NewRevisionHandler(a *app.App) *RevisionHandler {
	return &RevisionHandler{Handler: NewHandler(a)}
}

// Create 追加修订
// @Summary 追加修订
// @Description 在指定分支（为空时为活动分支）上追加一个新修订
// @Tags 修订
// @Accept json
// @Produce json
// @Param document path string true "文档 ID"
// @Param params body dto.RevisionCreateRequest true "修订内容"
// @Success 200 {object} pkgapp.Res{data=dto.RevisionDTO} "成功"
// @Router /api/documents/{document}/revisions [post]
func (h *RevisionHandler) Create(c *gin.Context) {
	params := &dto.RevisionCreateRequest{}
	if !h.bind(c, "RevisionHandler.Create", params) {
		return
	}

	rev, err := h.App.RevisionService.CreateRevision(c.Request.Context(), c.Param(DocumentParam),
		params.Branch, params.Content, params.Metadata, params.ChangeReason)
	if err != nil {
		h.respondError(c, "RevisionHandler.Create", err)
		return
	}
	h.respondRevision(c, "RevisionHandler.Create", rev)
}

// List 修订列表
// @Summary 修订列表
// @Description 按修订号倒序分页获取修订，branch 为空时返回所有分支
// @Tags 修订
// @Produce json
// @Param document path string true "文档 ID"
// @Param params query dto.RevisionListRequest true "查询参数"
// @Success 200 {object} pkgapp.Res{data=pkgapp.ListRes{list=[]dto.RevisionDTO}} "成功"
// @Router /api/documents/{document}/revisions [get]
func (h *RevisionHandler) List(c *gin.Context) {
	params := &dto.RevisionListRequest{}
	if !h.bind(c, "RevisionHandler.List", params) {
		return
	}

	pager := pkgapp.NewPager(c, h.pagination(), 0)
	revs, total, err := h.App.RevisionService.ListRevisions(c.Request.Context(), c.Param(DocumentParam), domain.ListOptions{
		Branch: params.Branch,
		Limit:  pager.PageSize,
		Offset: pkgapp.GetPageOffset(pager.Page, pager.PageSize),
	})
	if err != nil {
		h.respondError(c, "RevisionHandler.List", err)
		return
	}

	list, err := dto.NewRevisionDTOs(revs)
	if err != nil {
		h.respondError(c, "RevisionHandler.List", err)
		return
	}
	pager.TotalRows = total
	pkgapp.NewResponse(c).ToResponseList(code.Success, list, pager)
}

// Get 获取单个修订
// @Summary 获取修订
// @Tags 修订
// @Produce json
// @Param document path string true "文档 ID"
// @Param number path int true "修订号"
// @Success 200 {object} pkgapp.Res{data=dto.RevisionDTO} "成功"
// @Router /api/documents/{document}/revisions/{number} [get]
func (h *RevisionHandler) Get(c *gin.Context) {
	number, err := convert.StrTo(c.Param("number")).Int64()
	if err != nil || number <= 0 {
		pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidParams.WithDetails("number must be a positive integer"))
		return
	}

	rev, err := h.App.RevisionService.GetRevision(c.Request.Context(), c.Param(DocumentParam), number)
	if err != nil {
		h.respondError(c, "RevisionHandler.Get", err)
		return
	}
	h.respondRevision(c, "RevisionHandler.Get", rev)
}

// Head 获取分支头修订
// @Summary 获取分支头修订
// @Tags 修订
// @Produce json
// @Param document path string true "文档 ID"
// @Param branch path string true "分支名称"
// @Success 200 {object} pkgapp.Res{data=dto.RevisionDTO} "成功"
// @Router /api/documents/{document}/branches/{branch}/head [get]
func (h *RevisionHandler) Head(c *gin.Context) {
	rev, err := h.App.RevisionService.GetHead(c.Request.Context(), c.Param(DocumentParam), c.Param("branch"))
	if err != nil {
		h.respondError(c, "RevisionHandler.Head", err)
		return
	}
	h.respondRevision(c, "RevisionHandler.Head", rev)
}

func (h *Handler) respondRevision(c *gin.Context, method string, rev *domain.Revision) {
	out, err := dto.NewRevisionDTO(rev)
	if err != nil {
		h.respondError(c, method, err)
		return
	}
	pkgapp.NewResponse(c).ToResponse(code.Success.WithData(out))
}
