// Package api_router 提供 HTTP API 路由处理器
package api_router

import (
	"context"

	"github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/internal/middleware"
	pkgapp "github.com/haierkeys/prompt-history/pkg/app"
	"github.com/haierkeys/prompt-history/pkg/code"
	apperrors "github.com/haierkeys/prompt-history/pkg/errors"
	"github.com/haierkeys/prompt-history/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DocumentParam 路由中的文档 ID 参数
const DocumentParam = "document"

// Handler 基础 Handler 结构体，封装 App Container
// 所有 API Handler 都应该嵌入此结构体以获得依赖注入能力
type Handler struct {
	App *app.App
}

// NewHandler 创建基础 Handler 实例
func NewHandler(a *app.App) *Handler {
	return &Handler{App: a}
}

// pagination 修订列表分页配置
func (h *Handler) pagination() pkgapp.PaginationConfig {
	cfg := h.App.Config().History
	return pkgapp.PaginationConfig{
		DefaultPageSize: cfg.DefaultPageSize,
		MaxPageSize:     cfg.MaxPageSize,
	}
}

// bind 参数绑定和验证，失败时直接输出错误响应
func (h *Handler) bind(c *gin.Context, method string, params any) bool {
	valid, errs := pkgapp.BindAndValid(c, params)
	if !valid {
		h.App.Logger().Warn(method+".BindAndValid err",
			zap.Error(errs),
			zap.String(logger.FieldTraceID, middleware.GetTraceIDFromGin(c)))
		pkgapp.NewResponse(c).ToResponse(code.ErrorInvalidParams.WithDetails(errs.ErrorsToString()).WithData(errs.MapsToString()))
		return false
	}
	return true
}

// respondError 记录错误日志并输出对应结果码
// 领域错误是调用方的问题，记录为 Warn
func (h *Handler) respondError(c *gin.Context, method string, err error) {
	ctx := c.Request.Context()
	h.logError(ctx, method, c.Param(DocumentParam), err)
	apperrors.ErrorResponse(c, err)
}

// logError 记录错误日志，包含 Trace ID
func (h *Handler) logError(ctx context.Context, method, documentID string, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String(logger.FieldMethod, method),
		zap.String(logger.FieldDocumentID, documentID),
		zap.String(logger.FieldTraceID, middleware.GetTraceID(ctx)),
	}
	if domain.KindOf(err) != domain.KindUnknown {
		h.App.Logger().Warn(method, fields...)
		return
	}
	h.App.Logger().Error(method, fields...)
}
