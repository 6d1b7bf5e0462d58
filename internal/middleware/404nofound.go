package middleware

import (
	"github.com/haierkeys/prompt-history/pkg/app"
	"github.com/haierkeys/prompt-history/pkg/code"

	"github.com/gin-gonic/gin"
)

// NoFound 404 handler
// NoFound 404 处理
func NoFound() gin.HandlerFunc {
	return func(c *gin.Context) {
		response := app.NewResponse(c)
		response.ToResponse(code.ErrorNotFound.WithDetails(c.Request.URL.Path))
		c.Abort()
	}
}
