// Package app gin response helpers shared by the API handlers
// Package app API 处理器共用的 gin 响应工具
package app

import (
	"strings"

	"github.com/haierkeys/prompt-history/pkg/code"

	"github.com/gin-gonic/gin"
)

// VersionInfo version information // 版本信息
type VersionInfo struct {
	Version   string `json:"version"`
	GitTag    string `json:"gitTag"`
	BuildTime string `json:"buildTime"`
}

type Response struct {
	Ctx *gin.Context
}

type Pager struct {
	Page      int   `json:"page"`      // Page number // 页码
	PageSize  int   `json:"pageSize"`  // Page size // 每页数量
	TotalRows int64 `json:"totalRows"` // Total rows // 总行数
}

type ListRes struct {
	List  interface{} `json:"list"`  // Data list // 数据清单
	Pager Pager       `json:"pager"` // Pagination info // 翻页信息
}

// Res is the unified response structure: Code/Status/Msg/Data
// Details uses omitempty and is not serialized when empty
// Res 是统一的响应结构：Code/Status/Msg/Data
// Details 使用 omitempty，为空时不会被序列化
type Res struct {
	Code    int         `json:"code"`
	Status  bool        `json:"status"`
	Message interface{} `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func NewResponse(ctx *gin.Context) *Response {
	return &Response{
		Ctx: ctx,
	}
}

// GetRequestIP gets the request IP
// GetRequestIP 获取ip
func GetRequestIP(c *gin.Context) string {
	reqIP := c.ClientIP()
	if reqIP == "::1" {
		reqIP = "127.0.0.1"
	}
	return reqIP
}

// ToResponse writes the code as a Res envelope
// ToResponse 以 Res 结构输出结果码
func (r *Response) ToResponse(codeObj *code.Code) {
	r.Ctx.Set("status_code", codeObj.StatusCode())

	content := Res{
		Code:    codeObj.Code(),
		Status:  codeObj.Status(),
		Message: codeObj.Lang.In(r.lang()),
		Data:    codeObj.Data(),
	}

	if codeObj.HaveDetails() {
		content.Details = strings.Join(codeObj.Details(), ",")
	}

	r.send(codeObj.StatusCode(), content)
}

// ToResponseList outputs a list response using ListRes as Data
// ToResponseList 输出列表响应，使用 ListRes 作为 Data
func (r *Response) ToResponseList(codeObj *code.Code, list interface{}, pager Pager) {
	r.Ctx.Set("status_code", codeObj.StatusCode())

	content := Res{
		Code:    codeObj.Code(),
		Status:  codeObj.Status(),
		Message: codeObj.Lang.In(r.lang()),
		Data: ListRes{
			List:  list,
			Pager: pager,
		},
	}

	r.send(codeObj.StatusCode(), content)
}

// LangKey gin.Context 中保存请求语言的键
const LangKey = "lang"

// lang 请求语言，未设置时使用全局默认语言
func (r *Response) lang() string {
	if l := r.Ctx.GetString(LangKey); l != "" {
		return l
	}
	return code.GetGlobalDefaultLang()
}

func (r *Response) send(statusCode int, content interface{}) {
	r.Ctx.JSON(statusCode, content)
}
