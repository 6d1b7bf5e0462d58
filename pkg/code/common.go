package code

import "net/http"

var (
	Success = NewSuss(1, lang{en: "Success", zh_cn: "成功"})

	Failed                   = NewError(400, lang{en: "Request failed", zh_cn: "请求失败"}, http.StatusBadRequest)
	ErrorInvalidParams       = NewError(401, lang{en: "Invalid parameters", zh_cn: "参数错误"}, http.StatusBadRequest)
	ErrorNotFound            = NewError(404, lang{en: "Resource not found", zh_cn: "资源不存在"}, http.StatusNotFound)
	ErrorServerInternal      = NewError(500, lang{en: "Internal server error", zh_cn: "服务器内部错误"}, http.StatusInternalServerError)
	ErrorTooManyRequests     = NewError(429, lang{en: "Too many requests", zh_cn: "请求过多"}, http.StatusTooManyRequests)
	ErrorWriteQueueFull      = NewError(503, lang{en: "Document is busy, try again later", zh_cn: "文档繁忙，请稍后重试"}, http.StatusServiceUnavailable)
	ErrorServerUnavailable   = NewError(502, lang{en: "Service unavailable", zh_cn: "服务不可用"}, http.StatusServiceUnavailable)
	ErrorWriteTimeout        = NewError(504, lang{en: "Write timed out, try again later", zh_cn: "写入超时，请稍后重试"}, http.StatusGatewayTimeout)
	ErrorDocumentNotFound    = NewError(1001, lang{en: "Document not found", zh_cn: "文档不存在"}, http.StatusNotFound)
	ErrorRevisionNotFound    = NewError(1002, lang{en: "Revision not found", zh_cn: "修订不存在"}, http.StatusNotFound)
	ErrorBranchNotFound      = NewError(1003, lang{en: "Branch not found", zh_cn: "分支不存在"}, http.StatusNotFound)
	ErrorBranchExists        = NewError(1004, lang{en: "Branch already exists", zh_cn: "分支已存在"}, http.StatusConflict)
	ErrorBranchOnlyBranch    = NewError(1005, lang{en: "Cannot delete the only branch", zh_cn: "不能删除唯一的分支"}, http.StatusConflict)
	ErrorBranchUnmerged      = NewError(1006, lang{en: "Branch has unmerged changes", zh_cn: "分支存在未合并的修订"}, http.StatusConflict)
	ErrorMergeConflict       = NewError(1007, lang{en: "Branches have diverged, fast-forward merge is not possible", zh_cn: "分支已分叉，无法快进合并"}, http.StatusConflict)
	ErrorInvalidBranchName   = NewError(1008, lang{en: "Invalid branch name", zh_cn: "分支名称无效"}, http.StatusBadRequest)
	ErrorActiveBranchMissing = NewError(1009, lang{en: "Document has no branches", zh_cn: "文档没有任何分支"}, http.StatusNotFound)
)
