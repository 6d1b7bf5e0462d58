// Package errors maps service errors onto API result codes
// Package errors 将服务层错误映射为 API 结果码
package errors

import (
	"errors"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/app"
	"github.com/haierkeys/prompt-history/pkg/code"
	"github.com/haierkeys/prompt-history/pkg/writequeue"

	"github.com/gin-gonic/gin"
)

// UnmergedData 分支存在未合并修订时返回的数据
type UnmergedData struct {
	Branch string `json:"branch"`
	Count  int64  `json:"count"`
}

// ConflictData 无法快进合并时返回的数据
type ConflictData struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceOrigin *int64 `json:"sourceOrigin"`
	TargetHead   int64  `json:"targetHead"`
}

// ToCode 将错误转换为结果码，领域错误带上错误描述作为详情
// 未知错误只返回内部错误码，不暴露原始信息
func ToCode(err error) *code.Code {
	if err == nil {
		return code.Success
	}

	var codeErr *code.Code
	if errors.As(err, &codeErr) {
		return codeErr
	}

	switch {
	case errors.Is(err, writequeue.ErrWriteQueueFull), errors.Is(err, writequeue.ErrWriteQueueClosed):
		return code.ErrorWriteQueueFull
	case errors.Is(err, writequeue.ErrWriteTimeout):
		return code.ErrorWriteTimeout
	}

	switch domain.KindOf(err) {
	case domain.KindNotFound:
		var nf *domain.NotFoundError
		errors.As(err, &nf)
		switch nf.Resource {
		case domain.ResourceDocument:
			return code.ErrorDocumentNotFound.WithDetails(err.Error())
		case domain.ResourceBranch:
			return code.ErrorActiveBranchMissing.WithDetails(err.Error())
		default:
			return code.ErrorRevisionNotFound.WithDetails(err.Error())
		}

	case domain.KindBranchNotFound:
		return code.ErrorBranchNotFound.WithDetails(err.Error())

	case domain.KindBranchAlreadyExists:
		return code.ErrorBranchExists.WithDetails(err.Error())

	case domain.KindBranch:
		var be *domain.BranchError
		errors.As(err, &be)
		switch be.Reason {
		case domain.BranchReasonOnlyBranch:
			return code.ErrorBranchOnlyBranch.WithDetails(err.Error())
		case domain.BranchReasonUnmergedChanges:
			return code.ErrorBranchUnmerged.WithDetails(err.Error()).
				WithData(UnmergedData{Branch: be.Branch, Count: be.Count})
		default:
			return code.ErrorInvalidBranchName.WithDetails(err.Error())
		}

	case domain.KindMergeConflict:
		var mc *domain.MergeConflictError
		errors.As(err, &mc)
		return code.ErrorMergeConflict.WithDetails(err.Error()).WithData(ConflictData{
			Source:       mc.Source,
			Target:       mc.Target,
			SourceOrigin: mc.SourceOrigin,
			TargetHead:   mc.TargetHead,
		})
	}

	return code.ErrorServerInternal
}

// ErrorResponse 统一错误响应处理
func ErrorResponse(c *gin.Context, err error) {
	app.NewResponse(c).ToResponse(ToCode(err))
}
