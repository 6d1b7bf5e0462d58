package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/code"
	"github.com/haierkeys/prompt-history/pkg/writequeue"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestToCode(t *testing.T) {
	origin := int64(1)
	tests := []struct {
		name   string
		err    error
		code   *code.Code
		status int
	}{
		{"document", &domain.NotFoundError{Resource: domain.ResourceDocument, DocumentID: "d"}, code.ErrorDocumentNotFound, http.StatusNotFound},
		{"revision", &domain.NotFoundError{Resource: domain.ResourceRevision, DocumentID: "d", Detail: "9"}, code.ErrorRevisionNotFound, http.StatusNotFound},
		{"head", &domain.NotFoundError{Resource: domain.ResourceHead, DocumentID: "d", Detail: "feat"}, code.ErrorRevisionNotFound, http.StatusNotFound},
		{"no branches", &domain.NotFoundError{Resource: domain.ResourceBranch, DocumentID: "d"}, code.ErrorActiveBranchMissing, http.StatusNotFound},
		{"branch", &domain.BranchNotFoundError{DocumentID: "d", Name: "x"}, code.ErrorBranchNotFound, http.StatusNotFound},
		{"exists", &domain.BranchAlreadyExistsError{DocumentID: "d", Name: "x"}, code.ErrorBranchExists, http.StatusConflict},
		{"only", &domain.BranchError{Reason: domain.BranchReasonOnlyBranch}, code.ErrorBranchOnlyBranch, http.StatusConflict},
		{"invalid", &domain.BranchError{Reason: domain.BranchReasonInvalidName}, code.ErrorInvalidBranchName, http.StatusBadRequest},
		{"conflict", &domain.MergeConflictError{SourceOrigin: &origin, TargetHead: 3}, code.ErrorMergeConflict, http.StatusConflict},
		{"queue full", fmt.Errorf("create: %w", writequeue.ErrWriteQueueFull), code.ErrorWriteQueueFull, http.StatusServiceUnavailable},
		{"timeout", writequeue.ErrWriteTimeout, code.ErrorWriteTimeout, http.StatusGatewayTimeout},
		{"code", code.ErrorInvalidParams, code.ErrorInvalidParams, http.StatusBadRequest},
		{"infrastructure", pkgerrors.New("disk I/O error"), code.ErrorServerInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToCode(tt.err)
			assert.Equal(t, tt.code.Code(), got.Code())
			assert.Equal(t, tt.status, got.StatusCode())
		})
	}
}

func TestToCode_UnmergedCount(t *testing.T) {
	err := pkgerrors.Wrap(&domain.BranchError{DocumentID: "d", Branch: "feat", Reason: domain.BranchReasonUnmergedChanges, Count: 2}, "delete")

	got := ToCode(err)
	assert.Equal(t, code.ErrorBranchUnmerged.Code(), got.Code())
	assert.Equal(t, UnmergedData{Branch: "feat", Count: 2}, got.Data())
	assert.Contains(t, got.Details()[0], "2 unmerged")
}

func TestToCode_InternalHidesCause(t *testing.T) {
	got := ToCode(pkgerrors.New("password=hunter2"))
	assert.False(t, got.HaveDetails())
	assert.Equal(t, code.Success, ToCode(nil))
}
