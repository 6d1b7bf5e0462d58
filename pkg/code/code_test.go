package code

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithDetails_DoesNotMutateShared(t *testing.T) {
	withDetails := ErrorBranchUnmerged.WithDetails("3")

	assert.Equal(t, []string{"3"}, withDetails.Details())
	assert.True(t, withDetails.HaveDetails())
	assert.Equal(t, ErrorBranchUnmerged.Code(), withDetails.Code())
	assert.Equal(t, http.StatusConflict, withDetails.StatusCode())

	assert.Nil(t, ErrorBranchUnmerged.Details())
	assert.False(t, ErrorBranchUnmerged.HaveDetails())
}

func TestWithData_KeepsDetails(t *testing.T) {
	c := ErrorMergeConflict.WithDetails("feat", "main").WithData(map[string]int{"head": 3})

	assert.True(t, c.HaveData())
	assert.True(t, c.HaveDetails())
	assert.Equal(t, []string{"feat", "main"}, c.Details())
	assert.False(t, ErrorMergeConflict.HaveData())
}

func TestStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusOK, Success.StatusCode())
	assert.True(t, Success.Status())
	assert.Equal(t, http.StatusNotFound, ErrorRevisionNotFound.StatusCode())
	assert.False(t, ErrorRevisionNotFound.Status())
	assert.Equal(t, http.StatusOK, (&Code{}).StatusCode())
}

func TestNewError_DuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewError(ErrorBranchNotFound.Code(), lang{en: "dup"}, http.StatusNotFound)
	})
}

func TestLanguage(t *testing.T) {
	t.Cleanup(func() { _ = SetGlobalDefaultLang(LangEN) })

	require.NoError(t, SetGlobalDefaultLang(LangZhCN))
	assert.Equal(t, "分支不存在", ErrorBranchNotFound.Msg())
	assert.Equal(t, "Branch not found", ErrorBranchNotFound.Lang.In(LangEN))

	assert.Error(t, SetGlobalDefaultLang("fr"))
	assert.Equal(t, LangEN, GetGlobalDefaultLang())
	assert.Equal(t, "Branch not found", ErrorBranchNotFound.Error())

	assert.Equal(t, "only en", lang{en: "only en"}.In(LangZhCN))
}
