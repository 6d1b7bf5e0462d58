package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/haierkeys/prompt-history/pkg/code"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(target string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func TestToResponse_ErrorWithDetails(t *testing.T) {
	c, w := newTestContext("/")

	NewResponse(c).ToResponse(code.ErrorBranchUnmerged.WithDetails("feature", "3"))

	assert.Equal(t, http.StatusConflict, w.Code)

	var res Res
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, code.ErrorBranchUnmerged.Code(), res.Code)
	assert.False(t, res.Status)
	assert.Equal(t, "feature,3", res.Details)

	// The shared code is not modified
	assert.False(t, code.ErrorBranchUnmerged.HaveDetails())
}

func TestToResponseList_Pager(t *testing.T) {
	c, w := newTestContext("/?page=2&pageSize=500")

	NewResponse(c).ToResponseList(code.Success, []string{"a"}, NewPager(c, DefaultPaginationConfig, 42))

	assert.Equal(t, http.StatusOK, w.Code)

	var res struct {
		Code int `json:"code"`
		Data struct {
			List  []string `json:"list"`
			Pager Pager    `json:"pager"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, []string{"a"}, res.Data.List)
	assert.Equal(t, Pager{Page: 2, PageSize: DefaultPaginationConfig.MaxPageSize, TotalRows: 42}, res.Data.Pager)
}

func TestGetPageOffset(t *testing.T) {
	assert.Equal(t, 0, GetPageOffset(0, 10))
	assert.Equal(t, 0, GetPageOffset(1, 10))
	assert.Equal(t, 20, GetPageOffset(3, 10))
}
