package service

import (
	"context"
	"testing"

	"github.com/haierkeys/prompt-history/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollback_AppendsCopyOfTarget(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	_, err := h.revisions.CreateRevision(ctx, "doc", "", "v1", map[string]any{"temperature": 0.7}, "")
	require.NoError(t, err)
	h.mustCreate(t, "doc", "", "v2")
	h.mustCreate(t, "doc", "", "v3")

	var last int64 = 3
	for i := 0; i < 3; i++ {
		rolled, err := h.rollbacks.Rollback(ctx, "doc", 1, RollbackOptions{})
		require.NoError(t, err)
		assert.Greater(t, rolled.RevisionNumber, last)
		last = rolled.RevisionNumber

		assert.Equal(t, "Rollback to revision 1", rolled.ChangeReason)
		assert.Equal(t, 0.7, rolled.Metadata["temperature"])

		head, err := h.revisions.GetHead(ctx, "doc", "main")
		require.NoError(t, err)
		target, err := h.revisions.GetRevision(ctx, "doc", 1)
		require.NoError(t, err)
		assert.Equal(t, target.Content, head.Content)
	}

	// History is untouched
	_, total, err := h.revisions.ListRevisions(ctx, "doc", domain.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
}

func TestRollback_BranchAndReason(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "v1")
	h.mustCreate(t, "doc", "", "v2")
	h.mustBranch(t, "doc", "feat", 2)
	_, err := h.branches.SwitchBranch(ctx, "doc", "feat")
	require.NoError(t, err)

	rolled, err := h.rollbacks.Rollback(ctx, "doc", 1, RollbackOptions{ChangeReason: "undo tone change"})
	require.NoError(t, err)
	assert.Equal(t, "feat", rolled.Branch, "defaults to the active branch")
	assert.Equal(t, "undo tone change", rolled.ChangeReason)
	require.NotNil(t, rolled.ParentRevisionNumber)
	assert.Equal(t, int64(2), *rolled.ParentRevisionNumber)

	_, err = h.rollbacks.Rollback(ctx, "doc", 42, RollbackOptions{})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.ResourceRevision, nf.Resource)

	for i := 0; i < 4; i++ {
		h.mustCreate(t, "other", "", "foreign")
	}
	_, err = h.rollbacks.Rollback(ctx, "doc", 4, RollbackOptions{})
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err), "revision of another document")

	_, err = h.rollbacks.Rollback(ctx, "doc", 1, RollbackOptions{Branch: "ghost"})
	assert.Equal(t, domain.KindBranchNotFound, domain.KindOf(err))
}
