package service

import (
	"context"
	"testing"

	"github.com/haierkeys/prompt-history/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBranch(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	_, err := h.branches.CreateBranch(ctx, "doc", "feat", nil)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf, "main is empty")
	assert.Equal(t, domain.ResourceHead, nf.Resource)

	h.mustCreate(t, "doc", "", "one")
	h.mustCreate(t, "doc", "", "two")

	b, err := h.branches.CreateBranch(ctx, "doc", "feat", nil)
	require.NoError(t, err)
	assert.False(t, b.IsActive)
	require.NotNil(t, b.OriginRevisionNumber)
	assert.Equal(t, int64(2), *b.OriginRevisionNumber)

	from := int64(1)
	b, err = h.branches.CreateBranch(ctx, "doc", "old", &from)
	require.NoError(t, err)
	assert.Equal(t, int64(1), *b.OriginRevisionNumber)

	_, err = h.branches.CreateBranch(ctx, "doc", "feat", nil)
	assert.Equal(t, domain.KindBranchAlreadyExists, domain.KindOf(err))

	missing := int64(99)
	_, err = h.branches.CreateBranch(ctx, "doc", "ghost", &missing)
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.ResourceRevision, nf.Resource)

	_, err = h.branches.CreateBranch(ctx, "doc", "has space", nil)
	var be *domain.BranchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, domain.BranchReasonInvalidName, be.Reason)

	list, err := h.branches.ListBranches(ctx, "doc")
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, b := range list {
		names = append(names, b.Name)
	}
	assert.Equal(t, []string{"main", "feat", "old"}, names)
	assert.Equal(t, []string{"main"}, activeNames(list))
}

func TestSwitchBranch(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "one")
	h.mustBranch(t, "doc", "feat", 1)
	h.mustBranch(t, "doc", "exp", 1)

	switched, err := h.branches.SwitchBranch(ctx, "doc", "feat")
	require.NoError(t, err)
	assert.Equal(t, "feat", switched.Name)
	assert.True(t, switched.IsActive)

	active, err := h.branches.GetActiveBranch(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "feat", active.Name)

	list, err := h.branches.ListBranches(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []string{"feat"}, activeNames(list))

	// New revisions without a branch land on the active one
	rev := h.mustCreate(t, "doc", "", "on feat")
	assert.Equal(t, "feat", rev.Branch)

	_, err = h.branches.SwitchBranch(ctx, "doc", "missing")
	var bnf *domain.BranchNotFoundError
	require.ErrorAs(t, err, &bnf)
	assert.Equal(t, "missing", bnf.Name)

	list, err = h.branches.ListBranches(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []string{"feat"}, activeNames(list), "failed switch leaves flags untouched")
}

func TestGetActiveBranch_FallsBackToDefault(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	_, err := h.branches.GetActiveBranch(ctx, "doc")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	h.mustCreate(t, "doc", "", "one")
	h.mustBranch(t, "doc", "feat", 1)
	_, err = h.branches.SwitchBranch(ctx, "doc", "feat")
	require.NoError(t, err)

	require.NoError(t, h.dao.Db.Exec("UPDATE branch SET is_active = ?", false).Error)

	active, err := h.branches.GetActiveBranch(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "main", active.Name)

	repaired, err := h.branches.RepairActiveBranch(ctx, "doc")
	require.NoError(t, err)
	assert.True(t, repaired)

	list, err := h.branches.ListBranches(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, activeNames(list))

	repaired, err = h.branches.RepairActiveBranch(ctx, "doc")
	require.NoError(t, err)
	assert.False(t, repaired)
}

func TestCreateRevision_PersistsRecoveredActiveBranch(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "one")
	require.NoError(t, h.dao.Db.Exec("UPDATE branch SET is_active = ?", false).Error)

	rev := h.mustCreate(t, "doc", "", "two")
	assert.Equal(t, "main", rev.Branch)

	list, err := h.branches.ListBranches(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, activeNames(list))
}

func TestDeleteBranch(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "one")

	err := h.branches.DeleteBranch(ctx, "doc", "main")
	var be *domain.BranchError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, domain.BranchReasonOnlyBranch, be.Reason)

	h.mustBranch(t, "doc", "feat", 1)
	h.mustCreate(t, "doc", "feat", "a")
	h.mustCreate(t, "doc", "feat", "b")

	err = h.branches.DeleteBranch(ctx, "doc", "feat")
	require.ErrorAs(t, err, &be)
	assert.Equal(t, domain.BranchReasonUnmergedChanges, be.Reason)
	assert.Equal(t, int64(2), be.Count)

	err = h.branches.DeleteBranch(ctx, "doc", "missing")
	assert.Equal(t, domain.KindBranchNotFound, domain.KindOf(err))

	h.mustBranch(t, "doc", "scratch", 1)
	require.NoError(t, h.branches.DeleteBranch(ctx, "doc", "scratch"))

	list, err := h.branches.ListBranches(ctx, "doc")
	require.NoError(t, err)
	for _, b := range list {
		assert.NotEqual(t, "scratch", b.Name)
	}
	assert.Len(t, list, 2)
}

func TestDeleteBranch_ActiveMovesToDefault(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "one")
	h.mustBranch(t, "doc", "feat", 1)
	_, err := h.branches.SwitchBranch(ctx, "doc", "feat")
	require.NoError(t, err)

	require.NoError(t, h.branches.DeleteBranch(ctx, "doc", "feat"))

	active, err := h.branches.GetActiveBranch(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "main", active.Name)

	list, err := h.branches.ListBranches(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, activeNames(list))
}

func TestDeleteBranch_ActiveDefaultMovesToOldest(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "one")
	h.mustBranch(t, "doc", "feat", 1)
	h.mustBranch(t, "doc", "exp", 1)

	// Move main's only revision out of the way so main can be deleted
	require.NoError(t, h.dao.Db.Exec("UPDATE revision SET branch = ? WHERE branch = ?", "exp", "main").Error)

	require.NoError(t, h.branches.DeleteBranch(ctx, "doc", "main"))

	active, err := h.branches.GetActiveBranch(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "feat", active.Name)
	assert.True(t, active.IsActive)
}

func TestRepairActiveBranch_KeepsFirstOfSeveral(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "one")
	h.mustBranch(t, "doc", "feat", 1)

	// Simulate a database without the partial unique index
	require.NoError(t, h.dao.Db.Exec("DROP INDEX idx_branch_document_active").Error)
	require.NoError(t, h.dao.Db.Exec("UPDATE branch SET is_active = ?", true).Error)

	repaired, err := h.branches.RepairActiveBranch(ctx, "doc")
	require.NoError(t, err)
	assert.True(t, repaired)

	list, err := h.branches.ListBranches(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []string{"main"}, activeNames(list))

	ids, err := h.branches.ListDocumentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, ids)
}
