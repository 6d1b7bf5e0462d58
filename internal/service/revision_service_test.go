package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/haierkeys/prompt-history/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRevision_FirstRevisionCreatesActiveMain(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	rev, err := h.revisions.CreateRevision(ctx, "doc", "", "hello", map[string]any{"model": "gpt"}, "init")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.RevisionNumber)
	assert.Equal(t, domain.DefaultBranch, rev.Branch)
	assert.Nil(t, rev.ParentRevisionNumber)
	assert.Equal(t, "init", rev.ChangeReason)
	assert.Equal(t, "gpt", rev.Metadata["model"])

	active, err := h.branches.GetActiveBranch(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultBranch, active.Name)
	assert.True(t, active.IsActive)
	assert.Nil(t, active.OriginRevisionNumber)
}

func TestCreateRevision_NumbersIncreaseAcrossBranches(t *testing.T) {
	h := newTestHistory(t)

	var numbers []int64
	numbers = append(numbers, h.mustCreate(t, "doc", "main", "a").RevisionNumber)
	h.mustBranch(t, "doc", "feat", 1)
	for i := 0; i < 6; i++ {
		branch := "main"
		if i%2 == 0 {
			branch = "feat"
		}
		numbers = append(numbers, h.mustCreate(t, "doc", branch, fmt.Sprint(i)).RevisionNumber)
	}

	for i := 1; i < len(numbers); i++ {
		assert.Greater(t, numbers[i], numbers[i-1])
	}
	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7}, numbers)

	// Numbering is per document
	assert.Equal(t, int64(1), h.mustCreate(t, "other", "", "x").RevisionNumber)
}

func TestCreateRevision_ParentIsBranchHeadOrOrigin(t *testing.T) {
	h := newTestHistory(t)

	h.mustCreate(t, "doc", "", "one")
	h.mustCreate(t, "doc", "", "two")
	h.mustBranch(t, "doc", "feat", 1)

	first := h.mustCreate(t, "doc", "feat", "feat one")
	require.NotNil(t, first.ParentRevisionNumber)
	assert.Equal(t, int64(1), *first.ParentRevisionNumber)

	second := h.mustCreate(t, "doc", "feat", "feat two")
	require.NotNil(t, second.ParentRevisionNumber)
	assert.Equal(t, first.RevisionNumber, *second.ParentRevisionNumber)

	onMain := h.mustCreate(t, "doc", "main", "three")
	require.NotNil(t, onMain.ParentRevisionNumber)
	assert.Equal(t, int64(2), *onMain.ParentRevisionNumber)
}

func TestCreateRevision_UnknownBranch(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	_, err := h.revisions.CreateRevision(ctx, "doc", "feat", "x", nil, "")
	var bnf *domain.BranchNotFoundError
	require.ErrorAs(t, err, &bnf)
	assert.Equal(t, "feat", bnf.Name)

	h.mustCreate(t, "doc", "", "x")
	_, err = h.revisions.CreateRevision(ctx, "doc", "feat", "y", nil, "")
	assert.Equal(t, domain.KindBranchNotFound, domain.KindOf(err))
}

func TestCreateRevision_UnknownDocument(t *testing.T) {
	h := newTestHistoryWithChecker(t, "prompt")
	ctx := context.Background()

	_, err := h.revisions.CreateRevision(ctx, "missing", "", "x", nil, "")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.ResourceDocument, nf.Resource)

	require.NoError(t, h.dao.Db.Exec("INSERT INTO prompt (id) VALUES ('p-1')").Error)
	rev, err := h.revisions.CreateRevision(ctx, "p-1", "", "x", nil, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), rev.RevisionNumber)
}

func TestCreateRevision_ConcurrentWritersNeverCollide(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "base")
	h.mustBranch(t, "doc", "feat", 1)

	const writers = 24
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		numbers []int64
		errs    []error
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			branch := "main"
			if i%2 == 1 {
				branch = "feat"
			}
			rev, err := h.revisions.CreateRevision(ctx, "doc", branch, fmt.Sprint(i), nil, "")
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			numbers = append(numbers, rev.RevisionNumber)
		}(i)
	}
	wg.Wait()

	require.Empty(t, errs)
	sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
	for i, n := range numbers {
		assert.Equal(t, int64(i+2), n)
	}
}

func TestGetHead(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	_, err := h.revisions.GetHead(ctx, "doc", "")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	h.mustCreate(t, "doc", "", "one")
	h.mustCreate(t, "doc", "", "two")
	h.mustBranch(t, "doc", "feat", 1)

	head, err := h.revisions.GetHead(ctx, "doc", "main")
	require.NoError(t, err)
	assert.Equal(t, "two", head.Content)

	head, err = h.revisions.GetHead(ctx, "doc", "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), head.RevisionNumber)

	_, err = h.revisions.GetHead(ctx, "doc", "feat")
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.ResourceHead, nf.Resource)
	assert.Equal(t, "feat", nf.Detail)

	_, err = h.revisions.GetHead(ctx, "doc", "nope")
	assert.Equal(t, domain.KindBranchNotFound, domain.KindOf(err))
}

func TestGetRevision(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "one")
	h.mustCreate(t, "other", "", "foreign")

	rev, err := h.revisions.GetRevision(ctx, "doc", 1)
	require.NoError(t, err)
	assert.Equal(t, "one", rev.Content)

	_, err = h.revisions.GetRevision(ctx, "doc", 2)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.ResourceRevision, nf.Resource)
	assert.Equal(t, "2", nf.Detail)
}

func TestListRevisions(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		h.mustCreate(t, "doc", "", fmt.Sprint(i))
	}
	h.mustBranch(t, "doc", "feat", 5)
	h.mustCreate(t, "doc", "feat", "f")

	list, total, err := h.revisions.ListRevisions(ctx, "doc", domain.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
	require.Len(t, list, 6)
	assert.Equal(t, int64(6), list[0].RevisionNumber)
	assert.Equal(t, int64(1), list[5].RevisionNumber)

	list, total, err = h.revisions.ListRevisions(ctx, "doc", domain.ListOptions{Branch: "main", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, list, 2)
	assert.Equal(t, []int64{4, 3}, []int64{list[0].RevisionNumber, list[1].RevisionNumber})

	_, _, err = h.revisions.ListRevisions(ctx, "doc", domain.ListOptions{Branch: "nope"})
	assert.Equal(t, domain.KindBranchNotFound, domain.KindOf(err))
}
