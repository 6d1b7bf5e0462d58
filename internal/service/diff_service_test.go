package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/prompt-history/internal/dao"
	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/diff"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeDiff_Symmetry(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	contents := []string{
		"You are a helpful assistant.\nAnswer briefly.\nCite sources.\n",
		"You are a careful assistant.\nAnswer briefly.\nCite sources.\nNever guess.\n",
		"",
		"Answer briefly.\n",
	}
	for _, c := range contents {
		h.mustCreate(t, "doc", "", c)
	}

	for from := int64(1); from <= int64(len(contents)); from++ {
		for to := int64(1); to <= int64(len(contents)); to++ {
			t.Run(fmt.Sprintf("%d-%d", from, to), func(t *testing.T) {
				forward, err := h.diffs.ComputeDiff(ctx, "doc", from, to)
				require.NoError(t, err)
				backward, err := h.diffs.ComputeDiff(ctx, "doc", to, from)
				require.NoError(t, err)

				assert.Equal(t, forward.Stats.Added, backward.Stats.Removed)
				assert.Equal(t, forward.Stats.Removed, backward.Stats.Added)
				assert.Equal(t, forward.Stats.Unchanged, backward.Stats.Unchanged)
				assert.Equal(t, from, forward.FromRevision)
				assert.Equal(t, to, forward.ToRevision)
			})
		}
	}
}

func TestComputeDiff_Hunks(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "a\nb\nc\n")
	h.mustCreate(t, "doc", "", "a\nB\nc\n")

	d, err := h.diffs.ComputeDiff(ctx, "doc", 1, 2)
	require.NoError(t, err)
	require.Len(t, d.Hunks, 1)
	assert.Equal(t, "@@ -1,3 +1,3 @@", d.Hunks[0].Header())
	assert.Equal(t, 2, d.Stats.Unchanged)

	same, err := h.diffs.ComputeDiff(ctx, "doc", 2, 2)
	require.NoError(t, err)
	assert.Empty(t, same.Hunks)
	assert.Equal(t, 3, same.Stats.Unchanged)
}

func TestComputeDiff_MetadataChanges(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	_, err := h.revisions.CreateRevision(ctx, "doc", "", "x", map[string]any{"model": "gpt-4", "temperature": 0.2}, "")
	require.NoError(t, err)
	_, err = h.revisions.CreateRevision(ctx, "doc", "", "x", map[string]any{"model": "claude", "top_p": 0.9}, "")
	require.NoError(t, err)
	h.mustCreate(t, "doc", "", "x")

	d, err := h.diffs.ComputeDiff(ctx, "doc", 1, 2)
	require.NoError(t, err)
	assert.Empty(t, d.Hunks)

	byPath := make(map[string]domain.MetadataChange)
	for _, c := range d.MetadataChanges {
		byPath[c.Path] = c
	}
	require.Len(t, byPath, 3)
	assert.Equal(t, "replace", byPath["/model"].Op)
	assert.Equal(t, "claude", byPath["/model"].Value)
	assert.Equal(t, "remove", byPath["/temperature"].Op)
	assert.Equal(t, "add", byPath["/top_p"].Op)

	// No metadata compares as an empty object
	d, err = h.diffs.ComputeDiff(ctx, "doc", 2, 3)
	require.NoError(t, err)
	require.Len(t, d.MetadataChanges, 2)
	for _, c := range d.MetadataChanges {
		assert.Equal(t, "remove", c.Op)
		assert.True(t, strings.HasPrefix(c.Path, "/"))
	}
}

func TestComputeDiff_MissingRevision(t *testing.T) {
	h := newTestHistory(t)
	ctx := context.Background()

	h.mustCreate(t, "doc", "", "x")

	_, err := h.diffs.ComputeDiff(ctx, "doc", 1, 9)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "9", nf.Detail)

	_, err = h.diffs.ComputeDiff(ctx, "other", 1, 1)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

// gatedRevisionRepo holds every GetByNumber until release is closed
type gatedRevisionRepo struct {
	domain.RevisionRepository
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (r *gatedRevisionRepo) GetByNumber(ctx context.Context, documentID string, revisionNumber int64) (*domain.Revision, error) {
	r.once.Do(func() { close(r.entered) })
	<-r.release
	return r.RevisionRepository.GetByNumber(ctx, documentID, revisionNumber)
}

func TestComputeDiff_CanceledCallerDoesNotFailOthers(t *testing.T) {
	h := newTestHistory(t)
	h.mustCreate(t, "doc", "", "a\n")
	h.mustCreate(t, "doc", "", "b\n")

	repo := &gatedRevisionRepo{
		RevisionRepository: dao.NewRevisionRepository(h.dao),
		entered:            make(chan struct{}),
		release:            make(chan struct{}),
	}
	diffs := NewDiffService(repo, nil, DefaultServiceConfig())

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := diffs.ComputeDiff(firstCtx, "doc", 1, 2)
		firstErr <- err
	}()
	<-repo.entered

	type result struct {
		d   *domain.Diff
		err error
	}
	second := make(chan result, 1)
	go func() {
		d, err := diffs.ComputeDiff(context.Background(), "doc", 1, 2)
		second <- result{d, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(repo.release)
	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, diff.Stats{Added: 1, Removed: 1}, res.d.Stats)
}

func TestCloneDiff_DoesNotShareSlices(t *testing.T) {
	shared := &domain.Diff{
		Hunks:           []diff.Hunk{{Lines: []diff.Line{{Tag: diff.TagAdd, Text: "x"}}}},
		MetadataChanges: []domain.MetadataChange{{Op: "add", Path: "/model"}},
	}

	c := cloneDiff(shared)
	c.Hunks[0].Lines[0].Text = "changed"
	c.Hunks[0].OldStart = 9
	c.MetadataChanges[0].Op = "remove"

	assert.Equal(t, "x", shared.Hunks[0].Lines[0].Text)
	assert.Equal(t, 0, shared.Hunks[0].OldStart)
	assert.Equal(t, "add", shared.MetadataChanges[0].Op)
}
