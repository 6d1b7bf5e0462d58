package dao

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/writequeue"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDao(t *testing.T) *Dao {
	t.Helper()
	return newTestDaoWithQueue(t, nil)
}

func newTestDaoWithQueue(t *testing.T, cfg *writequeue.Config) *Dao {
	t.Helper()

	db, err := NewDBEngine(DatabaseConfig{
		Type:         "sqlite",
		Path:         filepath.Join(t.TempDir(), "history.sqlite3"),
		MaxIdleConns: 1,
	})
	require.NoError(t, err)

	wq := writequeue.New(cfg, nil)
	d := New(db, context.Background(), WithWriteQueueManager(wq))
	require.NoError(t, d.AutoMigrate())

	t.Cleanup(func() {
		_ = wq.Shutdown(context.Background())
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return d
}

func int64Ptr(v int64) *int64 { return &v }

func TestExecuteWrite_CommitAndRollback(t *testing.T) {
	d := newTestDao(t)
	repo := NewRevisionRepository(d)
	ctx := context.Background()

	err := d.ExecuteWrite(ctx, "doc", func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		_, err := repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: 1, Branch: "main", Content: "a", CreatedAt: time.Now()})
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = d.ExecuteWrite(ctx, "doc", func(ctx context.Context) error {
		if _, err := repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: 2, Branch: "main", Content: "b", CreatedAt: time.Now()}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	count, err := repo.Count(ctx, "doc", "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestExecuteWrite_TimeoutRollsBack(t *testing.T) {
	d := newTestDaoWithQueue(t, &writequeue.Config{WriteTimeout: 50 * time.Millisecond})
	repo := NewRevisionRepository(d)
	ctx := context.Background()

	err := d.ExecuteWrite(ctx, "doc", func(ctx context.Context) error {
		if _, err := repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: 1, Branch: "main", Content: "a", CreatedAt: time.Now()}); err != nil {
			return err
		}
		<-ctx.Done()
		return ctx.Err()
	})
	assert.ErrorIs(t, err, writequeue.ErrWriteTimeout)

	// a reported timeout never leaves a committed row behind
	count, err := repo.Count(ctx, "doc", "")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestExecuteWrite_NestedCallRunsInline(t *testing.T) {
	d := newTestDao(t)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		done <- d.ExecuteWrite(ctx, "doc", func(ctx context.Context) error {
			return d.ExecuteWrite(ctx, "doc", func(ctx context.Context) error {
				return nil
			})
		})
	}()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("nested ExecuteWrite deadlocked")
	}
}

func TestRevisionRepository_UniqueNumberPerDocument(t *testing.T) {
	d := newTestDao(t)
	repo := NewRevisionRepository(d)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: 1, Branch: "main", Content: "a", CreatedAt: time.Now()})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: 1, Branch: "feat", Content: "b", CreatedAt: time.Now()})
	assert.Error(t, err)

	// Same number in another document is fine
	_, err = repo.Create(ctx, &domain.Revision{DocumentID: "other", RevisionNumber: 1, Branch: "main", Content: "c", CreatedAt: time.Now()})
	assert.NoError(t, err)
}

func TestRevisionRepository_ConcurrentNumbering(t *testing.T) {
	d := newTestDao(t)
	repo := NewRevisionRepository(d)
	ctx := context.Background()

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- d.ExecuteWrite(ctx, "doc", func(ctx context.Context) error {
				n, err := repo.NextNumber(ctx, "doc")
				if err != nil {
					return err
				}
				_, err = repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: n, Branch: "main", Content: "x", CreatedAt: time.Now()})
				return err
			})
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	next, err := repo.NextNumber(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, int64(writers+1), next)
}

func TestRevisionRepository_QueriesAndMetadata(t *testing.T) {
	d := newTestDao(t)
	repo := NewRevisionRepository(d)
	ctx := context.Background()

	next, err := repo.NextNumber(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	_, err = repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: 1, Branch: "main", Content: "one",
		Metadata: map[string]any{"model": "gpt", "temperature": 0.2}, CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: 2, Branch: "feat", Content: "two",
		ParentRevisionNumber: int64Ptr(1), CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Revision{DocumentID: "doc", RevisionNumber: 3, Branch: "main", Content: "three",
		ParentRevisionNumber: int64Ptr(1), ChangeReason: "tweak", CreatedAt: time.Now()})
	require.NoError(t, err)

	rev, err := repo.GetByNumber(ctx, "doc", 1)
	require.NoError(t, err)
	assert.Equal(t, "one", rev.Content)
	assert.Equal(t, "gpt", rev.Metadata["model"])
	assert.Equal(t, 0.2, rev.Metadata["temperature"])
	assert.Nil(t, rev.ParentRevisionNumber)

	_, err = repo.GetByNumber(ctx, "other", 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	head, err := repo.GetHead(ctx, "doc", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(3), head.RevisionNumber)
	assert.Equal(t, "tweak", head.ChangeReason)
	assert.Nil(t, head.Metadata)

	_, err = repo.GetHead(ctx, "doc", "empty")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	all, err := repo.List(ctx, "doc", domain.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{all[0].RevisionNumber, all[1].RevisionNumber, all[2].RevisionNumber})

	page, err := repo.List(ctx, "doc", domain.ListOptions{Branch: "main", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, int64(1), page[0].RevisionNumber)

	count, err := repo.Count(ctx, "doc", "main")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	links, err := repo.ParentLinks(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, links, 3)
	assert.Nil(t, links[1])
	assert.Equal(t, int64(1), *links[2])
	assert.Equal(t, int64(1), *links[3])
}

func TestBranchRepository_Lifecycle(t *testing.T) {
	d := newTestDao(t)
	repo := NewBranchRepository(d)
	ctx := context.Background()

	base := time.Now()
	_, err := repo.Create(ctx, &domain.Branch{DocumentID: "doc", Name: "main", IsActive: true, CreatedAt: base})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Branch{DocumentID: "doc", Name: "feat", OriginRevisionNumber: int64Ptr(1), CreatedAt: base.Add(time.Second)})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &domain.Branch{DocumentID: "doc", Name: "feat", CreatedAt: base})
	assert.Error(t, err, "duplicate branch name")

	list, err := repo.List(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "main", list[0].Name)
	assert.Equal(t, "feat", list[1].Name)
	assert.Equal(t, int64(1), *list[1].OriginRevisionNumber)

	err = d.ExecuteWrite(ctx, "doc", func(ctx context.Context) error {
		return repo.SetActive(ctx, "doc", "feat")
	})
	require.NoError(t, err)

	active, err := repo.ListActive(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "feat", active[0].Name)

	err = d.ExecuteWrite(ctx, "doc", func(ctx context.Context) error {
		return repo.SetActive(ctx, "doc", "missing")
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// The failed switch rolled back, feat is still active
	active, err = repo.ListActive(ctx, "doc")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "feat", active[0].Name)

	require.NoError(t, repo.Delete(ctx, "doc", "main"))
	assert.ErrorIs(t, repo.Delete(ctx, "doc", "main"), gorm.ErrRecordNotFound)

	count, err := repo.Count(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	ids, err := repo.ListDocumentIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"doc"}, ids)
}

func TestBranchRepository_PartialIndexRejectsSecondActive(t *testing.T) {
	d := newTestDao(t)
	repo := NewBranchRepository(d)
	ctx := context.Background()

	_, err := repo.Create(ctx, &domain.Branch{DocumentID: "doc", Name: "main", IsActive: true, CreatedAt: time.Now()})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &domain.Branch{DocumentID: "doc", Name: "feat", IsActive: true, CreatedAt: time.Now()})
	assert.Error(t, err)

	// Another document has its own active branch
	_, err = repo.Create(ctx, &domain.Branch{DocumentID: "other", Name: "main", IsActive: true, CreatedAt: time.Now()})
	assert.NoError(t, err)
}

func TestDocumentChecker(t *testing.T) {
	d := newTestDao(t)
	ctx := context.Background()

	open, err := NewDocumentChecker(d, "", "")
	require.NoError(t, err)
	ok, err := open.Exists(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = open.Exists(ctx, "")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, d.Db.Exec("CREATE TABLE prompt (uuid TEXT PRIMARY KEY)").Error)
	require.NoError(t, d.Db.Exec("INSERT INTO prompt (uuid) VALUES ('p-1')").Error)

	checker, err := NewDocumentChecker(d, "prompt", "uuid")
	require.NoError(t, err)
	ok, err = checker.Exists(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = checker.Exists(ctx, "p-2")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = NewDocumentChecker(d, "prompt; DROP TABLE revision", "uuid")
	assert.Error(t, err)
}
