package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/haierkeys/prompt-history/internal/dao"
	"github.com/haierkeys/prompt-history/internal/domain"
	"github.com/haierkeys/prompt-history/pkg/writequeue"

	"github.com/stretchr/testify/require"
)

// testHistory every history service over one temporary sqlite database
type testHistory struct {
	dao       *dao.Dao
	revisions RevisionService
	branches  BranchService
	diffs     DiffService
	rollbacks RollbackService
	merges    MergeService
}

func newTestHistory(t *testing.T) *testHistory {
	t.Helper()
	return newTestHistoryWithChecker(t, "")
}

// newTestHistoryWithChecker table non-empty restricts documents to rows of that table
func newTestHistoryWithChecker(t *testing.T, table string) *testHistory {
	t.Helper()

	db, err := dao.NewDBEngine(dao.DatabaseConfig{
		Type:         "sqlite",
		Path:         filepath.Join(t.TempDir(), "history.sqlite3"),
		MaxIdleConns: 1,
	})
	require.NoError(t, err)

	wq := writequeue.New(nil, nil)
	d := dao.New(db, context.Background(), dao.WithWriteQueueManager(wq))
	require.NoError(t, d.AutoMigrate())

	t.Cleanup(func() {
		_ = wq.Shutdown(context.Background())
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	if table != "" {
		require.NoError(t, db.Exec("CREATE TABLE "+table+" (id TEXT PRIMARY KEY)").Error)
	}
	checker, err := dao.NewDocumentChecker(d, table, "")
	require.NoError(t, err)

	revisionRepo := dao.NewRevisionRepository(d)
	branchRepo := dao.NewBranchRepository(d)
	cfg := DefaultServiceConfig()

	return &testHistory{
		dao:       d,
		revisions: NewRevisionService(revisionRepo, branchRepo, d, checker, nil, cfg),
		branches:  NewBranchService(revisionRepo, branchRepo, d, checker, nil, cfg),
		diffs:     NewDiffService(revisionRepo, nil, cfg),
		rollbacks: NewRollbackService(revisionRepo, branchRepo, d, checker, nil, cfg),
		merges:    NewMergeService(revisionRepo, branchRepo, d, checker, nil, cfg),
	}
}

func (h *testHistory) mustCreate(t *testing.T, doc, branch, content string) *domain.Revision {
	t.Helper()
	rev, err := h.revisions.CreateRevision(context.Background(), doc, branch, content, nil, "")
	require.NoError(t, err)
	return rev
}

func (h *testHistory) mustBranch(t *testing.T, doc, name string, from int64) *domain.Branch {
	t.Helper()
	b, err := h.branches.CreateBranch(context.Background(), doc, name, &from)
	require.NoError(t, err)
	return b
}

func activeNames(list []*domain.Branch) []string {
	var names []string
	for _, b := range list {
		if b.IsActive {
			names = append(names, b.Name)
		}
	}
	return names
}
