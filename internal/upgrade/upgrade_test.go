package upgrade

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/haierkeys/prompt-history/internal/dao"
	"github.com/haierkeys/prompt-history/internal/model"
	"github.com/haierkeys/prompt-history/pkg/timex"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := dao.NewDBEngine(dao.DatabaseConfig{
		Type: "sqlite",
		Path: filepath.Join(t.TempDir(), "history.sqlite3"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func TestMigrationManager_Run(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	refFile := filepath.Join(t.TempDir(), "config", "lastVersion")

	// A database from before the partial index, with duplicate active flags
	require.NoError(t, model.AutoMigrate(db, ""))
	base := time.Now()
	rows := []*model.Branch{
		{DocumentID: "doc", Name: "main", IsActive: true, CreatedAt: timex.Time(base)},
		{DocumentID: "doc", Name: "feat", IsActive: true, CreatedAt: timex.Time(base.Add(time.Second))},
		{DocumentID: "other", Name: "main", IsActive: true, CreatedAt: timex.Time(base)},
	}
	require.NoError(t, db.Create(rows).Error)

	m := NewMigrationManager(db, nil, "1.0.1", refFile)
	require.NoError(t, m.Run(ctx))

	var active []model.Branch
	require.NoError(t, db.Where("document_id = ? AND is_active = ?", "doc", true).Find(&active).Error)
	require.Len(t, active, 1)
	assert.Equal(t, "main", active[0].Name)

	// The index now rejects a second active branch
	err := db.Create(&model.Branch{DocumentID: "other", Name: "exp", IsActive: true, CreatedAt: timex.Time(base)}).Error
	assert.Error(t, err)

	var versions []SchemaVersion
	require.NoError(t, db.Find(&versions).Error)
	require.Len(t, versions, 1)
	assert.Equal(t, "v1.0.1", versions[0].Version)

	data, err := os.ReadFile(refFile)
	require.NoError(t, err)
	assert.Equal(t, "1.0.1", string(data))

	// Same version again is skipped
	require.NoError(t, NewMigrationManager(db, nil, "1.0.1", refFile).Run(ctx))
	require.NoError(t, db.Find(&versions).Error)
	assert.Len(t, versions, 1)
}

func TestMigrationManager_SkipsAppliedVersions(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	refFile := filepath.Join(t.TempDir(), "lastVersion")

	require.NoError(t, NewMigrationManager(db, nil, "1.0.1", refFile).Run(ctx))
	require.NoError(t, os.Remove(refFile))

	// Reference file lost, applied versions still guard re-runs
	require.NoError(t, NewMigrationManager(db, nil, "1.2.0", refFile).Run(ctx))

	var count int64
	require.NoError(t, db.Model(&SchemaVersion{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	data, err := os.ReadFile(refFile)
	require.NoError(t, err)
	assert.Equal(t, "1.2.0", string(data))
}
