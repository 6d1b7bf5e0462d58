package upgrade

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/haierkeys/prompt-history/internal/model"
	"github.com/haierkeys/prompt-history/pkg/fileurl"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
	"gorm.io/gorm"
)

// DefaultReferenceFile 记录上次运行版本的文件
const DefaultReferenceFile = "config/lastVersion"

// baseVersion 没有参考版本时的基准
const baseVersion = "v0.0.0"

// SchemaVersion 数据库版本记录表
type SchemaVersion struct {
	ID          int       `gorm:"primaryKey;autoIncrement" json:"id"`
	Version     string    `gorm:"not null;uniqueIndex;type:varchar(64)" json:"version"`
	Description string    `gorm:"type:text" json:"description"`
	AppliedAt   time.Time `gorm:"not null" json:"applied_at"`
}

// TableName 指定表名
func (SchemaVersion) TableName() string {
	return "schema_version"
}

// Migration 定义升级接口
type Migration interface {
	Version() string
	Description() string
	Up(db *gorm.DB, ctx context.Context) error
}

// MigrationManager 升级管理器
type MigrationManager struct {
	db             *gorm.DB
	logger         *zap.Logger
	migrations     []Migration
	runningVersion string
	referenceFile  string
}

// NewMigrationManager 创建升级管理器
// runningVersion: 当前程序版本
// referenceFile: 记录上次运行版本的文件，为空时使用 DefaultReferenceFile
func NewMigrationManager(db *gorm.DB, logger *zap.Logger, runningVersion, referenceFile string) *MigrationManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if referenceFile == "" {
		referenceFile = DefaultReferenceFile
	}
	return &MigrationManager{
		db:     db,
		logger: logger,
		migrations: []Migration{
			// 在这里注册所有的升级脚本
			&ActiveBranchIndexMigrate{logger: logger},
		},
		runningVersion: normalize(runningVersion),
		referenceFile:  referenceFile,
	}
}

// normalize 补全 semver 需要的 "v" 前缀
func normalize(v string) string {
	if v != "" && !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// Run 执行升级
func (m *MigrationManager) Run(ctx context.Context) error {
	m.logger.Info("Migration started")

	if err := model.AutoMigrate(m.db, ""); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	// 确保 schema_version 表存在
	if err := m.db.AutoMigrate(&SchemaVersion{}); err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	appliedVersions, err := m.getAppliedVersions()
	if err != nil {
		return fmt.Errorf("failed to get applied versions: %w", err)
	}

	lastVersion := normalize(m.getReferenceVersion())
	if !semver.IsValid(lastVersion) {
		m.logger.Warn("reference version is not a valid semver, using base", zap.String("lastVersion", lastVersion))
		lastVersion = baseVersion
	}

	// 当前版本不比上次运行的版本新时跳过
	if semver.IsValid(m.runningVersion) && semver.Compare(m.runningVersion, lastVersion) <= 0 {
		m.logger.Info("skipping upgrade",
			zap.String("runningVersion", m.runningVersion),
			zap.String("lastVersion", lastVersion))
		return nil
	}

	pending := make([]Migration, 0, len(m.migrations))
	for _, migration := range m.migrations {
		scriptVersion := normalize(migration.Version())
		if semver.Compare(scriptVersion, lastVersion) <= 0 {
			m.logger.Debug("skip migration <= lastVersion",
				zap.String("scriptVersion", scriptVersion),
				zap.String("lastVersion", lastVersion))
			continue
		}
		if appliedVersions[scriptVersion] {
			continue
		}
		pending = append(pending, migration)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return semver.Compare(normalize(pending[i].Version()), normalize(pending[j].Version())) < 0
	})

	for _, migration := range pending {
		m.logger.Info("applying migration",
			zap.String("scriptVersion", migration.Version()),
			zap.String("desc", migration.Description()))

		// 在事务中执行升级
		if err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx, ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			record := &SchemaVersion{
				Version:     normalize(migration.Version()),
				Description: migration.Description(),
				AppliedAt:   time.Now(),
			}
			if err := tx.Create(record).Error; err != nil {
				return fmt.Errorf("failed to record version: %w", err)
			}
			return nil
		}); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version(), err)
		}

		m.logger.Info("migration applied successfully", zap.String("scriptVersion", migration.Version()))
	}

	if len(pending) == 0 {
		m.logger.Info("database is already up to date")
	} else {
		m.logger.Info("upgrade completed", zap.Int("migrations_applied", len(pending)))
	}

	// 将当前版本写入参考文件，作为下一次运行的基准
	if m.runningVersion != "" {
		if err := m.saveReferenceVersion(m.runningVersion); err != nil {
			m.logger.Error("save lastVersion failed", zap.Error(err))
		}
	}
	return nil
}

// getAppliedVersions 获取已应用的数据库版本
func (m *MigrationManager) getAppliedVersions() (map[string]bool, error) {
	var versions []SchemaVersion
	if err := m.db.Find(&versions).Error; err != nil {
		return nil, err
	}

	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[normalize(v.Version)] = true
	}
	return applied, nil
}

// getReferenceVersion 读取参考版本号，文件不存在或为空时返回基准版本
func (m *MigrationManager) getReferenceVersion() string {
	content, err := os.ReadFile(m.referenceFile)
	if err != nil {
		if !os.IsNotExist(err) {
			m.logger.Warn("read lastVersion failed", zap.String("file", m.referenceFile), zap.Error(err))
		}
		return baseVersion
	}

	ver := strings.TrimSpace(string(content))
	if ver == "" {
		return baseVersion
	}
	return ver
}

// saveReferenceVersion 保存当前版本号
func (m *MigrationManager) saveReferenceVersion(version string) error {
	if err := fileurl.CreatePath(m.referenceFile, os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(m.referenceFile, []byte(strings.TrimPrefix(version, "v")), 0644)
}
