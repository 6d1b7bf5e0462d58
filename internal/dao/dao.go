// Package dao 实现数据访问层
package dao

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/haierkeys/prompt-history/internal/model"
	"github.com/haierkeys/prompt-history/pkg/fileurl"
	"github.com/haierkeys/prompt-history/pkg/util"
	"github.com/haierkeys/prompt-history/pkg/writequeue"

	"github.com/glebarez/sqlite"
	"github.com/haierkeys/gormTracing"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
)

// DatabaseConfig 数据库配置（由 app 层注入）
type DatabaseConfig struct {
	// Type sqlite | mysql | postgres
	Type     string
	Path     string
	UserName string
	Password string
	Host     string
	Port     int
	Name     string
	Charset  string
	SSLMode  string
	// Replicas 只读副本的 DSN（SQLite 为文件路径）
	Replicas        []string
	AutoMigrate     bool
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime string
	ConnMaxIdleTime string
	RunMode         string
	// Tracing 是否启用 opentracing 插件
	Tracing bool
}

// Dao 数据访问对象
type Dao struct {
	Db         *gorm.DB
	ctx        context.Context
	config     *DatabaseConfig
	logger     *zap.Logger
	writeQueue *writequeue.Manager
}

// Option Dao 配置项
type Option func(*Dao)

// WithConfig 设置数据库配置
func WithConfig(cfg *DatabaseConfig) Option {
	return func(d *Dao) {
		d.config = cfg
	}
}

// WithLogger 设置日志器
func WithLogger(l *zap.Logger) Option {
	return func(d *Dao) {
		d.logger = l
	}
}

// WithWriteQueueManager 设置写队列管理器，未设置时写事务不经过队列
func WithWriteQueueManager(m *writequeue.Manager) Option {
	return func(d *Dao) {
		d.writeQueue = m
	}
}

// New 创建 Dao
func New(db *gorm.DB, ctx context.Context, opts ...Option) *Dao {
	d := &Dao{Db: db, ctx: ctx}
	for _, opt := range opts {
		opt(d)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.config == nil {
		d.config = &DatabaseConfig{Type: db.Dialector.Name()}
	}
	return d
}

// Logger 获取日志器
func (d *Dao) Logger() *zap.Logger {
	return d.logger
}

// DB 获取数据库连接
func (d *Dao) DB() *gorm.DB {
	return d.Db
}

type txKey struct{}

// conn 返回上下文中的事务，不存在时返回带上下文的连接
// 事务内的读写都必须走这里，SQLite 只有一个连接
func (d *Dao) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.Db.WithContext(ctx)
}

// InTransaction 判断上下文是否已处于写事务中
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*gorm.DB)
	return ok
}

// ExecuteWrite 经过文档写队列，在单个事务中执行 fn
// 上下文已处于事务中时直接执行 fn，写队列不可重入
func (d *Dao) ExecuteWrite(ctx context.Context, documentID string, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}

	run := func(ctx context.Context) error {
		return d.Db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(context.WithValue(ctx, txKey{}, tx))
		})
	}

	if d.writeQueue == nil {
		return run(ctx)
	}
	return d.writeQueue.Execute(ctx, documentID, run)
}

// AutoMigrate 迁移全部表结构并创建活动分支部分唯一索引
func (d *Dao) AutoMigrate() error {
	if err := model.AutoMigrate(d.Db, ""); err != nil {
		return errors.Wrap(err, "auto migrate")
	}
	created, err := model.CreateActiveBranchIndex(d.Db)
	if err != nil {
		return errors.Wrap(err, "create active branch index")
	}
	if !created {
		d.logger.Warn("database does not support partial indexes, single active branch is enforced by the write queue only",
			zap.String("dialect", d.Db.Dialector.Name()))
	}
	return nil
}

// NewDBEngine 创建数据库引擎
func NewDBEngine(c DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(c.Type, dsn(c))
	if err != nil {
		return nil, err
	}
	if c.Type == "sqlite" {
		if err := fileurl.CreatePath(c.Path, os.ModePerm); err != nil {
			return nil, errors.Wrap(err, "create sqlite directory")
		}
	}

	logMode := logger.Silent
	if c.RunMode == "debug" {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logMode),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true, // 使用单数表名
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s database", c.Type)
	}

	if len(c.Replicas) > 0 {
		replicas := make([]gorm.Dialector, 0, len(c.Replicas))
		for _, r := range c.Replicas {
			rd, err := Dialector(c.Type, replicaDSN(c, r))
			if err != nil {
				return nil, err
			}
			replicas = append(replicas, rd)
		}
		// 查询自动路由到只读副本，事务与写操作使用主库
		resolver := dbresolver.Register(dbresolver.Config{
			Replicas: replicas,
			Policy:   dbresolver.RandomPolicy{},
		})
		if err := db.Use(resolver); err != nil {
			return nil, errors.Wrap(err, "register read replicas")
		}
	}

	// 获取通用数据库对象 sql.DB ，然后使用其提供的功能
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	maxOpen := c.MaxOpenConns
	if c.Type == "sqlite" {
		// SQLite 只允许一个写连接，事务内的查询也必须复用该连接
		maxOpen = 1
	}
	sqlDB.SetMaxIdleConns(c.MaxIdleConns)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(util.ParseDurationOr(c.ConnMaxLifetime, 30*time.Minute))
	sqlDB.SetConnMaxIdleTime(util.ParseDurationOr(c.ConnMaxIdleTime, 10*time.Minute))

	if c.Tracing {
		if err := db.Use(&gormTracing.OpentracingPlugin{}); err != nil {
			return nil, errors.Wrap(err, "register tracing plugin")
		}
	}

	return db, nil
}

// Dialector 根据数据库类型创建方言
func Dialector(dbType, dsn string) (gorm.Dialector, error) {
	switch dbType {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	}
	return nil, fmt.Errorf("unsupported database type %q", dbType)
}

func dsn(c DatabaseConfig) string {
	switch c.Type {
	case "mysql":
		charset := c.Charset
		if charset == "" {
			charset = "utf8mb4"
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=true&loc=Local",
			c.UserName, c.Password, c.Host, c.Port, c.Name, charset)
	case "postgres":
		sslMode := c.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			c.Host, c.UserName, c.Password, c.Name, c.Port, sslMode)
	default:
		return SQLiteDSN(c.Path)
	}
}

func replicaDSN(c DatabaseConfig, replica string) string {
	if c.Type == "sqlite" {
		return SQLiteDSN(replica)
	}
	return replica
}

// SQLiteDSN 为 SQLite 文件追加 WAL 与 busy_timeout 参数
func SQLiteDSN(path string) string {
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
