// Package app 提供应用容器，封装所有依赖和服务
package app

import (
	"os"
	"path/filepath"
	"time"

	"github.com/haierkeys/prompt-history/pkg/fileurl"
	"github.com/haierkeys/prompt-history/pkg/util"
	"github.com/haierkeys/prompt-history/pkg/workerpool"
	"github.com/haierkeys/prompt-history/pkg/writequeue"

	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// AppConfig 应用配置
type AppConfig struct {
	File       string           `yaml:"-"` // 配置文件路径，不序列化
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	History    HistoryConfig    `yaml:"history"`
	WriteQueue WriteQueueConfig `yaml:"write-queue"`
	WorkerPool WorkerPoolConfig `yaml:"worker-pool"`
	Task       TaskConfig       `yaml:"task"`
	Tracer     TracerConfig     `yaml:"tracer"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	RateLimit  RateLimitConfig  `yaml:"rate-limit"`
}

// LogConfig 日志配置
type LogConfig struct {
	// Level 日志级别，参见 zapcore.ParseLevel
	Level string `yaml:"level" default:"info"`
	// File 日志文件路径，为空时输出到 stderr
	File string `yaml:"file" default:"storage/logs/log.log"`
	// Production 是否启用 JSON 输出
	Production bool `yaml:"production" default:"true"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// RunMode 运行模式 debug|release
	RunMode string `yaml:"run-mode" default:"release"`
	// HttpPort HTTP 监听地址
	HttpPort string `yaml:"http-port" default:":9100"`
	// ReadTimeout 读取超时（秒）
	ReadTimeout int `yaml:"read-timeout" default:"60"`
	// WriteTimeout 写入超时（秒）
	WriteTimeout int `yaml:"write-timeout" default:"60"`
	// PrivateHttpListen 私有监听地址（pprof），为空时不启动
	PrivateHttpListen string `yaml:"private-http-listen" default:"127.0.0.1:9101"`
	// Language 响应消息语言 en|zh_cn
	Language string `yaml:"language" default:"en"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Type 数据库类型 sqlite|mysql|postgres
	Type string `yaml:"type" default:"sqlite"`
	// Path SQLite 数据库文件路径
	Path     string `yaml:"path" default:"storage/database/history.sqlite3"`
	UserName string `yaml:"username"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	// Charset MySQL 字符集
	Charset string `yaml:"charset" default:"utf8mb4"`
	// SSLMode PostgreSQL sslmode
	SSLMode string `yaml:"ssl-mode" default:"disable"`
	// Replicas 只读副本 DSN（SQLite 为文件路径）
	Replicas []string `yaml:"replicas"`
	// AutoMigrate 是否启用自动迁移
	AutoMigrate bool `yaml:"auto-migrate" default:"true"`
	// MaxIdleConns 最大闲置连接数
	MaxIdleConns int `yaml:"max-idle-conns" default:"10"`
	// MaxOpenConns 最大打开连接数，SQLite 固定为 1
	MaxOpenConns int `yaml:"max-open-conns" default:"100"`
	// ConnMaxLifetime 连接最大生命周期，支持格式：30m、1h
	ConnMaxLifetime string `yaml:"conn-max-lifetime" default:"30m"`
	// ConnMaxIdleTime 空闲连接最大生命周期
	ConnMaxIdleTime string `yaml:"conn-max-idle-time" default:"10m"`
}

// HistoryConfig 修订历史配置
type HistoryConfig struct {
	// DefaultBranch 首个修订隐式创建的分支
	DefaultBranch string `yaml:"default-branch" default:"main"`
	// DiffContext 差异块上下文行数
	DiffContext int `yaml:"diff-context" default:"3"`
	// DefaultPageSize 修订列表默认分页大小
	DefaultPageSize int `yaml:"default-page-size" default:"20"`
	// MaxPageSize 修订列表最大分页大小
	MaxPageSize int `yaml:"max-page-size" default:"100"`
	// DocumentTable 外部文档表，为空时接受任意非空文档 ID
	DocumentTable string `yaml:"document-table"`
	// DocumentColumn 外部文档表的 ID 列
	DocumentColumn string `yaml:"document-column" default:"id"`
}

// WriteQueueConfig 文档写队列配置
type WriteQueueConfig struct {
	Capacity int    `yaml:"capacity" default:"100"`
	Timeout  string `yaml:"timeout" default:"30s"`
	IdleTime string `yaml:"idle-time" default:"10m"`
}

// WorkerPoolConfig 批处理并发配置
type WorkerPoolConfig struct {
	MaxWorkers int `yaml:"max-workers" default:"8"`
}

// TaskConfig 后台任务配置
type TaskConfig struct {
	// RepairSpec 活动分支修复任务的 cron 表达式，"off" 表示禁用
	RepairSpec string `yaml:"repair-spec" default:"@every 1h"`
	// RepairOnStartup 启动时是否立即执行一次
	RepairOnStartup bool `yaml:"repair-on-startup" default:"true"`
}

// TracerConfig 请求追踪配置
type TracerConfig struct {
	// Enabled 是否启用追踪
	Enabled bool `yaml:"enabled" default:"true"`
	// Header 追踪 ID 请求头名称
	Header string `yaml:"header" default:"X-Trace-ID"`
	// Database 是否为 gorm 注册 opentracing 插件
	Database bool `yaml:"database"`
}

// MetricsConfig Prometheus 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Path    string `yaml:"path" default:"/metrics"`
}

// RateLimitConfig 令牌桶限流配置
type RateLimitConfig struct {
	Enabled bool `yaml:"enabled" default:"true"`
	// FillInterval 令牌填充间隔
	FillInterval string `yaml:"fill-interval" default:"1s"`
	// Capacity 桶容量
	Capacity int64 `yaml:"capacity" default:"100"`
	// Quantum 每次填充的令牌数
	Quantum int64 `yaml:"quantum" default:"100"`
}

// LoadConfig 从文件加载配置
// 返回配置实例和配置文件的绝对路径
func LoadConfig(f string) (*AppConfig, string, error) {
	realpath, err := filepath.Abs(f)
	if err != nil {
		return nil, "", err
	}
	realpath = filepath.Clean(realpath)

	c := new(AppConfig)
	c.File = realpath

	// 设置默认值
	if err := defaults.Set(c); err != nil {
		return nil, realpath, errors.Wrap(err, "set default config failed")
	}

	file, err := os.ReadFile(realpath)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "read config file failed")
	}

	err = yaml.Unmarshal(file, c)
	if err != nil {
		return nil, realpath, errors.Wrap(err, "parse config file failed")
	}

	// 只在解析前设置一次默认值，文件中显式写出的 false / 0 / "" 保持不变
	return c, realpath, nil
}

// Save 保存配置到文件
func (c *AppConfig) Save() error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal config failed")
	}

	if err := fileurl.CreatePath(c.File, os.ModePerm); err != nil {
		return errors.Wrap(err, "create config directory failed")
	}

	err = os.WriteFile(c.File, data, 0644)
	if err != nil {
		return errors.Wrap(err, "write config file failed")
	}

	return nil
}

// GetWorkerPoolConfig 获取 Worker Pool 配置
func (c *AppConfig) GetWorkerPoolConfig() workerpool.Config {
	cfg := workerpool.DefaultConfig()
	if c.WorkerPool.MaxWorkers > 0 {
		cfg.MaxWorkers = c.WorkerPool.MaxWorkers
	}
	return cfg
}

// GetWriteQueueConfig 获取 Write Queue 配置
func (c *AppConfig) GetWriteQueueConfig() writequeue.Config {
	cfg := writequeue.DefaultConfig()

	if c.WriteQueue.Capacity > 0 {
		cfg.QueueCapacity = c.WriteQueue.Capacity
	}
	if c.WriteQueue.Timeout != "" {
		if timeout, err := util.ParseDuration(c.WriteQueue.Timeout); err == nil {
			cfg.WriteTimeout = timeout
		}
	}
	if c.WriteQueue.IdleTime != "" {
		if idleTime, err := util.ParseDuration(c.WriteQueue.IdleTime); err == nil {
			cfg.IdleTimeout = idleTime
		}
	}

	return cfg
}

// GetRateLimitFillInterval 获取限流填充间隔
func (c *AppConfig) GetRateLimitFillInterval() time.Duration {
	return util.ParseDurationOr(c.RateLimit.FillInterval, time.Second)
}
