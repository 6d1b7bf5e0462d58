package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	internalApp "github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/dao"
	"github.com/haierkeys/prompt-history/internal/routers"
	"github.com/haierkeys/prompt-history/internal/task"
	"github.com/haierkeys/prompt-history/internal/upgrade"
	"github.com/haierkeys/prompt-history/pkg/code"
	"github.com/haierkeys/prompt-history/pkg/logger"
	"github.com/haierkeys/prompt-history/pkg/validator"

	"github.com/gin-gonic/gin"
	ut "github.com/go-playground/universal-translator"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultShutdownTimeout default shutdown timeout duration
// DefaultShutdownTimeout 默认关闭超时时间
const DefaultShutdownTimeout = 30 * time.Second

// Server 一次配置加载对应的服务实例，配置变更时整体重建
type Server struct {
	logger            *zap.Logger             // Logger // 日志对象
	config            *internalApp.AppConfig  // App configuration // 应用配置
	db                *gorm.DB                // Database connection // 数据库连接
	ut                *ut.UniversalTranslator // Translator // 翻译器
	httpServer        *http.Server
	privateHttpServer *http.Server
	app               *internalApp.App // App Container
	tasks             *task.Manager    // Background tasks // 后台任务

	cancel context.CancelFunc
	errCh  chan error
}

// NewServer 加载配置并启动 HTTP 服务与后台任务
func NewServer(runEnv *runFlags) (*Server, error) {
	appConfig, configRealpath, err := internalApp.LoadConfig(runEnv.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	runMode := runEnv.runMode
	if len(runMode) <= 0 {
		runMode = appConfig.Server.RunMode
	}
	if len(runMode) > 0 {
		gin.SetMode(runMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if len(runEnv.port) > 0 {
		appConfig.Server.HttpPort = runEnv.port
	}

	s := &Server{
		config: appConfig,
		errCh:  make(chan error, 2),
	}

	if err := initLoggerWithConfig(s, appConfig); err != nil {
		return nil, fmt.Errorf("initLogger: %w", err)
	}

	if err := initStorageWithConfig(appConfig); err != nil {
		return nil, fmt.Errorf("initStorage: %w", err)
	}

	db, err := dao.NewDBEngine(*appConfig.DaoConfig())
	if err != nil {
		return nil, fmt.Errorf("initDatabase: %w", err)
	}
	s.db = db

	app, err := internalApp.NewApp(appConfig, s.logger, db)
	if err != nil {
		return nil, fmt.Errorf("failed to create app container: %w", err)
	}
	s.app = app

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	// 自动执行迁移任务
	if appConfig.Database.AutoMigrate {
		if err := upgrade.NewMigrationManager(db, s.logger, internalApp.Version, "").Run(ctx); err != nil {
			s.abort()
			return nil, fmt.Errorf("upgrade: %w", err)
		}
	}

	if err := code.SetGlobalDefaultLang(appConfig.Server.Language); err != nil {
		s.logger.Warn("server.language", zap.String("language", appConfig.Server.Language), zap.Error(err))
	}

	uni, err := validator.Init(validator.NewCustomValidator())
	if err != nil {
		s.abort()
		return nil, fmt.Errorf("initValidator: %w", err)
	}
	s.ut = uni

	s.tasks = task.NewManager(app, s.logger)
	if err := s.tasks.RegisterTasks(); err != nil {
		s.abort()
		return nil, fmt.Errorf("register tasks: %w", err)
	}
	s.tasks.Start(ctx)

	s.logger.Warn(fmt.Sprintf("%s v%s\nGit: %s\nBuildTime: %s\n", internalApp.Name, internalApp.Version, internalApp.GitTag, internalApp.BuildTime))
	s.logger.Warn("config loaded", zap.String("path", configRealpath))

	if httpAddr := appConfig.Server.HttpPort; len(httpAddr) > 0 {
		s.logger.Warn("api_router", zap.String("config.server.HttpPort", httpAddr))
		s.httpServer = &http.Server{
			Addr:           httpAddr,
			Handler:        routers.NewRouter(s.app, s.ut),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.serve("api service", s.httpServer)
	}

	if httpAddr := appConfig.Server.PrivateHttpListen; len(httpAddr) > 0 {
		s.logger.Info("api_router", zap.String("config.server.PrivateHttpListen", httpAddr))
		s.privateHttpServer = &http.Server{
			Addr:           httpAddr,
			Handler:        routers.NewPrivateRouterWithLogger(gin.Mode(), s.logger),
			ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
			MaxHeaderBytes: 1 << 20,
		}
		s.serve("private api service", s.privateHttpServer)
	}

	return s, nil
}

// serve 在后台监听，异常退出时通过 Err 通知
func (s *Server) serve(name string, srv *http.Server) {
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(name+" err", zap.Error(err))
			s.errCh <- fmt.Errorf("%s: %w", name, err)
		}
	}()
}

// Err 服务异常退出时返回的错误
func (s *Server) Err() <-chan error {
	return s.errCh
}

// abort 启动失败时释放已创建的资源
func (s *Server) abort() {
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	_ = s.app.Shutdown(ctx)
}

// Shutdown 依次停止 HTTP 服务、后台任务与 App Container
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error

	for _, srv := range []*http.Server{s.httpServer, s.privateHttpServer} {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Error("api service shutdown error", zap.String("addr", srv.Addr), zap.Error(err))
			errs = append(errs, err)
		}
	}

	s.cancel()
	if err := s.tasks.Stop(ctx); err != nil {
		s.logger.Error("task manager stop error", zap.Error(err))
		errs = append(errs, err)
	}

	if err := s.app.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown app container", zap.Error(err))
		errs = append(errs, err)
	} else {
		s.logger.Info("App container shutdown gracefully")
	}

	_ = s.logger.Sync()
	return errors.Join(errs...)
}

// initLoggerWithConfig initializes logger (using injected config)
// initLoggerWithConfig 初始化日志器（使用注入的配置）
func initLoggerWithConfig(s *Server, cfg *internalApp.AppConfig) error {
	lg, err := logger.NewLogger(logger.Config{
		Level:      cfg.Log.Level,
		File:       cfg.Log.File,
		Production: cfg.Log.Production,
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	s.logger = lg
	return nil
}

// initStorageWithConfig initializes storage directory (using injected config)
// initStorageWithConfig 初始化存储目录（使用注入的配置）
func initStorageWithConfig(cfg *internalApp.AppConfig) error {
	dirs := []string{
		filepath.Dir(cfg.Log.File),
	}
	if cfg.Database.Type == "" || cfg.Database.Type == "sqlite" {
		dirs = append(dirs, filepath.Dir(cfg.Database.Path))
	}

	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0754); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
