package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/radovskyb/watcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runFlags struct {
	dir     string // Project root directory // 项目根目录
	port    string // Startup port // 启动端口
	runMode string // Startup mode // 启动模式
	config  string // Specified configuration file path // 指定要使用的配置文件路径
}

func init() {
	runEnv := new(runFlags)

	var runCommand = &cobra.Command{
		Use:   "run [-c config_file] [-d working_dir] [-p port]",
		Short: "Run service",
		Run: func(cmd *cobra.Command, args []string) {
			if len(runEnv.dir) > 0 {
				if err := os.Chdir(runEnv.dir); err != nil {
					bootstrapLogger.Error("failed to change the current working directory", zap.Error(err))
					return
				}
				bootstrapLogger.Info("working directory changed", zap.String("dir", runEnv.dir))
			}

			path, err := resolveConfig(configFile)
			if err != nil {
				bootstrapLogger.Error("config file auto create error", zap.Error(err))
				return
			}
			runEnv.config = path

			s, err := NewServer(runEnv)
			if err != nil {
				bootstrapLogger.Error("api service start err", zap.Error(err))
				return
			}

			w := watcher.New()
			// 每个监听周期至多接收 1 个事件，只关心写入
			w.SetMaxEvents(1)
			w.FilterOps(watcher.Write)
			if err := w.Add(runEnv.config); err != nil {
				s.logger.Error("config watcher file error", zap.Error(err))
			}
			go func() {
				if err := w.Start(5 * time.Second); err != nil {
					s.logger.Error("config watcher start error", zap.Error(err))
				}
			}()
			defer w.Close()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			for {
				select {
				case event := <-w.Event:
					s.logger.Info("config watcher change", zap.String("event", event.Op.String()), zap.String("file", event.Path))
					shutdown(s)

					// 重新初始化 server
					s, err = NewServer(runEnv)
					if err != nil {
						bootstrapLogger.Error("service restart err", zap.Error(err))
						return
					}

				case err := <-w.Error:
					s.logger.Error("config watcher error", zap.Error(err))

				case err := <-s.Err():
					s.logger.Error("service stopped unexpectedly", zap.Error(err))
					shutdown(s)
					return

				case <-quit:
					s.logger.Info("Received shutdown signal, initiating graceful shutdown...")
					shutdown(s)
					bootstrapLogger.Info("Service has been shut down gracefully.")
					return
				}
			}
		},
	}

	rootCmd.AddCommand(runCommand)
	fs := runCommand.Flags()
	fs.StringVarP(&runEnv.dir, "dir", "d", "", "run dir")
	fs.StringVarP(&runEnv.port, "port", "p", "", "run port")
	fs.StringVarP(&runEnv.runMode, "mode", "m", "", "run mode")
}

// shutdown 在超时内关闭服务
func shutdown(s *Server) {
	ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		s.logger.Error("Shutdown completed with error", zap.Error(err))
	}
}
