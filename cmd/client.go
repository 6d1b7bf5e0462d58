package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	internalApp "github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/dao"
	"github.com/haierkeys/prompt-history/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"
)

// openApp 为命令行子命令创建 App Container，返回的 cleanup 负责关闭
// 日志只输出 warn 以上级别到 stderr，避免干扰命令输出
func openApp() (*internalApp.App, func(), error) {
	configPath, err := resolveConfig(configFile)
	if err != nil {
		return nil, nil, err
	}

	appConfig, _, err := internalApp.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	lg, err := logger.NewLogger(logger.Config{Level: "warn"})
	if err != nil {
		return nil, nil, err
	}

	if err := initStorageWithConfig(appConfig); err != nil {
		return nil, nil, err
	}

	db, err := dao.NewDBEngine(*appConfig.DaoConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init database: %w", err)
	}

	a, err := internalApp.NewApp(appConfig, lg, db)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		_ = a.Shutdown(ctx)
		_ = lg.Sync()
	}

	if appConfig.Database.AutoMigrate {
		if err := a.Dao.AutoMigrate(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("auto migrate: %w", err)
		}
	}
	return a, cleanup, nil
}

// withApp 打开 App Container 并执行 fn
func withApp(fn func(ctx context.Context, a *internalApp.App) error) error {
	a, cleanup, err := openApp()
	if err != nil {
		return err
	}
	defer cleanup()
	return fn(context.Background(), a)
}

// readContent 读取修订内容：--content 优先，其次 --file，"-" 表示标准输入
func readContent(cmd *cobra.Command, content, file string) (string, error) {
	if cmd.Flags().Changed("content") {
		return content, nil
	}
	switch file {
	case "":
		return "", fmt.Errorf("one of --content or --file is required")
	case "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		return string(data), err
	default:
		data, err := os.ReadFile(file)
		return string(data), err
	}
}

// parseMetadata 解析 --metadata 的 JSON 对象
func parseMetadata(raw string) (map[string]any, error) {
	if raw == "" {
		return nil, nil
	}
	var metadata map[string]any
	if err := sonic.UnmarshalString(raw, &metadata); err != nil {
		return nil, fmt.Errorf("invalid metadata: %w", err)
	}
	return metadata, nil
}
