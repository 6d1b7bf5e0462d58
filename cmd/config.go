package cmd

import (
	"os"

	"github.com/haierkeys/prompt-history/pkg/fileurl"

	"go.uber.org/zap"
)

// defaultConfigPath 自动创建配置文件的位置
const defaultConfigPath = "config/config.yaml"

// resolveConfig 返回要使用的配置文件
// 未指定时依次查找 config/config-dev.yaml、config.yaml、config/config.yaml，都不存在则写出内嵌的默认配置
func resolveConfig(path string) (string, error) {
	if len(path) > 0 {
		return path, nil
	}

	for _, candidate := range []string{"config/config-dev.yaml", "config.yaml", defaultConfigPath} {
		if fileurl.IsExist(candidate) {
			return candidate, nil
		}
	}

	bootstrapLogger.Warn("config file not found, creating default config")
	if err := fileurl.CreatePath(defaultConfigPath, os.ModePerm); err != nil {
		return "", err
	}
	if err := os.WriteFile(defaultConfigPath, []byte(configDefault), 0644); err != nil {
		return "", err
	}
	bootstrapLogger.Info("config file auto create successfully", zap.String("path", defaultConfigPath))
	return defaultConfigPath, nil
}
