package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configDefault 内嵌的默认配置，配置文件不存在时写出
var configDefault string

// configFile --config 指定的配置文件
var configFile string

var rootCmd = &cobra.Command{
	Use:   "prompt-history",
	Short: "Versioned prompt storage with branches, diffs, rollback and merge",
	// 错误由 Execute 统一输出
	SilenceErrors: true,
	SilenceUsage:  true,
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file")
}

// Execute 执行根命令
func Execute(c string) {
	configDefault = c
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
