package cmd

import (
	"context"
	"fmt"

	internalApp "github.com/haierkeys/prompt-history/internal/app"
	"github.com/haierkeys/prompt-history/internal/dao"
	"github.com/haierkeys/prompt-history/internal/upgrade"
	"github.com/haierkeys/prompt-history/pkg/logger"

	"github.com/spf13/cobra"
)

var upgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the database schema to the latest version",
	Long: `Upgrade the database schema to the latest version.

This command creates missing tables, then applies every pending migration.
It is safe to run this command multiple times - already applied migrations will be skipped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, err := resolveConfig(configFile)
		if err != nil {
			return err
		}

		appConfig, configRealpath, err := internalApp.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Loading config from: %s\n", configRealpath)

		lg, err := logger.NewLogger(logger.Config{
			Level:      appConfig.Log.Level,
			File:       appConfig.Log.File,
			Production: appConfig.Log.Production,
		})
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		defer func() { _ = lg.Sync() }()

		if err := initStorageWithConfig(appConfig); err != nil {
			return err
		}

		db, err := dao.NewDBEngine(*appConfig.DaoConfig())
		if err != nil {
			return fmt.Errorf("failed to init database: %w", err)
		}
		defer func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}()

		fmt.Fprintln(cmd.OutOrStdout(), "Starting database upgrade...")

		if err := upgrade.NewMigrationManager(db, lg, internalApp.Version, "").Run(context.Background()); err != nil {
			return fmt.Errorf("upgrade failed: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Database upgrade completed successfully!")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(upgradeCmd)
}
