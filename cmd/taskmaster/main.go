package main

import (
	"os"

	"github.com/KarpovAlexandrGo/taskmaster/internal/config"
	"github.com/KarpovAlexandrGo/taskmaster/pkg/logger"
	"github.com/spf13/cobra"
)

// @title           Taskmaster API
// @version         1.0
// @description     Personal task tracker: tasks, reminders and completion history.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

var configDir string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskmaster",
		Short:         "Personal task tracker",
		Long:          `Taskmaster tracks tasks with due dates and reminders and serves a board, a history and a reminders page.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runServe,
	}
	root.PersistentFlags().StringVar(&configDir, "config-dir", "./configs", "directory holding config.yaml")

	root.AddCommand(newServeCmd(), newMigrateCmd(), newSeedCmd())
	return root
}

// loadConfig reads the configuration and applies its logging settings.
func loadConfig() (*config.Config, error) {
	cfg, fileFound, err := config.Load(configDir)
	if err != nil {
		return nil, err
	}
	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, err
	}
	if !fileFound {
		logger.Log.Info("Using default configuration")
	}
	return cfg, nil
}
