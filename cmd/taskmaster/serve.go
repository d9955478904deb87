package main

import (
	"github.com/KarpovAlexandrGo/taskmaster/internal/app"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long:  `Open the task store, apply migrations and serve the web pages and the JSON API until interrupted.`,
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	a, err := app.NewApp(cfg)
	if err != nil {
		return err
	}
	return a.Run()
}
