package main

import (
	"fmt"

	"github.com/KarpovAlexandrGo/taskmaster/internal/app"
	"github.com/KarpovAlexandrGo/taskmaster/internal/usecase"
	"github.com/spf13/cobra"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert sample tasks",
		Long:  `Insert the sample task set into an empty store. A store that already has tasks is left alone.`,
		Args:  cobra.NoArgs,
		RunE:  runSeed,
	}
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	store, err := app.OpenStore(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	result, err := usecase.NewTaskUseCase(store, nil, usecase.WithLocation(loc)).Seed(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%d tasks)\n", result.Message, result.Count)
	return nil
}
