package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Digital-Creators-Team/round-engine/app"
	"github.com/Digital-Creators-Team/round-engine/config"
	"github.com/Digital-Creators-Team/round-engine/logging"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "roundengine",
		Short: "Round lifecycle and settlement engine",
		Long: `roundengine runs the period clocks, outcome generation, settlement
and result archive for the platform's round-based games.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "path to config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.Logging)
	logger.Info().Str("environment", cfg.Environment).Msg("starting round engine")

	a, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.Scheduler.Start(ctx)
	logger.Info().
		Strs("games", a.Service.Games()).
		Msg("engine serving")

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	a.Scheduler.Stop()
	logger.Info().Msg("round engine stopped")
	return nil
}
