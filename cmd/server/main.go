package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/causerie-chat/server/internal/app"
	"github.com/causerie-chat/server/internal/config"
	"github.com/causerie-chat/server/internal/log"
	"github.com/causerie-chat/server/internal/store/sqlite"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string
	overrides := config.Config{}

	root := &cobra.Command{
		Use:           "causerie-server",
		Short:         "Causerie real-time chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	root.PersistentFlags().StringVar(&overrides.Addr, "addr", "", "HTTP listen address")
	root.PersistentFlags().StringVar(&overrides.DatabasePath, "db", "", "SQLite database path")
	root.PersistentFlags().StringVar(&overrides.LogLevel, "log-level", "", "log level (debug, info, warn, error)")

	loadConfig := func() (config.Config, error) {
		bootLogger := log.New(config.Default().LogLevel)
		cfg, path, err := config.Load(bootLogger, configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg.UpdateFrom(overrides)
		return cfg, nil
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := log.New(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			application, err := app.New(&cfg, logger)
			if err != nil {
				return err
			}

			logger.Info().Str("addr", cfg.Addr).Msg("starting causerie server")
			if err := application.Run(ctx); err != nil {
				return err
			}
			logger.Info().Msg("server stopped")
			return nil
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Insert the default rooms into the database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := log.New(cfg.LogLevel)

			st, err := sqlite.New(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer st.Close()

			if err := st.Seed(context.Background()); err != nil {
				return err
			}
			logger.Info().Str("db_path", cfg.DatabasePath).Msg("default rooms seeded")
			return nil
		},
	}

	root.AddCommand(serve, seed)
	return root
}
