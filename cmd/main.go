package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/reviewgate-backend/internal/app"
	"github.com/yungbote/reviewgate-backend/internal/data/db"
)

var configFile string

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("load .env: %v", err)
	}
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "reviewgate",
		Short:        "Spaced-repetition review scheduling and AI usage gating service",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("REVIEWGATE_CONFIG"), "path to a YAML config file")
	rootCmd.AddCommand(newServeCommand(), newMigrateCommand(), newConfigCommand())
	return rootCmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(configFile)
			if err != nil {
				return err
			}
			logg, err := app.NewLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.New(ctx, logg, cfg)
			if err != nil {
				logg.Error("app init failed", "error", err)
				logg.Sync()
				return err
			}
			defer a.Close(context.Background())

			if err := a.Run(ctx); err != nil {
				logg.Error("server stopped", "error", err)
				return err
			}
			logg.Info("server stopped")
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply schema migrations and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.LoadConfig(configFile)
			if err != nil {
				return err
			}
			logg, err := app.NewLogger(cfg.Log)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logg.Sync()

			gdb, closeDB, err := app.OpenDatabase(logg, cfg.Database)
			if err != nil {
				return err
			}
			defer func() { _ = closeDB() }()

			if err := db.AutoMigrateAll(gdb); err != nil {
				return fmt.Errorf("automigrate: %w", err)
			}
			logg.Info("migrations applied", "driver", cfg.Database.Driver)
			return nil
		},
	}
}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "print",
		Short: "Print the effective configuration as YAML with secrets masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := app.EffectiveSettings(configFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(settings); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			return enc.Close()
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := app.LoadConfig(configFile); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration OK")
			return nil
		},
	})
	return configCmd
}
