package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-receipts-must-flow/internal/common"
	"github.com/Veraticus/the-receipts-must-flow/internal/config"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := newRootCmd(viper.New()).ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, common.UserMessage(err))
		os.Exit(1)
	}
}

// newRootCmd builds the command tree around v so tests can run it in isolation.
func newRootCmd(v *viper.Viper) *cobra.Command {
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:   "receipts",
		Short: "🧾 Receipt line-item categorization",
		Long: `the-receipts-must-flow: import extracted receipts, suggest categories for
every line item from your rules and your own history, and review whatever
is still uncertain.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/receipts/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("db", "", "database path (overrides database.path)")
	rootCmd.PersistentFlags().String("user", "", "user the command acts for (overrides user.id)")

	_ = v.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = v.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = v.BindPFlag("database.path", rootCmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag("user.id", rootCmd.PersistentFlags().Lookup("user"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		cfg, err := initConfig(v, cfgFile)
		if err != nil {
			return err
		}
		cmd.SetContext(withConfig(cmd.Context(), cfg))
		return nil
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(categoriesCmd())
	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(suggestCmd())
	rootCmd.AddCommand(assignCmd())
	rootCmd.AddCommand(bulkCmd())
	rootCmd.AddCommand(reviewCmd())
	rootCmd.AddCommand(breakdownCmd())
	rootCmd.AddCommand(rulesCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func initConfig(v *viper.Viper, cfgFile string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	config.SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(config.ExpandPath(cfgFile))
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".config", "receipts"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	config.ConfigureEnv(v)

	if err := config.ReadFile(v); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, common.NewUserError("Configuration is invalid", err)
	}

	level, err := common.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	if err := common.SetupLogger(os.Stderr, level, cfg.Logging.Format); err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "receipts %s\n", version)
		},
	}
}
