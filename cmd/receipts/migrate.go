package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-receipts-must-flow/internal/cli"
	"github.com/Veraticus/the-receipts-must-flow/internal/storage"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

Every other command migrates automatically; use --status to inspect the
schema without changing it.`,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, err := configFrom(ctx)
	if err != nil {
		return err
	}
	statusOnly, _ := cmd.Flags().GetBool("status")

	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	out := cmd.OutOrStdout()
	if !statusOnly {
		slog.Info("Running database migrations", "database", cfg.Database.Path)
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	status, err := store.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Database: %s", cfg.Database.Path)))
	fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Schema version: %d of %d", status.Version, storage.ExpectedSchemaVersion)))
	switch {
	case status.Dirty:
		fmt.Fprintln(out, cli.FormatError("Schema is dirty; a previous migration failed part way"))
	case status.Version == storage.ExpectedSchemaVersion:
		fmt.Fprintln(out, cli.FormatSuccess("Database is up to date"))
	default:
		fmt.Fprintln(out, cli.FormatWarning("Migrations pending; run 'receipts migrate'"))
	}
	return nil
}
