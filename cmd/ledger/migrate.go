package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/spf13/cobra"
)

// schemaVersioner is implemented by stores that track a schema version.
type schemaVersioner interface {
	Driver() string
	SchemaVersion(ctx context.Context) (int, error)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.

For SQL databases this creates the transactions table and its indexes;
for MongoDB it ensures the collection indexes exist.`,
		Args: cobra.NoArgs,
		RunE: runMigrate,
	}

	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	store, err := openStorage(ctx, appConfig)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	slog.Debug("Opened database for migration", "driver", appConfig.Database.Driver, "status_only", status)

	if status {
		versioner, ok := store.(schemaVersioner)
		if !ok {
			fmt.Fprintln(out, cli.FormatInfo(appConfig.Database.Driver+" does not track schema versions; run migrate to ensure indexes"))
			return nil
		}
		current, err := versioner.SchemaVersion(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Driver:          %s\n", versioner.Driver())
		fmt.Fprintf(out, "Current version: %d\n", current)
		fmt.Fprintf(out, "Latest version:  %d\n", storage.ExpectedSchemaVersion)
		if current < storage.ExpectedSchemaVersion {
			fmt.Fprintln(out, cli.FormatWarning("Migrations pending; run ledger migrate"))
		}
		return nil
	}

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	fmt.Fprintln(out, cli.FormatSuccess("Database migrations completed"))
	return nil
}
