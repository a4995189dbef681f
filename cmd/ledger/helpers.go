package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
	"github.com/Veraticus/spice-ledger/internal/validation"
)

// openStorage connects to the configured store without migrating it.
func openStorage(ctx context.Context, cfg *config.Config) (service.Storage, error) {
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		store, err := storage.NewPostgresStorage(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMongo:
		store, err := storage.NewMongoStorage(ctx, cfg.Database.MongoURI, cfg.Database.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := storage.NewSQLiteStorage(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// initStorage opens the configured store and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (service.Storage, error) {
	store, err := openStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// withLedger runs fn with a ledger service for the configured owner.
func withLedger(ctx context.Context, fn func(svc *ledger.Service, ownerID string) error) error {
	ownerID, err := requireUser(appConfig)
	if err != nil {
		return err
	}

	store, err := initStorage(ctx, appConfig)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Warn("Failed to close storage", "error", closeErr)
		}
	}()

	svc := ledger.NewService(store, ledger.WithMaxBatchSize(appConfig.Import.MaxBatchSize))
	return fn(svc, ownerID)
}

func requireUser(cfg *config.Config) (string, error) {
	if cfg.User.ID == "" {
		return "", common.NewUserError("no user configured; pass --user or set LEDGER_USER_ID", ledger.ErrMissingOwner)
	}
	return cfg.User.ID, nil
}

// parseAssignments turns field=value arguments into a raw record.
func parseAssignments(args []string) (validation.RawRecord, error) {
	raw := make(validation.RawRecord, len(args))
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, common.NewUserError(fmt.Sprintf("expected field=value, got %q", arg), common.ErrInvalidConfig)
		}
		if !validation.IsField(field) {
			return nil, common.NewUserError(
				fmt.Sprintf("unknown field %q (fields: %s)", field, strings.Join(validation.Fields, ", ")),
				common.ErrInvalidConfig,
			)
		}
		raw[field] = strings.TrimSpace(value)
	}
	return raw, nil
}

func formatAmount(txn *model.Transaction) string {
	amount := txn.SignedAmount().StringFixed(2)
	if txn.IsIncome() {
		return cli.IncomeStyle.Render("+" + amount)
	}
	return cli.ExpenseStyle.Render(amount)
}

func printTransaction(w io.Writer, txn *model.Transaction) {
	var b strings.Builder
	fmt.Fprintf(&b, "ID:        %s\n", txn.ID)
	fmt.Fprintf(&b, "Date:      %s\n", txn.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Amount:    %s\n", formatAmount(txn))
	fmt.Fprintf(&b, "Category:  %s\n", txn.Category)
	if txn.Description != "" {
		fmt.Fprintf(&b, "Notes:     %s\n", txn.Description)
	}
	if txn.PaymentMethod != "" {
		fmt.Fprintf(&b, "Paid with: %s\n", txn.PaymentMethod)
	}
	if txn.Recurrence != nil {
		fmt.Fprintf(&b, "Repeats:   every %d %s, next %s\n",
			txn.Recurrence.Count, txn.Recurrence.Interval, txn.Recurrence.Next(txn.Date).Format("2006-01-02"))
	}
	fmt.Fprintln(w, cli.RenderBox(txn.Title, strings.TrimRight(b.String(), "\n")))
}

func printTransactions(w io.Writer, txns []model.Transaction) {
	rows := make([][]string, 0, len(txns))
	for i := range txns {
		txn := &txns[i]
		rows = append(rows, []string{
			txn.ID,
			txn.Date.Format("2006-01-02"),
			txn.Title,
			txn.Category,
			formatAmount(txn),
			string(txn.RecurringStatus),
		})
	}
	fmt.Fprintln(w, cli.RenderTable([]string{"ID", "Date", "Title", "Category", "Amount", "Recurring"}, rows))
}

// printIssues lists validation issues one per line.
func printIssues(w io.Writer, issues []validation.Issue) {
	for _, issue := range issues {
		fmt.Fprintln(w, "  "+cli.FormatWarning(issue.String()))
	}
}
