package main

import (
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/validation"
	"github.com/spf13/cobra"
)

func txCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transactions"},
		Short:   "Manage individual transactions",
		Long: `Create, inspect, change and remove ledger transactions.

Fields are given as field=value pairs using these names:
  title, description, amount, type, category, paymentMethod, date,
  recurringStatus, recurringInterval, recurringIntervalCount`,
	}

	cmd.AddCommand(txCreateCmd())
	cmd.AddCommand(txGetCmd())
	cmd.AddCommand(txListCmd())
	cmd.AddCommand(txUpdateCmd())
	cmd.AddCommand(txDeleteCmd())
	cmd.AddCommand(txDuplicateCmd())
	cmd.AddCommand(txBulkDeleteCmd())

	return cmd
}

func txCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create field=value...",
		Short: "Record a new transaction",
		Example: `  ledger tx create title=Groceries amount=54.20 type=EXPENSE category=Food date=2024-03-01
  ledger tx create title=Rent amount=1200 type=EXPENSE category=Housing date=2024-03-01 \
      recurringStatus=RECURRING recurringInterval=MONTHLY`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
				txn, err := svc.Create(cmd.Context(), ownerID, raw)
				if err != nil {
					return reportValidation(cmd, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Created transaction "+txn.ID))
				printTransaction(cmd.OutOrStdout(), txn)
				return nil
			})
		},
	}
}

func txGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
				txn, err := svc.Get(cmd.Context(), ownerID, args[0])
				if err != nil {
					return notFound(err, args[0])
				}
				printTransaction(cmd.OutOrStdout(), txn)
				return nil
			})
		},
	}
}

func txListCmd() *cobra.Command {
	var (
		filter ledger.ListFilter
		page   ledger.Pagination
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := normalizeListFilter(&filter); err != nil {
				return err
			}
			return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
				res, err := svc.List(cmd.Context(), ownerID, filter, page)
				if err != nil {
					return reportValidation(cmd, err)
				}

				out := cmd.OutOrStdout()
				if len(res.Transactions) == 0 {
					fmt.Fprintln(out, cli.FormatInfo("No transactions found"))
				} else {
					printTransactions(out, res.Transactions)
				}
				fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("Page %d of %d (%d transactions)",
					res.Pagination.PageNumber, res.Pagination.TotalPages, res.Pagination.TotalCount)))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&filter.Keyword, "keyword", "k", "", "match title or category (case-insensitive)")
	cmd.Flags().StringVar(&filter.Type, "type", "", "INCOME or EXPENSE")
	cmd.Flags().StringVar(&filter.RecurringStatus, "recurring", "", "RECURRING or NON_RECURRING")
	cmd.Flags().IntVar(&page.PageNumber, "page", ledger.DefaultPageNumber, "page number")
	cmd.Flags().IntVar(&page.PageSize, "page-size", ledger.DefaultPageSize, "transactions per page")

	return cmd
}

func txUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "update <id> field=value...",
		Short:   "Change fields of a transaction",
		Example: `  ledger tx update 3f1c... amount=60 category=Dining`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := parseAssignments(args[1:])
			if err != nil {
				return err
			}
			return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
				txn, err := svc.Update(cmd.Context(), ownerID, args[0], raw)
				if err != nil {
					if errors.Is(err, common.ErrNotFound) {
						return notFound(err, args[0])
					}
					return reportValidation(cmd, err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Updated transaction "+txn.ID))
				printTransaction(cmd.OutOrStdout(), txn)
				return nil
			})
		},
	}
}

func txDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
				if err := svc.Delete(cmd.Context(), ownerID, args[0]); err != nil {
					return notFound(err, args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted transaction "+args[0]))
				return nil
			})
		},
	}
}

func txDuplicateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <id>",
		Short: "Copy a transaction under a new id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
				txn, err := svc.Duplicate(cmd.Context(), ownerID, args[0])
				if err != nil {
					return notFound(err, args[0])
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Duplicated "+args[0]+" as "+txn.ID))
				printTransaction(cmd.OutOrStdout(), txn)
				return nil
			})
		},
	}
}

func txBulkDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bulk-delete <id>...",
		Short: "Delete many transactions at once",
		Long: `Delete every listed transaction that belongs to you. Ids that do not
exist or belong to someone else are reported and skipped.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
				res, err := svc.BulkDelete(cmd.Context(), ownerID, args)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deleted %d transactions", res.DeletedCount)))
				if len(res.SkippedIDs) > 0 {
					fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Skipped %d ids not found in your ledger:", len(res.SkippedIDs))))
					for _, id := range res.SkippedIDs {
						if id == "" {
							id = "(blank)"
						}
						fmt.Fprintln(out, "  "+cli.SubtleStyle.Render(id))
					}
				}
				return nil
			})
		},
	}
}

// normalizeListFilter accepts enum flags in any letter case.
func normalizeListFilter(filter *ledger.ListFilter) error {
	if filter.Type != "" {
		t, err := model.ParseTransactionType(filter.Type)
		if err != nil {
			return common.NewUserError(err.Error(), fmt.Errorf("%w: %w", common.ErrValidationFailed, err))
		}
		filter.Type = string(t)
	}
	if filter.RecurringStatus != "" {
		st, err := model.ParseRecurringStatus(filter.RecurringStatus)
		if err != nil {
			return common.NewUserError(err.Error(), fmt.Errorf("%w: %w", common.ErrValidationFailed, err))
		}
		filter.RecurringStatus = string(st)
	}
	return nil
}

// reportValidation prints validation issues and returns a user-facing error.
// Other errors pass through unchanged.
func reportValidation(cmd *cobra.Command, err error) error {
	var verr *validation.Error
	if !errors.As(err, &verr) {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatError("The transaction is not valid:"))
	printIssues(cmd.OutOrStdout(), verr.Issues)
	return common.NewUserError("validation failed", err)
}

func notFound(err error, id string) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError(fmt.Sprintf("transaction %s not found", id), err)
	}
	return err
}
