package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/receipt"
	"github.com/Veraticus/spice-ledger/internal/validation"
	"github.com/spf13/cobra"
)

// newScanner builds the receipt scanner; tests replace it.
var newScanner = func(ctx context.Context, cfg config.ReceiptConfig) (receipt.Scanner, error) {
	return receipt.NewGeminiScanner(ctx, receipt.GeminiConfig{
		APIKey: cfg.APIKey,
		Model:  cfg.Model,
	})
}

func scanCmd() *cobra.Command {
	var (
		mimeType string
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "scan <receipt>",
		Short: "Suggest a transaction from a receipt image or PDF",
		Long: `Read a receipt with the configured model and print the transaction it
suggests. With --save a valid suggestion is recorded in your ledger.

The API key comes from receipt.api_key, GOOGLE_API_KEY or GEMINI_API_KEY.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ExpandPath(args[0])
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", path, err)
			}

			scanner, err := newScanner(cmd.Context(), appConfig.Receipt)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, cli.FormatInfo("Scanning "+filepath.Base(path)+"..."))

			res, err := receipt.NewService(scanner).Scan(cmd.Context(), data, mimeType)
			if err != nil {
				return common.NewUserError("could not read the receipt", err)
			}

			if !res.Valid() {
				fmt.Fprintln(out, cli.FormatWarning("The suggestion needs corrections before it can be saved:"))
				printIssues(out, res.Issues)
				printGuess(out, res.Guess)
				if save {
					return common.NewUserError("suggestion is not valid; nothing was saved", common.ErrValidationFailed)
				}
				return nil
			}

			fmt.Fprintln(out, cli.FormatSuccess("Suggested: "+validation.Describe(*res.Draft)))
			if !save {
				return nil
			}
			return saveDraft(cmd, res.Draft)
		},
	}

	cmd.Flags().StringVar(&mimeType, "mime-type", "", "content type of the file (detected when empty)")
	cmd.Flags().BoolVar(&save, "save", false, "record the suggestion when it is valid")

	return cmd
}

func saveDraft(cmd *cobra.Command, draft *model.TransactionDraft) error {
	return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
		txns, err := svc.BulkCreate(cmd.Context(), ownerID, []model.TransactionDraft{*draft})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Created transaction "+txns[0].ID))
		return nil
	})
}

func printGuess(w io.Writer, guess validation.RawRecord) {
	for _, field := range validation.Fields {
		if v, ok := guess[field]; ok {
			fmt.Fprintf(w, "  %s: %v\n", field, v)
		}
	}
}
