package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/importer"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// importOptions are the flags shared by every import source.
type importOptions struct {
	mappings []string
	defaults []string
}

func (o *importOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&o.mappings, "map", "m", nil, "map a column to a field, e.g. --map Memo=description or --map Ref=skip")
	cmd.Flags().StringArrayVar(&o.defaults, "default", nil, "value for a field the rows leave empty, e.g. --default category=Food")
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Bulk-import transactions",
		Long: `Import many transactions at once from a CSV file, OFX/QFX bank statements
or a Google Sheet. Every row is validated first; if any row is invalid
nothing is saved and the failing rows are listed.

Columns are matched to fields by name. Use --map to override the match.`,
	}

	cmd.AddCommand(importCSVCmd())
	cmd.AddCommand(importOFXCmd())
	cmd.AddCommand(importSheetsCmd())

	return cmd
}

func importCSVCmd() *cobra.Command {
	var (
		opts      importOptions
		delimiter string
	)

	cmd := &cobra.Command{
		Use:   "csv <file>",
		Short: "Import a CSV file whose first line is the header",
		Example: `  ledger import csv march.csv
  ledger import csv bank.csv --map "Booking Date=date" --map Memo=description --default category=Uncategorized`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			comma, err := parseDelimiter(delimiter)
			if err != nil {
				return err
			}

			path := config.ExpandPath(args[0])
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer func() { _ = f.Close() }()

			return runImport(cmd, &opts, importer.NewCSVSource(f, comma), filepath.Base(path))
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&delimiter, "delimiter", ",", `field separator (single character or "tab")`)

	return cmd
}

func importOFXCmd() *cobra.Command {
	var (
		opts     importOptions
		category string
	)

	cmd := &cobra.Command{
		Use:   "ofx <file>...",
		Short: "Import OFX/QFX statements exported from your bank",
		Long: `Import OFX or QFX (Quicken) statements. Each file is imported as its own
batch. Glob patterns are expanded.`,
		Example: `  ledger import ofx ~/Downloads/chase_jan_2024.qfx
  ledger import ofx ~/Downloads/Chase/*.qfx ~/Downloads/Ally/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := expandFiles(args)
			if err != nil {
				return err
			}

			for _, path := range files {
				if err := importOFXFile(cmd, &opts, path, category); err != nil {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
			}
			return nil
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&category, "category", importer.DefaultOFXCategory, "category for lines without an inferred one")

	return cmd
}

func importOFXFile(cmd *cobra.Command, opts *importOptions, path, category string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return runImport(cmd, opts, importer.NewOFXSource(f, category), filepath.Base(path))
}

func importSheetsCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Import rows from a Google Sheet",
		Long: `Import rows from a Google Sheet whose first row is the header.

Authenticate with a service account key (sheets.service_account_path) or
OAuth2 credentials (sheets.client_id, sheets.client_secret and either
sheets.refresh_token or sheets.token_file). GOOGLE_SHEETS_* environment
variables are used when the config leaves a setting empty.`,
		Example: `  ledger import sheets --spreadsheet 1AbC... --range "2024!A:H"`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sheetsConfig, err := config.LoadSheetsConfig(viper.GetViper())
			if err != nil {
				return common.NewUserError("Google Sheets is not configured: "+err.Error(), err)
			}

			src, err := importer.NewSheetsSource(cmd.Context(), sheetsConfig)
			if err != nil {
				return err
			}
			return runImport(cmd, &opts, src, "sheet "+sheetsConfig.SpreadsheetID)
		},
	}

	opts.register(cmd)
	cmd.Flags().String("spreadsheet", "", "spreadsheet id")
	cmd.Flags().String("range", "", "A1 range to read (default A:Z)")
	_ = viper.BindPFlag("sheets.spreadsheet_id", cmd.Flags().Lookup("spreadsheet"))
	_ = viper.BindPFlag("sheets.range", cmd.Flags().Lookup("range"))

	return cmd
}

// runImport loads src and imports it into the configured owner's ledger.
func runImport(cmd *cobra.Command, opts *importOptions, src importer.Source, label string) error {
	overrides, err := importer.ParseMapping(opts.mappings)
	if err != nil {
		return common.NewUserError(err.Error(), err)
	}
	defaults, err := parseAssignments(opts.defaults)
	if err != nil {
		return err
	}

	return withLedger(cmd.Context(), func(svc *ledger.Service, ownerID string) error {
		batch, err := src.Load(cmd.Context())
		if err != nil {
			if errors.Is(err, importer.ErrNoRows) {
				return common.NewUserError(label+" has no rows to import", err)
			}
			return err
		}

		req := batch.Request(ownerID, overrides, defaults)
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Importing %d rows from %s", len(req.Rows), label)))
		fmt.Fprintln(out, cli.SubtleStyle.Render("Columns: "+req.Mapping.String()))

		handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
		ctx, stop := handler.HandleInterrupts(cmd.Context(), "Import", true)
		defer stop()

		bar := cli.NewImportProgress(cmd.ErrOrStderr(), "Importing "+label)
		engine := importer.NewEngine(svc, importer.WithTickInterval(appConfig.Import.TickInterval))

		res, err := engine.Import(ctx, req, bar.Update)
		if err != nil {
			return importFailure(out, err, handler.WasInterrupted())
		}

		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Imported %d transactions from %s", len(res.Transactions), label)))
		return nil
	})
}

func importFailure(out io.Writer, err error, interrupted bool) error {
	var rowErrs *importer.RowErrors
	switch {
	case errors.As(err, &rowErrs):
		rows := make([][]string, 0, len(rowErrs.Rows))
		for _, n := range rowErrs.Numbers() {
			rows = append(rows, []string{strconv.Itoa(n), strings.ReplaceAll(rowErrs.Rows[n], "\n", "; ")})
		}
		fmt.Fprintln(out, cli.FormatError("Some rows are not valid:"))
		fmt.Fprintln(out, cli.RenderTable([]string{"Row", "Problem"}, rows))
		return common.NewUserError(fmt.Sprintf("%d rows failed validation; nothing was imported", len(rowErrs.Rows)), err)
	case errors.Is(err, common.ErrImportLimitExceeded):
		return common.NewUserError(err.Error()+"; split the file and import it in parts", err)
	case interrupted || errors.Is(err, context.Canceled):
		return common.NewUserError("import interrupted; nothing was imported", err)
	default:
		return err
	}
}

func parseDelimiter(s string) (rune, error) {
	if strings.EqualFold(s, "tab") || s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return 0, common.NewUserError(fmt.Sprintf("delimiter must be a single character, got %q", s), common.ErrInvalidConfig)
	}
	return r, nil
}

// expandFiles expands glob patterns, keeping plain paths that exist.
func expandFiles(patterns []string) ([]string, error) {
	var files []string
	for _, pattern := range patterns {
		pattern = config.ExpandPath(pattern)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %s: %w", pattern, err)
		}
		if len(matches) > 0 {
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(pattern); err == nil {
			files = append(files, pattern)
		} else {
			slog.Warn("No files found matching pattern", "pattern", pattern)
		}
	}

	if len(files) == 0 {
		return nil, common.NewUserError("no files found to import", common.ErrNotFound)
	}
	return files, nil
}
