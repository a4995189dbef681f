package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// DefaultSheetsRange reads every column of the first sheet.
const DefaultSheetsRange = "A:Z"

// SheetsConfig holds Google Sheets access settings. Exactly one of the
// service account key or the OAuth2 credentials must be configured.
type SheetsConfig struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	TokenFile          string
	ServiceAccountPath string
	SpreadsheetID      string
	Range              string
	RetryAttempts      int
	RetryDelay         time.Duration
}

// DefaultSheetsConfig returns a SheetsConfig with default range and retries.
func DefaultSheetsConfig() SheetsConfig {
	return SheetsConfig{
		Range:         DefaultSheetsRange,
		RetryAttempts: 3,
		RetryDelay:    time.Second,
	}
}

// Validate checks that the configuration can authenticate and names a sheet.
func (c *SheetsConfig) Validate() error {
	hasOAuth := c.ClientID != "" && c.ClientSecret != "" && (c.RefreshToken != "" || c.TokenFile != "")
	hasServiceAccount := c.ServiceAccountPath != ""

	if !hasOAuth && !hasServiceAccount {
		return fmt.Errorf("%w: provide either a service account key or OAuth2 credentials for Google Sheets", common.ErrMissingConfig)
	}
	if hasOAuth && hasServiceAccount {
		return fmt.Errorf("%w: multiple Google Sheets authentication methods configured; use either OAuth2 or a service account", common.ErrInvalidConfig)
	}
	if c.SpreadsheetID == "" {
		return fmt.Errorf("%w: spreadsheet id is required", common.ErrMissingConfig)
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("%w: retry attempts cannot be negative", common.ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// ValuesReader reads a cell range from a spreadsheet.
type ValuesReader interface {
	ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]any, error)
}

// SheetsSource reads rows from a Google Sheet whose first row is the header.
type SheetsSource struct {
	reader ValuesReader
	config SheetsConfig
}

// NewSheetsSource creates a source that authenticates against the Sheets API.
func NewSheetsSource(ctx context.Context, config SheetsConfig) (*SheetsSource, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return NewSheetsSourceWith(&apiValuesReader{service: srv}, config), nil
}

// NewSheetsSourceWith creates a source over an existing reader.
func NewSheetsSourceWith(reader ValuesReader, config SheetsConfig) *SheetsSource {
	if config.Range == "" {
		config.Range = DefaultSheetsRange
	}
	return &SheetsSource{reader: reader, config: config}
}

// Load reads the configured range, retrying transient API failures.
func (s *SheetsSource) Load(ctx context.Context) (*Batch, error) {
	retryOpts := service.RetryOptions{
		MaxAttempts:  s.config.RetryAttempts,
		InitialDelay: s.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var values [][]any
	err := common.WithRetry(ctx, func() error {
		v, readErr := s.reader.ReadRange(ctx, s.config.SpreadsheetID, s.config.Range)
		if readErr != nil {
			return classifySheetsError(readErr)
		}
		values = v
		return nil
	}, retryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to read spreadsheet %s: %w", s.config.SpreadsheetID, err)
	}

	if len(values) == 0 {
		return nil, ErrNoRows
	}

	columns := make([]string, len(values[0]))
	for i, h := range values[0] {
		columns[i] = strings.TrimSpace(fmt.Sprint(h))
	}

	rows := make([]Row, 0, len(values)-1)
	for _, record := range values[1:] {
		row := make(Row, len(columns))
		for i, cell := range record {
			if i >= len(columns) || columns[i] == "" {
				continue
			}
			if str, ok := cell.(string); ok {
				cell = strings.TrimSpace(str)
			}
			row[columns[i]] = cell
		}
		if len(row) == 0 || allBlank(row) {
			continue
		}
		rows = append(rows, row)
	}

	slog.Info("Read spreadsheet", "spreadsheet_id", s.config.SpreadsheetID, "range", s.config.Range, "rows", len(rows))

	return &Batch{
		Columns: columns,
		Rows:    rows,
		Mapping: SuggestMapping(columns),
	}, nil
}

func allBlank(row Row) bool {
	for _, v := range row {
		if !isBlank(v) {
			return false
		}
	}
	return true
}

// classifySheetsError marks rate limits and server errors as retryable and
// everything else as permanent.
func classifySheetsError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= http.StatusInternalServerError:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return common.Permanent(err)
	}
}

type apiValuesReader struct {
	service *sheets.Service
}

func (r *apiValuesReader) ReadRange(ctx context.Context, spreadsheetID, readRange string) ([][]any, error) {
	resp, err := r.service.Spreadsheets.Values.Get(spreadsheetID, readRange).
		ValueRenderOption("UNFORMATTED_VALUE").
		DateTimeRenderOption("FORMATTED_STRING").
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// createSheetsService authenticates with a service account key or an OAuth2
// refresh token, read from config or a saved token file.
func createSheetsService(ctx context.Context, config SheetsConfig) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		oauthConfig := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsReadonlyScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}
		if config.RefreshToken == "" {
			saved, err := LoadToken(config.TokenFile)
			if err != nil {
				return nil, fmt.Errorf("unable to load token file: %w", err)
			}
			token = saved
		}

		tokenSource = oauthConfig.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// LoadToken loads a saved OAuth2 token.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	f, err := os.Open(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}
