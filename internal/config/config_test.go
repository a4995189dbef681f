package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, "/home/tester/.local/share/ledger/ledger.db", cfg.Database.Path)
	assert.Equal(t, DefaultMaxBatchSize, cfg.Import.MaxBatchSize)
	assert.Equal(t, DefaultTickInterval, cfg.Import.TickInterval)
	assert.Equal(t, time.UTC, cfg.Analytics.Location)
	assert.Equal(t, DefaultReceiptModel, cfg.Receipt.Model)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoad_Overrides(t *testing.T) {
	v := viper.New()
	v.Set("database.driver", "Postgres")
	v.Set("database.dsn", "postgres://ledger@localhost/ledger")
	v.Set("user.id", "  user-1 ")
	v.Set("import.max_batch_size", 50)
	v.Set("import.tick_interval", "250ms")
	v.Set("analytics.timezone", "Asia/Tokyo")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, "user-1", cfg.User.ID)
	assert.Equal(t, 50, cfg.Import.MaxBatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Import.TickInterval)
	assert.Equal(t, "Asia/Tokyo", cfg.Analytics.Location.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr error
	}{
		{
			name:    "unknown driver",
			values:  map[string]any{"database.driver": "oracle"},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "postgres without dsn",
			values:  map[string]any{"database.driver": "postgres"},
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "mongo without uri",
			values:  map[string]any{"database.driver": "mongo"},
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "negative batch size",
			values:  map[string]any{"import.max_batch_size": -1},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "zero tick interval",
			values:  map[string]any{"import.tick_interval": "0s"},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "unknown timezone",
			values:  map[string]any{"analytics.timezone": "Mars/Olympus"},
			wantErr: common.ErrInvalidConfig,
		},
		{
			name:    "unknown log level",
			values:  map[string]any{"logging.level": "loud"},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			for k, val := range tt.values {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("LEDGER_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("LEDGER_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("LEDGER_TEST_DOTENV"))

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("LEDGER_TEST_DOTENV"))
}

func TestLoadSheetsConfig(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "")
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_ID", "env-sheet")

	t.Run("viper wins over environment", func(t *testing.T) {
		v := viper.New()
		v.Set("sheets.service_account_path", "/keys/sa.json")
		v.Set("sheets.spreadsheet_id", "config-sheet")
		v.Set("sheets.range", "Import!A:H")

		cfg, err := LoadSheetsConfig(v)
		require.NoError(t, err)
		assert.Equal(t, "config-sheet", cfg.SpreadsheetID)
		assert.Equal(t, "Import!A:H", cfg.Range)
		assert.Equal(t, 3, cfg.RetryAttempts)
	})

	t.Run("environment fallback", func(t *testing.T) {
		v := viper.New()
		v.Set("sheets.service_account_path", "/keys/sa.json")

		cfg, err := LoadSheetsConfig(v)
		require.NoError(t, err)
		assert.Equal(t, "env-sheet", cfg.SpreadsheetID)
		assert.Equal(t, "A:Z", cfg.Range)
	})

	t.Run("no credentials", func(t *testing.T) {
		_, err := LoadSheetsConfig(viper.New())
		assert.ErrorIs(t, err, common.ErrMissingConfig)
	})
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	t.Setenv("LEDGER_DATA", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", "/home/tester"},
		{"~/ledger.db", "/home/tester/ledger.db"},
		{"$LEDGER_DATA/ledger.db", "/data/ledger.db"},
		{"/abs/ledger.db", "/abs/ledger.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExpandPath(tt.in), tt.in)
	}
}
