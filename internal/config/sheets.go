package config

import (
	"os"

	"github.com/Veraticus/spice-ledger/internal/importer"
	"github.com/spf13/viper"
)

// LoadSheetsConfig loads Google Sheets import settings. It follows this precedence:
// 1. Viper configuration (from config file or LEDGER_ env vars)
// 2. Direct environment variables (GOOGLE_SHEETS_*)
// 3. Default values
func LoadSheetsConfig(v *viper.Viper) (importer.SheetsConfig, error) {
	config := importer.DefaultSheetsConfig()

	config.ServiceAccountPath = firstNonEmpty(v.GetString("sheets.service_account_path"), os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"))
	config.ServiceAccountPath = ExpandPath(config.ServiceAccountPath)
	config.ClientID = firstNonEmpty(v.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID"))
	config.ClientSecret = firstNonEmpty(v.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET"))
	config.RefreshToken = firstNonEmpty(v.GetString("sheets.refresh_token"), os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN"))
	config.TokenFile = ExpandPath(v.GetString("sheets.token_file"))
	config.SpreadsheetID = firstNonEmpty(v.GetString("sheets.spreadsheet_id"), os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID"))

	if r := v.GetString("sheets.range"); r != "" {
		config.Range = r
	}
	if v.IsSet("sheets.retry_attempts") {
		config.RetryAttempts = v.GetInt("sheets.retry_attempts")
	}
	if v.IsSet("sheets.retry_delay") {
		config.RetryDelay = v.GetDuration("sheets.retry_delay")
	}

	if err := config.Validate(); err != nil {
		return importer.SheetsConfig{}, err
	}
	return config, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
