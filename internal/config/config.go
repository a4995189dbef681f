package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported storage drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Defaults applied by SetDefaults.
const (
	DefaultDatabasePath  = "$HOME/.local/share/ledger/ledger.db"
	DefaultMongoDatabase = "ledger"
	DefaultMaxBatchSize  = 300
	DefaultTickInterval  = 500 * time.Millisecond
	DefaultTimezone      = "UTC"
	DefaultReceiptModel  = "gemini-2.5-flash"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// Config is the typed view of the application settings.
type Config struct {
	Database  DatabaseConfig
	User      UserConfig
	Import    ImportConfig
	Analytics AnalyticsConfig
	Receipt   ReceiptConfig
	Logging   LoggingConfig
}

// DatabaseConfig selects and locates the ledger store.
type DatabaseConfig struct {
	Driver        string
	Path          string
	DSN           string
	MongoURI      string
	MongoDatabase string
}

// UserConfig names the owner whose ledger commands act on.
type UserConfig struct {
	ID string
}

// ImportConfig tunes the bulk import engine.
type ImportConfig struct {
	MaxBatchSize int
	TickInterval time.Duration
}

// AnalyticsConfig controls how day boundaries are computed.
type AnalyticsConfig struct {
	Timezone string
	Location *time.Location
}

// ReceiptConfig configures the receipt scanner.
type ReceiptConfig struct {
	Model  string
	APIKey string
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(ExpandPath(f)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", DefaultDatabasePath)
	v.SetDefault("database.mongo_database", DefaultMongoDatabase)
	v.SetDefault("import.max_batch_size", DefaultMaxBatchSize)
	v.SetDefault("import.tick_interval", DefaultTickInterval)
	v.SetDefault("analytics.timezone", DefaultTimezone)
	v.SetDefault("receipt.model", DefaultReceiptModel)
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("sheets.range", "A:Z")
}

// Load reads and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:        strings.ToLower(strings.TrimSpace(v.GetString("database.driver"))),
			Path:          ExpandPath(v.GetString("database.path")),
			DSN:           v.GetString("database.dsn"),
			MongoURI:      v.GetString("database.mongo_uri"),
			MongoDatabase: v.GetString("database.mongo_database"),
		},
		User: UserConfig{
			ID: strings.TrimSpace(v.GetString("user.id")),
		},
		Import: ImportConfig{
			MaxBatchSize: v.GetInt("import.max_batch_size"),
			TickInterval: v.GetDuration("import.tick_interval"),
		},
		Analytics: AnalyticsConfig{
			Timezone: v.GetString("analytics.timezone"),
		},
		Receipt: ReceiptConfig{
			Model:  v.GetString("receipt.model"),
			APIKey: v.GetString("receipt.api_key"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings and resolves the analytics location.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database.path is required for sqlite", common.ErrMissingConfig)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for postgres", common.ErrMissingConfig)
		}
	case DriverMongo:
		if c.Database.MongoURI == "" {
			return fmt.Errorf("%w: database.mongo_uri is required for mongo", common.ErrMissingConfig)
		}
		if c.Database.MongoDatabase == "" {
			return fmt.Errorf("%w: database.mongo_database is required for mongo", common.ErrMissingConfig)
		}
	default:
		return fmt.Errorf("%w: unknown database driver %q", common.ErrInvalidConfig, c.Database.Driver)
	}

	if c.Import.MaxBatchSize < 0 {
		return fmt.Errorf("%w: import.max_batch_size cannot be negative", common.ErrInvalidConfig)
	}
	if c.Import.TickInterval <= 0 {
		return fmt.Errorf("%w: import.tick_interval must be positive", common.ErrInvalidConfig)
	}

	loc, err := time.LoadLocation(c.Analytics.Timezone)
	if err != nil {
		return fmt.Errorf("%w: analytics.timezone: %w", common.ErrInvalidConfig, err)
	}
	c.Analytics.Location = loc

	if _, err := common.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}
