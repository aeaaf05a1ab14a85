package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vignesh-goutham/mmcompute/pkg/logger"
)

const (
	BackendSupabase = "supabase"
	BackendDynamoDB = "dynamodb"
	BackendPostgres = "postgres"
)

// Config is built once at startup and handed to every component.
type Config struct {
	Environment string         `yaml:"environment" default:"development"`
	Log         logger.Config  `yaml:"log"`
	Server      ServerConfig   `yaml:"server"`
	Store       StoreConfig    `yaml:"store"`
	Supabase    SupabaseConfig `yaml:"supabase"`
	DynamoDB    DynamoConfig   `yaml:"dynamodb"`
	Postgres    PostgresConfig `yaml:"postgres"`
	Alpaca      AlpacaConfig   `yaml:"alpaca"`
	Ingestion   IngestConfig   `yaml:"ingestion"`
}

type ServerConfig struct {
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"5m"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type StoreConfig struct {
	Backend string `yaml:"backend" default:"supabase" validate:"oneof=supabase dynamodb postgres"`
}

type SupabaseConfig struct {
	URL            string        `yaml:"url" validate:"omitempty,url"`
	ServiceRoleKey string        `yaml:"service_role_key"`
	RunsTable      string        `yaml:"runs_table" default:"runs"`
	MetricsTable   string        `yaml:"metrics_table" default:"model_metrics"`
	SeriesTable    string        `yaml:"timeseries_table" default:"model_timeseries"`
	BatchSize      int           `yaml:"batch_size" default:"500" validate:"min=1"`
	Timeout        time.Duration `yaml:"timeout" default:"30s"`
}

type DynamoConfig struct {
	Region       string `yaml:"region"`
	RunsTable    string `yaml:"runs_table" default:"compute_runs"`
	MetricsTable string `yaml:"metrics_table" default:"model_metrics"`
	SeriesTable  string `yaml:"timeseries_table" default:"model_timeseries"`
}

type PostgresConfig struct {
	DSN       string `yaml:"dsn"`
	BatchSize int    `yaml:"batch_size" default:"500" validate:"min=1"`
}

type AlpacaConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Endpoint  string `yaml:"endpoint" default:"https://paper-api.alpaca.markets" validate:"omitempty,url"`
	// DataURL overrides the market data host. Empty uses the client default.
	DataURL   string `yaml:"data_url" validate:"omitempty,url"`
}

// Enabled reports whether credentials are present
func (a AlpacaConfig) Enabled() bool {
	return a.APIKey != "" && a.APISecret != ""
}

type IngestConfig struct {
	DefaultSource string `yaml:"default_source" default:"alpaca" validate:"oneof=alpaca yahoo"`
}

var validate = validator.New()

// Load applies defaults, then the YAML file at path (if it exists), then
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	c := &Config{}
	if err := defaults.Set(c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}

	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(b) > 0 {
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := c.applyEnv(); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() error {
	overrides := map[string]*string{
		"ENVIRONMENT":               &c.Environment,
		"LOG_LEVEL":                 &c.Log.Level,
		"LOG_FORMAT":                &c.Log.Format,
		"STORE_BACKEND":             &c.Store.Backend,
		"SUPABASE_URL":              &c.Supabase.URL,
		"SUPABASE_SERVICE_ROLE_KEY": &c.Supabase.ServiceRoleKey,
		"AWS_REGION":                &c.DynamoDB.Region,
		"DYNAMODB_RUNS_TABLE":       &c.DynamoDB.RunsTable,
		"DYNAMODB_METRICS_TABLE":    &c.DynamoDB.MetricsTable,
		"DYNAMODB_TIMESERIES_TABLE": &c.DynamoDB.SeriesTable,
		"DATABASE_URL":              &c.Postgres.DSN,
		"ALPACA_API_KEY":            &c.Alpaca.APIKey,
		"ALPACA_API_SECRET":         &c.Alpaca.APISecret,
		"ALPACA_ENDPOINT":           &c.Alpaca.Endpoint,
		"ALPACA_DATA_URL":           &c.Alpaca.DataURL,
		"DEFAULT_SOURCE":            &c.Ingestion.DefaultSource,
	}
	for key, dst := range overrides {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks field constraints and that the selected store backend has
// its credentials. Missing store credentials are fatal.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	switch c.Store.Backend {
	case BackendSupabase:
		var missing []error
		if c.Supabase.URL == "" {
			missing = append(missing, errors.New("SUPABASE_URL is required"))
		}
		if c.Supabase.ServiceRoleKey == "" {
			missing = append(missing, errors.New("SUPABASE_SERVICE_ROLE_KEY is required"))
		}
		return errors.Join(missing...)
	case BackendDynamoDB:
		if c.DynamoDB.RunsTable == "" || c.DynamoDB.MetricsTable == "" || c.DynamoDB.SeriesTable == "" {
			return errors.New("dynamodb table names are required")
		}
	case BackendPostgres:
		if c.Postgres.DSN == "" {
			return errors.New("DATABASE_URL is required")
		}
	}
	return nil
}

// ProviderWarnings lists optional provider settings that are missing. These
// disable a provider instead of stopping the process.
func (c *Config) ProviderWarnings() []string {
	var warnings []string
	if !c.Alpaca.Enabled() {
		warnings = append(warnings, "alpaca credentials not found, alpaca fetching will be disabled")
	}
	return warnings
}
