package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/dfgutierrez/sigr-sales/pkg/config"
)

// Config holds all configuration for the sale workflow service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"SALES_HTTP_PORT" envDefault:"8080"`

	// Redis (draft workflow storage)
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Draft workflow TTL in hours (default: 24h; an abandoned cart is
	// worthless the next business day).
	WorkflowTTL int `env:"WORKFLOW_TTL_HOURS" envDefault:"24"`

	// Postgres (deduction reconciliation storage)
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"sigr"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"sigr_secret"`
	PostgresDB   string `env:"POSTGRES_DB" envDefault:"sigr_sales"`
	PostgresSSL  string `env:"POSTGRES_SSLMODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Collaborator base URLs
	VehicleServiceURL   string `env:"VEHICLE_SERVICE_URL" envDefault:"http://localhost:8081"`
	InventoryServiceURL string `env:"INVENTORY_SERVICE_URL" envDefault:"http://localhost:8082"`
	SalesBackendURL     string `env:"SALES_BACKEND_URL" envDefault:"http://localhost:8083"`
	CatalogServiceURL   string `env:"CATALOG_SERVICE_URL" envDefault:"http://localhost:8084"`

	// Auth backend for bearer-token validation. Empty disables validation
	// and the router trusts the gateway-injected operator header.
	AuthServiceURL string `env:"AUTH_SERVICE_URL" envDefault:""`

	// Outbound HTTP
	ClientTimeout     time.Duration `env:"CLIENT_TIMEOUT" envDefault:"5s"`
	ClientMaxRetries  int           `env:"CLIENT_MAX_RETRIES" envDefault:"2"`
	SubmitTimeout     time.Duration `env:"SUBMIT_TIMEOUT" envDefault:"15s"`
	DeductionTimeout  time.Duration `env:"DEDUCTION_TIMEOUT" envDefault:"5s"`
	BreakerMaxFails   uint32        `env:"BREAKER_MAX_FAILS" envDefault:"5"`
	BreakerOpenPeriod time.Duration `env:"BREAKER_OPEN_PERIOD" envDefault:"30s"`

	// Vehicle suggestion debounce window
	SuggestDebounce time.Duration `env:"SUGGEST_DEBOUNCE" envDefault:"300ms"`

	// Minimum unit price in cents accepted on a line item override
	MinUnitPrice int64 `env:"MIN_UNIT_PRICE" envDefault:"1"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load sales config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.WorkflowTTL < 1 {
		return fmt.Errorf("workflow TTL must be at least 1 hour, got %d", c.WorkflowTTL)
	}
	if c.SuggestDebounce <= 0 {
		return fmt.Errorf("suggest debounce must be positive, got %s", c.SuggestDebounce)
	}
	if c.MinUnitPrice < 0 {
		return fmt.Errorf("minimum unit price cannot be negative, got %d", c.MinUnitPrice)
	}
	return nil
}
