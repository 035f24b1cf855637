package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the mobility service
type Config struct {
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"GO_ENV" envDefault:"development"`

	// Storage: postgres wins over sqlite, neither means in-memory
	DatabaseURL    string        `env:"DATABASE_URL"`
	SQLiteDatabase string        `env:"SQLITE_DATABASE"`
	Retention      time.Duration `env:"RETENTION" envDefault:"24h"`

	// Providers. An empty URL switches the provider to demo data.
	MobilityServiceURL string        `env:"MOBILITY_SERVICE_URL"`
	MobilityAPIKey     string        `env:"MOBILITY_API_KEY"`
	WeatherServiceURL  string        `env:"WEATHER_SERVICE_URL"`
	WeatherAPIKey      string        `env:"WEATHER_API_KEY"`
	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT" envDefault:"10s"`

	// Refresh cycle
	RefreshInterval time.Duration `env:"REFRESH_INTERVAL" envDefault:"60s"`
	MaxDetailItems  int           `env:"MAX_DETAIL_ITEMS" envDefault:"5"`

	// Screens without client activity are torn down after this long
	ScreenIdleTimeout time.Duration `env:"SCREEN_IDLE_TIMEOUT" envDefault:"30m"`

	// Fallback when no device location is known
	DefaultLat float64 `env:"DEFAULT_LAT" envDefault:"51.161300933868745"`
	DefaultLon float64 `env:"DEFAULT_LON" envDefault:"7.00264613279818"`

	// App deeplink scheme, the URL part before "://"
	DeeplinkScheme string `env:"DEEPLINK_SCHEME" envDefault:"solingen"`

	// Tracing is off unless an endpoint is set
	OTelEndpoint string `env:"OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
}

// Load reads an optional .env file and then parses the environment
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}
	return Parse()
}

// Parse reads configuration from environment variables with sensible defaults
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with
func (c *Config) Validate() error {
	if c.RefreshInterval <= 0 {
		return fmt.Errorf("config: REFRESH_INTERVAL must be positive, got %v", c.RefreshInterval)
	}
	if c.MaxDetailItems < 1 {
		return fmt.Errorf("config: MAX_DETAIL_ITEMS must be at least 1, got %d", c.MaxDetailItems)
	}
	if c.DefaultLat < -90 || c.DefaultLat > 90 || c.DefaultLon < -180 || c.DefaultLon > 180 {
		return fmt.Errorf("config: default location out of range: %f,%f", c.DefaultLat, c.DefaultLon)
	}
	if c.Retention <= 0 {
		return fmt.Errorf("config: RETENTION must be positive, got %v", c.Retention)
	}
	if c.ScreenIdleTimeout <= 0 {
		return fmt.Errorf("config: SCREEN_IDLE_TIMEOUT must be positive, got %v", c.ScreenIdleTimeout)
	}
	if c.DeeplinkScheme == "" {
		return fmt.Errorf("config: DEEPLINK_SCHEME must not be empty")
	}
	return nil
}
