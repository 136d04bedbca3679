package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"80"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Storage
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// MyParcel
	APIBaseURL              string        `envconfig:"MYPARCEL_API_BASE_URL" default:"https://api.sendmyparcel.be"`
	DeliveryOptionsURL      string        `envconfig:"MYPARCEL_DELIVERY_OPTIONS_URL" default:"https://api.myparcel.nl"`
	SettingsEncryptionKey   string        `envconfig:"MYPARCEL_SETTINGS_ENCRYPTION_KEY"`
	DefaultLabelFormat      string        `envconfig:"MYPARCEL_DEFAULT_LABEL_FORMAT" default:"A6"`
	UserAgent               string        `envconfig:"MYPARCEL_USER_AGENT" default:"medusa-myparcel"`
	UseMock                 bool          `envconfig:"MYPARCEL_USE_MOCK" default:"false"`
	HTTPTimeout             time.Duration `envconfig:"MYPARCEL_HTTP_TIMEOUT" default:"30s"`
	DeliveryOptionsCacheTTL time.Duration `envconfig:"DELIVERY_OPTIONS_CACHE_TTL" default:"5m"`

	// Commerce platform
	OrderServiceURL   string `envconfig:"ORDER_SERVICE_URL"`
	OrderServiceToken string `envconfig:"ORDER_SERVICE_TOKEN"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"true"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://jaeger-collector.claude.svc.cluster.local:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"myparcel"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables. Variables from the
// given dotenv files (".env" when none are named) are loaded first and never
// override the environment; a missing file is ignored.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that envconfig cannot.
func (c *Config) Validate() error {
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("store.driver", c.StoreDriver),
		attribute.Bool("myparcel.mock", c.UseMock),
		attribute.String("myparcel.api_base_url", c.APIBaseURL),
	}
}
