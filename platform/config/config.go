package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is shared by every service binary. Each main only reads the
// sections it needs.
type Config struct {
	ServiceName string          `yaml:"service_name"`
	HTTP        HTTPConfig      `yaml:"http"`
	Mongo       MongoConfig     `yaml:"mongo"`
	Redis       RedisConfig     `yaml:"redis"`
	Temporal    TemporalConfig  `yaml:"temporal"`
	Admin       AdminConfig     `yaml:"admin"`
	Store       StoreConfig     `yaml:"store"`
	Log         LogConfig       `yaml:"log"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

type RedisConfig struct {
	Addr      string        `yaml:"addr"`
	Namespace string        `yaml:"namespace"`
	CartTTL   time.Duration `yaml:"cart_ttl"`
}

type TemporalConfig struct {
	Enabled   bool   `yaml:"enabled"`
	HostPort  string `yaml:"host_port"`
	Namespace string `yaml:"namespace"`
}

type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// StoreConfig carries the storefront identity used in checkout messages
// and generated links.
type StoreConfig struct {
	Name           string `yaml:"name"`
	BaseURL        string `yaml:"base_url"`
	WhatsAppNumber string `yaml:"whatsapp_number"`
	CurrencySymbol string `yaml:"currency_symbol"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// TelemetryConfig selects the span exporter. An empty Exporter disables
// tracing; "stdout" prints spans; "otlp" ships them to Endpoint.
type TelemetryConfig struct {
	Exporter string `yaml:"exporter"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the local-development configuration.
func Default(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		HTTP: HTTPConfig{
			Addr:            ":8080",
			RequestTimeout:  5 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017/?directConnection=true",
			Database: "shop_db",
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			Namespace: "jgs_cart",
			CartTTL:   30 * 24 * time.Hour,
		},
		Temporal: TemporalConfig{
			HostPort:  "127.0.0.1:7233",
			Namespace: "default",
		},
		Store: StoreConfig{
			Name:           "Jackson G Store",
			BaseURL:        "http://localhost:8080",
			CurrencySymbol: "₹",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func Load(serviceName string) (*Config, error) {
	cfg := Default(serviceName)
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.LoadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile overlays values from a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv overlays values from the environment.
func (c *Config) LoadEnv() {
	c.HTTP.Addr = getEnv("HTTP_ADDR", c.HTTP.Addr)
	c.HTTP.RequestTimeout = getDuration("HTTP_REQUEST_TIMEOUT", c.HTTP.RequestTimeout)
	c.HTTP.ShutdownTimeout = getDuration("HTTP_SHUTDOWN_TIMEOUT", c.HTTP.ShutdownTimeout)

	c.Mongo.URI = getEnv("MONGO_URI", c.Mongo.URI)
	c.Mongo.Database = getEnv("MONGO_DB", c.Mongo.Database)

	c.Redis.Addr = getEnv("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Namespace = getEnv("REDIS_CART_NAMESPACE", c.Redis.Namespace)
	c.Redis.CartTTL = getDuration("REDIS_CART_TTL", c.Redis.CartTTL)

	c.Temporal.Enabled = getBool("TEMPORAL_ENABLED", c.Temporal.Enabled)
	c.Temporal.HostPort = getEnv("TEMPORAL_HOST", c.Temporal.HostPort)
	c.Temporal.Namespace = getEnv("TEMPORAL_NAMESPACE", c.Temporal.Namespace)

	c.Admin.Username = getEnv("ADMIN_USER", c.Admin.Username)
	c.Admin.Password = getEnv("ADMIN_PASSWORD", c.Admin.Password)

	c.Store.Name = getEnv("STORE_NAME", c.Store.Name)
	c.Store.BaseURL = strings.TrimRight(getEnv("STORE_BASE_URL", c.Store.BaseURL), "/")
	c.Store.WhatsAppNumber = getEnv("STORE_WHATSAPP", c.Store.WhatsAppNumber)
	c.Store.CurrencySymbol = getEnv("STORE_CURRENCY_SYMBOL", c.Store.CurrencySymbol)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Development = getBool("LOG_DEVELOPMENT", c.Log.Development)

	c.Telemetry.Exporter = getEnv("OTEL_TRACES_EXPORTER", c.Telemetry.Exporter)
	c.Telemetry.Endpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Telemetry.Endpoint)
	if c.Telemetry.Exporter == "" && c.Telemetry.Endpoint != "" {
		c.Telemetry.Exporter = "otlp"
	}
}

// Validate reports configuration that would make a service unusable.
func (c *Config) Validate() error {
	var errs []error
	if c.Mongo.URI == "" {
		errs = append(errs, errors.New("mongo uri is required"))
	}
	if c.Mongo.Database == "" {
		errs = append(errs, errors.New("mongo database is required"))
	}
	if c.Admin.Username != "" && len(c.Admin.Password) < 8 {
		errs = append(errs, errors.New("admin password must be at least 8 characters"))
	}
	switch c.Telemetry.Exporter {
	case "", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("unknown trace exporter %q", c.Telemetry.Exporter))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
