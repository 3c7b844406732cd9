package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "STOREFRONT"

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Catalog and order backends.
const (
	SourceFixtures = "fixtures"
	SourceREST     = "rest"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	HTTPPort int `mapstructure:"http_port"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// StorageConfig selects and configures the durable KV store.
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	Namespace  string `mapstructure:"namespace"` // prefixed to every key as "<namespace>:"
	SQLitePath string `mapstructure:"sqlite_path"`
}

// RedisConfig holds Redis-related configurations.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATSConfig holds NATS settings. An empty URL disables event publishing.
type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

// CatalogConfig selects the product source and cache lifetime.
type CatalogConfig struct {
	Source             string `mapstructure:"source"`
	BaseURL            string `mapstructure:"base_url"`
	SimulatedLatencyMs int    `mapstructure:"simulated_latency_ms"`
	CacheTTLSeconds    int    `mapstructure:"cache_ttl_seconds"`
	RequestTimeoutMs   int    `mapstructure:"request_timeout_ms"`
}

// OrderConfig holds the pricing rules and the order backend. Money values are strings so they
// parse exactly into decimals.
type OrderConfig struct {
	Gateway               string `mapstructure:"gateway"`
	TaxRate               string `mapstructure:"tax_rate"`
	FreeShippingThreshold string `mapstructure:"free_shipping_threshold"`
	FlatShippingFee       string `mapstructure:"flat_shipping_fee"`
}

// SessionConfig holds session lifetime settings.
type SessionConfig struct {
	DefaultTTLSeconds int `mapstructure:"default_ttl_seconds"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	ServiceName            string `mapstructure:"service_name"`
	Version                string `mapstructure:"version"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	EventQueueSize         int    `mapstructure:"event_queue_size"`
}

// Config holds all configuration for the application.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Storage StorageConfig `mapstructure:"storage"`
	Redis   RedisConfig   `mapstructure:"redis"`
	NATS    NATSConfig    `mapstructure:"nats"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Order   OrderConfig   `mapstructure:"order"`
	Session SessionConfig `mapstructure:"session"`
	App     AppConfig     `mapstructure:"app"`
}

// CatalogCacheTTL returns the query cache lifetime.
func (c *Config) CatalogCacheTTL() time.Duration {
	return time.Duration(c.Catalog.CacheTTLSeconds) * time.Second
}

// SessionTTL returns the default session lifetime.
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.DefaultTTLSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.App.ShutdownTimeoutSeconds) * time.Second
}

// Validate reports settings that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case StorageMemory:
	case StorageRedis:
		if c.Redis.Address == "" {
			errs = append(errs, errors.New("redis.address is required when storage.driver is redis"))
		}
	case StorageSQLite:
		if c.Storage.SQLitePath == "" {
			errs = append(errs, errors.New("storage.sqlite_path is required when storage.driver is sqlite"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	if c.Catalog.Source == SourceREST && c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog.base_url is required when catalog.source is rest"))
	}
	if c.Order.Gateway == SourceREST && c.Catalog.BaseURL == "" {
		errs = append(errs, errors.New("catalog.base_url is required when order.gateway is rest"))
	}
	return errors.Join(errs...)
}

// Provider defines an interface for accessing application configuration.
type Provider interface {
	Get() *Config
}

// viperProvider implements Provider using Viper. The current config is swapped atomically on reload.
type viperProvider struct {
	config atomic.Pointer[Config]
	logger *zap.Logger // zap directly: domain.Logger is built from this config
}

// SetDefaults registers the default value of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", StorageMemory)
	v.SetDefault("storage.namespace", "")
	v.SetDefault("storage.sqlite_path", "storefront.db")
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("nats.url", "")
	v.SetDefault("nats.subject_prefix", "storefront")
	v.SetDefault("catalog.source", SourceFixtures)
	v.SetDefault("catalog.base_url", "")
	v.SetDefault("catalog.simulated_latency_ms", 300)
	v.SetDefault("catalog.cache_ttl_seconds", 300)
	v.SetDefault("catalog.request_timeout_ms", 5000)
	v.SetDefault("order.gateway", SourceFixtures)
	v.SetDefault("order.tax_rate", "0.08")
	v.SetDefault("order.free_shipping_threshold", "50")
	v.SetDefault("order.flat_shipping_fee", "9.99")
	v.SetDefault("session.default_ttl_seconds", 86400)
	v.SetDefault("app.service_name", "storefront-state")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.shutdown_timeout_seconds", 15)
	v.SetDefault("app.event_queue_size", 256)
}

// Load reads configuration from v into a validated Config.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// NewViperProvider loads configuration from the YAML file named by VIPER_CONFIG_NAME (searched in
// VIPER_CONFIG_PATH and the working directory) and STOREFRONT_* environment variables. The config
// is reloaded on SIGHUP and on file change until appCtx is done. A reload that fails validation
// keeps the previous config.
func NewViperProvider(appCtx context.Context, logger *zap.Logger) (Provider, error) {
	v := newViper()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			logger.Warn("Config file not found; relying on defaults and environment variables", zap.Error(err))
		} else {
			logger.Error("Failed to read config file", zap.Error(err))
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := Load(v)
	if err != nil {
		logger.Error("Failed to load config", zap.Error(err))
		return nil, err
	}

	p := &viperProvider{logger: logger}
	p.config.Store(cfg)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGHUP)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Panic recovered in SIGHUP handler goroutine",
					zap.String("goroutine_name", "SIGHUPConfigReloader"),
					zap.Any("panic_info", r),
					zap.String("stacktrace", string(debug.Stack())),
				)
			}
		}()
		defer signal.Stop(sigChan)
		for {
			select {
			case sig := <-sigChan:
				p.logger.Info("SIGHUP received, reloading configuration", zap.String("signal", sig.String()))
				if err := v.ReadInConfig(); err != nil {
					p.logger.Error("Failed to re-read config file on SIGHUP", zap.Error(err))
					continue
				}
				p.reload(v, "sighup")
			case <-appCtx.Done():
				return
			}
		}
	}()

	if v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("Panic recovered in OnConfigChange callback",
						zap.String("event_name", e.Name),
						zap.Any("panic_info", r),
						zap.String("stacktrace", string(debug.Stack())),
					)
				}
			}()
			p.logger.Info("Config file changed", zap.String("name", e.Name), zap.String("op", e.Op.String()))
			p.reload(v, "file_change")
		})
		v.WatchConfig()
	}

	p.logger.Info("Configuration loaded successfully", zap.String("config_file_used", v.ConfigFileUsed()))
	return p, nil
}

func (p *viperProvider) reload(v *viper.Viper, trigger string) {
	cfg, err := Load(v)
	if err != nil {
		p.logger.Error("Rejected reloaded configuration", zap.String("trigger", trigger), zap.Error(err))
		return
	}
	p.config.Store(cfg)
	p.logger.Info("Configuration reloaded", zap.String("trigger", trigger))
}

// Get returns the current configuration.
func (p *viperProvider) Get() *Config {
	return p.config.Load()
}

// NewStaticProvider returns a Provider that always serves cfg.
func NewStaticProvider(cfg *Config) Provider {
	return staticProvider{cfg: cfg}
}

type staticProvider struct{ cfg *Config }

func (s staticProvider) Get() *Config { return s.cfg }

// Defaults returns the configuration produced by defaults alone.
func Defaults() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigName(getEnv("VIPER_CONFIG_NAME", "config"))
	v.SetConfigType("yaml")
	v.AddConfigPath(getEnv("VIPER_CONFIG_PATH", "/app/config"))
	v.AddConfigPath(".")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}
