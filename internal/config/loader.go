package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/turtacn/touristsafety/pkg/logger"
)

// EnvPrefix is prepended to every environment override, e.g. TOURIST_SAFETY_SERVER_PORT.
const EnvPrefix = "TOURIST_SAFETY"

// Loader reads configuration from an optional yaml file, a .env file and the environment.
type Loader struct {
	v   *viper.Viper
	log logger.Logger
}

// NewLoader creates a loader. configFile may be empty, in which case the standard
// search paths are used and a missing file is not an error.
func NewLoader(configFile string, log logger.Logger) *Loader {
	if log == nil {
		log = logger.NewNoopLogger()
	}
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/touristsafety/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Loader{v: v, log: log}
}

// LoadConfig is a shortcut for NewLoader(configFile, nil).Load().
func LoadConfig(configFile string) (*Config, error) {
	return NewLoader(configFile, nil).Load()
}

// Load reads and validates the configuration.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			l.log.Warn(context.Background(), "failed to load .env file", logger.Fields{"error": err.Error()})
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	return l.decode()
}

// Watch re-decodes the configuration whenever the config file changes and hands
// the result to onChange. Invalid configurations are logged and skipped.
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decode()
		if err != nil {
			l.log.Error(context.Background(), "ignoring invalid config change", err, logger.Fields{"file": e.Name})
			return
		}
		l.log.Info(context.Background(), "config file changed", logger.Fields{"file": e.Name, "op": e.Op.String()})
		onChange(cfg)
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.enable_pprof", false)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.port", 50051)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "touristsafety.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("observability.sample_ratio", 1.0)
	v.SetDefault("observability.metrics_enabled", true)

	v.SetDefault("providers.crime.enabled", true)
	v.SetDefault("providers.crime.base_url", "https://data.gov.in/api/rest/dataset")
	v.SetDefault("providers.crime.geocode_url", "https://api.bigdatacloud.net/data/reverse-geocode-client")
	v.SetDefault("providers.crime.record_limit", 100)
	v.SetDefault("providers.crime.records_timeout", 15*time.Second)
	v.SetDefault("providers.crime.geocode_timeout", 10*time.Second)
	v.SetDefault("providers.weather.base_url", "https://weather.visualcrossing.com/VisualCrossingWebServices/rest/services/timeline")
	v.SetDefault("providers.weather.timeout", 10*time.Second)

	v.SetDefault("cache.crime_ttl", time.Hour)
	v.SetDefault("cache.weather_ttl", 30*time.Minute)
	v.SetDefault("cache.cleanup_interval", 5*time.Minute)
	v.SetDefault("cache.key_prefix", "touristsafety")

	v.SetDefault("model.model_path", "models/safety_model.json")
	v.SetDefault("model.scaler_path", "models/safety_scaler.json")
	v.SetDefault("model.n_estimators", 200)
	v.SetDefault("model.max_depth", 15)
	v.SetDefault("model.min_samples_split", 5)
	v.SetDefault("model.min_samples_leaf", 2)
	v.SetDefault("model.test_fraction", 0.2)
	v.SetDefault("model.seed", 42)
	v.SetDefault("model.synthetic_samples", 2000)
	v.SetDefault("model.train_on_startup", false)
	v.SetDefault("model.training_uses_providers", false)

	v.SetDefault("chain.enabled", false)
	v.SetDefault("chain.chain_id", 11155111)
	v.SetDefault("chain.receipt_timeout", 2*time.Minute)
	v.SetDefault("chain.max_fee_gwei", 30)
	v.SetDefault("chain.tip_gwei", 2)

	v.SetDefault("vault.enabled", false)
	v.SetDefault("vault.mount_path", "secret")
	v.SetDefault("vault.signing_key_field", "private_key")

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.topic", "touristsafety-events")
	v.SetDefault("kafka.batch_timeout", 50*time.Millisecond)
	v.SetDefault("kafka.write_timeout", 10*time.Second)
	v.SetDefault("kafka.required_acks", 1)

	v.SetDefault("auth.issuer", "touristsafety")
	v.SetDefault("auth.token_ttl", 12*time.Hour)

	v.SetDefault("trips.default_duration", 168*time.Hour)
	v.SetDefault("trips.cleanup_interval", time.Hour)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_minute", 120)
	v.SetDefault("ratelimit.burst", 30)
	v.SetDefault("ratelimit.idle_timeout", 10*time.Minute)
	v.SetDefault("ratelimit.cleanup_interval", time.Minute)
}
