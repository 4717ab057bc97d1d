package config

import (
	"fmt"
	"strings"
	"time"
)

// Config holds the application's configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	GRPC          GRPCConfig          `mapstructure:"grpc"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Log           LogConfig           `mapstructure:"log"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Providers     ProvidersConfig     `mapstructure:"providers"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Model         ModelConfig         `mapstructure:"model"`
	Chain         ChainConfig         `mapstructure:"chain"`
	Vault         VaultConfig         `mapstructure:"vault"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Trips         TripsConfig         `mapstructure:"trips"`
	RateLimit     RateLimitConfig     `mapstructure:"ratelimit"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	EnablePprof     bool          `mapstructure:"enable_pprof"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// Addr returns the listen address of the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// DatabaseConfig selects the gorm dialect. "sqlite" uses Path; "postgres" connects through a pgx pool.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type ObservabilityConfig struct {
	TracingEnabled bool    `mapstructure:"tracing_enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
	MetricsEnabled bool    `mapstructure:"metrics_enabled"`
}

type ProvidersConfig struct {
	Crime   CrimeProviderConfig   `mapstructure:"crime"`
	Weather WeatherProviderConfig `mapstructure:"weather"`
}

type CrimeProviderConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	GeocodeURL     string        `mapstructure:"geocode_url"`
	APIKey         string        `mapstructure:"api_key"`
	RecordLimit    int           `mapstructure:"record_limit"`
	RecordsTimeout time.Duration `mapstructure:"records_timeout"`
	GeocodeTimeout time.Duration `mapstructure:"geocode_timeout"`
}

// WeatherProviderConfig leaves the weather provider disabled when APIKey is empty.
type WeatherProviderConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	CrimeTTL        time.Duration `mapstructure:"crime_ttl"`
	WeatherTTL      time.Duration `mapstructure:"weather_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	KeyPrefix       string        `mapstructure:"key_prefix"`
}

type ModelConfig struct {
	ModelPath             string  `mapstructure:"model_path"`
	ScalerPath            string  `mapstructure:"scaler_path"`
	NEstimators           int     `mapstructure:"n_estimators"`
	MaxDepth              int     `mapstructure:"max_depth"`
	MinSamplesSplit       int     `mapstructure:"min_samples_split"`
	MinSamplesLeaf        int     `mapstructure:"min_samples_leaf"`
	TestFraction          float64 `mapstructure:"test_fraction"`
	Seed                  int64   `mapstructure:"seed"`
	SyntheticSamples      int     `mapstructure:"synthetic_samples"`
	TrainOnStartup        bool    `mapstructure:"train_on_startup"`
	TrainingUsesProviders bool    `mapstructure:"training_uses_providers"`
}

type ChainConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RPCURL          string        `mapstructure:"rpc_url"`
	ChainID         int64         `mapstructure:"chain_id"`
	ContractAddress string        `mapstructure:"contract_address"`
	PrivateKey      string        `mapstructure:"private_key"`
	ReceiptTimeout  time.Duration `mapstructure:"receipt_timeout"`
	MaxFeeGwei      int64         `mapstructure:"max_fee_gwei"`
	TipGwei         int64         `mapstructure:"tip_gwei"`
}

type VaultConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Address         string `mapstructure:"address"`
	Token           string `mapstructure:"token"`
	MountPath       string `mapstructure:"mount_path"`
	SigningKeyPath  string `mapstructure:"signing_key_path"`
	SigningKeyField string `mapstructure:"signing_key_field"`
}

type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type TripsConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig bounds requests per client IP on the /api routes.
type RateLimitConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Burst             int           `mapstructure:"burst"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"`
}

// Validate checks for essential configuration values.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, "server.port must be between 1 and 65535")
	}
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			problems = append(problems, "database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.Host == "" || c.Database.Database == "" {
			problems = append(problems, "database.host and database.database are required for postgres")
		}
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Model.ModelPath == "" || c.Model.ScalerPath == "" {
		problems = append(problems, "model.model_path and model.scaler_path are required")
	}
	if c.Model.ModelPath != "" && c.Model.ModelPath == c.Model.ScalerPath {
		problems = append(problems, "model.model_path and model.scaler_path must differ")
	}
	if c.Model.NEstimators <= 0 {
		problems = append(problems, "model.n_estimators must be positive")
	}
	if c.Model.TestFraction <= 0 || c.Model.TestFraction >= 1 {
		problems = append(problems, "model.test_fraction must be in (0,1)")
	}
	if c.Redis.Enabled && c.Redis.Address == "" {
		problems = append(problems, "redis.address is required when redis is enabled")
	}
	if c.Kafka.Enabled && (len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "") {
		problems = append(problems, "kafka.brokers and kafka.topic are required when kafka is enabled")
	}
	if c.Chain.Enabled && (c.Chain.RPCURL == "" || c.Chain.ContractAddress == "") {
		problems = append(problems, "chain.rpc_url and chain.contract_address are required when chain is enabled")
	}
	if c.Vault.Enabled && c.Vault.SigningKeyPath == "" {
		problems = append(problems, "vault.signing_key_path is required when vault is enabled")
	}

	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMinute <= 0 {
		problems = append(problems, "ratelimit.requests_per_minute must be positive when rate limiting is enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
