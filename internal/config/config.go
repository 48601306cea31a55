package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Catalog drivers.
const (
	CatalogStatic = "static"
	CatalogSQLite = "sqlite"
	CatalogMongo  = "mongo"
)

type Config struct {
	ServiceName string
	Env         string
	LogLevel    string

	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	StoreShards int

	CatalogDriver string
	SQLitePath    string
	MongoURI      string
	MongoDBName   string

	// RedisAddr enables the product cache when set.
	RedisAddr     string
	RedisPassword string

	// KafkaBrokers enables event publishing and the checkout consumer when set.
	KafkaBrokers []string

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// SetDefaults registers every key with its default. Keys map to upper-cased
// environment variables, so http_port is read from HTTP_PORT.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "cart-store")
	v.SetDefault("env", "prod")
	v.SetDefault("log_level", "info")

	v.SetDefault("http_port", "8080")
	v.SetDefault("grpc_port", "50052")
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("shutdown_timeout", 10*time.Second)
	v.SetDefault("max_request_body_size", 1<<20) // 1MB

	v.SetDefault("store_shards", 32)

	v.SetDefault("catalog_driver", CatalogStatic)
	v.SetDefault("sqlite_path", "products.db")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_db_name", "cartdb")

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")

	v.SetDefault("kafka_brokers", "")

	v.SetDefault("breaker_failures", 5)
	v.SetDefault("breaker_timeout", 30*time.Second)

	v.AutomaticEnv()
}

// Load reads the configuration from v, which must have had SetDefaults applied.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		ServiceName:        v.GetString("service_name"),
		Env:                v.GetString("env"),
		LogLevel:           v.GetString("log_level"),
		HTTPPort:           v.GetString("http_port"),
		GRPCPort:           v.GetString("grpc_port"),
		RequestTimeout:     v.GetDuration("request_timeout"),
		ShutdownTimeout:    v.GetDuration("shutdown_timeout"),
		MaxRequestBodySize: v.GetInt64("max_request_body_size"),
		StoreShards:        v.GetInt("store_shards"),
		CatalogDriver:      strings.ToLower(strings.TrimSpace(v.GetString("catalog_driver"))),
		SQLitePath:         v.GetString("sqlite_path"),
		MongoURI:           v.GetString("mongo_uri"),
		MongoDBName:        v.GetString("mongo_db_name"),
		RedisAddr:          v.GetString("redis_addr"),
		RedisPassword:      v.GetString("redis_password"),
		KafkaBrokers:       splitList(v.GetString("kafka_brokers")),
		BreakerFailures:    v.GetUint32("breaker_failures"),
		BreakerTimeout:     v.GetDuration("breaker_timeout"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.CatalogDriver {
	case CatalogStatic, CatalogSQLite, CatalogMongo:
	default:
		errs = append(errs, fmt.Errorf("catalog_driver %q: must be one of static, sqlite, mongo", c.CatalogDriver))
	}
	if c.HTTPPort == "" {
		errs = append(errs, errors.New("http_port must be set"))
	}
	if c.GRPCPort == "" {
		errs = append(errs, errors.New("grpc_port must be set"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request_timeout must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown_timeout must be positive"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("max_request_body_size must be positive"))
	}
	if c.CatalogDriver == CatalogSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite_path must be set for the sqlite catalog"))
	}
	if c.CatalogDriver == CatalogMongo && (c.MongoURI == "" || c.MongoDBName == "") {
		errs = append(errs, errors.New("mongo_uri and mongo_db_name must be set for the mongo catalog"))
	}
	return errors.Join(errs...)
}

// splitList parses a comma separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
