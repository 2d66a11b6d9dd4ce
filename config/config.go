package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Logger     LoggerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Kafka      KafkaConfig
	Elastic    ElasticsearchConfig
	Reconciler ReconcilerConfig
}

type ServerConfig struct {
	AppEnv   string
	GRPCPort string
}

type LoggerConfig struct {
	Level             string
	Encoding          string
	DisableCaller     bool
	DisableStacktrace bool
}

type DatabaseConfig struct {
	Driver          string // pgx or sqlite3
	SQLitePath      string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
	CacheTTL time.Duration
}

type KafkaConfig struct {
	Enabled bool
	Brokers []string
	Topic   string
	GroupID string
}

type ElasticsearchConfig struct {
	Enabled   bool
	Addresses []string
	Username  string
	Password  string
}

type ReconcilerConfig struct {
	Interval    time.Duration // zero disables the scheduled pass
	Concurrency int
}

var defaults = map[string]any{
	"APP_ENV":   "dev",
	"GRPC_PORT": ":8083",

	"LOGGER_LEVEL":              "debug",
	"LOGGER_ENCODING":           "console",
	"LOGGER_DISABLE_CALLER":     false,
	"LOGGER_DISABLE_STACKTRACE": true,

	"DB_DRIVER":                   "pgx",
	"SQLITE_PATH":                 "inventory.db",
	"POSTGRES_HOST":               "localhost",
	"POSTGRES_PORT":               "5433",
	"POSTGRES_USER":               "omnipos",
	"POSTGRES_PASSWORD":           "omnipos",
	"POSTGRES_DB":                 "omnipos_inventory",
	"POSTGRES_SSLMODE":            "disable",
	"POSTGRES_MAX_OPEN_CONNS":     10,
	"POSTGRES_MAX_IDLE_CONNS":     5,
	"POSTGRES_CONN_MAX_LIFETIME":  "300s",
	"POSTGRES_CONN_MAX_IDLE_TIME": "60s",

	"REDIS_ENABLED":   true,
	"REDIS_ADDR":      "localhost:6379",
	"REDIS_PASSWORD":  "",
	"REDIS_DB":        0,
	"REDIS_LOCK_TTL":  "5s",
	"REDIS_CACHE_TTL": "10m",

	"KAFKA_ENABLED":  true,
	"KAFKA_BROKERS":  "localhost:9092",
	"KAFKA_TOPIC":    "inventory.events",
	"KAFKA_GROUP_ID": "inventory-ledger",

	"ELASTICSEARCH_ENABLED":   true,
	"ELASTICSEARCH_ADDRESSES": "http://localhost:9200",
	"ELASTICSEARCH_USERNAME":  "",
	"ELASTICSEARCH_PASSWORD":  "",

	"RECONCILER_INTERVAL":    "15m",
	"RECONCILER_CONCURRENCY": 4,
}

// LoadEnv reads configuration from the environment, falling back to defaults.
func LoadEnv() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()
	return load(v)
}

func load(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:   v.GetString("APP_ENV"),
			GRPCPort: v.GetString("GRPC_PORT"),
		},
		Logger: LoggerConfig{
			Level:             v.GetString("LOGGER_LEVEL"),
			Encoding:          v.GetString("LOGGER_ENCODING"),
			DisableCaller:     v.GetBool("LOGGER_DISABLE_CALLER"),
			DisableStacktrace: v.GetBool("LOGGER_DISABLE_STACKTRACE"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("DB_DRIVER"),
			SQLitePath:      v.GetString("SQLITE_PATH"),
			Host:            v.GetString("POSTGRES_HOST"),
			Port:            v.GetString("POSTGRES_PORT"),
			User:            v.GetString("POSTGRES_USER"),
			Password:        v.GetString("POSTGRES_PASSWORD"),
			DBName:          v.GetString("POSTGRES_DB"),
			SSLMode:         v.GetString("POSTGRES_SSLMODE"),
			MaxOpenConns:    v.GetInt("POSTGRES_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("POSTGRES_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("POSTGRES_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("POSTGRES_CONN_MAX_IDLE_TIME"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("REDIS_ENABLED"),
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
			LockTTL:  v.GetDuration("REDIS_LOCK_TTL"),
			CacheTTL: v.GetDuration("REDIS_CACHE_TTL"),
		},
		Kafka: KafkaConfig{
			Enabled: v.GetBool("KAFKA_ENABLED"),
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
			GroupID: v.GetString("KAFKA_GROUP_ID"),
		},
		Elastic: ElasticsearchConfig{
			Enabled:   v.GetBool("ELASTICSEARCH_ENABLED"),
			Addresses: splitList(v.GetString("ELASTICSEARCH_ADDRESSES")),
			Username:  v.GetString("ELASTICSEARCH_USERNAME"),
			Password:  v.GetString("ELASTICSEARCH_PASSWORD"),
		},
		Reconciler: ReconcilerConfig{
			Interval:    v.GetDuration("RECONCILER_INTERVAL"),
			Concurrency: v.GetInt("RECONCILER_CONCURRENCY"),
		},
	}
}

// splitList reads comma separated values; viper splits on whitespace only.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
