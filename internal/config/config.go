package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Toggle is the raw value of an ENABLE_* key. An empty toggle means the
// service's own default applies.
type Toggle string

// Resolve returns the toggle as a bool, or def when unset.
func (t Toggle) Resolve(def bool) bool {
	return ParseBool(string(t), def)
}

// ParseBool interprets raw as a flag: empty is def; "1", "true", "yes" and
// "on" (any case) are true; everything else is false.
func ParseBool(raw string, def bool) bool {
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// EnvBool reads name from the process environment with ParseBool semantics.
func EnvBool(name string, def bool) bool {
	return ParseBool(os.Getenv(name), def)
}

// Postgres holds PostgreSQL connection settings.
type Postgres struct {
	Enable   Toggle `env:"ENABLE_POSTGRES"`
	Host     string `env:"POSTGRES_HOST" envDefault:"postgres"`
	Port     int    `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	Database string `env:"POSTGRES_DB" envDefault:"devcontainer_db"`
}

func (Postgres) Flag() string    { return "ENABLE_POSTGRES" }
func (p Postgres) Enabled() bool { return p.Enable.Resolve(true) }

// MySQL holds MySQL connection settings.
type MySQL struct {
	Enable   Toggle `env:"ENABLE_MYSQL"`
	Host     string `env:"MYSQL_HOST" envDefault:"mysql"`
	Port     int    `env:"MYSQL_PORT" envDefault:"3306"`
	User     string `env:"MYSQL_USER" envDefault:"mysql"`
	Password string `env:"MYSQL_PASSWORD" envDefault:"mysql"`
	Database string `env:"MYSQL_DATABASE" envDefault:"devcontainer_db"`
}

func (MySQL) Flag() string    { return "ENABLE_MYSQL" }
func (m MySQL) Enabled() bool { return m.Enable.Resolve(false) }

// Valkey holds key-value store settings. VALKEY_* wins over the REDIS_*
// fallbacks.
type Valkey struct {
	Enable    Toggle `env:"ENABLE_VALKEY"`
	Host      string `env:"VALKEY_HOST"`
	Port      int    `env:"VALKEY_PORT"`
	Password  string `env:"VALKEY_PASSWORD"`
	RedisHost string `env:"REDIS_HOST" envDefault:"valkey"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
}

func (Valkey) Flag() string    { return "ENABLE_VALKEY" }
func (v Valkey) Enabled() bool { return v.Enable.Resolve(false) }

// Kafka holds broker settings. Brokers overrides Host/Port when set.
type Kafka struct {
	Enable  Toggle   `env:"ENABLE_KAFKA"`
	Host    string   `env:"KAFKA_HOST" envDefault:"kafka"`
	Port    int      `env:"KAFKA_PORT" envDefault:"29092"`
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_HEALTH_TOPIC"`
}

func (Kafka) Flag() string    { return "ENABLE_KAFKA" }
func (k Kafka) Enabled() bool { return k.Enable.Resolve(false) }

// OpenSearch holds search engine settings.
type OpenSearch struct {
	Enable   Toggle `env:"ENABLE_OPENSEARCH"`
	Host     string `env:"OPENSEARCH_HOST" envDefault:"opensearch"`
	Port     int    `env:"OPENSEARCH_PORT" envDefault:"9200"`
	Index    string `env:"OPENSEARCH_HEALTH_INDEX" envDefault:"health-checks"`
	User     string `env:"OPENSEARCH_USER"`
	Password string `env:"OPENSEARCH_PASSWORD"`
}

func (OpenSearch) Flag() string    { return "ENABLE_OPENSEARCH" }
func (o OpenSearch) Enabled() bool { return o.Enable.Resolve(false) }

// MinIO holds S3-compatible object store settings.
type MinIO struct {
	Enable    Toggle `env:"ENABLE_MINIO"`
	Host      string `env:"MINIO_HOST" envDefault:"minio"`
	Port      int    `env:"MINIO_PORT" envDefault:"9000"`
	AccessKey string `env:"MINIO_ACCESS_KEY" envDefault:"minio"`
	SecretKey string `env:"MINIO_SECRET_KEY" envDefault:"minio12345"`
	Bucket    string `env:"MINIO_HEALTH_BUCKET" envDefault:"health-checks"`
	Region    string `env:"MINIO_REGION" envDefault:"us-east-1"`
}

func (MinIO) Flag() string    { return "ENABLE_MINIO" }
func (m MinIO) Enabled() bool { return m.Enable.Resolve(true) }

// Gate holds the reachability probe window.
type Gate struct {
	Timeout     time.Duration `env:"GATE_TIMEOUT" envDefault:"2s"`
	Interval    time.Duration `env:"GATE_INTERVAL" envDefault:"200ms"`
	DialTimeout time.Duration `env:"GATE_DIAL_TIMEOUT" envDefault:"500ms"`
}

// Watch holds the optional periodic mode of serve.
type Watch struct {
	// Interval 0 disables scheduled runs.
	Interval      time.Duration `env:"WATCH_INTERVAL" envDefault:"0s"`
	WebhookURL    string        `env:"ALERT_WEBHOOK_URL"`
	AlertCooldown time.Duration `env:"ALERT_COOLDOWN" envDefault:"5m"`
}

// Config is the root application configuration.
type Config struct {
	Postgres   Postgres
	MySQL      MySQL
	Valkey     Valkey
	Kafka      Kafka
	OpenSearch OpenSearch
	MinIO      MinIO
	Gate       Gate
	Watch      Watch
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
}

// envFiles are loaded, when present, before the environment is parsed.
// Values already in the process environment are left alone.
var envFiles = []string{".env", ".env.local"}

// Load reads optional .env files and resolves the configuration from the
// environment.
func Load() (*Config, error) {
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, fmt.Errorf("loading %s: %w", file, err)
		}
		slog.Debug("env file loaded", "file", file)
	}
	return FromEnv(nil)
}

// FromEnv resolves the configuration from environ, or from the process
// environment when environ is nil.
func FromEnv(environ map[string]string) (*Config, error) {
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}

	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	if cfg.Valkey.Host == "" {
		cfg.Valkey.Host = cfg.Valkey.RedisHost
	}
	if cfg.Valkey.Port == 0 {
		cfg.Valkey.Port = cfg.Valkey.RedisPort
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	ports := map[string]int{
		"POSTGRES_PORT":   c.Postgres.Port,
		"MYSQL_PORT":      c.MySQL.Port,
		"VALKEY_PORT":     c.Valkey.Port,
		"KAFKA_PORT":      c.Kafka.Port,
		"OPENSEARCH_PORT": c.OpenSearch.Port,
		"MINIO_PORT":      c.MinIO.Port,
	}
	for key, port := range ports {
		if port < 0 || port > 65535 {
			return fmt.Errorf("%s: port %d out of range", key, port)
		}
	}
	if c.Watch.Interval < 0 {
		return fmt.Errorf("WATCH_INTERVAL: negative interval %s", c.Watch.Interval)
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
