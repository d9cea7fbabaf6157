package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const devJWTSecret = "default_super_secret_key"

// Config is the process configuration. Values come from, in order of
// precedence: environment, the optional YAML file, defaults.
type Config struct {
	AppEnv      string         `yaml:"appEnv"`
	Port        string         `yaml:"port"`
	CORSOrigins []string       `yaml:"corsOrigins"`
	Database    DatabaseConfig `yaml:"database"`
	JWT         JWTConfig      `yaml:"jwt"`
	Redis       RedisConfig    `yaml:"redis"`
	Storage     StorageConfig  `yaml:"storage"`
	Audit       AuditConfig    `yaml:"audit"`

	AuthRateLimitPerMinute int   `yaml:"authRateLimitPerMinute"`
	MaxUploadBytes         int64 `yaml:"maxUploadBytes"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`
}

// DSN builds the postgres connection URL
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

type JWTConfig struct {
	Secret     string        `yaml:"secret"`
	AccessTTL  time.Duration `yaml:"accessTTL"`
	RefreshTTL time.Duration `yaml:"refreshTTL"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	Stream   string `yaml:"deadLetterStream"`
}

type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"useSSL"`
	PublicURL string `yaml:"publicURL"`
}

type AuditConfig struct {
	Workers      int           `yaml:"workers"`
	QueueSize    int           `yaml:"queueSize"`
	MaxAttempts  int           `yaml:"maxAttempts"`
	RetryBackoff time.Duration `yaml:"retryBackoff"`
}

// IsProduction reports whether the process runs with production settings
func (c Config) IsProduction() bool {
	return c.AppEnv == "production" || c.AppEnv == "release"
}

// Load reads configs/.env if present, then the YAML file at path (or
// CONFIG_FILE) if any, then applies environment overrides.
func Load(path string) (Config, error) {
	_ = godotenv.Load("configs/.env")

	cfg := defaults()
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	applyEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		AppEnv:      "development",
		Port:        "8080",
		CORSOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "postgres",
			SSLMode:  "disable",
		},
		JWT: JWTConfig{
			AccessTTL:  24 * time.Hour,
			RefreshTTL: 7 * 24 * time.Hour,
		},
		Redis: RedisConfig{Stream: "audit:dead_letter"},
		Storage: StorageConfig{
			Bucket: "book-images",
		},
		Audit: AuditConfig{
			Workers:      2,
			QueueSize:    1000,
			MaxAttempts:  3,
			RetryBackoff: 200 * time.Millisecond,
		},
		AuthRateLimitPerMinute: 20,
		MaxUploadBytes:         5 << 20,
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.AppEnv, "APP_ENV")
	setString(&cfg.Port, "PORT")
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitCSV(v)
	}

	setString(&cfg.Database.Host, "DB_HOST")
	setString(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")
	setString(&cfg.Database.SSLMode, "DB_SSLMODE")

	setString(&cfg.JWT.Secret, "JWT_SECRET")
	setDuration(&cfg.JWT.AccessTTL, "JWT_ACCESS_TTL")
	setDuration(&cfg.JWT.RefreshTTL, "JWT_REFRESH_TTL")

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Redis.Stream, "AUDIT_DEAD_LETTER_STREAM")

	setString(&cfg.Storage.Endpoint, "MINIO_ENDPOINT")
	setString(&cfg.Storage.AccessKey, "MINIO_ACCESS_KEY")
	setString(&cfg.Storage.SecretKey, "MINIO_SECRET_KEY")
	setString(&cfg.Storage.Bucket, "MINIO_BUCKET")
	setString(&cfg.Storage.PublicURL, "MINIO_PUBLIC_URL")
	if v := os.Getenv("MINIO_USE_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Storage.UseSSL = b
		}
	}

	setInt(&cfg.Audit.Workers, "AUDIT_WORKERS")
	setInt(&cfg.Audit.QueueSize, "AUDIT_QUEUE_SIZE")
	setInt(&cfg.Audit.MaxAttempts, "AUDIT_MAX_ATTEMPTS")
	setDuration(&cfg.Audit.RetryBackoff, "AUDIT_RETRY_BACKOFF")

	setInt(&cfg.AuthRateLimitPerMinute, "AUTH_RATE_LIMIT_PER_MINUTE")
	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("config: port is required")
	}
	if cfg.JWT.Secret == "" {
		if cfg.IsProduction() {
			return errors.New("config: JWT_SECRET is required in production")
		}
		cfg.JWT.Secret = devJWTSecret // Development fallback only
	}
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if cfg.Audit.Workers < 1 || cfg.Audit.QueueSize < 1 || cfg.Audit.MaxAttempts < 1 {
		return errors.New("config: audit workers, queue size and attempts must be >= 1")
	}
	if cfg.AuthRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			*dst = d
		}
	}
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
