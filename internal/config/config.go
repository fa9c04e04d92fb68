package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
	Storage  StorageConfig  `yaml:"storage"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Locks    LockConfig     `yaml:"locks"`
	Archive  ArchiveConfig  `yaml:"archive"`
	OCR      OCRConfig      `yaml:"ocr"`
	Cards    CardsConfig    `yaml:"cards"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Port                int      `yaml:"port"`
	Host                string   `yaml:"host"`
	ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
	CORSOrigins         []string `yaml:"cors_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// LoggingConfig controls the structured logger
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether contact details are masked in logs (default true).
func (c LoggingConfig) Redact() bool { return c.RedactPII == nil || *c.RedactPII }

// StorageConfig selects the card record store
type StorageConfig struct {
	Type             string `yaml:"type"` // memory, postgres, sqlite, dynamodb
	SQLitePath       string `yaml:"sqlite_path"`
	DynamoDBTable    string `yaml:"dynamodb_table"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint"`
	AWSRegion        string `yaml:"aws_region"`
	AWSProfile       string `yaml:"aws_profile"` // Empty string uses default credential chain
}

// DatabaseConfig holds PostgreSQL settings
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
	AutoMigrate  bool   `yaml:"auto_migrate"`
}

// RedisConfig holds the optional Redis connection used for record locks
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LockConfig tunes per-record mutation locks
type LockConfig struct {
	TTLSeconds  int `yaml:"ttl_seconds"`
	WaitSeconds int `yaml:"wait_seconds"`
}

func (c LockConfig) TTL() time.Duration  { return time.Duration(c.TTLSeconds) * time.Second }
func (c LockConfig) Wait() time.Duration { return time.Duration(c.WaitSeconds) * time.Second }

// ArchiveConfig selects where uploaded scans and generated exports are kept
type ArchiveConfig struct {
	Type            string `yaml:"type"` // none, local, s3
	LocalPath       string `yaml:"local_path"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Prefix        string `yaml:"s3_prefix"`
	AWSRegion       string `yaml:"aws_region"`
	AWSProfile      string `yaml:"aws_profile"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	Uploads         bool   `yaml:"uploads"`
	Exports         bool   `yaml:"exports"`
}

// OCRConfig holds the scan pipeline settings
type OCRConfig struct {
	Engine         string   `yaml:"engine"` // http, tesseract, none
	URL            string   `yaml:"url"`
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxRetries     int      `yaml:"max_retries"`
	MaxDimension   int      `yaml:"max_dimension"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
	Languages      []string `yaml:"languages"`
}

func (c OCRConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c OCRConfig) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }

// CardsConfig holds submission validation rules
type CardsConfig struct {
	RejectEmpty    *bool `yaml:"reject_empty"`
	MaxFieldLength int   `yaml:"max_field_length"`
}

// RejectEmptySubmissions reports whether all-blank cards are refused (default true).
func (c CardsConfig) RejectEmptySubmissions() bool { return c.RejectEmpty == nil || *c.RejectEmpty }

// AuthConfig holds Google OAuth authentication configuration
type AuthConfig struct {
	Enabled            bool   `yaml:"enabled"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	RedirectURL        string `yaml:"redirect_url"`
	AllowedDomain      string `yaml:"allowed_domain"`
	SessionSecret      string `yaml:"session_secret"`
	CookieName         string `yaml:"cookie_name"`
	CookieMaxAge       int    `yaml:"cookie_max_age"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Load reads a YAML config file and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 30
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 60
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "cards.db"
	}
	if cfg.Storage.DynamoDBTable == "" {
		cfg.Storage.DynamoDBTable = "visiting_cards"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-east-1"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Locks.TTLSeconds == 0 {
		cfg.Locks.TTLSeconds = 30
	}
	if cfg.Locks.WaitSeconds == 0 {
		cfg.Locks.WaitSeconds = 5
	}
	if cfg.Archive.Type == "" {
		cfg.Archive.Type = "none"
	}
	if cfg.Archive.LocalPath == "" {
		cfg.Archive.LocalPath = "./data"
	}
	if cfg.Archive.AWSRegion == "" {
		cfg.Archive.AWSRegion = cfg.Storage.AWSRegion
	}
	if cfg.OCR.Engine == "" {
		cfg.OCR.Engine = "http"
	}
	if cfg.OCR.URL == "" {
		cfg.OCR.URL = "http://localhost:8501/ocr"
	}
	if cfg.OCR.TimeoutSeconds == 0 {
		cfg.OCR.TimeoutSeconds = 30
	}
	if cfg.OCR.MaxRetries == 0 {
		cfg.OCR.MaxRetries = 2
	}
	if cfg.OCR.MaxDimension == 0 {
		cfg.OCR.MaxDimension = 2000
	}
	if cfg.OCR.MaxUploadMB == 0 {
		cfg.OCR.MaxUploadMB = 10
	}
	if len(cfg.OCR.Languages) == 0 {
		cfg.OCR.Languages = []string{"eng"}
	}
	if cfg.Cards.MaxFieldLength == 0 {
		cfg.Cards.MaxFieldLength = 256
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "cardscan_session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 86400 * 7
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) first so secrets can live in .env
// locally and in real env vars in deployment. A missing config file is
// not an error here: defaults plus environment are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("DYNAMODB_TABLE"); v != "" {
		cfg.Storage.DynamoDBTable = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Storage.AWSRegion = v
		cfg.Archive.AWSRegion = v
	}
	// A database URL alone switches a default memory store to postgres.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
		if cfg.Storage.Type == "memory" && os.Getenv("STORAGE_TYPE") == "" {
			cfg.Storage.Type = "postgres"
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("ARCHIVE_TYPE"); v != "" {
		cfg.Archive.Type = v
	}
	if v := os.Getenv("ARCHIVE_S3_BUCKET"); v != "" {
		cfg.Archive.S3Bucket = v
	}
	if v := os.Getenv("ARCHIVE_ENDPOINT"); v != "" {
		cfg.Archive.Endpoint = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.Archive.AccessKeyID = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.Archive.SecretAccessKey = v
	}
	if v := os.Getenv("OCR_ENGINE"); v != "" {
		cfg.OCR.Engine = v
	}
	if v := os.Getenv("OCR_URL"); v != "" {
		cfg.OCR.URL = v
	}
	if v := os.Getenv("CARDS_REJECT_EMPTY"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.Cards.RejectEmpty = &b
		}
	}

	// Auth overrides
	if v := os.Getenv("GOOGLE_CLIENT_ID"); v != "" {
		cfg.Auth.GoogleClientID = v
	}
	if v := os.Getenv("GOOGLE_CLIENT_SECRET"); v != "" {
		cfg.Auth.GoogleClientSecret = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.Auth.SessionSecret = v
	}
	if v := os.Getenv("AUTH_ALLOWED_DOMAIN"); v != "" {
		cfg.Auth.AllowedDomain = v
	}

	return cfg, nil
}
