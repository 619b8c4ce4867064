package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Sync      SyncConfig
	Multipart MultipartConfig
	Hook      HookConfig
	Log       LogConfig
	CORS      CORSConfig
	Tracing   TracingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpen         int           `mapstructure:"max_open"`
	MaxIdle         int           `mapstructure:"max_idle"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds the settings used to verify bearer tokens.
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

// Storage providers.
const (
	ProviderS3    = "s3"
	ProviderMinio = "minio"
)

// StorageConfig holds blob store settings. UseSecureURLs enables presigned
// download URLs on providers that support them.
type StorageConfig struct {
	Provider      string        `mapstructure:"provider"`
	Region        string        `mapstructure:"region"`
	Bucket        string        `mapstructure:"bucket"`
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	UseSecureURLs bool          `mapstructure:"use_secure_urls"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// SyncConfig holds event queue and sync job settings.
type SyncConfig struct {
	QueueURL           string        `mapstructure:"queue_url"`
	QueueRegion        string        `mapstructure:"queue_region"`
	WaitTime           time.Duration `mapstructure:"wait_time"`
	UseFakeEvents      bool          `mapstructure:"use_fake_events"`
	MaxOutstandingJobs int           `mapstructure:"max_outstanding_jobs"`
	Schedule           string        `mapstructure:"schedule"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	Concurrency        int           `mapstructure:"concurrency"`
	JobTimeout         time.Duration `mapstructure:"job_timeout"`
}

// MultipartConfig holds multipart upload cleanup settings.
type MultipartConfig struct {
	MaxLifetime  time.Duration `mapstructure:"max_lifetime"`
	ReapSchedule string        `mapstructure:"reap_schedule"`
}

// HookConfig holds settings for the ingestion hook fed by finished uploads.
// The hook is disabled when no brokers are configured.
type HookConfig struct {
	Name    string   `mapstructure:"name"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	Formats []string `mapstructure:"formats"`
}

// Enabled reports whether finished uploads are submitted to the hook.
func (h *HookConfig) Enabled() bool {
	return len(h.Brokers) > 0 && h.Topic != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TracingConfig holds OpenTelemetry exporter settings.
type TracingConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Endpoint    string  `mapstructure:"endpoint"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads configuration from environment variables with the CLOUDSYNC_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CLOUDSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "cloudsync")
	v.SetDefault("db.password", "cloudsync_secret")
	v.SetDefault("db.name", "cloudsync_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.migrations_path", "db/migrations")

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.issuer", "cloudsync")

	// Storage defaults
	v.SetDefault("storage.provider", ProviderS3)
	v.SetDefault("storage.region", "eu-west-1")
	v.SetDefault("storage.bucket", "cloudsync-resources")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.use_ssl", true)
	v.SetDefault("storage.use_secure_urls", true)
	v.SetDefault("storage.presign_expiry", "1h")

	// Sync defaults
	v.SetDefault("sync.queue_url", "")
	v.SetDefault("sync.queue_region", "eu-west-1")
	v.SetDefault("sync.wait_time", "1s")
	v.SetDefault("sync.use_fake_events", false)
	v.SetDefault("sync.max_outstanding_jobs", 10)
	v.SetDefault("sync.schedule", "@every 1m")
	v.SetDefault("sync.poll_interval", "5s")
	v.SetDefault("sync.concurrency", 2)
	v.SetDefault("sync.job_timeout", "30m")

	// Multipart defaults
	v.SetDefault("multipart.max_lifetime", "168h")
	v.SetDefault("multipart.reap_schedule", "@hourly")

	// Hook defaults
	v.SetDefault("hook.name", "datapusher")
	v.SetDefault("hook.brokers", "")
	v.SetDefault("hook.topic", "cloudsync.ingest")
	v.SetDefault("hook.formats", "csv,xls,xlsx,tsv")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Tracing defaults
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.service_name", "cloudsync")
	v.SetDefault("tracing.sample_ratio", 1.0)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":               "CLOUDSYNC_SERVER_PORT",
		"server.read_timeout":       "CLOUDSYNC_SERVER_READ_TIMEOUT",
		"server.write_timeout":      "CLOUDSYNC_SERVER_WRITE_TIMEOUT",
		"server.environment":        "CLOUDSYNC_SERVER_ENVIRONMENT",
		"db.host":                   "CLOUDSYNC_DB_HOST",
		"db.port":                   "CLOUDSYNC_DB_PORT",
		"db.user":                   "CLOUDSYNC_DB_USER",
		"db.password":               "CLOUDSYNC_DB_PASSWORD",
		"db.name":                   "CLOUDSYNC_DB_NAME",
		"db.sslmode":                "CLOUDSYNC_DB_SSLMODE",
		"db.max_open":               "CLOUDSYNC_DB_MAX_OPEN",
		"db.max_idle":               "CLOUDSYNC_DB_MAX_IDLE",
		"db.conn_max_lifetime":      "CLOUDSYNC_DB_CONN_MAX_LIFETIME",
		"db.migrations_path":        "CLOUDSYNC_DB_MIGRATIONS_PATH",
		"jwt.secret":                "CLOUDSYNC_JWT_SECRET",
		"jwt.issuer":                "CLOUDSYNC_JWT_ISSUER",
		"storage.provider":          "CLOUDSYNC_STORAGE_PROVIDER",
		"storage.region":            "CLOUDSYNC_STORAGE_REGION",
		"storage.bucket":            "CLOUDSYNC_STORAGE_BUCKET",
		"storage.endpoint":          "CLOUDSYNC_STORAGE_ENDPOINT",
		"storage.access_key":        "CLOUDSYNC_STORAGE_ACCESS_KEY",
		"storage.secret_key":        "CLOUDSYNC_STORAGE_SECRET_KEY",
		"storage.use_ssl":           "CLOUDSYNC_STORAGE_USE_SSL",
		"storage.use_secure_urls":   "CLOUDSYNC_STORAGE_USE_SECURE_URLS",
		"storage.presign_expiry":    "CLOUDSYNC_STORAGE_PRESIGN_EXPIRY",
		"sync.queue_url":            "CLOUDSYNC_SYNC_QUEUE_URL",
		"sync.queue_region":         "CLOUDSYNC_SYNC_QUEUE_REGION",
		"sync.wait_time":            "CLOUDSYNC_SYNC_WAIT_TIME",
		"sync.use_fake_events":      "CLOUDSYNC_SYNC_USE_FAKE_EVENTS",
		"sync.max_outstanding_jobs": "CLOUDSYNC_SYNC_MAX_OUTSTANDING_JOBS",
		"sync.schedule":             "CLOUDSYNC_SYNC_SCHEDULE",
		"sync.poll_interval":        "CLOUDSYNC_SYNC_POLL_INTERVAL",
		"sync.concurrency":          "CLOUDSYNC_SYNC_CONCURRENCY",
		"sync.job_timeout":          "CLOUDSYNC_SYNC_JOB_TIMEOUT",
		"multipart.max_lifetime":    "CLOUDSYNC_MULTIPART_MAX_LIFETIME",
		"multipart.reap_schedule":   "CLOUDSYNC_MULTIPART_REAP_SCHEDULE",
		"hook.name":                 "CLOUDSYNC_HOOK_NAME",
		"hook.brokers":              "CLOUDSYNC_HOOK_BROKERS",
		"hook.topic":                "CLOUDSYNC_HOOK_TOPIC",
		"hook.formats":              "CLOUDSYNC_HOOK_FORMATS",
		"log.level":                 "CLOUDSYNC_LOG_LEVEL",
		"log.format":                "CLOUDSYNC_LOG_FORMAT",
		"cors.allowed_origins":      "CLOUDSYNC_CORS_ALLOWED_ORIGINS",
		"tracing.enabled":           "CLOUDSYNC_TRACING_ENABLED",
		"tracing.endpoint":          "CLOUDSYNC_TRACING_ENDPOINT",
		"tracing.service_name":      "CLOUDSYNC_TRACING_SERVICE_NAME",
		"tracing.sample_ratio":      "CLOUDSYNC_TRACING_SAMPLE_RATIO",
		"metrics.enabled":           "CLOUDSYNC_METRICS_ENABLED",
		"metrics.path":              "CLOUDSYNC_METRICS_PATH",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Container platforms set a PORT env var. Use it if CLOUDSYNC_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("CLOUDSYNC_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Host:            v.GetString("db.host"),
		Port:            v.GetInt("db.port"),
		User:            v.GetString("db.user"),
		Password:        v.GetString("db.password"),
		Name:            v.GetString("db.name"),
		SSLMode:         v.GetString("db.sslmode"),
		MaxOpen:         v.GetInt("db.max_open"),
		MaxIdle:         v.GetInt("db.max_idle"),
		ConnMaxLifetime: v.GetDuration("db.conn_max_lifetime"),
		MigrationsPath:  v.GetString("db.migrations_path"),
	}
	cfg.JWT = JWTConfig{
		Secret: v.GetString("jwt.secret"),
		Issuer: v.GetString("jwt.issuer"),
	}
	cfg.Storage = StorageConfig{
		Provider:      strings.ToLower(v.GetString("storage.provider")),
		Region:        v.GetString("storage.region"),
		Bucket:        v.GetString("storage.bucket"),
		Endpoint:      v.GetString("storage.endpoint"),
		AccessKey:     v.GetString("storage.access_key"),
		SecretKey:     v.GetString("storage.secret_key"),
		UseSSL:        v.GetBool("storage.use_ssl"),
		UseSecureURLs: v.GetBool("storage.use_secure_urls"),
		PresignExpiry: v.GetDuration("storage.presign_expiry"),
	}
	cfg.Sync = SyncConfig{
		QueueURL:           v.GetString("sync.queue_url"),
		QueueRegion:        v.GetString("sync.queue_region"),
		WaitTime:           v.GetDuration("sync.wait_time"),
		UseFakeEvents:      v.GetBool("sync.use_fake_events"),
		MaxOutstandingJobs: v.GetInt("sync.max_outstanding_jobs"),
		Schedule:           v.GetString("sync.schedule"),
		PollInterval:       v.GetDuration("sync.poll_interval"),
		Concurrency:        v.GetInt("sync.concurrency"),
		JobTimeout:         v.GetDuration("sync.job_timeout"),
	}
	cfg.Multipart = MultipartConfig{
		MaxLifetime:  v.GetDuration("multipart.max_lifetime"),
		ReapSchedule: v.GetString("multipart.reap_schedule"),
	}
	cfg.Hook = HookConfig{
		Name:    v.GetString("hook.name"),
		Brokers: splitList(v.GetString("hook.brokers")),
		Topic:   v.GetString("hook.topic"),
		Formats: splitList(strings.ToLower(v.GetString("hook.formats"))),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}
	cfg.Tracing = TracingConfig{
		Enabled:     v.GetBool("tracing.enabled"),
		Endpoint:    v.GetString("tracing.endpoint"),
		ServiceName: v.GetString("tracing.service_name"),
		SampleRatio: v.GetFloat64("tracing.sample_ratio"),
	}
	cfg.Metrics = MetricsConfig{
		Enabled: v.GetBool("metrics.enabled"),
		Path:    v.GetString("metrics.path"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Provider {
	case ProviderS3, ProviderMinio:
	default:
		return fmt.Errorf("config: unknown storage provider %q", c.Storage.Provider)
	}
	if c.Storage.Provider == ProviderMinio && c.Storage.Endpoint == "" {
		return fmt.Errorf("config: storage.endpoint is required for provider %q", ProviderMinio)
	}
	if c.Sync.MaxOutstandingJobs < 1 {
		return fmt.Errorf("config: sync.max_outstanding_jobs must be positive")
	}
	if c.Multipart.MaxLifetime <= 0 {
		return fmt.Errorf("config: multipart.max_lifetime must be positive")
	}
	return nil
}

// splitList parses a comma-separated list, dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
