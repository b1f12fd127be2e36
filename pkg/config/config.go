package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config is the explicit startup configuration passed into every component
// constructor. There is no ambient global state.
type Config struct {
	Env       string
	Port      int
	APIPrefix string

	// Namespace isolates this deployment's data within shared backends
	// (redis channel prefix, media storage prefix).
	Namespace string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Admin    AdminConfig
	CORS     CORSConfig
	Log      LogConfig
	Site     SiteConfig
	Media    MediaConfig
	Cascade  CascadeConfig
	Stream   StreamConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminConfig holds the out-of-band admin credentials. The admin identity is
// synthetic and never persisted; the secret is only ever compared server-side.
type AdminConfig struct {
	Username string
	Password string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SiteConfig seeds the self-healing site configuration document.
type SiteConfig struct {
	DefaultTitle   string
	DefaultTagline string
}

// MediaConfig controls the upload store and signed retrieval URLs.
type MediaConfig struct {
	StorageDir       string
	SignedURLSecret  string
	SignedURLTTL     time.Duration
	MaxFileSizeBytes int64
}

// CascadeConfig tunes the background queue that removes comments and likes
// after a post deletion.
type CascadeConfig struct {
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// StreamConfig tunes the websocket snapshot stream.
type StreamConfig struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.Namespace = v.GetString("APP_NAMESPACE")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Admin = AdminConfig{
		Username: v.GetString("ADMIN_USERNAME"),
		Password: v.GetString("ADMIN_PASSWORD"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Site = SiteConfig{
		DefaultTitle:   v.GetString("SITE_DEFAULT_TITLE"),
		DefaultTagline: v.GetString("SITE_DEFAULT_TAGLINE"),
	}

	maxMediaSize := v.GetInt64("MEDIA_MAX_FILE_SIZE")
	if maxMediaSize <= 0 {
		maxMediaSize = 50 * 1024 * 1024
	}
	cfg.Media = MediaConfig{
		StorageDir:       v.GetString("MEDIA_STORAGE_DIR"),
		SignedURLSecret:  v.GetString("MEDIA_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("MEDIA_SIGNED_URL_TTL"), 24*time.Hour),
		MaxFileSizeBytes: maxMediaSize,
	}

	cfg.Cascade = CascadeConfig{
		Workers:    v.GetInt("CASCADE_WORKERS"),
		MaxRetries: v.GetInt("CASCADE_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("CASCADE_RETRY_DELAY"), time.Second),
	}

	cfg.Stream = StreamConfig{
		WriteTimeout: parseDuration(v.GetString("STREAM_WRITE_TIMEOUT"), 10*time.Second),
		PingInterval: parseDuration(v.GetString("STREAM_PING_INTERVAL"), 30*time.Second),
		SendBuffer:   v.GetInt("STREAM_SEND_BUFFER"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("APP_NAMESPACE", "default-app-id")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "vaddzy")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "vaddzy-api")

	v.SetDefault("ADMIN_USERNAME", "Gaston")
	v.SetDefault("ADMIN_PASSWORD", "display80")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SITE_DEFAULT_TITLE", "Vaddzy")
	v.SetDefault("SITE_DEFAULT_TAGLINE", "The ultimate creative hub to connect producers, artists, songwriters, and designers. Find your perfect collaborator and bring your vision to life.")

	v.SetDefault("MEDIA_STORAGE_DIR", "./media")
	v.SetDefault("MEDIA_SIGNED_URL_SECRET", "dev_media_secret")
	v.SetDefault("MEDIA_SIGNED_URL_TTL", "24h")
	v.SetDefault("MEDIA_MAX_FILE_SIZE", 50*1024*1024)

	v.SetDefault("CASCADE_WORKERS", 1)
	v.SetDefault("CASCADE_MAX_RETRIES", 3)
	v.SetDefault("CASCADE_RETRY_DELAY", "1s")

	v.SetDefault("STREAM_WRITE_TIMEOUT", "10s")
	v.SetDefault("STREAM_PING_INTERVAL", "30s")
	v.SetDefault("STREAM_SEND_BUFFER", 8)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
