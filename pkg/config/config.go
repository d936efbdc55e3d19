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

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Mail      MailConfig
	Auth      AuthConfig
	Selection SelectionConfig
	Catalog   CatalogConfig
	Reconcile ReconcileConfig
	Export    ExportConfig
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
	Enabled  bool
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

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MailConfig holds SMTP credentials for outgoing OTP mail.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AuthConfig tunes credential handling and the OTP recovery flow.
type AuthConfig struct {
	BcryptCost int
	OTPLength  int
	OTPTTL     time.Duration
}

// SelectionConfig governs the discipline selection engine.
type SelectionConfig struct {
	EnforceMaxCredits bool
}

// CatalogConfig controls caching of discipline listings.
type CatalogConfig struct {
	CacheTTL time.Duration
}

// ReconcileConfig tunes the credit reconciliation worker.
type ReconcileConfig struct {
	WorkerRetries int
	RetryDelay    time.Duration
}

// ExportConfig controls archived roster exports.
type ExportConfig struct {
	Dir       string
	ResultTTL time.Duration
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
		Enabled:  v.GetBool("REDIS_ENABLED"),
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

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Mail = MailConfig{
		Host:     v.GetString("MAILER_HOST"),
		Port:     v.GetInt("MAILER_PORT"),
		Username: v.GetString("MAILER_USERNAME"),
		Password: v.GetString("MAILER_PASSWORD"),
		From:     v.GetString("MAILER_FROM"),
	}

	cfg.Auth = AuthConfig{
		BcryptCost: v.GetInt("BCRYPT_COST"),
		OTPLength:  v.GetInt("OTP_LENGTH"),
		OTPTTL:     parseDuration(v.GetString("OTP_TTL"), 5*time.Minute),
	}

	cfg.Selection = SelectionConfig{
		EnforceMaxCredits: v.GetBool("SELECTION_ENFORCE_MAX_CREDITS"),
	}

	cfg.Catalog = CatalogConfig{
		CacheTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Reconcile = ReconcileConfig{
		WorkerRetries: v.GetInt("RECONCILE_WORKER_RETRIES"),
		RetryDelay:    parseDuration(v.GetString("RECONCILE_RETRY_DELAY"), time.Second),
	}

	cfg.Export = ExportConfig{
		Dir:       v.GetString("EXPORT_DIR"),
		ResultTTL: parseDuration(v.GetString("EXPORT_RESULT_TTL"), 24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "nereid")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("JWT_ISSUER", "nereid")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MAILER_HOST", "smtp.gmail.com")
	v.SetDefault("MAILER_PORT", 587)
	v.SetDefault("MAILER_USERNAME", "")
	v.SetDefault("MAILER_PASSWORD", "")
	v.SetDefault("MAILER_FROM", "Nereid <no-reply@nereid.local>")

	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("OTP_LENGTH", 6)
	v.SetDefault("OTP_TTL", "5m")

	v.SetDefault("SELECTION_ENFORCE_MAX_CREDITS", false)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")

	v.SetDefault("RECONCILE_WORKER_RETRIES", 3)
	v.SetDefault("RECONCILE_RETRY_DELAY", "1s")

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_RESULT_TTL", "24h")
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
