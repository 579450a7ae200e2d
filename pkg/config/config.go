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

	Database      DatabaseConfig
	Redis         RedisConfig
	JWT           JWTConfig
	CORS          CORSConfig
	Log           LogConfig
	Mailer        MailerConfig
	Effects       EffectsConfig
	Dashboard     DashboardConfig
	Exports       ExportsConfig
	GuestBookings GuestBookingConfig
	Mentorship    MentorshipConfig
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
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MailerConfig selects the outgoing email provider.
type MailerConfig struct {
	Provider  string
	APIKey    string
	FromName  string
	FromEmail string
}

// EffectsConfig tunes the side-effect dispatch workers and dedup window.
type EffectsConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	DedupTTL   time.Duration
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// ExportsConfig toggles report export endpoints.
type ExportsConfig struct {
	Enabled bool
}

// GuestBookingConfig carries pricing defaults for guest sessions.
type GuestBookingConfig struct {
	SessionPriceCents int64
}

// MentorshipConfig carries pricing defaults for mentorship sessions.
type MentorshipConfig struct {
	SessionPriceCents      int64
	DefaultDurationMinutes int
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
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Mailer = MailerConfig{
		Provider:  v.GetString("MAILER_PROVIDER"),
		APIKey:    v.GetString("SENDGRID_API_KEY"),
		FromName:  v.GetString("MAILER_FROM_NAME"),
		FromEmail: v.GetString("MAILER_FROM_EMAIL"),
	}

	cfg.Effects = EffectsConfig{
		Workers:    v.GetInt("EFFECTS_WORKERS"),
		BufferSize: v.GetInt("EFFECTS_BUFFER_SIZE"),
		MaxRetries: v.GetInt("EFFECTS_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("EFFECTS_RETRY_DELAY"), time.Second),
		DedupTTL:   parseDuration(v.GetString("EFFECTS_DEDUP_TTL"), 24*time.Hour),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	cfg.GuestBookings = GuestBookingConfig{
		SessionPriceCents: v.GetInt64("GUEST_SESSION_PRICE_CENTS"),
	}

	cfg.Mentorship = MentorshipConfig{
		SessionPriceCents:      v.GetInt64("MENTORSHIP_SESSION_PRICE_CENTS"),
		DefaultDurationMinutes: v.GetInt("MENTORSHIP_DEFAULT_DURATION_MINUTES"),
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
	v.SetDefault("DB_NAME", "lms_admin")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MAILER_PROVIDER", "console")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAILER_FROM_NAME", "EduLink Admin")
	v.SetDefault("MAILER_FROM_EMAIL", "noreply@edulink.dev")

	v.SetDefault("EFFECTS_WORKERS", 2)
	v.SetDefault("EFFECTS_BUFFER_SIZE", 64)
	v.SetDefault("EFFECTS_MAX_RETRIES", 3)
	v.SetDefault("EFFECTS_RETRY_DELAY", "1s")
	v.SetDefault("EFFECTS_DEDUP_TTL", "24h")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")
	v.SetDefault("ENABLE_EXPORTS", true)

	v.SetDefault("GUEST_SESSION_PRICE_CENTS", 4900)
	v.SetDefault("MENTORSHIP_SESSION_PRICE_CENTS", 9900)
	v.SetDefault("MENTORSHIP_DEFAULT_DURATION_MINUTES", 60)
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
