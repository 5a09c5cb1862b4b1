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

	Database   DatabaseConfig
	Redis      RedisConfig
	JWT        JWTConfig
	CORS       CORSConfig
	Log        LogConfig
	Allocation AllocationConfig
	Waitlist   WaitlistConfig
	Audit      AuditConfig
	Rooms      RoomsConfig
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

// JWTConfig carries what is needed to validate externally issued tokens.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AllocationConfig tunes the allocation engine and the priority ranker.
// Role bonuses are fairness knobs: zero disables the bonus entirely.
type AllocationConfig struct {
	MaxRetries      int
	StaffBonus      int64
	AdminBonus      int64
	SeniorityWeight int64
	RequestTTL      time.Duration
	ExpirySweep     time.Duration
}

// WaitlistConfig controls background reprocessing and the cached view.
type WaitlistConfig struct {
	SweepInterval time.Duration
	CacheTTL      time.Duration
	Workers       int
}

// AuditConfig controls the periodic consistency audit.
type AuditConfig struct {
	Interval      time.Duration
	StaleBatchAge time.Duration
	RunOnStartup  bool
}

// RoomsConfig tunes read-side caching for room listings.
type RoomsConfig struct {
	CacheTTL time.Duration
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
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Allocation = AllocationConfig{
		MaxRetries:      v.GetInt("ALLOCATION_MAX_RETRIES"),
		StaffBonus:      v.GetInt64("PRIORITY_STAFF_BONUS"),
		AdminBonus:      v.GetInt64("PRIORITY_ADMIN_BONUS"),
		SeniorityWeight: v.GetInt64("PRIORITY_SENIORITY_WEIGHT"),
		RequestTTL:      parseDuration(v.GetString("REQUEST_TTL"), 0),
		ExpirySweep:     parseDuration(v.GetString("REQUEST_EXPIRY_SWEEP"), 10*time.Minute),
	}

	cfg.Waitlist = WaitlistConfig{
		SweepInterval: parseDuration(v.GetString("WAITLIST_SWEEP_INTERVAL"), 15*time.Minute),
		CacheTTL:      parseDuration(v.GetString("WAITLIST_CACHE_TTL"), time.Minute),
		Workers:       v.GetInt("WAITLIST_WORKERS"),
	}

	cfg.Audit = AuditConfig{
		Interval:      parseDuration(v.GetString("AUDIT_INTERVAL"), time.Hour),
		StaleBatchAge: parseDuration(v.GetString("AUDIT_STALE_BATCH_AGE"), time.Hour),
		RunOnStartup:  v.GetBool("AUDIT_RUN_ON_STARTUP"),
	}

	cfg.Rooms = RoomsConfig{
		CacheTTL: parseDuration(v.GetString("ROOMS_CACHE_TTL"), 5*time.Minute),
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
	v.SetDefault("DB_NAME", "hostelhaven")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "hostelhaven")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ALLOCATION_MAX_RETRIES", 4)
	v.SetDefault("PRIORITY_STAFF_BONUS", 0)
	v.SetDefault("PRIORITY_ADMIN_BONUS", 0)
	v.SetDefault("PRIORITY_SENIORITY_WEIGHT", 1)
	v.SetDefault("REQUEST_TTL", "0")
	v.SetDefault("REQUEST_EXPIRY_SWEEP", "10m")

	v.SetDefault("WAITLIST_SWEEP_INTERVAL", "15m")
	v.SetDefault("WAITLIST_CACHE_TTL", "1m")
	v.SetDefault("WAITLIST_WORKERS", 1)

	v.SetDefault("AUDIT_INTERVAL", "1h")
	v.SetDefault("AUDIT_STALE_BATCH_AGE", "1h")
	v.SetDefault("AUDIT_RUN_ON_STARTUP", false)

	v.SetDefault("ROOMS_CACHE_TTL", "5m")
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
