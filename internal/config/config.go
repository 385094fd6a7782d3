package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	NATS      NATSConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Realtime  RealtimeConfig
	Firebase  FirebaseConfig
	Log       LogConfig
}

type AppConfig struct {
	Env  string
	Port string
}

// IsProduction reports APP_ENV=production
func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	TimeZone string
}

// DSN returns the PostgreSQL connection string
func (d DBConfig) DSN() string {
	return "host=" + d.Host +
		" user=" + d.User +
		" password=" + d.Password +
		" dbname=" + d.Name +
		" port=" + d.Port +
		" sslmode=" + d.SSLMode +
		" TimeZone=" + d.TimeZone
}

// URL returns the PostgreSQL connection URL (for golang-migrate)
func (d DBConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     d.Host + ":" + d.Port,
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + d.SSLMode,
	}
	return u.String()
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the Redis address
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// NATSConfig selects the NATS broker when URL is set
type NATSConfig struct {
	URL string
}

type JWTConfig struct {
	Secret string
	Expiry time.Duration
	Leeway time.Duration
}

type CORSConfig struct {
	Origins []string
}

// RateLimitConfig is the per-IP request limit applied in front of the router
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type RealtimeConfig struct {
	Broker       string // redis, nats or local
	QueueSize    int
	RedisChannel string
}

type FirebaseConfig struct {
	CredentialsFile string
}

type LogConfig struct {
	Level string
}

// Load reads configuration from .env file and environment variables.
// The returned warnings are meant for the caller's logger.
func Load() (*Config, []string) {
	var warnings []string

	// Load .env file (ignore error if not exists - e.g. in Docker)
	if err := godotenv.Load(); err != nil {
		warnings = append(warnings, "no .env file found, reading from environment variables")
	}

	cfg := &Config{
		App: AppConfig{
			Env:  getEnv("APP_ENV", "development"),
			Port: getEnv("APP_PORT", "8080"),
		},
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "chatcore"),
			Password: getEnv("DB_PASSWORD", "chatcore"),
			Name:     getEnv("DB_NAME", "chatcore"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			TimeZone: getEnv("DB_TIMEZONE", "UTC"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0, &warnings),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "default-secret"),
			Expiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour, &warnings),
			Leeway: getEnvDuration("JWT_LEEWAY", 30*time.Second, &warnings),
		},
		CORS: CORSConfig{
			Origins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		},
		RateLimit: RateLimitConfig{
			Requests: getEnvInt("RATE_LIMIT_REQUESTS", 300, &warnings),
			Window:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute, &warnings),
		},
		Realtime: RealtimeConfig{
			Broker:       strings.ToLower(getEnv("REALTIME_BROKER", "")),
			QueueSize:    getEnvInt("REALTIME_QUEUE_SIZE", 1024, &warnings),
			RedisChannel: getEnv("REALTIME_REDIS_CHANNEL", "chatcore:realtime"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: getEnv("FIREBASE_CREDENTIALS_FILE", ""),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if cfg.Realtime.Broker == "" {
		cfg.Realtime.Broker = "redis"
		if cfg.NATS.URL != "" {
			cfg.Realtime.Broker = "nats"
		}
	}
	if cfg.App.IsProduction() && cfg.JWT.Secret == "default-secret" {
		warnings = append(warnings, "JWT_SECRET is the default value in production")
	}

	return cfg, warnings
}

// Validate rejects combinations the server cannot start with
func (c *Config) Validate() error {
	switch c.Realtime.Broker {
	case "redis", "local":
	case "nats":
		if c.NATS.URL == "" {
			return fmt.Errorf("REALTIME_BROKER=nats requires NATS_URL")
		}
	default:
		return fmt.Errorf("unknown REALTIME_BROKER %q (want redis, nats or local)", c.Realtime.Broker)
	}
	if c.RateLimit.Requests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int, warnings *[]string) int {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s=%q is not an integer, using %d", key, raw, fallback))
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration, warnings *[]string) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		*warnings = append(*warnings, fmt.Sprintf("%s=%q is not a duration, using %s", key, raw, fallback))
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
