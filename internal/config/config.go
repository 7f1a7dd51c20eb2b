package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

const devJWTSecret = "dev-only-secret-change-me"

type Config struct {
	Env   string
	Port  int
	DBURL string
	// DBConnectAttempts bounds startup connection retries.
	DBConnectAttempts int

	JWTSecret   string
	JWTTTL      time.Duration
	BcryptCost  int
	HashWorkers int

	AdminEmail    string
	AdminPassword string
	AdminName     string
	AdminAddress  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	LoginRateLimit    int
	RegisterRateLimit int
	APIRateLimit      int
	RateLimitWindow   time.Duration

	OwnerStoreCacheTTL time.Duration
	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	OTLPEndpoint string
	// OTelSampleRatio is the share of new root traces kept. Child spans
	// follow their parent.
	OTelSampleRatio float64
	AutoMigrate     bool
}

// Load reads the environment. In dev a local .env file is loaded first.
func Load() Config {
	env := getEnv("APP_ENV", "dev")
	if env == "dev" {
		_ = godotenv.Load()
	}

	secret := getEnv("JWT_SECRET", "")
	if secret == "" && env == "dev" {
		secret = devJWTSecret
	}

	return Config{
		Env:   env,
		Port:  getEnvInt("PORT", 8080),
		DBURL: buildDBURL(),

		DBConnectAttempts: getEnvInt("DB_CONNECT_ATTEMPTS", 5),

		JWTSecret:   secret,
		JWTTTL:      getEnvDuration("JWT_TTL", 24*time.Hour),
		BcryptCost:  getEnvInt("BCRYPT_COST", bcrypt.DefaultCost),
		HashWorkers: getEnvInt("HASH_WORKERS", runtime.NumCPU()),

		AdminEmail:    getEnv("ADMIN_EMAIL", "admin@example.com"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		AdminName:     getEnv("ADMIN_NAME", "System Administrator Account"),
		AdminAddress:  getEnv("ADMIN_ADDRESS", "Head Office"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LoginRateLimit:    getEnvInt("LOGIN_RATE_LIMIT", 10),
		RegisterRateLimit: getEnvInt("REGISTER_RATE_LIMIT", 5),
		APIRateLimit:      getEnvInt("API_RATE_LIMIT", 120),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		OwnerStoreCacheTTL: getEnvDuration("OWNER_STORE_CACHE_TTL", 5*time.Minute),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLE_RATIO", 1),
		AutoMigrate:     getEnvBool("AUTO_MIGRATE", false),
	}
}

// Validate fails fast on settings the server cannot run with.
func (c Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d out of range", c.Port))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if c.Env != "dev" && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	if c.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		errs = append(errs, fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost))
	}
	if c.LoginRateLimit <= 0 || c.RegisterRateLimit <= 0 || c.APIRateLimit <= 0 || c.RateLimitWindow <= 0 {
		errs = append(errs, errors.New("rate limits and window must be positive"))
	}
	if c.MaxBodyBytes <= 0 {
		errs = append(errs, errors.New("MAX_BODY_BYTES must be positive"))
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("OTEL_SAMPLE_RATIO %v must be between 0 and 1", c.OTelSampleRatio))
	}

	return errors.Join(errs...)
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "ratingportal")
	pass := getEnv("DB_PASSWORD", "ratingportal")
	name := getEnv("DB_NAME", "ratingportal")
	ssl := getEnv("DB_SSLMODE", "disable")

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     host + ":" + port,
		Path:     "/" + name,
		RawQuery: "sslmode=" + url.QueryEscape(ssl),
	}
	return u.String()
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}
		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fallback
		}
		return d
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
