package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all service configuration loaded from environment variables.
type Config struct {
	Port            string
	StoreDriver     string
	MongoURI        string
	MongoDB         string
	PostgresDSN     string
	RedisAddr       string
	RedisPassword   string
	UserCacheTTL    time.Duration
	PublicDir       string
	IndexFile       string
	CORSOrigins     []string
	LogDir          string
	LogLevel        string
	ShutdownTimeout time.Duration
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := &Config{
		Port:            getenv("PORT", "3000"),
		StoreDriver:     strings.ToLower(getenv("STORE_DRIVER", DriverMongo)),
		MongoURI:        getenv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:         getenv("MONGO_DB", "exercise_tracker"),
		PostgresDSN:     getenv("POSTGRES_DSN", ""),
		RedisAddr:       getenv("REDIS_ADDR", ""),
		RedisPassword:   getenv("REDIS_PASSWORD", ""),
		UserCacheTTL:    getDuration("USER_CACHE_TTL", 10*time.Minute),
		PublicDir:       getenv("PUBLIC_DIR", "public"),
		IndexFile:       getenv("INDEX_FILE", "views/index.html"),
		CORSOrigins:     splitAndTrim(getenv("CORS_ORIGINS", "*")),
		LogDir:          getenv("LOG_DIR", ""),
		LogLevel:        getenv("LOG_LEVEL", "INFO"),
		ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	switch cfg.StoreDriver {
	case DriverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required")
		}
	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("POSTGRES_DSN is required when STORE_DRIVER=postgres")
		}
	case DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
