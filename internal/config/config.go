package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Load reads the .env file named by IMADIAL_ENV (or .env by default), then
// its .secret sidecar if present. Config values are flat env vars read
// through the getters below.
func Load() error {
	envFile := os.Getenv("IMADIAL_ENV")
	if envFile == "" {
		envFile = ".env"
	}

	// Missing files are fine; the process env still applies.
	_ = godotenv.Load(envFile)
	_ = godotenv.Load(envFile + ".secret")

	return nil
}

func ServerPort() int {
	port, err := strconv.Atoi(os.Getenv("SERVER_PORT"))
	if err != nil {
		return 8080
	}
	return port
}

func ServerAddr() string {
	return fmt.Sprintf(":%d", ServerPort())
}

func DatabaseURL() string {
	return os.Getenv("DATABASE_URL")
}

// SessionStore returns the session backend.
// Defaults to "postgres" when DATABASE_URL is set and "memory" otherwise.
func SessionStore() string {
	s := os.Getenv("SESSION_STORE")
	switch s {
	case StorePostgres, StoreMemory:
		return s
	}
	if DatabaseURL() != "" {
		return StorePostgres
	}
	return StoreMemory
}

// ManagerConfigPath returns the dialogue manager config file.
// Defaults to "configs/manager.yaml" if not set.
func ManagerConfigPath() string {
	p := os.Getenv("MANAGER_CONFIG")
	if p == "" {
		return "configs/manager.yaml"
	}
	return p
}

func MigrationsPath() string {
	p := os.Getenv("MIGRATIONS_PATH")
	if p == "" {
		return "migrations"
	}
	return p
}

// APIKey returns the bearer key required on /v1 routes. Empty disables auth.
func APIKey() string {
	return os.Getenv("API_KEY")
}

// SessionCacheSize returns how many live dialogue managers are kept in memory.
// Defaults to 1024 if not set.
func SessionCacheSize() int {
	n, err := strconv.Atoi(os.Getenv("SESSION_CACHE_SIZE"))
	if err != nil || n <= 0 {
		return 1024
	}
	return n
}

// SessionObserveTTL returns how long a session with an unacted observation
// is protected from cache eviction. Defaults to 30m if not set.
func SessionObserveTTL() time.Duration {
	d, err := time.ParseDuration(os.Getenv("SESSION_OBSERVE_TTL"))
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}

// RateLimitRPS returns requests per second limit.
// Defaults to 100 if not set.
func RateLimitRPS() float64 {
	rps, err := strconv.ParseFloat(os.Getenv("RATE_LIMIT_RPS"), 64)
	if err != nil || rps <= 0 {
		return 100
	}
	return rps
}

// RateLimitBurst returns the burst size for rate limiting.
// Defaults to 20 if not set.
func RateLimitBurst() int {
	burst, err := strconv.Atoi(os.Getenv("RATE_LIMIT_BURST"))
	if err != nil || burst <= 0 {
		return 20
	}
	return burst
}

// LogLevel returns the log level (debug, info, warn, error).
// Defaults to "info" if not set.
func LogLevel() string {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		return "info"
	}
	return level
}
