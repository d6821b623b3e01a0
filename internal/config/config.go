// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/parking-rental/internal/database"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
	Env            string // APP_ENV (dev/test/prod)
	Port           string // APP_PORT
	LogLevel       string // LOG_LEVEL (debug/info/warn/error)
	StoreDriver    string // STORE_DRIVER, mysql unless set to memory
	DB             database.Params
	JWTSecret      string
	AccessTTLMin   int
	RefreshTTLDays int
	BcryptCost     int
	OwnerEmail     string // REGISTRY_OWNER_EMAIL, the account that owns the registry
	OwnerPassword  string // REGISTRY_OWNER_PASSWORD, used only to create that account

	AMQPURL      string   // RABBITMQ_URL or AMQP_URL; empty disables publishing
	EventsQueue  string   // EVENTS_QUEUE
	EventsLogDir string   // EVENTS_LOG_DIR
	CORSOrigins  []string // CORS_ALLOWED_ORIGINS, comma separated
	ShutdownWait time.Duration
}

// Load reads configuration values from environment variables.  Missing
// required variables cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:            must("APP_ENV"),
		Port:           must("APP_PORT"),
		LogLevel:       envStr("LOG_LEVEL", "info"),
		StoreDriver:    strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		JWTSecret:      must("JWT_SECRET"),
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
		BcryptCost:     mustInt("BCRYPT_COST"),
		OwnerEmail:     strings.ToLower(must("REGISTRY_OWNER_EMAIL")),
		OwnerPassword:  os.Getenv("REGISTRY_OWNER_PASSWORD"),
		AMQPURL:        envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		EventsQueue:    envStr("EVENTS_QUEUE", "parking.events"),
		EventsLogDir:   envStr("EVENTS_LOG_DIR", "logs"),
		CORSOrigins:    splitList(envStr("CORS_ALLOWED_ORIGINS", "*")),
		ShutdownWait:   envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DB = database.Params{
			User: must("DB_USER"),
			Pass: os.Getenv("DB_PASS"),
			Host: must("DB_HOST"),
			Port: must("DB_PORT"),
			Name: must("DB_NAME"),
		}
	case StoreMemory:
	default:
		log.Fatalf("invalid STORE_DRIVER %q (want %s or %s)", cfg.StoreDriver, StoreMySQL, StoreMemory)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
