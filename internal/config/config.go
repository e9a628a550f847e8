package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Store drivers.
const (
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env           string // application environment (e.g. "dev", "prod")
	Port          string // HTTP port to listen on
	StoreDriver   string // "mysql" or "memory"
	DBUser        string // database username
	DBPass        string // database password (optional)
	DBHost        string // database host address
	DBPort        string // database port number
	DBName        string // database name
	DBAutoMigrate bool   // apply the embedded schema at startup
	JWTSecret     string // secret used to sign access tokens
	AccessTTLMin  int    // access token time-to-live in minutes
	BcryptCost    int    // bcrypt cost for password hashing
	LogLevel      string // zap level name
	AMQPURL       string // RabbitMQ URL; empty disables publishing
	TicketLogPath string // audit log written by the ticket consumer
}

// Load reads configuration values from environment variables.  Every
// missing or malformed required variable is reported in the returned
// error.  Database settings are required only for the mysql driver.
func Load() (Config, error) {
	var l loader
	cfg := Config{
		Env:           l.must("APP_ENV"),
		Port:          l.must("APP_PORT"),
		StoreDriver:   strings.ToLower(envStr("STORE_DRIVER", StoreMySQL)),
		DBPass:        os.Getenv("DB_PASS"),
		DBAutoMigrate: envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:     l.must("JWT_SECRET"),
		AccessTTLMin:  l.mustInt("ACCESS_TOKEN_TTL_MIN"),
		BcryptCost:    l.mustInt("BCRYPT_COST"),
		LogLevel:      envStr("LOG_LEVEL", "info"),
		AMQPURL:       envStr("RABBITMQ_URL", os.Getenv("AMQP_URL")),
		TicketLogPath: envStr("TICKET_LOG_PATH", "logs/tickets.log"),
	}
	switch cfg.StoreDriver {
	case StoreMySQL:
		cfg.DBUser = l.must("DB_USER")
		cfg.DBHost = l.must("DB_HOST")
		cfg.DBPort = l.must("DB_PORT")
		cfg.DBName = l.must("DB_NAME")
	case StoreMemory:
	default:
		l.errs = append(l.errs, fmt.Errorf("invalid STORE_DRIVER %q: want mysql or memory", cfg.StoreDriver))
	}
	if cfg.AccessTTLMin < 0 {
		l.errs = append(l.errs, errors.New("ACCESS_TOKEN_TTL_MIN must not be negative"))
	}
	return cfg, errors.Join(l.errs...)
}

// loader collects configuration errors so that every problem is
// reported at once.
type loader struct {
	errs []error
}

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.errs = append(l.errs, fmt.Errorf("missing required env var: %s", key))
	}
	return v
}

// mustInt is like must but converts the value into an integer.
func (l *loader) mustInt(key string) int {
	s := l.must(key)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.errs = append(l.errs, fmt.Errorf("invalid int for %s: %q", key, s))
	}
	return n
}
