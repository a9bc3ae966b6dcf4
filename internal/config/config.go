package config // package config loads application configuration from environment variables

import (
	"fmt"     // error formatting
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings" // suffix handling for durations
	"time"    // token lifetimes
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMongo  = "mongo"
	StoreMySQL  = "mysql"
	StoreMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  It is loaded once in main and handed to the
// components that need it; nothing below main reads the environment.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	CORSOrigin string // allowed browser origin
	LogLevel   string // zerolog level name

	StoreDriver   string // mongo | mysql | memory
	MongoURI      string // mongodb connection string
	MongoDatabase string // database holding the users/captains collections
	DBUser        string // mysql username
	DBPass        string // mysql password (optional)
	DBHost        string // mysql host address
	DBPort        string // mysql port number
	DBName        string // mysql database name

	AccessTokenSecret  string        // secret used to sign access tokens
	AccessTokenExpiry  time.Duration // access token time‑to‑live
	RefreshTokenSecret string        // secret used to sign refresh tokens
	RefreshTokenExpiry time.Duration // refresh token time‑to‑live
	BcryptCost         int           // bcrypt cost for password hashing
	CookieSecure       bool          // Secure flag on token cookies

	RabbitMQURL string // broker for account events, empty disables publishing
}

// Load reads configuration values from environment variables and returns a
// Config.  Missing required variables and unparsable values are reported
// together in one error.
func Load() (Config, error) {
	l := &loader{}
	cfg := Config{
		Env:        l.str("APP_ENV", "dev"),
		Port:       l.str("PORT", "8000"),
		CORSOrigin: l.str("CORS_ORIGIN", "*"),
		LogLevel:   l.str("LOG_LEVEL", "info"),

		StoreDriver:   strings.ToLower(l.str("STORE_DRIVER", StoreMongo)),
		MongoURI:      l.str("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: l.str("MONGODB_DATABASE", "rideaccounts"),
		DBUser:        l.str("DB_USER", "root"),
		DBPass:        os.Getenv("DB_PASS"),
		DBHost:        l.str("DB_HOST", "localhost"),
		DBPort:        l.str("DB_PORT", "3306"),
		DBName:        l.str("DB_NAME", "rideaccounts"),

		AccessTokenSecret:  l.must("ACCESS_TOKEN_SECRET"),
		AccessTokenExpiry:  l.expiry("ACCESS_TOKEN_EXPIRY", 24*time.Hour),
		RefreshTokenSecret: l.must("REFRESH_TOKEN_SECRET"),
		RefreshTokenExpiry: l.expiry("REFRESH_TOKEN_EXPIRY", 10*24*time.Hour),
		BcryptCost:         l.int("BCRYPT_COST", 10),
		CookieSecure:       envBool("COOKIE_SECURE", true),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
	}

	switch cfg.StoreDriver {
	case StoreMongo, StoreMySQL, StoreMemory:
	default:
		l.fail("invalid STORE_DRIVER %q", cfg.StoreDriver)
	}
	if cfg.AccessTokenSecret != "" && cfg.AccessTokenSecret == cfg.RefreshTokenSecret {
		l.fail("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	if len(l.errs) > 0 {
		return Config{}, fmt.Errorf("config: %s", strings.Join(l.errs, "; "))
	}
	return cfg, nil
}

// loader collects problems instead of exiting on the first one.
type loader struct{ errs []string }

func (l *loader) fail(format string, args ...any) {
	l.errs = append(l.errs, fmt.Sprintf(format, args...))
}

func (l *loader) str(key, def string) string { return getenv(key, def) }

// must retrieves the value of a required environment variable.
func (l *loader) must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		l.fail("missing required env var: %s", key)
	}
	return v
}

func (l *loader) int(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		l.fail("invalid int for %s: %q", key, s)
		return def
	}
	return n
}

func (l *loader) expiry(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := ParseExpiry(s)
	if err != nil || d <= 0 {
		l.fail("invalid duration for %s: %q", key, s)
		return def
	}
	return d
}

// ParseExpiry parses token lifetimes.  It accepts everything
// time.ParseDuration does plus a whole-day form such as "1d" or "10d", which
// is how expiries are usually written in .env files.
func ParseExpiry(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if days, ok := strings.CutSuffix(s, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, fmt.Errorf("invalid day count %q", s)
		}
		return time.Duration(n) * 24 * time.Hour, nil
	}
	return time.ParseDuration(s)
}
