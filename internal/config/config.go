package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type Config struct {
	Mode     Mode
	HTTPAddr string

	DBDriver   string // postgres|sqlite
	DBDSN      string // overrides the DB_* parts when set
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	SessionSecret string
	SessionTTL    time.Duration

	BlobBasePath string
	CORSOrigins  []string

	EnableAPI bool // JSON API under /api
}

func FromEnv() Config {
	mode := Mode(strings.ToLower(os.Getenv("LOG_MODE")))
	if mode == "" {
		mode = ModeDev
	}
	return Config{
		Mode:          mode,
		HTTPAddr:      envOr("HTTP_ADDR", ":8080"),
		DBDriver:      envOr("DB_DRIVER", "postgres"),
		DBDSN:         os.Getenv("DB_DSN"),
		DBHost:        envOr("DB_HOST", "localhost"),
		DBPort:        envOr("DB_PORT", "5432"),
		DBName:        envOr("DB_NAME", "quiz_app"),
		DBUser:        envOr("DB_USER", "quiz_user"),
		DBPassword:    envOr("DB_PASSWORD", "your_secure_password"),
		SessionSecret: envOr("SESSION_SECRET", "quiz-dev-session-key"),
		SessionTTL:    envDuration("SESSION_TTL", 2*time.Hour),
		BlobBasePath:  envOr("BLOB_BASE_PATH", "./data"),
		CORSOrigins:   csvOr("CORS_ORIGINS", "http://localhost:3000"),
		EnableAPI:     envBool("ENABLE_API", true),
	}
}

// DSN returns DB_DSN when set, otherwise a DSN assembled from the DB_* parts.
// For sqlite an empty string is returned so the db package picks its default file.
func (c Config) DSN() string {
	if c.DBDSN != "" {
		return c.DBDSN
	}
	if c.DBDriver != "postgres" {
		return ""
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%s", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envDuration(k string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
