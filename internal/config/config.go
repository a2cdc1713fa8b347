package config

import (
	"os"
	"strconv"
	"strings"
)

// DefaultJWTSecret is the fallback session-token signing secret. It is only
// acceptable for local development; the gateway warns when serving with it.
const DefaultJWTSecret = "dev-only-secret"

type Config struct {
	HTTPAddr  string
	PublicURL string

	// PassingGrade is the completion success threshold in percent.
	PassingGrade float64

	// EndpointOverride forces all sessions to one record store, ignoring the
	// launch endpoint. Empty means trust the launch parameters.
	EndpointOverride string

	// JWTSecret signs per-session gateway tokens.
	JWTSecret string

	// OutboxDriver/OutboxDSN enable the at-least-once delivery journal.
	// Empty driver keeps the default fire-and-forget transport.
	OutboxDriver string
	OutboxDSN    string

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOrigins []string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8070"
	}
	return Config{
		HTTPAddr:         addr,
		PublicURL:        os.Getenv("PUBLIC_URL"),
		PassingGrade:     envFloat("PASSING_GRADE", 50),
		EndpointOverride: os.Getenv("LRS_ENDPOINT"),
		JWTSecret:        envOr("SESSION_HMAC_SECRET", DefaultJWTSecret),
		OutboxDriver:     os.Getenv("OUTBOX_DRIVER"),
		OutboxDSN:        os.Getenv("OUTBOX_DSN"),
		AdminUser:        envOr("ADMIN_USER", "admin"),
		AdminPassHash:    os.Getenv("ADMIN_PASS_HASH"),
		CORSOrigins:      csvOr("CORS_ORIGINS", "*"),
	}
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func envFloat(k string, def float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
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
