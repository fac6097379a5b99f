package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

type Config struct {
	APIBaseURL string

	HTTPAddr        string
	ShutdownTimeout time.Duration
	// AllowedOrigins are websocket origin patterns besides the serving host.
	AllowedOrigins []string

	NoticeTTL time.Duration

	LogLevel  string
	LogFormat string
}

func FromEnv() (Config, error) {
	var c Config
	var err error

	c.APIBaseURL = strings.TrimRight(getEnv("ROSTER_API_BASE_URL", "http://localhost:8000"), "/")
	u, err := url.Parse(c.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return c, fmt.Errorf("ROSTER_API_BASE_URL %q is not an http(s) URL", c.APIBaseURL)
	}

	c.HTTPAddr = getEnv("HTTP_ADDR", ":8080")
	c.AllowedOrigins = splitList(os.Getenv("ALLOWED_ORIGINS"))

	if c.ShutdownTimeout, err = duration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return c, err
	}
	if c.NoticeTTL, err = duration("NOTICE_TTL", 5*time.Second); err != nil {
		return c, err
	}

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return c, fmt.Errorf("LOG_LEVEL %q: want debug, info, warn or error", c.LogLevel)
	}

	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", "json"))
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return c, fmt.Errorf("LOG_FORMAT %q: want json or console", c.LogFormat)
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
