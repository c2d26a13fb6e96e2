// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ServerConfig holds the HTTP server and runtime settings. These are
// env-only; credentials go through the layered resolver instead.
type ServerConfig struct {
	ListenAddr         string        // HTTP listen address (default ":8080")
	LogLevel           string        // log level: debug, info, warn, error (default "info")
	RateLimitRPS       float64       // sustained requests per second (default 100)
	RateLimitBurst     int           // burst capacity (default 200)
	CORSAllowedOrigins []string      // allowed origins for CORS (default: ["*"])
	WarehouseCacheTTL  time.Duration // SHOW WAREHOUSES result cache (default 5m)
	FallbackMinutes    int           // default live-view fallback window (default 60)

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *ServerConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// LoadServerFromEnv loads server settings from environment variables and
// applies defaults.
func LoadServerFromEnv() (*ServerConfig, error) {
	cfg := &ServerConfig{
		ListenAddr: os.Getenv("LISTEN_ADDR"),
		LogLevel:   os.Getenv("LOG_LEVEL"),
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}
	if v := os.Getenv("WAREHOUSE_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.WarehouseCacheTTL = d
		}
	}
	if v := os.Getenv("FALLBACK_MINUTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !ValidFallbackMinutes(n) {
			return nil, fmt.Errorf("FALLBACK_MINUTES must be one of 15, 30, 60, 120; got %q", v)
		}
		cfg.FallbackMinutes = n
	}

	// Defaults
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}
	if cfg.WarehouseCacheTTL == 0 {
		cfg.WarehouseCacheTTL = 5 * time.Minute
	}
	if cfg.FallbackMinutes == 0 {
		cfg.FallbackMinutes = 60
	}

	return cfg, nil
}

// ValidFallbackMinutes reports whether n is an allowed live-view fallback
// window length.
func ValidFallbackMinutes(n int) bool {
	switch n {
	case 15, 30, 60, 120:
		return true
	}
	return false
}

// LoadDotEnv reads a .env file and sets any variables not already in the
// environment. Lines must be in KEY=VALUE format. Comments (#) and blank
// lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
