package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/text/language"

	"github.com/rendis/stencil/internal/engine"
	"github.com/rendis/stencil/internal/logging"
)

// Config holds the CLI configuration.
// Priority: flags > env vars > settings.json > defaults.
type Config struct {
	Locale   string `json:"locale"`
	Timezone string `json:"timezone"`
	Strict   bool   `json:"strict"`
	LogLevel string `json:"log_level"`
}

func defaultConfig() Config {
	return Config{
		Locale:   "en",
		Timezone: "UTC",
		LogLevel: "info",
	}
}

func stencilDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stencil"
	}
	return filepath.Join(home, ".stencil")
}

func settingsPath() string {
	return filepath.Join(stencilDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("STENCIL_LOCALE"); v != "" {
		cfg.Locale = v
	}
	if v := os.Getenv("STENCIL_TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv("STENCIL_STRICT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Strict = b
		}
	}
	if v := os.Getenv("STENCIL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	return cfg
}

// bindFlags registers the layer 4 flags on fs. The current values of cfg are
// the flag defaults, so unset flags keep the lower layers.
func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Locale, "locale", c.Locale, "BCP 47 locale tag")
	fs.StringVar(&c.Timezone, "timezone", c.Timezone, "IANA time zone")
	fs.BoolVar(&c.Strict, "strict", c.Strict, "fail on undefined variables")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level: debug, info, warn, error")
}

// engineConfig resolves the textual settings into engine defaults.
func (c Config) engineConfig(logger *slog.Logger) (engine.Config, error) {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return engine.Config{}, fmt.Errorf("invalid locale %q: %w", c.Locale, err)
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return engine.Config{}, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return engine.Config{
		Locale:          tag,
		Location:        loc,
		StrictVariables: c.Strict,
		Logger:          logger,
	}, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logging.ParseLevel(level)}))
}
