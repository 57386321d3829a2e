package logx

import (
	"io"
	"os"
	"strings"
	"time"
)

// Format es el formato de salida
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config agrupa la configuración del logger
type Config struct {
	Level        Level
	Format       Format
	EnableColors bool
	EnableCaller bool
	TimeFormat   string
	Output       io.Writer

	// Service se agrega a cada línea JSON si no está vacío
	Service string
}

// DefaultConfig devuelve la configuración por defecto (console, info, stdout)
func DefaultConfig() *Config {
	return &Config{
		Level:        LevelInfo,
		Format:       FormatConsole,
		EnableColors: true,
		TimeFormat:   time.RFC3339,
		Output:       os.Stdout,
	}
}

// LoadFromEnv lee LOG_LEVEL, LOG_FORMAT, LOG_COLOR, LOG_CALLER,
// LOG_TIME_FORMAT y LOG_SERVICE.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v)
	}
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		cfg.Format = FormatJSON
	}
	if v := os.Getenv("LOG_COLOR"); v != "" {
		cfg.EnableColors = envTrue(v)
	}
	if v := os.Getenv("LOG_CALLER"); v != "" {
		cfg.EnableCaller = envTrue(v)
	}
	switch strings.ToUpper(os.Getenv("LOG_TIME_FORMAT")) {
	case "":
	case "RFC3339NANO":
		cfg.TimeFormat = time.RFC3339Nano
	case "UNIX":
		cfg.TimeFormat = "unix"
	case "UNIXMILLI":
		cfg.TimeFormat = "unixmilli"
	default:
		cfg.TimeFormat = os.Getenv("LOG_TIME_FORMAT")
	}
	cfg.Service = os.Getenv("LOG_SERVICE")

	return cfg
}

func envTrue(v string) bool {
	return strings.EqualFold(v, "true") || v == "1"
}
