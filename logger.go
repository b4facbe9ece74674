package eagerlimit

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogConfig configures the logger built by NewLogger.
type LogConfig struct {
	// Level is one of DEBUG, INFO, WARN or ERROR. Default INFO.
	Level string `mapstructure:"level" yaml:"level,omitempty" validate:"omitempty,oneof=DEBUG INFO WARN ERROR debug info warn error"`
	// Format is "text" or "json". Default "text".
	Format string `mapstructure:"format" yaml:"format,omitempty" validate:"omitempty,oneof=text json"`
}

// NewLogger returns a logger writing to stderr.
func NewLogger(cfg LogConfig) *slog.Logger {
	return NewLoggerTo(os.Stderr, cfg)
}

// NewLoggerTo returns a logger writing to w. Unknown levels fall back to
// INFO; configurations are validated before they get here.
func NewLoggerTo(w io.Writer, cfg LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
