// Package logging builds the zap loggers used by the photon command.
package logging

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level is a zap level name such as "debug" or "warn".
type Level string

// Style selects the output encoding.
type Style string

const (
	StyleTerminal Style = "terminal"
	StyleJSON     Style = "json"
	StyleLogfmt   Style = "logfmt"
	StyleNoop     Style = "noop"
)

// Config describes a logger. The zero value logs info and above to stderr
// in terminal style.
type Config struct {
	Level Level
	Style Style
	// Output defaults to os.Stderr.
	Output io.Writer
}

// NewLogger builds a logger from cfg. Unknown levels fall back to info.
func NewLogger(cfg *Config) *zap.Logger {
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Style == StyleNoop {
		return zap.NewNop()
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	core := zapcore.NewCore(encoder(cfg.Style), zapcore.Lock(zapcore.AddSync(out)), level)
	return zap.New(core, zap.AddCaller())
}

// ParseLevel maps a level name onto a zap level. An empty name is info.
func ParseLevel(l Level) (zapcore.Level, error) {
	if l == "" {
		return zapcore.InfoLevel, nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(l)); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("logging: unknown level %q", l)
	}
	return level, nil
}

// ParseStyle validates a style name. An empty name is terminal.
func ParseStyle(s string) (Style, error) {
	switch st := Style(s); st {
	case "":
		return StyleTerminal, nil
	case StyleTerminal, StyleJSON, StyleLogfmt, StyleNoop:
		return st, nil
	default:
		return "", fmt.Errorf("logging: unknown style %q", s)
	}
}

func encoder(style Style) zapcore.Encoder {
	switch style {
	case StyleJSON:
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		return zapcore.NewJSONEncoder(ec)
	case StyleLogfmt:
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.RFC3339TimeEncoder
		ec.ConsoleSeparator = " "
		return zapcore.NewConsoleEncoder(ec)
	default:
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ec.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		return zapcore.NewConsoleEncoder(ec)
	}
}
