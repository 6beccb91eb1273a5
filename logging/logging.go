// Package logging builds the zap-backed slog loggers used by the container
// and the AOP engine.
package logging

import (
	"log/slog"
	"strings"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// NewZapLogger builds a colored console logger in development and zap's
// production JSON logger otherwise. Both honour the configured level.
func NewZapLogger(cfg Config) (*zap.Logger, error) {
	if cfg.Development {
		zapConfig := zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.Level = zap.NewAtomicLevelAt(ParseZapLevel(cfg.Level, zapcore.DebugLevel))
		return zapConfig.Build()
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(ParseZapLevel(cfg.Level, zapcore.InfoLevel))
	return zapConfig.Build()
}

// NewSlog returns a slog.Logger writing through zapLogger.
func NewSlog(level string, zapLogger *zap.Logger) *slog.Logger {
	handler := slogzap.Option{Level: ParseSlogLevel(level), Logger: zapLogger}.NewZapHandler()
	return slog.New(handler)
}

// New builds both loggers from cfg.
func New(cfg Config) (*slog.Logger, *zap.Logger, error) {
	zapLogger, err := NewZapLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewSlog(cfg.Level, zapLogger), zapLogger, nil
}

// Nop discards everything.
func Nop() *slog.Logger {
	return NewSlog("error", zap.NewNop())
}

func ParseZapLevel(level string, fallback zapcore.Level) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return fallback
	}
}

func ParseSlogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
