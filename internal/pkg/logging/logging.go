// Package logging builds the zap loggers used by the shell and by connections.
package logging

import (
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = zapcore.WarnLevel

// DefaultConfig is a JSON production config writing to stderr with ISO8601
// timestamps and upper case levels under "severity".
func DefaultConfig() zap.Config {
	logConf := zap.NewProductionConfig()
	logConf.Level = zap.NewAtomicLevelAt(DefaultLevel)
	logConf.Sampling = nil
	logConf.OutputPaths = []string{"stderr"}
	logConf.EncoderConfig.TimeKey = "time"
	logConf.EncoderConfig.LevelKey = "severity"
	logConf.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logConf.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	return logConf
}

// New builds a logger from DefaultConfig at the given level. An empty level
// means DefaultLevel.
func New(level string) (*zap.Logger, error) {
	logConf := DefaultConfig()
	if strings.TrimSpace(level) != "" {
		l, err := ParseLevel(level)
		if err != nil {
			return nil, err
		}
		logConf.Level = zap.NewAtomicLevelAt(l)
	}
	return logConf.Build()
}

// ParseLevel accepts zap level names as well as their numeric values (-1 debug .. 5 fatal).
func ParseLevel(l string) (zapcore.Level, error) {
	l = strings.ToLower(strings.TrimSpace(l))
	switch l {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	case "dpanic":
		return zapcore.DPanicLevel, nil
	case "panic":
		return zapcore.PanicLevel, nil
	case "fatal":
		return zapcore.FatalLevel, nil
	default:
		level, err := strconv.ParseInt(l, 10, 8)
		if err != nil {
			return 0, fmt.Errorf("unknown log level %q", l)
		}
		if zapcore.Level(level) < zapcore.DebugLevel || zapcore.Level(level) > zapcore.FatalLevel {
			return 0, fmt.Errorf("log level %d out of range", level)
		}
		return zapcore.Level(level), nil
	}
}
