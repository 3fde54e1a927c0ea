package evk

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Extended log levels beyond the slog builtins, matching the device
// SDK's trace..critical..off ladder.
const (
	LevelTrace    = slog.LevelDebug - 4
	LevelCritical = slog.LevelError + 4
	LevelOff      = slog.LevelError + 8
)

// LogLevelEnv is read once to pick the default SDK log level when the
// caller does not supply a logger.
const LogLevelEnv = "EVK_LOG_LEVEL"

var (
	defaultLevel slog.LevelVar
	loggerOnce   sync.Once
	fallbackLog  *slog.Logger
)

// ParseLogLevel maps the SDK level names onto slog levels. Unknown
// names fall back to info.
func ParseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "err", "error":
		return slog.LevelError
	case "critical":
		return LevelCritical
	case "off":
		return LevelOff
	default:
		return slog.LevelInfo
	}
}

// SetLogLevel adjusts the level of the package's fallback logger at
// runtime. Cameras built with their own logger are unaffected.
func SetLogLevel(level slog.Level) {
	defaultLevel.Set(level)
}

// defaultLogger is used when OpenParam.Logger is nil: console output
// with the level taken from LogLevelEnv, resolved once per process.
func defaultLogger() *slog.Logger {
	loggerOnce.Do(func() {
		defaultLevel.Set(ParseLogLevel(os.Getenv(LogLevelEnv)))
		fallbackLog = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: &defaultLevel,
		}))
	})
	return fallbackLog
}
