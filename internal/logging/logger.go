package logging

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// EnvLevel overrides the configured global level when set, mirroring
// the SDK's EVK_LOG_LEVEL for the daemon side.
const EnvLevel = "CAMNODE_LOG_LEVEL"

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	mutex           sync.RWMutex
	logBuffer       *RingBuffer
	logCallback     LogCallback
	logFile         *os.File
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

// Initialize sets up the logging system. Loggers handed out before
// Initialize lack the ring buffer, so every known module handler is
// rebuilt here.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	if env := os.Getenv(EnvLevel); env != "" {
		config.Level = env
	}

	globalConfig = config
	isInitialized = true

	if logBuffer == nil {
		logBuffer = NewRingBuffer(defaultBufferSize)
	}

	globalLevel := slog.LevelInfo
	if parsed := parseLevel(config.Level); parsed != nil {
		globalLevel = *parsed
	}
	globalLevelVar.Set(globalLevel)

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(config, module, globalLevel))
	}
	rebuildHandlersLocked()

	slog.SetDefault(slog.New(createHandler(config.Format, globalLevelVar)))
}

// moduleLevel resolves the effective level for one module.
func moduleLevel(config Config, module string, global slog.Level) slog.Level {
	if levelStr, ok := config.Modules[module]; ok {
		if parsed := parseLevel(levelStr); parsed != nil {
			return *parsed
		}
	}
	return global
}

// rebuildHandlersLocked recreates every module logger against the
// current format, file sink and buffer. Callers hold mutex.
func rebuildHandlersLocked() {
	for module, levelVar := range moduleLevelVars {
		handler := createHandler(globalConfig.Format, levelVar)
		moduleLoggers[module] = slog.New(handler).With("module", module)
	}
}

// GetLogger returns a logger for the specified module, creating it if
// needed. The module's level can be changed later with SetModuleLevel
// without invalidating the returned logger.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Another goroutine may have raced us here.
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	level := slog.LevelInfo
	format := "text"
	if isInitialized {
		if parsed := parseLevel(globalConfig.Level); parsed != nil {
			level = *parsed
		}
		level = moduleLevel(globalConfig, module, level)
		format = globalConfig.Format
	}
	levelVar.Set(level)

	logger := slog.New(createHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetModuleLevel changes one module's level at runtime. Loggers already
// handed out pick up the change through their LevelVar.
func SetModuleLevel(module, level string) error {
	parsed := parseLevel(level)
	if parsed == nil {
		return fmt.Errorf("unknown log level %q", level)
	}

	mutex.Lock()
	defer mutex.Unlock()

	levelVar, exists := moduleLevelVars[module]
	if !exists {
		levelVar = &slog.LevelVar{}
		moduleLevelVars[module] = levelVar
		format := "text"
		if isInitialized {
			format = globalConfig.Format
		}
		moduleLoggers[module] = slog.New(createHandler(format, levelVar)).With("module", module)
	}
	levelVar.Set(*parsed)
	if globalConfig.Modules == nil {
		globalConfig.Modules = make(map[string]string)
	}
	globalConfig.Modules[module] = level
	return nil
}

// GetBuffer returns the log ring buffer for reading historical logs.
func GetBuffer() *RingBuffer {
	mutex.RLock()
	defer mutex.RUnlock()
	return logBuffer
}

// SetLogCallback sets a callback invoked for each new log entry. Used
// to publish log events to SSE clients without an import cycle.
func SetLogCallback(callback LogCallback) {
	mutex.Lock()
	defer mutex.Unlock()
	logCallback = callback
}

func currentCallback() LogCallback {
	mutex.RLock()
	defer mutex.RUnlock()
	return logCallback
}

// AddLogFile opens path for appending and mirrors all subsequent log
// output into it. A previously added file is closed first.
func AddLogFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mutex.Lock()
	defer mutex.Unlock()
	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = f
	rebuildHandlersLocked()
	return nil
}

// CloseLogFile stops mirroring to the log file and closes it.
func CloseLogFile() {
	mutex.Lock()
	defer mutex.Unlock()
	if logFile == nil {
		return
	}
	_ = logFile.Close()
	logFile = nil
	rebuildHandlersLocked()
}

// createHandler builds the handler chain for one module: stdout,
// journal when running under systemd, the optional file sink and the
// ring buffer. Level must be a *slog.LevelVar for runtime changes to
// take effect. Callers hold mutex or run before any logger exists.
func createHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdoutHandler slog.Handler
	if format == "json" {
		stdoutHandler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdoutHandler = slog.NewTextHandler(os.Stdout, opts)
	}

	var handlers []slog.Handler
	if isStdoutAvailable() {
		handlers = append(handlers, stdoutHandler)
	}
	if IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}
	if logFile != nil {
		handlers = append(handlers, slog.NewTextHandler(logFile, opts))
	}

	// The buffer handler resolves the buffer at write time, so it is
	// safe to add before Initialize has run.
	handlers = append(handlers, NewBufferHandler(level))

	switch len(handlers) {
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe,
// socket, or file rather than /dev/null.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts a level name to slog.Level. Trace maps below
// debug the way the SDK's level ladder does.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(level) {
	case "trace":
		l = slog.LevelDebug - 4
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
