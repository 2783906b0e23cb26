package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
// Use this interface instead of *slog.Logger to decouple from the concrete type.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{} // default level
	isInitialized   bool
	mutex           sync.RWMutex
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`

	// Output receives text/JSON records. Nil means os.Stderr; stdout is
	// left to the commands being run.
	Output io.Writer `toml:"-"`

	// DisableJournal skips the journald handler even when it is reachable.
	DisableJournal bool `toml:"disable_journal"`
}

// Initialize sets up the logging system.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	globalLevel := ParseLevel(config.Level)
	if globalLevel == nil {
		defaultLevel := slog.LevelInfo
		globalLevel = &defaultLevel
	}
	globalLevelVar.Set(*globalLevel)

	// Loggers handed out before Initialize keep their pointers; give them
	// the configured level and handler chain.
	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module, *globalLevel))
		logger, ok := moduleLoggers[module]
		if !ok {
			continue
		}
		*logger = *slog.New(createHandler(config, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config, globalLevelVar)))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	// Double-check in case another goroutine created it
	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	var handler slog.Handler
	if isInitialized {
		global := slog.LevelInfo
		if parsed := ParseLevel(globalConfig.Level); parsed != nil {
			global = *parsed
		}
		levelVar.Set(moduleLevel(module, global))
		handler = createHandler(globalConfig, levelVar)
	} else {
		levelVar.Set(slog.LevelInfo)
		handler = createHandler(Config{Format: "text"}, levelVar)
	}

	logger := slog.New(handler).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// moduleLevel returns the configured override for module, or global.
// Callers hold mutex.
func moduleLevel(module string, global slog.Level) slog.Level {
	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed := ParseLevel(levelStr); parsed != nil {
			return *parsed
		}
	}
	return global
}

// createHandler builds the handler chain for one logger: text or JSON to
// the configured writer, plus journald when it is available.
func createHandler(config Config, level slog.Leveler) slog.Handler {
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}

	var writerHandler slog.Handler
	if config.Format == "json" {
		writerHandler = slog.NewJSONHandler(out, opts)
	} else {
		writerHandler = slog.NewTextHandler(out, opts)
	}

	if config.DisableJournal || !IsJournalAvailable() {
		return writerHandler
	}
	return NewMultiHandler(writerHandler, NewJournalHandler(level))
}

// ParseLevel converts string level to slog.Level. It returns nil for an
// unrecognized name.
func ParseLevel(level string) *slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l := slog.LevelDebug
		return &l
	case "info":
		l := slog.LevelInfo
		return &l
	case "warn", "warning":
		l := slog.LevelWarn
		return &l
	case "error":
		l := slog.LevelError
		return &l
	default:
		return nil
	}
}
