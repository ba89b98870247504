package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tphakala/via2coco/internal/errors"
)

const logFilePermissions = 0o644

// CentralLogger owns the console and file outputs of the process and hands
// out module loggers writing to them.
type CentralLogger struct {
	config   *LoggingConfig
	timezone *time.Location
	console  io.Writer

	mu           sync.RWMutex
	handler      slog.Handler
	file         *os.File
	moduleLevels map[string]slog.Level
}

// CentralOption customizes a CentralLogger.
type CentralOption func(*CentralLogger)

// WithConsoleWriter sends console output to w instead of os.Stdout.
func WithConsoleWriter(w io.Writer) CentralOption {
	return func(cl *CentralLogger) {
		cl.console = w
	}
}

// NewCentralLogger opens the outputs described by cfg. The log file and its
// directory are created when missing.
func NewCentralLogger(cfg *LoggingConfig, opts ...CentralOption) (*CentralLogger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging config cannot be nil")
	}
	applyConfigDefaults(cfg)

	tz, err := loadTimezone(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	cl := &CentralLogger{
		config:       cfg,
		timezone:     tz,
		console:      os.Stdout,
		moduleLevels: make(map[string]slog.Level, len(cfg.ModuleLevels)),
	}
	for _, opt := range opts {
		opt(cl)
	}
	for module, level := range cfg.ModuleLevels {
		cl.moduleLevels[module] = parseLogLevel(level)
	}

	if err := cl.openOutputs(); err != nil {
		return nil, fmt.Errorf("failed to create base handler: %w", err)
	}
	return cl, nil
}

func loadTimezone(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	tz, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %s: %w", name, err)
	}
	return tz, nil
}

func (cl *CentralLogger) openOutputs() error {
	var handlers []slog.Handler

	if console := cl.config.Console; console != nil && console.Enabled {
		handlers = append(handlers, newTextHandler(cl.console, parseLogLevel(console.Level)))
	}

	if out := cl.config.FileOutput; out != nil && out.Enabled {
		f, err := openLogFile(out.Path)
		if err != nil {
			return err
		}
		cl.file = f
		handlers = append(handlers, newJSONHandler(f, parseLogLevel(out.Level), cl.timezone))
	}

	switch len(handlers) {
	case 0:
		cl.handler = discardHandler()
	case 1:
		cl.handler = handlers[0]
	default:
		cl.handler = newMultiWriterHandler(handlers...)
	}
	return nil
}

func openLogFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).
				Component("logger").
				Category(errors.CategoryFileIO).
				FileContext(path).
				Build()
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermissions)
	if err != nil {
		return nil, errors.FileError(fmt.Errorf("failed to open log file: %w", err), path)
	}
	return f, nil
}

// Module returns a logger for name. Its level comes from the module level
// overrides, or else from the most verbose enabled output. An empty name
// gives a logger without a module attribute.
func (cl *CentralLogger) Module(name string) Logger {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	level, ok := cl.moduleLevels[name]
	if !ok {
		level = cl.lowestOutputLevel()
	}
	return &moduleLogger{
		module: name,
		logger: slog.New(cl.handler),
		level:  level,
	}
}

func (cl *CentralLogger) lowestOutputLevel() slog.Level {
	level := parseLogLevel(cl.config.DefaultLevel)
	if c := cl.config.Console; c != nil && c.Enabled {
		level = min(level, parseLogLevel(c.Level))
	}
	if f := cl.config.FileOutput; f != nil && f.Enabled {
		level = min(level, parseLogLevel(f.Level))
	}
	return level
}

// Flush syncs the log file to disk.
func (cl *CentralLogger) Flush() error {
	if cl == nil {
		return nil
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()

	if cl.file == nil {
		return nil
	}
	if err := cl.file.Sync(); err != nil {
		return fmt.Errorf("failed to flush log file: %w", err)
	}
	return nil
}

// Close closes the log file. Loggers handed out earlier keep writing to
// their handler; new ones discard.
func (cl *CentralLogger) Close() error {
	if cl == nil {
		return nil
	}

	cl.mu.Lock()
	defer cl.mu.Unlock()

	cl.handler = discardHandler()
	if cl.file == nil {
		return nil
	}
	err := cl.file.Close()
	cl.file = nil
	return err
}

func discardHandler() slog.Handler {
	return slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError})
}

// newTextHandler drops timestamps, the terminal or journal adds its own.
func newTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		},
	})
}

// newJSONHandler writes timestamps in tz.
func newJSONHandler(w io.Writer, level slog.Level, tz *time.Location) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey && tz != nil {
				return slog.Time(slog.TimeKey, a.Value.Time().In(tz))
			}
			return a
		},
	})
}

// parseLogLevel maps a level name to slog, unknown names to info.
func parseLogLevel(level string) slog.Level {
	switch LogLevel(level) {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewSlogLogger returns a JSON logger writing to w.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) Logger {
	slogLevel := parseLogLevel(string(level))
	return &moduleLogger{
		logger: slog.New(newJSONHandler(w, slogLevel, tz)),
		level:  slogLevel,
	}
}

// NewDiscard returns a logger that drops everything.
func NewDiscard() Logger {
	return NewSlogLogger(io.Discard, LogLevelError, nil)
}
