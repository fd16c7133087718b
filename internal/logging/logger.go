// Package logging provides categorized debug logging for fitcoach.
// Loggers are cheap to obtain per category; output goes through a shared
// zap core and is silent below warn level unless debug mode is on.
package logging

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem
type Category string

const (
	CategoryBoot   Category = "boot"   // Startup, wiring
	CategoryStore  Category = "store"  // Chat session store operations
	CategorySearch Category = "search" // Search index build/query
	CategoryConfig Category = "config" // Chat config load/update
	CategoryCache  Category = "cache"  // Response cache
)

// Logger wraps a zap sugared logger bound to a category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu        sync.RWMutex
	base      *zap.Logger
	loggers   = make(map[Category]*Logger)
	debugMode bool
)

func init() {
	base = zap.NewNop()
}

// Initialize builds the shared zap logger. Safe to call more than once;
// the last call wins. With debug false, only warn and error are emitted.
func Initialize(debug bool) error {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	cfg.DisableStacktrace = true
	// Every path to zap is exactly one wrapper deep: the Logger methods,
	// and the package helpers logging through the sugar directly.
	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	base = logger
	debugMode = debug
	loggers = make(map[Category]*Logger)
	return nil
}

// IsDebugMode reports whether debug logging is enabled.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return debugMode
}

// Get returns the logger for a category, creating it on first use.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}
	l := &Logger{
		category: category,
		sugar:    base.Sugar().With("cat", string(category)),
	}
	loggers[category] = l
	return l
}

// Sync flushes buffered log entries. Call before process exit.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message.
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Timer measures the duration of an operation and logs it on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop logs the elapsed time at debug level.
func (t *Timer) Stop() {
	Get(t.category).sugar.Debugf("%s completed in %s", t.op, time.Since(t.start))
}

// Convenience helpers for hot paths. They log through the sugared logger
// directly so caller annotations point at the helper's call site.

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).sugar.Infof(format, args...)
}

func Store(format string, args ...interface{}) {
	Get(CategoryStore).sugar.Infof(format, args...)
}

func StoreDebug(format string, args ...interface{}) {
	Get(CategoryStore).sugar.Debugf(format, args...)
}

func SearchDebug(format string, args ...interface{}) {
	Get(CategorySearch).sugar.Debugf(format, args...)
}

func ConfigDebug(format string, args ...interface{}) {
	Get(CategoryConfig).sugar.Debugf(format, args...)
}

func CacheDebug(format string, args ...interface{}) {
	Get(CategoryCache).sugar.Debugf(format, args...)
}
