// Package logging wraps zap with the component-scoped logger used across the
// service.
package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/tm-acme-shop/acme-shop-taproom-admin/internal/config"
)

// Fields are structured key/value pairs attached to a log entry.
type Fields map[string]interface{}

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Setup builds the process-wide zap core. It is safe to call more than once;
// loggers created afterwards pick up the new core.
func Setup(cfg config.LoggingConfig) error {
	level := zap.NewAtomicLevel()
	if err := level.UnmarshalText([]byte(strings.ToLower(cfg.Level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "timestamp"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "console" {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	sinks := []zapcore.WriteSyncer{zapcore.AddSync(os.Stdout)}
	if cfg.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     14,
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), level)

	mu.Lock()
	base = zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	mu.Unlock()
	return nil
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// LoggerV2 is a structured logger scoped to one component.
type LoggerV2 struct {
	component string
	zl        *zap.Logger
}

// NewLoggerV2 returns a logger tagged with the given component name.
func NewLoggerV2(component string) *LoggerV2 {
	return &LoggerV2{
		component: component,
		zl:        current().With(zap.String("component", component)),
	}
}

// With returns a child logger that always carries fields.
func (l *LoggerV2) With(fields Fields) *LoggerV2 {
	return &LoggerV2{
		component: l.component,
		zl:        l.zl.With(toZap(fields)...),
	}
}

func (l *LoggerV2) Debug(msg string, fields ...Fields) { l.zl.Debug(msg, merge(fields)...) }
func (l *LoggerV2) Info(msg string, fields ...Fields)  { l.zl.Info(msg, merge(fields)...) }
func (l *LoggerV2) Warn(msg string, fields ...Fields)  { l.zl.Warn(msg, merge(fields)...) }
func (l *LoggerV2) Error(msg string, fields ...Fields) { l.zl.Error(msg, merge(fields)...) }
func (l *LoggerV2) Fatal(msg string, fields ...Fields) { l.zl.Fatal(msg, merge(fields)...) }

// Info logs at info level on the process logger.
func Info(msg string, fields ...Fields) {
	current().Info(msg, merge(fields)...)
}

// Infof logs a formatted message on the process logger.
func Infof(format string, args ...interface{}) {
	current().Sugar().Infof(format, args...)
}

func merge(fields []Fields) []zap.Field {
	switch len(fields) {
	case 0:
		return nil
	case 1:
		return toZap(fields[0])
	}
	all := Fields{}
	for _, f := range fields {
		for k, v := range f {
			all[k] = v
		}
	}
	return toZap(all)
}

func toZap(fields Fields) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys))
	for _, k := range keys {
		if err, ok := fields[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, fields[k]))
	}
	return out
}
