package logger

import (
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger wraps zap's SugaredLogger.
type Logger struct {
	*zap.SugaredLogger

	mu      sync.Mutex
	file    *lumberjack.Logger
	rotated time.Time
}

// defaultZapLevel defines the fallback log level when an unknown level string is provided.
const defaultZapLevel = zapcore.InfoLevel

const (
	defaultMaxSizeMB  = 10
	defaultMaxBackups = 5
)

// toZapLevel converts a textual level to zapcore.Level. The second result is false
// for the silent level, which disables output entirely.
func toZapLevel(levelStr string) (zapcore.Level, bool) {
	switch levelStr {
	case SilentLevel:
		return zapcore.FatalLevel, false
	case DebugLevel, VerboseLevel:
		return zapcore.DebugLevel, true
	case InfoLevel, NormalLevel:
		return zapcore.InfoLevel, true
	case WarnLevel:
		return zapcore.WarnLevel, true
	case ErrorLevel, QuietLevel:
		return zapcore.ErrorLevel, true
	default:
		return defaultZapLevel, true
	}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.RFC3339TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg
}

// newConsoleCore builds a zapcore.Core with a console encoder targeting stdout.
func newConsoleCore(level zapcore.Level) zapcore.Core {
	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	ws := zapcore.Lock(os.Stdout) // thread-safe writer
	return zapcore.NewCore(encoder, zapcore.AddSync(ws), zap.NewAtomicLevelAt(level))
}

func newFileCore(w *lumberjack.Logger, level zapcore.Level) zapcore.Core {
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), zapcore.AddSync(w), zap.NewAtomicLevelAt(level))
}

// newZapLogger constructs a sugared zap logger from opts.
func newZapLogger(opts Options) *Logger {
	level, enabled := toZapLevel(opts.Level)
	if !enabled {
		return Nop()
	}

	l := &Logger{rotated: time.Now()}
	core := newConsoleCore(level)
	if opts.File != "" {
		l.file = &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, defaultMaxSizeMB),
			MaxBackups: orDefault(opts.MaxBackups, defaultMaxBackups),
			LocalTime:  true,
		}
		core = zapcore.NewTee(core, newFileCore(l.file, level))
	}
	l.SugaredLogger = zap.New(core).Sugar()
	return l
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar()}
}

// RotateIfDue rotates the log file once per calendar day. It reports whether a
// rotation happened.
func (l *Logger) RotateIfDue(now time.Time) bool {
	if l == nil || l.file == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	y1, m1, d1 := l.rotated.Date()
	y2, m2, d2 := now.Date()
	if y1 == y2 && m1 == m2 && d1 == d2 {
		return false
	}
	l.rotated = now
	if err := l.file.Rotate(); err != nil {
		l.Errorw("log_rotate_failed", "file", l.file.Filename, "err", err)
		return false
	}
	return true
}

// Close flushes buffered entries and releases the log file.
func (l *Logger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}
