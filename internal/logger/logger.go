package logger

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Options configures the process-wide logger.
type Options struct {
	Level LogLevel
	// File enables rotated file output instead of stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	Console    bool
}

var (
	mu    sync.RWMutex
	base  = zap.NewNop()
	level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Init builds the shared zap core. Loggers created before Init write nowhere.
func Init(opts Options) {
	level.SetLevel(parseLevel(opts.Level))

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var enc zapcore.Encoder
	if opts.Console {
		encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	} else {
		enc = zapcore.NewJSONEncoder(encCfg)
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stdout)
	if opts.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			Compress:   true,
		})
	}

	mu.Lock()
	base = zap.New(zapcore.NewCore(enc, sink, level), zap.AddCaller(), zap.AddCallerSkip(1))
	mu.Unlock()
}

// Sync flushes buffered entries.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	_ = base.Sync()
}

func parseLevel(l LogLevel) zapcore.Level {
	switch LogLevel(strings.ToLower(string(l))) {
	case LogLevelDebug:
		return zapcore.DebugLevel
	case LogLevelWarn:
		return zapcore.WarnLevel
	case LogLevelError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type Log struct {
	z *zap.Logger
}

func New() *Log {
	mu.RLock()
	defer mu.RUnlock()
	return &Log{z: base}
}

// Named returns a child logger tagged with a component name.
func (l *Log) Named(name string) *Log {
	return &Log{z: l.z.Named(name)}
}

func (l *Log) With(fields ...zap.Field) *Log {
	return &Log{z: l.z.With(fields...)}
}

func (l *Log) WithError(err error) *Log {
	return &Log{z: l.z.With(zap.Error(err))}
}

func (l *Log) SetLevel(lvl LogLevel) {
	level.SetLevel(parseLevel(lvl))
}

func (l *Log) Debug(msg string, fields ...zap.Field) {
	l.z.Debug(msg, fields...)
}

func (l *Log) Info(msg string, fields ...zap.Field) {
	l.z.Info(msg, fields...)
}

func (l *Log) Warn(msg string, fields ...zap.Field) {
	l.z.Warn(msg, fields...)
}

func (l *Log) Error(msg string, fields ...zap.Field) {
	l.z.Error(msg, fields...)
}
