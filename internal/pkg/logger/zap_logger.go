package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

type ILogger interface {
	Debug(module, message string, details map[string]interface{})
	Info(module, message string, details map[string]interface{})
	Warn(module, message string, details map[string]interface{})
	Error(module, message string, details map[string]interface{})
	Sync() error
}

// Detail keys promoted to top-level fields so a session can be traced
// across modules with a single filter.
var promotedKeys = []string{"session_id", "user_id"}

type ZapLogger struct {
	logger   *zap.Logger
	filePath string
}

var _ ILogger = (*ZapLogger)(nil)

func rotatedFile(path string) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	})
}

func jsonEncoder() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "timestamp"
	cfg.MessageKey = "message"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(cfg)
}

// NewZapLogger writes JSON to a rotated file and mirrors to stdout,
// human-readable outside production.
func NewZapLogger(logFilePath string, isProd bool) *ZapLogger {
	console := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	if isProd {
		console = jsonEncoder()
	}

	core := zapcore.NewTee(
		zapcore.NewCore(jsonEncoder(), rotatedFile(logFilePath), zap.InfoLevel),
		zapcore.NewCore(console, zapcore.Lock(os.Stdout), zap.DebugLevel),
	)
	return newFromCore(core, logFilePath)
}

// NewIsolatedLogger creates a logger that only writes to the file, not console.
// Used for the websocket hub and the lock audit trail.
func NewIsolatedLogger(logFilePath string) *ZapLogger {
	core := zapcore.NewCore(jsonEncoder(), rotatedFile(logFilePath), zap.InfoLevel)
	return newFromCore(core, logFilePath)
}

// NewNopLogger discards everything.
func NewNopLogger() *ZapLogger {
	return &ZapLogger{logger: zap.NewNop()}
}

func newFromCore(core zapcore.Core, path string) *ZapLogger {
	// skip 1 so the caller is the code using the wrapper
	return &ZapLogger{
		logger:   zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1)),
		filePath: path,
	}
}

func fields(module string, details map[string]interface{}) []zap.Field {
	out := make([]zap.Field, 0, 2+len(promotedKeys))
	out = append(out, zap.String("module", module))
	for _, key := range promotedKeys {
		if v, ok := details[key]; ok {
			out = append(out, zap.Any(key, v))
		}
	}
	if details == nil {
		details = map[string]interface{}{}
	}
	return append(out, zap.Any("details", details))
}

func (l *ZapLogger) Debug(module, message string, details map[string]interface{}) {
	l.logger.Debug(message, fields(module, details)...)
}

func (l *ZapLogger) Info(module, message string, details map[string]interface{}) {
	l.logger.Info(message, fields(module, details)...)
}

func (l *ZapLogger) Warn(module, message string, details map[string]interface{}) {
	l.logger.Warn(message, fields(module, details)...)
}

func (l *ZapLogger) Error(module, message string, details map[string]interface{}) {
	l.logger.Error(message, fields(module, details)...)
}

func (l *ZapLogger) Sync() error {
	return l.logger.Sync()
}

// FilePath returns the rotated log file this logger writes to ("" for nop loggers).
func (l *ZapLogger) FilePath() string {
	return l.filePath
}
