package logx

import (
	"context"
	"fmt"
	"io"
)

// defaultLogger es el logger global, configurado desde el entorno
var defaultLogger = NewLogger(LoadFromEnv())

func SetDefaultLogger(logger *Logger) { defaultLogger = logger }
func GetDefaultLogger() *Logger       { return defaultLogger }
func SetLevel(level Level)            { defaultLogger.SetLevel(level) }
func SetOutput(w io.Writer)           { defaultLogger.SetOutput(w) }

func Trace(msg string) { defaultLogger.log(LevelTrace, msg, nil, nil) }
func Debug(msg string) { defaultLogger.log(LevelDebug, msg, nil, nil) }
func Info(msg string)  { defaultLogger.log(LevelInfo, msg, nil, nil) }
func Warn(msg string)  { defaultLogger.log(LevelWarn, msg, nil, nil) }
func Error(msg string) { defaultLogger.log(LevelError, msg, nil, nil) }

func Fatal(msg string) {
	defaultLogger.log(LevelFatal, msg, nil, nil)
	defaultLogger.exit(1)
}

func Debugf(format string, args ...interface{}) {
	defaultLogger.log(LevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

func Infof(format string, args ...interface{}) {
	defaultLogger.log(LevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

func Warnf(format string, args ...interface{}) {
	defaultLogger.log(LevelWarn, fmt.Sprintf(format, args...), nil, nil)
}

func Errorf(format string, args ...interface{}) {
	defaultLogger.log(LevelError, fmt.Sprintf(format, args...), nil, nil)
}

func Fatalf(format string, args ...interface{}) {
	defaultLogger.log(LevelFatal, fmt.Sprintf(format, args...), nil, nil)
	defaultLogger.exit(1)
}

// ============================================================================
// Structured Logging
// ============================================================================

func WithFields(fields Fields) *Entry                { return defaultLogger.WithFields(fields) }
func WithField(key string, value interface{}) *Entry { return defaultLogger.WithField(key, value) }
func WithError(err error) *Entry                     { return defaultLogger.WithError(err) }

func WithContext(ctx context.Context) *Entry {
	return newEntry(defaultLogger).WithContext(ctx)
}
