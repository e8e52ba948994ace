package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// До Init пишем в никуда, чтобы пакеты можно было тестировать без настройки логгера.
var InfoLogger, FatalLogger = zap.NewNop(), zap.NewNop()

var (
	serviceName = "default"
)

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init собирает zap-логгер. debug включает консольный вывод, остальное: JSON.
func Init(level string) error {
	lvl := zapcore.InfoLevel
	if err := lvl.Set(strings.ToLower(level)); err != nil && level != "" {
		return fmt.Errorf("logger: bad level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	InfoLogger = l
	FatalLogger = l.WithOptions(zap.AddStacktrace(zapcore.FatalLevel))
	return nil
}

// L: логгер с полем service для структурных записей.
func L() *zap.Logger {
	return InfoLogger.WithOptions(zap.AddCallerSkip(-1)).With(zap.String("service", serviceName))
}

func Sync() {
	_ = InfoLogger.Sync()
}

func with(l *zap.Logger) *zap.Logger {
	return l.With(zap.String("service", serviceName))
}

func Debug(format string, args ...interface{}) {
	with(InfoLogger).Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	with(InfoLogger).Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	with(InfoLogger).Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	with(InfoLogger).Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	with(FatalLogger).Fatal(fmt.Sprintf(format, args...))
}
