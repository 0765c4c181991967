package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// timeFormat единый формат времени для всех логов
const timeFormat = "2006-01-02 15:04:05"

var (
	mu   sync.RWMutex
	base = zap.NewNop()
)

// Init настраивает глобальный логгер. format: "json" или "console"
func Init(level, format string) error {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(level)))); err != nil {
		return fmt.Errorf("некорректный уровень логирования %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(timeFormat)
	cfg.EncoderConfig.TimeKey = "time"
	cfg.DisableStacktrace = true
	if format == "console" {
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("ошибка создания логгера: %w", err)
	}
	Set(l)
	return nil
}

// Set подменяет глобальный логгер (используется в тестах)
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	base = l
}

// L возвращает структурированный логгер
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

// Sync сбрасывает буферы логгера
func Sync() {
	_ = L().Sync()
}

// LogWithTime выводит информационное сообщение
func LogWithTime(format string, args ...interface{}) {
	L().Sugar().Infof(format, args...)
}

// LogPlain выводит сообщение без дополнительных полей (для многострочных выводов)
func LogPlain(format string, args ...interface{}) {
	L().Sugar().Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// LogWarn выводит предупреждение
func LogWarn(format string, args ...interface{}) {
	L().Sugar().Warnf(format, args...)
}

// LogError выводит ошибку
func LogError(format string, args ...interface{}) {
	L().Sugar().Errorf(format, args...)
}

// LogInfo выводит информационное сообщение
func LogInfo(format string, args ...interface{}) {
	L().Sugar().Infof(format, args...)
}
