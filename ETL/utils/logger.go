package utils

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig содержит настройки логирования
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr или путь к файлу
}

// ETLLogger представляет логгер для ETL-процесса
type ETLLogger struct {
	zl      *zap.Logger
	sugar   *zap.SugaredLogger
	verbose bool
}

// NewETLLogger создает новый экземпляр логгера для ETL
func NewETLLogger(cfg LogConfig) *ETLLogger {
	level := parseLevel(cfg.Level)

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.TimeEncoderOfLayout("2006-01-02T15:04:05.000Z07:00"),
		EncodeDuration: zapcore.MillisDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, createWriter(cfg.Output), level)
	zl := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)

	return FromZap(zl, level == zapcore.DebugLevel)
}

// FromZap оборачивает готовый zap-логгер
func FromZap(zl *zap.Logger, verbose bool) *ETLLogger {
	return &ETLLogger{
		zl:      zl,
		sugar:   zl.Sugar(),
		verbose: verbose,
	}
}

// NewNopLogger возвращает логгер, который ничего не пишет (для тестов)
func NewNopLogger() *ETLLogger {
	return FromZap(zap.NewNop(), false)
}

// With возвращает дочерний логгер с дополнительными полями
func (l *ETLLogger) With(fields ...zap.Field) *ETLLogger {
	return FromZap(l.zl.With(fields...), l.verbose)
}

// Info логирует информационное сообщение
func (l *ETLLogger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warn логирует предупреждение
func (l *ETLLogger) Warn(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error логирует сообщение об ошибке
func (l *ETLLogger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Debug логирует отладочное сообщение (только если включен verbose режим)
func (l *ETLLogger) Debug(format string, v ...interface{}) {
	if !l.verbose {
		return
	}
	l.sugar.Debugf(format, v...)
}

// Sync сбрасывает буферизованные записи
func (l *ETLLogger) Sync() {
	_ = l.zl.Sync()
}

// LogStageStart логирует начало этапа
func (l *ETLLogger) LogStageStart(stage string) {
	l.zl.Info(fmt.Sprintf("Начало этапа %s", stage), zap.String("stage", stage))
}

// LogStageComplete логирует завершение этапа
func (l *ETLLogger) LogStageComplete(stage string, startTime time.Time, rows map[string]int, violations int) {
	l.zl.Info(fmt.Sprintf("Этап %s завершён", stage),
		zap.String("stage", stage),
		zap.Duration("duration", time.Since(startTime)),
		zap.Any("rows", rows),
		zap.Int("violations", violations),
	)
}

// parseLevel переводит строковый уровень в zapcore.Level
func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// createWriter создает приемник логов
func createWriter(output string) zapcore.WriteSyncer {
	switch strings.ToLower(output) {
	case "", "stdout":
		return zapcore.AddSync(os.Stdout)
	case "stderr":
		return zapcore.AddSync(os.Stderr)
	default:
		file, err := os.OpenFile(output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			// Если файл недоступен, пишем в стандартный вывод
			return zapcore.AddSync(os.Stdout)
		}
		return zapcore.AddSync(file)
	}
}
