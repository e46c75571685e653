// Package log provides the structured logger shared by every blinkdb
// package. It wraps zap the way the rest of the codebase expects: a
// package-level logger installed once at process start, with sugared
// helpers for the common call sites.
package log

import (
	"os"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// DefaultLogger installs a console-only logger at debug level. Suitable
// for tests and for the CLI client, which has no business rotating files.
func DefaultLogger() {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)
	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.DebugLevel)
	logger = zap.New(core).WithOptions(zap.AddCaller(), zap.AddCallerSkip(1))
	zap.ReplaceGlobals(logger)
}

// InitFileLogger installs a logger that tees to the console and to a
// rotating file pair (info, error), the way a long-lived server process
// should. fileName is used as a prefix: the files are
// <fileName>.info.log and <fileName>.error.log, and lumberjack manages
// their rotation/retention.
func InitFileLogger(fileName string, maxSizeMB, maxBackups, maxAgeDays int, compress bool) {
	var cores []zapcore.Core

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)

	cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.DebugLevel))

	errSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileName + ".error.log",
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	})
	cores = append(cores, zapcore.NewCore(encoder, errSink, zapcore.ErrorLevel))

	infoSink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   fileName + ".info.log",
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   compress,
	})
	cores = append(cores, zapcore.NewCore(encoder, infoSink, zapcore.InfoLevel))

	logger = zap.New(zapcore.NewTee(cores...)).WithOptions(zap.AddCaller(), zap.AddCallerSkip(1))
	zap.ReplaceGlobals(logger)
}

func ensure() {
	if logger == nil {
		DefaultLogger()
	}
}

func Infof(template string, args ...interface{}) {
	ensure()
	zap.S().Infof(template, args...)
}

func Debugf(template string, args ...interface{}) {
	ensure()
	zap.S().Debugf(template, args...)
}

func Warnf(template string, args ...interface{}) {
	ensure()
	zap.S().Warnf(template, args...)
}

func Errorf(template string, args ...interface{}) {
	ensure()
	zap.S().Errorf(template, args...)
}

func Info(msg string, fields ...zapcore.Field) {
	ensure()
	zap.L().Info(msg, fields...)
}

func Error(msg string, fields ...zapcore.Field) {
	ensure()
	zap.L().Error(msg, fields...)
}
