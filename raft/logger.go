package raft

import (
	plog "github.com/pingcap/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the logging surface the core calls into. No handler ever
// performs I/O itself; every Debugf/Infof/Warningf call is just this
// interface, so the host controls where log lines actually go.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warningf(format string, args ...interface{})
	Panicf(format string, args ...interface{})
}

// zapLogger backs Logger with a *zap.SugaredLogger, via
// github.com/pingcap/log, which wraps go.uber.org/zap.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// defaultLogger is used whenever Config.Logger is left nil. It reuses
// pingcap/log's preconfigured global zap.Logger rather than building a
// fresh one.
var defaultLogger Logger = &zapLogger{sugar: plog.L().Sugar()}

func (l *zapLogger) Debugf(format string, args ...interface{})   { l.sugar.Debugf(format, args...) }
func (l *zapLogger) Infof(format string, args ...interface{})    { l.sugar.Infof(format, args...) }
func (l *zapLogger) Warningf(format string, args ...interface{}) { l.sugar.Warnf(format, args...) }
func (l *zapLogger) Panicf(format string, args ...interface{})   { l.sugar.Panicf(format, args...) }

// NewFileLogger builds a Logger that writes to a rotating file via
// lumberjack, for hosts that want durable on-disk logs instead of the
// package default's stderr output. maxSizeMB/maxBackups/maxAgeDays
// follow lumberjack's own knobs directly.
func NewFileLogger(path string, maxSizeMB, maxBackups, maxAgeDays int) Logger {
	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	})
	encoder := zapcore.NewConsoleEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, sink, zapcore.InfoLevel)
	return &zapLogger{sugar: zap.New(core).Sugar()}
}
