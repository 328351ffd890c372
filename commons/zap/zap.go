// Package zap provides the production implementation of the commons/log
// contract on top of go.uber.org/zap.
package zap

import (
	"go.uber.org/zap"

	clog "github.com/LerianStudio/lib-breaker/commons/log"
)

// ZapWithTraceLogger is a log.Logger backed by a zap.SugaredLogger.
type ZapWithTraceLogger struct {
	Logger                 *zap.SugaredLogger
	defaultMessageTemplate string
}

// hydrate prefixes args with the default message template when one is set.
func (l *ZapWithTraceLogger) hydrate(args []any) []any {
	if l.defaultMessageTemplate == "" {
		return args
	}

	return append([]any{l.defaultMessageTemplate}, args...)
}

// Info implements Info Logger interface function.
func (l *ZapWithTraceLogger) Info(args ...any) { l.Logger.Info(l.hydrate(args)...) }

// Infof implements Infof Logger interface function.
func (l *ZapWithTraceLogger) Infof(format string, args ...any) {
	l.Logger.Infof(l.defaultMessageTemplate+format, args...)
}

// Infoln implements Infoln Logger interface function.
func (l *ZapWithTraceLogger) Infoln(args ...any) { l.Logger.Infoln(l.hydrate(args)...) }

// Error implements Error Logger interface function.
func (l *ZapWithTraceLogger) Error(args ...any) { l.Logger.Error(l.hydrate(args)...) }

// Errorf implements Errorf Logger interface function.
func (l *ZapWithTraceLogger) Errorf(format string, args ...any) {
	l.Logger.Errorf(l.defaultMessageTemplate+format, args...)
}

// Errorln implements Errorln Logger interface function.
func (l *ZapWithTraceLogger) Errorln(args ...any) { l.Logger.Errorln(l.hydrate(args)...) }

// Warn implements Warn Logger interface function.
func (l *ZapWithTraceLogger) Warn(args ...any) { l.Logger.Warn(l.hydrate(args)...) }

// Warnf implements Warnf Logger interface function.
func (l *ZapWithTraceLogger) Warnf(format string, args ...any) {
	l.Logger.Warnf(l.defaultMessageTemplate+format, args...)
}

// Warnln implements Warnln Logger interface function.
func (l *ZapWithTraceLogger) Warnln(args ...any) { l.Logger.Warnln(l.hydrate(args)...) }

// Debug implements Debug Logger interface function.
func (l *ZapWithTraceLogger) Debug(args ...any) { l.Logger.Debug(l.hydrate(args)...) }

// Debugf implements Debugf Logger interface function.
func (l *ZapWithTraceLogger) Debugf(format string, args ...any) {
	l.Logger.Debugf(l.defaultMessageTemplate+format, args...)
}

// Debugln implements Debugln Logger interface function.
func (l *ZapWithTraceLogger) Debugln(args ...any) { l.Logger.Debugln(l.hydrate(args)...) }

// Fatal implements Fatal Logger interface function.
func (l *ZapWithTraceLogger) Fatal(args ...any) { l.Logger.Fatal(l.hydrate(args)...) }

// Fatalf implements Fatalf Logger interface function.
func (l *ZapWithTraceLogger) Fatalf(format string, args ...any) {
	l.Logger.Fatalf(l.defaultMessageTemplate+format, args...)
}

// Fatalln implements Fatalln Logger interface function.
func (l *ZapWithTraceLogger) Fatalln(args ...any) { l.Logger.Fatalln(l.hydrate(args)...) }

// WithFields returns a logger carrying the given key/value pairs.
//
//nolint:ireturn
func (l *ZapWithTraceLogger) WithFields(fields ...any) clog.Logger {
	return &ZapWithTraceLogger{
		Logger:                 l.Logger.With(fields...),
		defaultMessageTemplate: l.defaultMessageTemplate,
	}
}

// WithDefaultMessageTemplate sets the default message template for the logger.
//
//nolint:ireturn
func (l *ZapWithTraceLogger) WithDefaultMessageTemplate(message string) clog.Logger {
	return &ZapWithTraceLogger{
		Logger:                 l.Logger,
		defaultMessageTemplate: message,
	}
}

// Sync flushes any buffered entries.
func (l *ZapWithTraceLogger) Sync() error {
	return l.Logger.Sync()
}
