// Package log defines the logging contract used across the library.
// Implementations live elsewhere (commons/zap provides the production one);
// the core packages depend only on this interface so that a logging failure
// can never influence breaker behavior.
package log

// Logger is the contract for every logger used by the library.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)
	Infoln(args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)
	Errorln(args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)
	Warnln(args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)
	Debugln(args ...any)

	Fatal(args ...any)
	Fatalf(format string, args ...any)
	Fatalln(args ...any)

	// WithFields returns a logger carrying the given key/value pairs on
	// every subsequent entry. Arguments are alternating keys and values.
	WithFields(fields ...any) Logger

	// WithDefaultMessageTemplate returns a logger that prefixes every
	// message with the given template.
	WithDefaultMessageTemplate(message string) Logger

	// Sync flushes any buffered log entries.
	Sync() error
}
