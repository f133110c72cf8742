package logger

import (
	"os"
	"sync"
	"sync/atomic"
)

// Logger is a subsystem logger. All messages are forwarded to the parent
// Backend, which is in charge of the actual writing.
type Logger struct {
	backend      *Backend
	subsystemTag string
	level        Level
}

// Level returns the current logging level of the logger.
func (l *Logger) Level() Level {
	return Level(atomic.LoadUint32((*uint32)(&l.level)))
}

// SetLevel changes the logging level of the logger.
func (l *Logger) SetLevel(level Level) {
	atomic.StoreUint32((*uint32)(&l.level), uint32(level))
}

func (l *Logger) write(logLevel Level, format string, args ...interface{}) {
	if logLevel < l.Level() {
		return
	}
	l.backend.write(logLevel, l.subsystemTag, format, args...)
}

// Tracef formats a message according to a format specifier and writes it
// with LevelTrace.
func (l *Logger) Tracef(format string, args ...interface{}) {
	l.write(LevelTrace, format, args...)
}

// Debugf formats a message according to a format specifier and writes it
// with LevelDebug.
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.write(LevelDebug, format, args...)
}

// Infof formats a message according to a format specifier and writes it
// with LevelInfo.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.write(LevelInfo, format, args...)
}

// Warnf formats a message according to a format specifier and writes it
// with LevelWarn.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.write(LevelWarn, format, args...)
}

// Errorf formats a message according to a format specifier and writes it
// with LevelError.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.write(LevelError, format, args...)
}

// Criticalf formats a message according to a format specifier and writes it
// with LevelCritical.
func (l *Logger) Criticalf(format string, args ...interface{}) {
	l.write(LevelCritical, format, args...)
}

// defaultBackend is the backend used by subsystem loggers before the
// application configures its own writers. It writes to stderr so that
// critical messages during early startup are not lost.
var defaultBackend = func() *Backend {
	backend := NewBackend()
	_ = backend.AddLogWriter(os.Stderr, LevelWarn)
	return backend
}()

var (
	subsystemLock sync.Mutex
	subsystems    = make(map[string]*Logger)
)

// RegisterSubSystem returns a Logger for the given subsystem tag on the
// process-wide default backend. Calling it twice with the same tag returns
// the same Logger.
func RegisterSubSystem(subsystemTag string) *Logger {
	subsystemLock.Lock()
	defer subsystemLock.Unlock()

	if logger, ok := subsystems[subsystemTag]; ok {
		return logger
	}
	logger := defaultBackend.Logger(subsystemTag)
	subsystems[subsystemTag] = logger
	return logger
}

// SetLogLevels sets the logging level of every registered subsystem, and of
// subsystems registered later on.
func SetLogLevels(level Level) {
	subsystemLock.Lock()
	defer subsystemLock.Unlock()

	defaultBackend.defaultLevel = level
	for _, logger := range subsystems {
		logger.SetLevel(level)
	}
}

// DefaultBackend returns the process-wide default backend, so that the
// application setup code can attach file writers to it.
func DefaultBackend() *Backend {
	return defaultBackend
}
