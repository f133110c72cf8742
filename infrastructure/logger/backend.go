package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jrick/logrotate/rotator"
	"github.com/pkg/errors"
)

const (
	defaultThresholdKB = 100 * 1000 // 100 MB logs by default.
	defaultMaxRolls    = 8          // keep 8 last logs by default.
)

// Backend is a logging backend. Subsystems created from the backend write to
// the backend's writers. Backend provides atomic writes from all subsystems.
type Backend struct {
	writers    []logWriter
	writerLock sync.Mutex

	// defaultLevel is the level given to Loggers created from this
	// backend.
	defaultLevel Level
}

type logWriter struct {
	writer io.Writer
	level  Level
	closer io.Closer
}

// NewBackend creates a new logger backend.
func NewBackend() *Backend {
	return &Backend{defaultLevel: LevelInfo}
}

// AddLogWriter adds a type implementing io.Writer to the backend, so that
// log entries at or above the given level are written to it.
func (b *Backend) AddLogWriter(writer io.Writer, logLevel Level) error {
	if logLevel == LevelOff {
		return errors.New("can't add a write with logLevel Off")
	}
	b.writerLock.Lock()
	defer b.writerLock.Unlock()

	closer, _ := writer.(io.Closer)
	b.writers = append(b.writers, logWriter{writer: writer, level: logLevel, closer: closer})
	return nil
}

// AddLogFile adds a file which the log will write into on a certain
// log level with the default log rotation settings. It'll create the file
// if it doesn't exist.
func (b *Backend) AddLogFile(logFile string, logLevel Level) error {
	return b.AddLogFileWithCustomRotator(logFile, logLevel, defaultThresholdKB, defaultMaxRolls)
}

// AddLogFileWithCustomRotator adds a file which the log will write into on
// a certain log level, with the specified log rotation settings.
// It'll create the file if it doesn't exist.
func (b *Backend) AddLogFileWithCustomRotator(logFile string, logLevel Level, thresholdKB int64, maxRolls int) error {
	logDir, _ := filepath.Split(logFile)
	// if the logDir is empty then `logFile` is in the cwd and there's no
	// need to create any directory.
	if logDir != "" {
		err := os.MkdirAll(logDir, 0700)
		if err != nil {
			return errors.Errorf("failed to create log directory: %+v", err)
		}
	}
	r, err := rotator.New(logFile, thresholdKB, false, maxRolls)
	if err != nil {
		return errors.Errorf("failed to create file rotator: %s", err)
	}
	b.writerLock.Lock()
	defer b.writerLock.Unlock()

	b.writers = append(b.writers, logWriter{writer: r, level: logLevel, closer: r})
	return nil
}

// write writes a formatted log entry to all writers whose level permits it.
func (b *Backend) write(logLevel Level, subsystemTag string, format string, args ...interface{}) {
	b.writerLock.Lock()
	defer b.writerLock.Unlock()

	var entry []byte
	for _, writer := range b.writers {
		if logLevel < writer.level {
			continue
		}
		if entry == nil {
			entry = formatEntry(logLevel, subsystemTag, format, args...)
		}
		_, _ = writer.writer.Write(entry)
	}
}

// Close closes all closable writers that were added to the backend.
func (b *Backend) Close() {
	b.writerLock.Lock()
	defer b.writerLock.Unlock()

	for _, writer := range b.writers {
		if writer.closer != nil {
			_ = writer.closer.Close()
		}
	}
}

func formatEntry(logLevel Level, subsystemTag string, format string, args ...interface{}) []byte {
	timestamp := time.Now().Format("2006-01-02 15:04:05.000")
	message := fmt.Sprintf(format, args...)
	return []byte(fmt.Sprintf("%s [%s] %-4s %s\n", timestamp, logLevel, subsystemTag, message))
}

// Logger returns a new Logger for the given subsystem tag, backed by b.
func (b *Backend) Logger(subsystemTag string) *Logger {
	return &Logger{
		backend:      b,
		subsystemTag: subsystemTag,
		level:        b.defaultLevel,
	}
}
