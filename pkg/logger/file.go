package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// FileLogger appends leveled, timestamped entries to a log file.
// It is the backend behind the --log flag.
type FileLogger struct {
	entry *logrus.Logger
	c     io.Closer
}

// NewFileLogger opens (or creates) path in append mode.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return newWriterLogger(f, f), nil
}

func newWriterLogger(w io.Writer, c io.Closer) *FileLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   true,
	})
	return &FileLogger{entry: l, c: c}
}

func (f *FileLogger) Info(format string, args ...interface{}) {
	f.entry.Infof(format, args...)
}

func (f *FileLogger) Warning(format string, args ...interface{}) {
	f.entry.Warnf(format, args...)
}

func (f *FileLogger) Error(format string, args ...interface{}) {
	f.entry.Errorf(format, args...)
}

// Close closes the underlying file. Later calls return nil.
func (f *FileLogger) Close() error {
	if f.c == nil {
		return nil
	}
	c := f.c
	f.c = nil
	return c.Close()
}

var _ Logger = (*FileLogger)(nil)
