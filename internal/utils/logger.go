package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const logTimeLayout = "2006-01-02 15:04:05"

// Logger writes timestamped lines to a log file, or stdout when no file could
// be opened.
type Logger struct {
	mu        sync.Mutex
	writeFile *os.File
	out       io.Writer
}

// NewLogger opens the given log file for appending. If the file cannot be
// opened, logs will be written to stdout.
func NewLogger(logFile string) *Logger {
	logger := &Logger{out: os.Stdout}
	if logFile == "" {
		return logger
	}

	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: Error opening log file (%s): %v\n", time.Now().Format(logTimeLayout), logFile, err)
		return logger
	}
	logger.writeFile = f
	logger.out = f
	return logger
}

// NewWriterLogger logs to w. Used by tests and the CLI.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{out: w}
}

// Write appends a timestamped message to the log.
func (l *Logger) Write(message string) {
	if l == nil {
		return
	}
	line := fmt.Sprintf("%s: %s\n", time.Now().Format(logTimeLayout), message)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, line)
	if l.writeFile != nil {
		_ = l.writeFile.Sync()
	}
}

// Printf formats and writes a message.
func (l *Logger) Printf(format string, args ...interface{}) {
	l.Write(fmt.Sprintf(format, args...))
}

// Close flushes and closes the underlying file handle.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeFile != nil {
		l.writeFile.Close()
		l.writeFile = nil
		l.out = os.Stdout
	}
}

// File returns the underlying write file handle when available.
func (l *Logger) File() *os.File {
	if l == nil {
		return nil
	}
	return l.writeFile
}

// Writer returns an io.Writer that passes preformatted lines (such as HTTP
// access logs) to the logger's current output under the same lock. Once the
// logger is closed, writes go to stdout.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return os.Stdout
	}
	return rawWriter{l}
}

type rawWriter struct {
	l *Logger
}

func (w rawWriter) Write(p []byte) (int, error) {
	w.l.mu.Lock()
	defer w.l.mu.Unlock()
	return w.l.out.Write(p)
}
