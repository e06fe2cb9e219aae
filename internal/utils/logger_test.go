package utils

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

var linePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}: `)

func TestLoggerWritesTimestampedLines(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)
	logger.Printf("tick %d persisted", 3)

	line := buf.String()
	if !linePattern.MatchString(line) {
		t.Fatalf("missing timestamp prefix: %q", line)
	}
	if !strings.HasSuffix(line, "tick 3 persisted\n") {
		t.Fatalf("unexpected line: %q", line)
	}
}

func TestLoggerFile(t *testing.T) {
	paths := NewPaths(t.TempDir())
	if err := paths.DeployRoot(nil); err != nil {
		t.Fatalf("deploy root: %v", err)
	}
	logger := NewLogger(paths.LogFile())
	if logger.File() == nil {
		t.Fatal("expected log file to be opened")
	}
	logger.Write("hello")
	logger.Close()

	data, err := os.ReadFile(paths.LogFile())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log file missing message: %q", data)
	}
}

func TestWriterPassesLinesThrough(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf)
	w := logger.Writer()
	if _, err := w.Write([]byte("127.0.0.1 - GET /history 200\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if buf.String() != "127.0.0.1 - GET /history 200\n" {
		t.Fatalf("expected raw line, got %q", buf.String())
	}
}

func TestWriterSurvivesClose(t *testing.T) {
	paths := NewPaths(t.TempDir())
	logger := NewLogger(paths.LogFile())
	w := logger.Writer()
	if _, err := w.Write([]byte("before close\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	logger.Close()

	if _, err := w.Write([]byte("after close\n")); err != nil {
		t.Fatalf("write after close should fall back to stdout: %v", err)
	}
	data, err := os.ReadFile(paths.LogFile())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "before close") || strings.Contains(string(data), "after close") {
		t.Fatalf("unexpected log contents: %q", data)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var logger *Logger
	logger.Write("ignored")
	logger.Close()
	if logger.File() != nil {
		t.Fatal("expected nil file")
	}
	if logger.Writer() == nil {
		t.Fatal("expected a fallback writer")
	}
}

func TestPathsLayout(t *testing.T) {
	p := NewPaths("/srv/sysscope")
	if got := p.DatabaseFile(); got != filepath.Join("/srv/sysscope", "data", "system_health.db") {
		t.Fatalf("unexpected database path %s", got)
	}
	if got := p.LogFile(); got != filepath.Join("/srv/sysscope", "logs", "sysscope.log") {
		t.Fatalf("unexpected log path %s", got)
	}
}
