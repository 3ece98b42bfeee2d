package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewWritesToFile(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "out.log")

	logger, err := New(Options{Level: "debug", Format: "json", OutputPaths: []string{logPath}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hello", String("key", "value"))

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Fatalf("log output missing message: %s", data)
	}
	if !strings.Contains(string(data), `"key":"value"`) {
		t.Fatalf("log output missing attr: %s", data)
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for input, want := range cases {
		if got := parseLevel(input); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestConsoleHandlerIncludesComponent(t *testing.T) {
	var sb strings.Builder
	levelVar := new(slog.LevelVar)
	handler := &consoleHandler{writer: writerAdapter{&sb}, level: levelVar}
	logger := NewComponentLogger(slog.New(handler), "transcriber")

	logger.Info("job started", String(FieldLessonID, "42"))

	out := sb.String()
	if !strings.Contains(out, "[transcriber]") {
		t.Fatalf("expected component tag in %q", out)
	}
	if !strings.Contains(out, "lesson_id=42") {
		t.Fatalf("expected lesson_id attr in %q", out)
	}
}

type writerAdapter struct{ sb *strings.Builder }

func (w writerAdapter) Write(p []byte) (int, error) { return w.sb.Write(p) }
