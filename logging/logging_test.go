package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"imgdup/types"
)

type kindError struct{}

func (kindError) Error() string { return "cannot decode" }
func (kindError) Kind() string  { return "decode" }

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil {
			t.Fatalf("ParseLevel(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSetupWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imgdup.log")
	logger, closeFn, err := Setup(Options{Level: "debug", File: path})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	ImageProcessed(logger, types.Failure("/photos/a.jpg", kindError{}))
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := closeFn(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(data)
	for _, want := range []string{"imgdup log started", "/photos/a.jpg", "kind=decode", "imgdup log closed"} {
		if !strings.Contains(text, want) {
			t.Fatalf("log missing %q:\n%s", want, text)
		}
	}
}

func TestSetupJSONToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := Setup(Options{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer closeFn()

	ImageProcessed(logger, types.Failure("b.png", errors.New("permission denied")))
	if !strings.Contains(buf.String(), `"path":"b.png"`) {
		t.Fatalf("unexpected output: %s", buf.String())
	}
}

func TestSetupRejectsUnknownFormat(t *testing.T) {
	if _, _, err := Setup(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}
