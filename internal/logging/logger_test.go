package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.Warn().Msgf("disk %s", "full")
	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("console output missing message: %q", buf.String())
	}
	if l.Output() != &buf {
		t.Error("Output() should return the writer passed to SetOutput")
	}
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.Error().Msg("ignored")
	l.EnableFile(DefaultFileConfig(filepath.Join(t.TempDir(), "nop.log")))
	if l.file != nil {
		t.Error("nop logger should not open a log file")
	}
}

func TestEnableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "imghub.log")
	var console bytes.Buffer

	l := New(&console)
	l.EnableFile(DefaultFileConfig(path))
	l.Info().Str("entry", "h1").Msg("submission recorded")
	if err := l.CloseFile(); err != nil {
		t.Fatalf("CloseFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(data), &line); err != nil {
		t.Fatalf("log file should hold JSON lines, got %q", data)
	}
	if line["message"] != "submission recorded" || line["entry"] != "h1" {
		t.Errorf("unexpected log line %v", line)
	}
	if !strings.Contains(console.String(), "submission recorded") {
		t.Error("console should still receive the event")
	}

	// After CloseFile only the console receives events.
	l.Info().Msg("after close")
	data, _ = os.ReadFile(path)
	if strings.Contains(string(data), "after close") {
		t.Error("closed file should not receive events")
	}
}

func TestWithFields(t *testing.T) {
	if got := withFields("retrying", nil); got != "retrying" {
		t.Errorf("withFields() = %q", got)
	}
	got := withFields("retrying", []interface{}{"url", "http://x/upload", "attempt", 2, "dangling"})
	if got != "retrying url=http://x/upload attempt=2" {
		t.Errorf("withFields() = %q", got)
	}
}

func TestRetryLoggerDemotesInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	RetryLogger{L: l}.Info("performing request", "method", "POST")
	// Global level is info, so demoted messages are dropped.
	if buf.Len() != 0 {
		t.Errorf("info from the retry loop should be logged at debug, got %q", buf.String())
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		verbose, quiet bool
		want           zerolog.Level
	}{
		{false, false, zerolog.InfoLevel},
		{true, false, zerolog.DebugLevel},
		{false, true, zerolog.WarnLevel},
		{true, true, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		if got := LevelFor(tt.verbose, tt.quiet); got != tt.want {
			t.Errorf("LevelFor(%v, %v) = %v, want %v", tt.verbose, tt.quiet, got, tt.want)
		}
	}
}
