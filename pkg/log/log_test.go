package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// newTestLogger returns a Logger that writes JSON into buf.
func newTestLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
	return NewWithHandler(h)
}

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v (raw: %s)", err, buf.String())
	}
	return entry
}

// ---------------------------------------------------------------------------
// Logger.Module
// ---------------------------------------------------------------------------

func TestLogger_Module(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelDebug)
	child := l.Module("montgomery")

	child.Info("cached reducer")

	entry := decodeEntry(t, &buf)
	if entry["module"] != "montgomery" {
		t.Fatalf("module = %v, want %q", entry["module"], "montgomery")
	}
	if entry["msg"] != "cached reducer" {
		t.Fatalf("msg = %v, want %q", entry["msg"], "cached reducer")
	}
}

func TestLogger_ModuleChain(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelDebug)
	child := l.Module("vdf-beacon").With("chainLength", 4)

	child.Info("evaluated chain")

	entry := decodeEntry(t, &buf)
	if entry["module"] != "vdf-beacon" {
		t.Fatalf("module = %v, want %q", entry["module"], "vdf-beacon")
	}
	if v, ok := entry["chainLength"].(float64); !ok || v != 4 {
		t.Fatalf("chainLength = %v, want 4", entry["chainLength"])
	}
}

// ---------------------------------------------------------------------------
// Logger levels
// ---------------------------------------------------------------------------

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		level  slog.Level
		logFn  func(l *Logger)
		expect bool // whether message should appear
	}{
		{slog.LevelInfo, func(l *Logger) { l.Debug("nope") }, false},
		{slog.LevelInfo, func(l *Logger) { l.Info("yes") }, true},
		{slog.LevelInfo, func(l *Logger) { l.Warn("yes") }, true},
		{slog.LevelInfo, func(l *Logger) { l.Error("yes") }, true},
		{slog.LevelWarn, func(l *Logger) { l.Info("nope") }, false},
		{slog.LevelWarn, func(l *Logger) { l.Warn("yes") }, true},
		{slog.LevelDebug, func(l *Logger) { l.Debug("yes") }, true},
	}

	for i, tt := range tests {
		var buf bytes.Buffer
		l := newTestLogger(&buf, tt.level)
		tt.logFn(l)

		got := buf.Len() > 0
		if got != tt.expect {
			t.Errorf("test %d: output=%v, want %v (level=%v, buf=%s)",
				i, got, tt.expect, tt.level, buf.String())
		}
	}
}

// ---------------------------------------------------------------------------
// Structured key-value args
// ---------------------------------------------------------------------------

func TestLogger_KeyValueArgs(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelInfo)

	l.Info("proof generated", "bits", 2048, "rounds", 32)

	entry := decodeEntry(t, &buf)
	// slog renders numbers as float64 in JSON.
	if v, ok := entry["bits"].(float64); !ok || v != 2048 {
		t.Fatalf("bits = %v, want 2048", entry["bits"])
	}
	if v, ok := entry["rounds"].(float64); !ok || v != 32 {
		t.Fatalf("rounds = %v, want 32", entry["rounds"])
	}
}

// ---------------------------------------------------------------------------
// Field redaction
// ---------------------------------------------------------------------------

func TestLogger_RedactsWitnessFields(t *testing.T) {
	cases := []struct {
		key string
		val any
	}{
		{"x", "123456791"},
		{"h", "987654321"},
		{"pi", "555555555"},
		{"n", "1000000007"},
		{"l", "104729"},
		{"nonce", "0xabc"},
		{"seed", "randao-mix"},
	}
	for _, c := range cases {
		var buf bytes.Buffer
		l := newTestLogger(&buf, slog.LevelInfo)
		l.Info("evaluated", c.key, c.val)

		entry := decodeEntry(t, &buf)
		if entry[c.key] != "[redacted]" {
			t.Errorf("key %q = %v, want \"[redacted]\"", c.key, entry[c.key])
		}
	}
}

func TestLogger_RedactionAppliesThroughWith(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelInfo)
	child := l.With("nonce", "0xdeadbeef", "bits", 2048)

	child.Info("derived challenge")

	entry := decodeEntry(t, &buf)
	if entry["nonce"] != "[redacted]" {
		t.Errorf("nonce = %v, want \"[redacted]\"", entry["nonce"])
	}
	if v, ok := entry["bits"].(float64); !ok || v != 2048 {
		t.Fatalf("bits = %v, want 2048", entry["bits"])
	}
}

func TestLogger_RedactionLeavesNonSensitiveKeysAlone(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelInfo)

	l.Info("cached reducer", "bits", 2048, "cacheSize", 3, "module", "montgomery")

	entry := decodeEntry(t, &buf)
	if v, ok := entry["bits"].(float64); !ok || v != 2048 {
		t.Fatalf("bits = %v, want 2048", entry["bits"])
	}
	if v, ok := entry["cacheSize"].(float64); !ok || v != 3 {
		t.Fatalf("cacheSize = %v, want 3", entry["cacheSize"])
	}
}

func TestLogger_RedactionIgnoresTrailingUnpairedKey(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelInfo)

	// A dangling key with no value is slog's own contract to handle
	// ("!BADKEY" marker); redact must not panic walking off the slice end.
	l.Info("malformed call", "bits", 2048, "nonce")

	if buf.Len() == 0 {
		t.Fatal("expected a log line even with a trailing unpaired key")
	}
}

// ---------------------------------------------------------------------------
// Default logger
// ---------------------------------------------------------------------------

func TestDefaultLogger(t *testing.T) {
	// The package init() sets a default logger; verify it is not nil and
	// does not panic.
	if Default() == nil {
		t.Fatal("Default() returned nil")
	}

	// Replace the default with a test logger and verify the package-level
	// functions use it.
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelInfo)
	SetDefault(l)
	defer SetDefault(New(slog.LevelInfo)) // restore

	Info("test info", "k", "v")

	if !strings.Contains(buf.String(), "test info") {
		t.Fatalf("output missing 'test info': %s", buf.String())
	}

	// SetDefault(nil) should be a no-op.
	SetDefault(nil)
	if Default() != l {
		t.Fatal("SetDefault(nil) replaced the logger")
	}
}

// ---------------------------------------------------------------------------
// Package-level functions
// ---------------------------------------------------------------------------

func TestPackageLevelFunctions(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelDebug)
	SetDefault(l)
	defer SetDefault(New(slog.LevelInfo))

	Debug("d")
	Info("i")
	Warn("w")
	Error("e")

	out := buf.String()
	for _, msg := range []string{"d", "i", "w", "e"} {
		if !strings.Contains(out, msg) {
			t.Errorf("missing message %q in output", msg)
		}
	}
}
