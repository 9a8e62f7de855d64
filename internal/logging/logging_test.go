package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"trace", LevelTrace, false},
		{"DEBUG", slog.LevelDebug, false},
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{" error ", slog.LevelError, false},
		{"verbose", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %t", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNew_TraceLevel(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := New(&buf, LevelTrace, FormatText)
	if err != nil {
		t.Fatal(err)
	}
	Trace(log, "packet", "size", 188)
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Errorf("output %q lacks level=TRACE", buf.String())
	}

	buf.Reset()
	log, _ = New(&buf, slog.LevelDebug, FormatText)
	Trace(log, "packet")
	if buf.Len() != 0 {
		t.Errorf("trace line written at debug level: %q", buf.String())
	}
}

func TestNew_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	log, err := New(&buf, slog.LevelInfo, FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	log.Info("connected", "component", "transport")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if rec["msg"] != "connected" || rec["component"] != "transport" || rec["level"] != "INFO" {
		t.Errorf("record = %v", rec)
	}

	if _, err := New(&buf, slog.LevelInfo, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
