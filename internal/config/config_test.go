package config

import (
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/zsiec/austream/internal/logging"
)

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()
	c, err := Load(env(map[string]string{"INPUT": "clip.h264"}))
	if err != nil {
		t.Fatal(err)
	}
	if c.QueueCapacity != 1000 || c.ChunkSize != 1<<20 || c.ProbeSize != 5_000_000 {
		t.Errorf("sizes = %d/%d/%d", c.QueueCapacity, c.ChunkSize, c.ProbeSize)
	}
	if c.PollWait != 10*time.Millisecond || c.ReloadTimeout != 5*time.Second {
		t.Errorf("durations = %v/%v", c.PollWait, c.ReloadTimeout)
	}
	if c.LogLevel != slog.LevelInfo || c.LogFormat != logging.FormatText || c.LiveBackend != BackendNative {
		t.Errorf("config = %+v", c)
	}
	if c.Loop || c.MetricsAddr != "" || c.Output != "" {
		t.Errorf("unexpected optional settings: %+v", c)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Parallel()
	c, err := Load(env(map[string]string{
		"INPUT":          "srt://origin:6000?streamid=cam1",
		"OUTPUT":         "-",
		"LOG_LEVEL":      "trace",
		"LOG_FORMAT":     "json",
		"QUEUE_CAPACITY": "50",
		"POLL_WAIT":      "250us",
		"RELOAD_TIMEOUT": "2s",
		"CHUNK_SIZE":     "4096",
		"LOOP":           "true",
		"LIVE_BACKEND":   "ffmpeg",
		"PROBE_SIZE":     "100000",
		"METRICS_ADDR":   ":9100",
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := Config{
		Input:         "srt://origin:6000?streamid=cam1",
		Output:        "-",
		LogLevel:      logging.LevelTrace,
		LogFormat:     "json",
		QueueCapacity: 50,
		PollWait:      250 * time.Microsecond,
		ReloadTimeout: 2 * time.Second,
		ChunkSize:     4096,
		Loop:          true,
		LiveBackend:   BackendFFmpeg,
		ProbeSize:     100000,
		MetricsAddr:   ":9100",
	}
	if c != want {
		t.Errorf("config = %+v\nwant     %+v", c, want)
	}
}

func TestLoad_DebugForcesDebugLevel(t *testing.T) {
	t.Parallel()
	c, err := Load(env(map[string]string{"INPUT": "x", "DEBUG": "1", "LOG_LEVEL": "warn"}))
	if err != nil {
		t.Fatal(err)
	}
	if c.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", c.LogLevel)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	if _, err := Load(env(nil)); !errors.Is(err, ErrMissingInput) {
		t.Errorf("err = %v, want ErrMissingInput", err)
	}

	_, err := Load(env(map[string]string{
		"INPUT":          "x",
		"QUEUE_CAPACITY": "0",
		"POLL_WAIT":      "soon",
		"LOOP":           "maybe",
		"LIVE_BACKEND":   "gstreamer",
	}))
	if err == nil {
		t.Fatal("expected errors")
	}
	for _, key := range []string{"QUEUE_CAPACITY", "POLL_WAIT", "LOOP", "LIVE_BACKEND"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err, key)
		}
	}
}
