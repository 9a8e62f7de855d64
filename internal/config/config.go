// Package config loads the binary's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/zsiec/austream/internal/logging"
	"github.com/zsiec/austream/internal/source"
	"github.com/zsiec/austream/internal/tsdemux"
)

// Live demuxing backends.
const (
	BackendNative = "native"
	BackendFFmpeg = "ffmpeg"
)

// ErrMissingInput is returned when INPUT is unset.
var ErrMissingInput = errors.New("config: INPUT is required")

// Config holds every setting of the binary.
type Config struct {
	Input         string
	Output        string
	LogLevel      slog.Level
	LogFormat     string
	QueueCapacity int
	PollWait      time.Duration
	ReloadTimeout time.Duration
	ChunkSize     int
	Loop          bool
	LiveBackend   string
	ProbeSize     int64
	MetricsAddr   string
	// QUICFingerprint pins the quic:// server certificate; see
	// certs.ParseFingerprint for accepted encodings.
	QUICFingerprint string
}

// Load reads the configuration through getenv, typically os.Getenv.
func Load(getenv func(string) string) (Config, error) {
	envOr := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	c := Config{
		Input:           getenv("INPUT"),
		Output:          getenv("OUTPUT"),
		LogFormat:       envOr("LOG_FORMAT", logging.FormatText),
		LiveBackend:     envOr("LIVE_BACKEND", BackendNative),
		MetricsAddr:     getenv("METRICS_ADDR"),
		QUICFingerprint: getenv("QUIC_FINGERPRINT"),
	}
	if c.Input == "" {
		return c, ErrMissingInput
	}

	var errs []error
	var err error
	if c.LogLevel, err = logging.ParseLevel(envOr("LOG_LEVEL", "info")); err != nil {
		errs = append(errs, err)
	}
	if getenv("DEBUG") != "" && c.LogLevel > slog.LevelDebug {
		c.LogLevel = slog.LevelDebug
	}
	if c.LogFormat != logging.FormatText && c.LogFormat != logging.FormatJSON {
		errs = append(errs, fmt.Errorf("config: LOG_FORMAT %q: want text or json", c.LogFormat))
	}
	if c.LiveBackend != BackendNative && c.LiveBackend != BackendFFmpeg {
		errs = append(errs, fmt.Errorf("config: LIVE_BACKEND %q: want native or ffmpeg", c.LiveBackend))
	}

	c.QueueCapacity = intVar(getenv, "QUEUE_CAPACITY", source.DefaultQueueCapacity, &errs)
	c.ChunkSize = intVar(getenv, "CHUNK_SIZE", source.DefaultChunkSize, &errs)
	c.ProbeSize = int64(intVar(getenv, "PROBE_SIZE", tsdemux.DefaultProbeSize, &errs))
	c.PollWait = durationVar(getenv, "POLL_WAIT", source.DefaultPollWait, &errs)
	c.ReloadTimeout = durationVar(getenv, "RELOAD_TIMEOUT", source.DefaultReloadTimeout, &errs)

	if v := getenv("LOOP"); v != "" {
		if c.Loop, err = strconv.ParseBool(v); err != nil {
			errs = append(errs, fmt.Errorf("config: LOOP %q: %w", v, err))
		}
	}
	return c, errors.Join(errs...)
}

func intVar(getenv func(string) string, key string, fallback int, errs *[]error) int {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err == nil && n <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s %q: %w", key, v, err))
		return fallback
	}
	return n
}

func durationVar(getenv func(string) string, key string, fallback time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err == nil && d <= 0 {
		err = errors.New("must be positive")
	}
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s %q: %w", key, v, err))
		return fallback
	}
	return d
}
