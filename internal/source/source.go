package source

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/zsiec/austream/internal/media"
	"github.com/zsiec/austream/internal/puller"
)

// PacketSource yields access units to a decoder driver independently of
// where they come from.
type PacketSource interface {
	// NextUnit returns the next unit, owned by the caller. last reports that
	// the source has no data after this unit. An empty unit that is not last
	// means "try again".
	NextUnit(ctx context.Context) (unit []byte, last bool, err error)
	// Reload restarts the source from its beginning.
	Reload(ctx context.Context) error
	Close() error
}

var (
	_ PacketSource = (*File)(nil)
	_ PacketSource = (*Live)(nil)
)

// Options configures Open.
type Options struct {
	// Library demuxes live sources. Required when the identifier is a URI.
	Library       puller.Library
	ChunkSize     int
	QueueCapacity int
	PollWait      time.Duration
	ReloadTimeout time.Duration
	Log           *slog.Logger
}

// IsLive reports whether id names a live source rather than a file path.
func IsLive(id string) bool {
	return strings.Contains(id, "://")
}

// Open returns a File for a path or a Live source for a URI.
func Open(ctx context.Context, id string, opts Options) (PacketSource, error) {
	if id == "" {
		return nil, fmt.Errorf("source: empty source identifier: %w", media.ErrInvalidArgument)
	}
	if !IsLive(id) {
		return OpenFile(id, FileOptions{ChunkSize: opts.ChunkSize, Log: opts.Log})
	}
	if opts.Library == nil {
		return nil, fmt.Errorf("source: %s: no demuxing library configured: %w", id, media.ErrInvalidArgument)
	}
	return OpenLive(ctx, id, LiveOptions{
		Library:       opts.Library,
		QueueCapacity: opts.QueueCapacity,
		PollWait:      opts.PollWait,
		ReloadTimeout: opts.ReloadTimeout,
		Log:           opts.Log,
	})
}
