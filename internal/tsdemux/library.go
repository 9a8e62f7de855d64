package tsdemux

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/zsiec/austream/internal/media"
	"github.com/zsiec/austream/internal/mpegts"
	"github.com/zsiec/austream/internal/puller"
	"github.com/zsiec/austream/internal/transport"
)

// Options configures a Library.
type Options struct {
	ProbeSize int64
	Transport transport.Options
	Log       *slog.Logger
}

// Library opens MPEG-TS sources over any transport scheme.
type Library struct {
	opts Options
	log  *slog.Logger

	current atomic.Pointer[opened]
}

type opened struct {
	conn  *transport.Conn
	demux *Demuxer
}

var _ puller.Library = (*Library)(nil)

// New returns a Library.
func New(opts Options) *Library {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.Transport.Log == nil {
		opts.Transport.Log = log
	}
	return &Library{opts: opts, log: log}
}

// Open connects to uri. The stream is not read until Streams is called.
func (l *Library) Open(ctx context.Context, uri string) (puller.Demuxer, error) {
	conn, err := transport.Open(ctx, uri, l.opts.Transport)
	if err != nil {
		return nil, fmt.Errorf("tsdemux: %w: %w", media.ErrSourceUnavailable, err)
	}
	d := NewDemuxer(conn, l.opts.ProbeSize, l.log.With("uri", uri))
	l.current.Store(&opened{conn: conn, demux: d})
	return d, nil
}

// TransportStats returns the counters of the most recently opened
// connection.
func (l *Library) TransportStats() (transport.Stats, bool) {
	o := l.current.Load()
	if o == nil {
		return transport.Stats{}, false
	}
	return o.conn.Stats(), true
}

// DemuxStats returns the transport stream counters of the most recently
// opened source.
func (l *Library) DemuxStats() (Stats, bool) {
	o := l.current.Load()
	if o == nil {
		return Stats{}, false
	}
	return Stats{Reader: o.demux.Stats(), BytesRead: o.demux.BytesRead()}, true
}

// Stats combines reader counters with the input byte count.
type Stats struct {
	Reader    mpegts.Stats
	BytesRead int64
}
