package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zsiec/austream/internal/media"
	"github.com/zsiec/austream/internal/puller"
)

// Live defaults.
const (
	DefaultPollWait      = 10 * time.Millisecond
	DefaultReloadTimeout = 5 * time.Second
)

// LiveOptions configures a Live source.
type LiveOptions struct {
	Library       puller.Library
	QueueCapacity int
	// PollWait bounds how long NextUnit waits on an empty queue.
	PollWait time.Duration
	// ReloadTimeout bounds how long Reload waits for the puller to stop.
	ReloadTimeout time.Duration
	Log           *slog.Logger
}

// Live is a PacketSource over a network stream. A puller fills a Queue in
// the background and NextUnit drains it; it never reports a last unit.
type Live struct {
	uri   string
	log   *slog.Logger
	opts  LiveOptions
	queue *Queue
	pull  *puller.Puller
}

// OpenLive prepares uri and starts pulling from it.
func OpenLive(ctx context.Context, uri string, opts LiveOptions) (*Live, error) {
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	if opts.PollWait <= 0 {
		opts.PollWait = DefaultPollWait
	}
	if opts.ReloadTimeout <= 0 {
		opts.ReloadTimeout = DefaultReloadTimeout
	}

	q := NewQueue(opts.QueueCapacity, log)
	p := puller.New(puller.Options{Library: opts.Library, Handler: q, Log: log})
	if err := p.Prepare(ctx, uri); err != nil {
		p.Close()
		log.Error("live source unavailable", "uri", uri, "error", err)
		return nil, err
	}
	p.Start()

	return &Live{
		uri:   uri,
		log:   log.With("component", "live-source", "uri", uri),
		opts:  opts,
		queue: q,
		pull:  p,
	}, nil
}

// NextUnit returns the oldest queued unit, or an empty unit when none
// arrived within the poll wait. last is always false.
func (s *Live) NextUnit(ctx context.Context) ([]byte, bool, error) {
	if s.pull.State() == puller.StateClosed {
		return nil, false, fmt.Errorf("source: %s: %w", s.uri, media.ErrClosed)
	}
	unit, err := s.queue.Next(ctx, s.opts.PollWait)
	return unit, false, err
}

// Reload stops the puller, waits until its loop has exited, and starts it
// again. Units already queued stay queued.
func (s *Live) Reload(ctx context.Context) error {
	if s.pull.State() == puller.StateClosed {
		return fmt.Errorf("source: reload %s: %w", s.uri, media.ErrClosed)
	}
	s.log.Debug("reloading")
	s.pull.Stop()

	wctx, cancel := context.WithTimeout(ctx, s.opts.ReloadTimeout)
	defer cancel()
	if err := s.pull.WaitStopped(wctx); err != nil {
		return fmt.Errorf("source: reload %s: puller did not stop: %w", s.uri, err)
	}
	s.pull.Start()
	if st := s.pull.State(); st != puller.StateRunning {
		return fmt.Errorf("source: reload %s: puller %s after restart: %w", s.uri, st, media.ErrInvalidState)
	}
	return nil
}

// Close stops the puller and releases the source.
func (s *Live) Close() error {
	return s.pull.Close()
}

// Metadata returns the selected stream metadata.
func (s *Live) Metadata() media.Metadata {
	md, _ := s.pull.Metadata()
	return md
}

// LiveStats combines puller and queue counters.
type LiveStats struct {
	Puller puller.Stats
	Queue  QueueStats
}

// Stats returns a snapshot of the live source counters.
func (s *Live) Stats() LiveStats {
	return LiveStats{Puller: s.pull.Stats(), Queue: s.queue.Stats()}
}

// Err returns the error that ended the last pull loop, if any.
func (s *Live) Err() error {
	return s.pull.Err()
}

// Stopped reports whether the pull loop has exited, for example at end of
// stream.
func (s *Live) Stopped() bool {
	return s.pull.IsStopped()
}
