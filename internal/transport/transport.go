package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"
)

// ErrUnsupportedScheme is returned for URIs no transport handles.
var ErrUnsupportedScheme = errors.New("transport: unsupported scheme")

// DefaultDialTimeout bounds connection setup.
const DefaultDialTimeout = 10 * time.Second

// Options configures Open.
type Options struct {
	DialTimeout time.Duration
	// QUICFingerprint pins the server certificate for quic:// when the URI
	// has no fingerprint parameter. Zero means verify against system roots.
	QUICFingerprint [32]byte
	Log             *slog.Logger
}

// Stats captures connection-level counters of a Conn.
type Stats struct {
	Scheme        string
	RemoteAddr    string
	BytesReceived int64
	ReadCount     int64
	ConnectedAt   time.Time
	Uptime        time.Duration
}

// Conn is an open live byte stream. Close unblocks a pending Read.
type Conn struct {
	scheme      string
	r           io.Reader
	closer      func() error
	connectedAt time.Time

	closeOnce sync.Once
	closeErr  error

	bytesReceived atomic.Int64
	readCount     atomic.Int64
	remoteAddr    atomic.Value
}

func newConn(scheme string, r io.Reader, closer func() error, remote string) *Conn {
	c := &Conn{scheme: scheme, r: r, closer: closer, connectedAt: time.Now()}
	c.remoteAddr.Store(remote)
	return c
}

// Read reads from the underlying stream and records the read.
func (c *Conn) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.bytesReceived.Add(int64(n))
		c.readCount.Add(1)
	}
	return n, err
}

// Close closes the stream once.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		if c.closer != nil {
			c.closeErr = c.closer()
		}
	})
	return c.closeErr
}

// Stats returns a snapshot of the connection counters.
func (c *Conn) Stats() Stats {
	addr, _ := c.remoteAddr.Load().(string)
	return Stats{
		Scheme:        c.scheme,
		RemoteAddr:    addr,
		BytesReceived: c.bytesReceived.Load(),
		ReadCount:     c.readCount.Load(),
		ConnectedAt:   c.connectedAt,
		Uptime:        time.Since(c.connectedAt),
	}
}

// Open connects to uri and returns its byte stream.
func Open(ctx context.Context, uri string, opts Options) (*Conn, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("transport: parse %q: %w", uri, err)
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	log := opts.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "transport", "scheme", u.Scheme)

	var c *Conn
	switch u.Scheme {
	case "srt":
		c, err = openSRT(ctx, u, opts, log)
	case "udp":
		c, err = openUDP(ctx, u, log)
	case "tcp":
		c, err = openTCP(ctx, u, opts)
	case "quic":
		c, err = openQUIC(ctx, u, opts)
	case "http", "https":
		c, err = openHTTP(ctx, u, opts)
	case "file":
		c, err = openFile(u)
	default:
		return nil, fmt.Errorf("%w %q", ErrUnsupportedScheme, u.Scheme)
	}
	if err != nil {
		return nil, err
	}
	log.Info("connected", "remote", c.Stats().RemoteAddr)
	return c, nil
}

// dialResult is the outcome of a blocking dial run in its own goroutine.
type dialResult[T any] struct {
	conn T
	err  error
}

// dialWithTimeout runs dial in a goroutine so that a library dial without
// context support still honors ctx and timeout. A connection that arrives
// after giving up is closed.
func dialWithTimeout[T any](ctx context.Context, timeout time.Duration, dial func() (T, error), closeLate func(T)) (T, error) {
	ch := make(chan dialResult[T], 1)
	go func() {
		conn, err := dial()
		ch <- dialResult[T]{conn, err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	drain := func() {
		go func() {
			if res := <-ch; res.err == nil {
				closeLate(res.conn)
			}
		}()
	}
	select {
	case res := <-ch:
		return res.conn, res.err
	case <-timer.C:
		drain()
		return zero, fmt.Errorf("dial timed out after %s", timeout)
	case <-ctx.Done():
		drain()
		return zero, ctx.Err()
	}
}
