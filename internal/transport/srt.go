package transport

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	srtgo "github.com/zsiec/srtgo"
)

// srtReadBufferSize holds ten 1316-byte SRT payloads (7 TS packets each).
const srtReadBufferSize = 1316 * 10

// srtLatencyNs is the SRT receiver latency (120ms).
const srtLatencyNs = 120_000_000

func openSRT(ctx context.Context, u *url.URL, opts Options, log *slog.Logger) (*Conn, error) {
	q := u.Query()
	if q.Get("mode") == "listener" {
		return listenSRT(ctx, u.Host, q.Get("streamid"), log)
	}

	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs

	if id := q.Get("streamid"); id != "" {
		cfg.StreamID = id
	}
	log.Debug("dialing", "address", u.Host, "stream_id", cfg.StreamID)
	conn, err := dialWithTimeout(ctx, opts.DialTimeout,
		func() (*srtgo.Conn, error) { return srtgo.Dial(u.Host, cfg) },
		func(c *srtgo.Conn) { c.Close() })
	if err != nil {
		return nil, fmt.Errorf("transport: SRT dial %s: %w", u.Host, err)
	}
	return newConn("srt", bufio.NewReaderSize(conn, srtReadBufferSize), conn.Close, u.Host), nil
}

// listenSRT waits for one publisher on addr. When want is set only a
// publisher with that stream key is accepted.
func listenSRT(ctx context.Context, addr string, want string, log *slog.Logger) (*Conn, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = srtLatencyNs

	l, err := srtgo.Listen(addr, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: SRT listen on %s: %w", addr, err)
	}
	log.Info("listening", "addr", addr)

	wantKey := ""
	if want != "" {
		wantKey = extractStreamKey(want)
	}
	l.SetAcceptRejectFunc(func(req srtgo.ConnRequest) srtgo.RejectReason {
		if wantKey != "" && extractStreamKey(req.StreamID) != wantKey {
			return srtgo.RejPeer
		}
		return 0
	})

	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	conn, err := l.Accept()
	if err != nil {
		l.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("transport: SRT accept on %s: %w", addr, err)
	}
	log.Info("publish", "stream_key", extractStreamKey(conn.StreamID()), "remote", conn.RemoteAddr())

	closer := func() error {
		err := conn.Close()
		l.Close()
		return err
	}
	return newConn("srt", bufio.NewReaderSize(conn, srtReadBufferSize), closer, conn.RemoteAddr().String()), nil
}

func extractStreamKey(streamID string) string {
	streamID = strings.TrimPrefix(streamID, "/")
	streamID = strings.TrimPrefix(streamID, "live/")
	if streamID == "" {
		return "default"
	}
	return streamID
}
