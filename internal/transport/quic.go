package transport

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/quicvarint"

	"github.com/zsiec/austream/internal/certs"
)

// QUICProtocol is the ALPN token of the quic:// transport. The client opens
// a unidirectional stream carrying a varint-prefixed stream key; the server
// answers on a unidirectional stream of its own with raw MPEG-TS.
const QUICProtocol = "austream-ts"

func openQUIC(ctx context.Context, u *url.URL, opts Options) (*Conn, error) {
	tlsConf, err := quicTLSConfig(u, opts)
	if err != nil {
		return nil, err
	}

	dctx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	conn, err := quic.DialAddr(dctx, u.Host, tlsConf, &quic.Config{
		MaxIdleTimeout:  30 * time.Second,
		KeepAlivePeriod: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("transport: QUIC dial %s: %w", u.Host, err)
	}
	fail := func(err error) (*Conn, error) {
		conn.CloseWithError(0, "")
		return nil, err
	}

	req, err := conn.OpenUniStreamSync(dctx)
	if err != nil {
		return fail(fmt.Errorf("transport: QUIC open request stream: %w", err))
	}
	key := extractStreamKey(u.Path)
	if _, err := req.Write(append(quicvarint.Append(nil, uint64(len(key))), key...)); err != nil {
		return fail(fmt.Errorf("transport: QUIC write request: %w", err))
	}
	req.Close()

	stream, err := conn.AcceptUniStream(dctx)
	if err != nil {
		return fail(fmt.Errorf("transport: QUIC accept media stream: %w", err))
	}

	closer := func() error {
		stream.CancelRead(0)
		return conn.CloseWithError(0, "")
	}
	return newConn("quic", stream, closer, conn.RemoteAddr().String()), nil
}

func quicTLSConfig(u *url.URL, opts Options) (*tls.Config, error) {
	fp := opts.QUICFingerprint
	if s := u.Query().Get("fingerprint"); s != "" {
		var err error
		if fp, err = certs.ParseFingerprint(s); err != nil {
			return nil, fmt.Errorf("transport: %w", err)
		}
	}
	if fp != ([32]byte{}) {
		return certs.PinnedConfig(fp, QUICProtocol), nil
	}
	return &tls.Config{ServerName: u.Hostname(), NextProtos: []string{QUICProtocol}}, nil
}
