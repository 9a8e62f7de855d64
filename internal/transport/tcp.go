package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/url"
)

func openTCP(ctx context.Context, u *url.URL, opts Options) (*Conn, error) {
	d := net.Dialer{Timeout: opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("transport: TCP dial %s: %w", u.Host, err)
	}
	return newConn("tcp", bufio.NewReaderSize(conn, 64*1024), conn.Close, conn.RemoteAddr().String()), nil
}
