package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
)

// maxDatagram is the largest UDP payload; reads must not truncate one.
const maxDatagram = 64 * 1024

// datagramReader serves a byte stream out of whole datagrams.
type datagramReader struct {
	conn net.PacketConn
	buf  []byte
	off  int
	n    int
}

func (r *datagramReader) Read(p []byte) (int, error) {
	for r.off == r.n {
		n, _, err := r.conn.ReadFrom(r.buf)
		if err != nil {
			return 0, err
		}
		r.off, r.n = 0, n
	}
	n := copy(p, r.buf[r.off:r.n])
	r.off += n
	return n, nil
}

func openUDP(ctx context.Context, u *url.URL, log *slog.Logger) (*Conn, error) {
	addr, err := net.ResolveUDPAddr("udp", u.Host)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s: %w", u.Host, err)
	}

	var conn *net.UDPConn
	if addr.IP != nil && addr.IP.IsMulticast() {
		var ifi *net.Interface
		if name := u.Query().Get("iface"); name != "" {
			if ifi, err = net.InterfaceByName(name); err != nil {
				return nil, fmt.Errorf("transport: interface %s: %w", name, err)
			}
		}
		conn, err = net.ListenMulticastUDP("udp", ifi, addr)
		log.Debug("joined multicast group", "group", addr.IP, "port", addr.Port)
	} else {
		conn, err = net.ListenUDP("udp", addr)
	}
	if err != nil {
		return nil, fmt.Errorf("transport: listen %s: %w", u.Host, err)
	}
	if err := ctx.Err(); err != nil {
		conn.Close()
		return nil, err
	}

	r := &datagramReader{conn: conn, buf: make([]byte, maxDatagram)}
	return newConn("udp", r, conn.Close, conn.LocalAddr().String()), nil
}
