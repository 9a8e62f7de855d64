package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/quicvarint"

	"github.com/zsiec/austream/internal/certs"
)

var payload = bytes.Repeat([]byte{0x47, 0x01, 0x00, 0x10}, 47*10)

func readN(t *testing.T, c *Conn, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if _, err := io.ReadFull(c, buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	return buf
}

func TestExtractStreamKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		streamID string
		want     string
	}{
		{name: "simple key", streamID: "camera1", want: "camera1"},
		{name: "leading slash", streamID: "/camera1", want: "camera1"},
		{name: "live prefix", streamID: "live/camera1", want: "camera1"},
		{name: "slash and live prefix", streamID: "/live/camera1", want: "camera1"},
		{name: "empty returns default", streamID: "", want: "default"},
		{name: "just slash returns default", streamID: "/", want: "default"},
		{name: "nested path preserved", streamID: "studio/camera1", want: "studio/camera1"},
		{name: "live in name preserved", streamID: "liveshow", want: "liveshow"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := extractStreamKey(tc.streamID); got != tc.want {
				t.Errorf("extractStreamKey(%q) = %q, want %q", tc.streamID, got, tc.want)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	if _, err := Open(ctx, "rtmp://host/app", Options{}); !errors.Is(err, ErrUnsupportedScheme) {
		t.Errorf("rtmp: err = %v, want ErrUnsupportedScheme", err)
	}
	if _, err := Open(ctx, "file:///definitely/missing.ts", Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: err = %v, want not exist", err)
	}
	if _, err := Open(ctx, "quic://127.0.0.1:1?fingerprint=zz", Options{}); err == nil {
		t.Error("bad fingerprint: expected error")
	}
}

func TestOpen_File(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "in.ts")
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		t.Fatal(err)
	}

	c, err := Open(context.Background(), "file://"+path, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	got, err := io.ReadAll(c)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("file contents mismatch")
	}
	st := c.Stats()
	if st.Scheme != "file" || st.BytesReceived != int64(len(payload)) || st.ReadCount == 0 || st.RemoteAddr != path {
		t.Errorf("Stats = %+v", st)
	}
}

func TestOpen_TCP(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write(payload)
	}()

	c, err := Open(context.Background(), "tcp://"+ln.Addr().String(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	if got := readN(t, c, len(payload)); !bytes.Equal(got, payload) {
		t.Fatal("tcp contents mismatch")
	}
}

func TestOpen_UDP(t *testing.T) {
	t.Parallel()
	probe, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	addr := probe.LocalAddr().String()
	probe.Close()

	c, err := Open(context.Background(), "udp://"+addr, Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	tx, err := net.Dial("udp", addr)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Close()
	datagram := payload[:1316]
	if _, err := tx.Write(datagram); err != nil {
		t.Fatal(err)
	}

	// Small reads must not lose the rest of the datagram.
	got := append(readN(t, c, 188), readN(t, c, 1316-188)...)
	if !bytes.Equal(got, datagram) {
		t.Fatal("udp contents mismatch")
	}
}

func TestOpen_HTTP(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/live.ts" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "video/mp2t")
		w.Write(payload)
	}))
	defer srv.Close()

	c, err := Open(context.Background(), srv.URL+"/live.ts", Options{})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	got, err := io.ReadAll(c)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("http contents mismatch")
	}

	if _, err := Open(context.Background(), srv.URL+"/missing.ts", Options{}); err == nil {
		t.Error("expected error for 404")
	}
}

// serveQUIC accepts one connection, reads the requested stream key and
// answers with payload on a unidirectional stream.
func serveQUIC(t *testing.T, cert *certs.CertInfo, keys chan<- string) string {
	t.Helper()
	ln, err := quic.ListenAddr("127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert.TLSCert},
		NextProtos:   []string{QUICProtocol},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		ctx := context.Background()
		conn, err := ln.Accept(ctx)
		if err != nil {
			return
		}
		req, err := conn.AcceptUniStream(ctx)
		if err != nil {
			return
		}
		r := quicvarint.NewReader(req)
		n, err := quicvarint.Read(r)
		if err != nil {
			return
		}
		key := make([]byte, n)
		if _, err := io.ReadFull(r, key); err != nil {
			return
		}
		keys <- string(key)

		out, err := conn.OpenUniStreamSync(ctx)
		if err != nil {
			return
		}
		out.Write(payload)
		out.Close()
		<-conn.Context().Done()
	}()
	return ln.Addr().String()
}

func TestOpen_QUICPinned(t *testing.T) {
	t.Parallel()
	cert, err := certs.Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	keys := make(chan string, 1)
	addr := serveQUIC(t, cert, keys)

	uri := "quic://" + addr + "/live/cam1?fingerprint=" + url.QueryEscape(cert.FingerprintBase64())
	c, err := Open(context.Background(), uri, Options{DialTimeout: 5 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if key := <-keys; key != "cam1" {
		t.Errorf("server saw stream key %q, want cam1", key)
	}
	if got := readN(t, c, len(payload)); !bytes.Equal(got, payload) {
		t.Fatal("quic contents mismatch")
	}
	if c.Stats().Scheme != "quic" {
		t.Errorf("scheme = %q", c.Stats().Scheme)
	}
}

func TestOpen_QUICWrongPin(t *testing.T) {
	t.Parallel()
	cert, err := certs.Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	other, err := certs.Generate(time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	addr := serveQUIC(t, cert, make(chan string, 1))

	_, err = Open(context.Background(), "quic://"+addr, Options{
		DialTimeout:     5 * time.Second,
		QUICFingerprint: other.Fingerprint,
	})
	if err == nil {
		t.Fatal("expected handshake failure with a mismatched pin")
	}
}

func TestDialWithTimeout(t *testing.T) {
	t.Parallel()
	release := make(chan struct{})
	closed := make(chan int, 1)
	_, err := dialWithTimeout(context.Background(), 10*time.Millisecond,
		func() (int, error) { <-release; return 7, nil },
		func(v int) { closed <- v })
	if err == nil {
		t.Fatal("expected timeout")
	}
	close(release)
	select {
	case v := <-closed:
		if v != 7 {
			t.Errorf("closed %d, want 7", v)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("late connection was not closed")
	}
}
