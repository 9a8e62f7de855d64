package transport

import (
	"fmt"
	"net/url"
	"os"
)

func openFile(u *url.URL) (*Conn, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	return newConn("file", f, f.Close, path), nil
}
