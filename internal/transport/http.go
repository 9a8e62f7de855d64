package transport

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
)

func openHTTP(ctx context.Context, u *url.URL, opts Options) (*Conn, error) {
	// The body is a long-lived stream, so only connection setup is bounded.
	client := &http.Client{Transport: &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: opts.DialTimeout}).DialContext,
		ResponseHeaderTimeout: opts.DialTimeout,
		TLSHandshakeTimeout:   opts.DialTimeout,
	}}

	req, err := http.NewRequestWithContext(context.WithoutCancel(ctx), http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("transport: request %s: %w", u.Redacted(), err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transport: GET %s: %w", u.Redacted(), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("transport: GET %s: unexpected status %s", u.Redacted(), resp.Status)
	}
	return newConn(u.Scheme, resp.Body, resp.Body.Close, u.Host), nil
}
