// Package proxy builds HTTP clients that reach the model providers
// through a SOCKS5 proxy.
package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/proxy"
)

const clientTimeout = 120 * time.Second

// NewSocksClient returns an HTTP client dialing through socksAddr. An
// empty address returns nil, meaning the SDK default client.
func NewSocksClient(socksAddr string) (*http.Client, error) {
	if socksAddr == "" {
		return nil, nil
	}

	dialer, err := proxy.SOCKS5("tcp", socksAddr, nil, proxy.Direct)
	if err != nil {
		return nil, err
	}

	cd, ok := dialer.(proxy.ContextDialer)
	if !ok {
		return nil, errors.New("socks dialer does not support contexts")
	}

	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return cd.DialContext(ctx, network, addr)
		},
		ForceAttemptHTTP2:   true,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   clientTimeout,
	}, nil
}
