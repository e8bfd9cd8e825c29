// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// MaxErrorBodySize caps how much of a non-2xx response body is read.
const MaxErrorBodySize = 64 * 1024

// TransportConfig bounds the phases of a request that happen before the
// first byte of the body. The body itself is bounded only by the context,
// since a healthy stream can run for minutes.
type TransportConfig struct {
	// ConnectTimeout bounds TCP connect and TLS handshake (default: 10s)
	ConnectTimeout time.Duration

	// HeaderTimeout bounds the wait for response headers (default: 60s)
	HeaderTimeout time.Duration
}

// DefaultTransportConfig returns the default transport limits.
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ConnectTimeout: 10 * time.Second,
		HeaderTimeout:  60 * time.Second,
	}
}

// NewHTTPClient returns a pooled client for streaming requests. It has no
// overall Timeout; cancellation is through the request context.
func NewHTTPClient(cfg TransportConfig) *http.Client {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.HeaderTimeout <= 0 {
		cfg.HeaderTimeout = 60 * time.Second
	}

	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   cfg.ConnectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   cfg.ConnectTimeout,
			ResponseHeaderTimeout: cfg.HeaderTimeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// ReadErrorBody reads at most MaxErrorBodySize bytes of an error response.
func ReadErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, MaxErrorBodySize))
	if err != nil && len(body) == 0 {
		return fmt.Sprintf("(unreadable body: %v)", err)
	}
	return string(body)
}
