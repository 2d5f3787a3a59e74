// Package httputil provides hardened HTTP clients and input sanitization utilities.
package httputil

import (
	"crypto/tls"
	"net/http"
	"time"
)

// UserAgent is sent on upstream requests that need to look like a browser.
const UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"

// DefaultTimeout bounds catalog resolution calls.
const DefaultTimeout = 30 * time.Second

// NewClient creates a hardened HTTP client with the given overall timeout.
// A zero timeout means no overall limit, which the streaming path relies on.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newTransport(),
	}
}

func newTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: DefaultTimeout,
	}
}

// SetBrowserHeaders sets browser-like request headers.
func SetBrowserHeaders(req *http.Request, accept string) {
	req.Header.Set("User-Agent", UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
}
