package utils

import (
	"net/http"
	"time"
)

// sharedTransport is reused by every client returned from NewPooledClient so the
// LLM, weather, rerank and vector clients share one connection pool.
var sharedTransport = &http.Transport{
	Proxy:               http.ProxyFromEnvironment,
	MaxIdleConns:        50,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     120 * time.Second,
}

// NewPooledClient returns an http.Client with the given timeout on the shared transport.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
}
