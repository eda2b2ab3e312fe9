// Package httputil provides the shared HTTP plumbing used for external
// intelligence lookups: a pooled transport, a shared client and bounded
// response reads.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize bounds response body reads so a misbehaving upstream
// cannot balloon memory.
const MaxResponseSize = 4 * 1024 * 1024 // 4MB

// Shared transport with connection pooling; safe for concurrent use and
// reused across all clients so TCP connections are recycled.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          64,
	MaxIdleConnsPerHost:   8,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

var (
	sharedClient *http.Client
	clientOnce   sync.Once
)

// Client returns the shared lookup client. Its 5s timeout is a
// backstop for lookups sitting on the analysis path; callers should
// additionally bound individual requests with a context. Use this
// instead of constructing http.Client values per request.
func Client() *http.Client {
	clientOnce.Do(func() {
		sharedClient = &http.Client{Timeout: 5 * time.Second, Transport: sharedTransport}
	})
	return sharedClient
}

// ReadResponseBody reads an HTTP response body with a size limit.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose drains and closes a response body so the underlying
// connection returns to the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
