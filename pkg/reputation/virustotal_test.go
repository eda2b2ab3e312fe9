package reputation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const vtDomainJSON = `{
  "data": {
    "attributes": {
      "last_analysis_stats": {
        "malicious": 3,
        "suspicious": 1,
        "harmless": 60,
        "undetected": 10
      }
    }
  }
}`

func TestLookupDomainParsesStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/domains/bad.example", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-apikey"))
		_, _ = w.Write([]byte(vtDomainJSON))
	}))
	defer srv.Close()

	vt := NewVirusTotal(Config{APIKey: "test-key", BaseURL: srv.URL})
	res := vt.LookupDomain(context.Background(), "Bad.Example")

	require.NotNil(t, res)
	assert.Equal(t, "bad.example", res.Domain)
	assert.Equal(t, 3, res.Malicious)
	assert.Equal(t, 1, res.Suspicious)
	assert.True(t, res.Flagged())
}

func TestLookupDomainDisabledMakesNoCall(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	vt := NewVirusTotal(Config{APIKey: "", BaseURL: srv.URL})

	assert.False(t, vt.Enabled())
	assert.Nil(t, vt.LookupDomain(context.Background(), "any.example"))
	assert.Equal(t, int64(0), calls.Load())
}

func TestLookupDomain404IsNoIntelAndCached(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	vt := NewVirusTotal(Config{APIKey: "k", BaseURL: srv.URL})

	assert.Nil(t, vt.LookupDomain(context.Background(), "unknown.example"))
	assert.Nil(t, vt.LookupDomain(context.Background(), "unknown.example"))
	assert.Equal(t, int64(1), calls.Load(), "negative result should be cached")
}

func TestLookupDomainErrorDegradesToNil(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	vt := NewVirusTotal(Config{APIKey: "k", BaseURL: srv.URL})
	assert.Nil(t, vt.LookupDomain(context.Background(), "rate.example"))
}

func TestLookupDomainCachesPositiveResult(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(vtDomainJSON))
	}))
	defer srv.Close()

	vt := NewVirusTotal(Config{APIKey: "k", BaseURL: srv.URL})

	first := vt.LookupDomain(context.Background(), "bad.example")
	second := vt.LookupDomain(context.Background(), "bad.example")

	require.NotNil(t, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), calls.Load())
}

func TestMemoryCacheNegativeEntry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	ctx := context.Background()

	_, found := c.Get(ctx, "missing")
	assert.False(t, found)

	c.Set(ctx, "neg", nil)
	res, found := c.Get(ctx, "neg")
	assert.True(t, found, "negative entries are still cache hits")
	assert.Nil(t, res)
}

func TestRedisCacheRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewRedisCache(rdb, time.Minute)
	ctx := context.Background()

	c.Set(ctx, "vt:domain:bad.example", &Result{Domain: "bad.example", Malicious: 2})
	res, found := c.Get(ctx, "vt:domain:bad.example")
	require.True(t, found)
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Malicious)

	c.Set(ctx, "vt:domain:none.example", nil)
	res, found = c.Get(ctx, "vt:domain:none.example")
	assert.True(t, found)
	assert.Nil(t, res)

	_, found = c.Get(ctx, "vt:domain:absent.example")
	assert.False(t, found)
}
