package reputation

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/phishguard/phishguard/pkg/httputil"
)

const defaultBaseURL = "https://www.virustotal.com"

// Config configures the VirusTotal-backed Service.
type Config struct {
	// APIKey enables the service; empty means disabled (no lookups).
	APIKey string
	// BaseURL overrides the provider endpoint (tests).
	BaseURL string
	// Timeout bounds a single lookup (default 3500ms).
	Timeout time.Duration
	// Cache stores verdicts; defaults to an in-memory TTL cache.
	Cache Cache
	// MaxInFlight caps concurrent provider calls (default 8).
	MaxInFlight int
	// Logger for degradation events; a zerolog.Nop() works fine.
	Logger zerolog.Logger
}

// VirusTotal looks up domain verdicts via the VirusTotal v3 API.
// Safe for concurrent use; the cache serializes its own state.
type VirusTotal struct {
	apiKey  string
	baseURL string
	timeout time.Duration
	cache   Cache
	client  *http.Client
	sem     *httputil.Semaphore
	log     zerolog.Logger
}

// NewVirusTotal builds the service. It is always safe to construct and
// call; without an API key every lookup is a no-op returning nil.
func NewVirusTotal(cfg Config) *VirusTotal {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3500 * time.Millisecond
	}
	if cfg.Cache == nil {
		cfg.Cache = NewMemoryCache(DefaultTTL)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	return &VirusTotal{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		cache:   cfg.Cache,
		client:  httputil.Client(),
		sem:     httputil.NewSemaphore(cfg.MaxInFlight),
		log:     cfg.Logger,
	}
}

// Enabled reports whether an API key is configured.
func (v *VirusTotal) Enabled() bool { return v.apiKey != "" }

// vtResponse mirrors the slice of the v3 domain object we care about.
type vtResponse struct {
	Data struct {
		Attributes struct {
			LastAnalysisStats struct {
				Malicious  int `json:"malicious"`
				Suspicious int `json:"suspicious"`
				Harmless   int `json:"harmless"`
				Undetected int `json:"undetected"`
			} `json:"last_analysis_stats"`
		} `json:"attributes"`
	} `json:"data"`
}

// LookupDomain resolves one domain. Results (including negative ones)
// are cached for DefaultTTL. Provider failures degrade to nil and are
// cached too, so a dead provider costs one call per domain per TTL.
func (v *VirusTotal) LookupDomain(ctx context.Context, domain string) *Result {
	d := strings.ToLower(strings.TrimSpace(domain))
	if d == "" || !v.Enabled() {
		return nil
	}

	key := "vt:domain:" + d
	if cached, found := v.cache.Get(ctx, key); found {
		return cached
	}

	res := v.fetch(ctx, d)
	v.cache.Set(ctx, key, res)
	return res
}

func (v *VirusTotal) fetch(ctx context.Context, domain string) *Result {
	if err := v.sem.Acquire(ctx); err != nil {
		return nil
	}
	defer v.sem.Release()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/v3/domains/"+domain, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("x-apikey", v.apiKey)

	resp, err := v.client.Do(req)
	if err != nil {
		v.log.Debug().Err(err).Str("domain", domain).Msg("reputation lookup failed, degrading to no intel")
		return nil
	}
	defer httputil.DrainAndClose(resp.Body)

	if resp.StatusCode == http.StatusNotFound {
		// Unknown domain: no intel, do not penalize.
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		v.log.Debug().Int("status", resp.StatusCode).Str("domain", domain).Msg("reputation lookup non-2xx, degrading to no intel")
		return nil
	}

	body, err := httputil.ReadResponseBody(resp.Body, httputil.MaxResponseSize)
	if err != nil {
		return nil
	}

	var parsed vtResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		v.log.Debug().Err(err).Str("domain", domain).Msg("reputation response unparseable, degrading to no intel")
		return nil
	}

	stats := parsed.Data.Attributes.LastAnalysisStats
	return &Result{
		Domain:     domain,
		Malicious:  stats.Malicious,
		Suspicious: stats.Suspicious,
		Harmless:   stats.Harmless,
		Undetected: stats.Undetected,
	}
}
