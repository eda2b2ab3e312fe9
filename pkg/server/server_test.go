package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phishguard/phishguard/pkg/analyzer"
	"github.com/phishguard/phishguard/pkg/rules"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	an, err := analyzer.NewFromFile("", analyzer.Options{})
	require.NoError(t, err)
	return New(an, zerolog.Nop(), "test")
}

func doJSON(t *testing.T, s *Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, raw
}

func TestHealth(t *testing.T) {
	s := testServer(t)

	resp, raw := doJSON(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestIDPropagated(t *testing.T) {
	s := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := s.App().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestListRules(t *testing.T) {
	s := testServer(t)

	resp, raw := doJSON(t, s, http.MethodGet, "/rules", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var list []rules.Summary
	require.NoError(t, json.Unmarshal(raw, &list))
	require.NotEmpty(t, list)
	assert.NotEmpty(t, list[0].ID)
}

func TestAnalyzeEndpoint(t *testing.T) {
	s := testServer(t)

	body := `{"subject":"URGENT","body":"Please verify your account at https://bit.ly/x1"}`
	resp, raw := doJSON(t, s, http.MethodPost, "/analyze", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var res rules.AnalysisResult
	require.NoError(t, json.Unmarshal(raw, &res))
	assert.Greater(t, res.Score, 0)
	assert.NotEmpty(t, res.Hits)
	assert.NotEmpty(t, res.Recommendations)
}

func TestAnalyzeRejectsEmptyRequest(t *testing.T) {
	s := testServer(t)

	resp, raw := doJSON(t, s, http.MethodPost, "/analyze", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Contains(t, body["error"], "at least")
}

func TestAnalyzeRejectsMalformedJSON(t *testing.T) {
	s := testServer(t)

	resp, _ := doJSON(t, s, http.MethodPost, "/analyze", `{"subject":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
