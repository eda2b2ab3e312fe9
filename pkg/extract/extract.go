// Package extract scans raw message text for URLs, domains, email
// addresses and phone-like numbers. Extraction is best-effort signal
// generation: malformed candidates are dropped, never surfaced as errors.
package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// Characters that often wrap URLs in emails/chats.
const wrappingChars = "\"'<>[](){}"

// Characters that commonly trail URLs (sentence punctuation).
const trailingPunct = ".,;:!?…"

var (
	// A pragmatic URL regex: captures http/https URLs, stops at
	// whitespace and the wrapper characters that never belong to a URL.
	urlRe = regexp.MustCompile(`(?i)\bhttps?://[^\s<>\]]+`)

	// Simple, safe email regex (good enough for phishing signals).
	emailRe = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]{1,64}@(?:[a-z0-9-]{1,63}\.)+[a-z]{2,63}\b`)

	// Conservative phone candidate: optional country code, grouped
	// digits. RE2 has no lookaround, so word boundaries are emulated
	// with explicit non-word context around the capture group.
	phoneRe = regexp.MustCompile(`(?:^|[^0-9A-Za-z_])((?:\+?[0-9]{1,3}[\s-]?)?\(?[0-9]{2,4}\)?[\s-]?[0-9]{3}[\s-]?[0-9]{4})(?:[^0-9A-Za-z_]|$)`)

	nonDigitRe = regexp.MustCompile(`[^0-9]+`)
)

// Known URL-shortener hostnames (www.-stripped).
var shortenerDomains = map[string]bool{
	"bit.ly":      true,
	"t.co":        true,
	"tinyurl.com": true,
	"goo.gl":      true,
	"ow.ly":       true,
	"is.gd":       true,
	"buff.ly":     true,
	"cutt.ly":     true,
	"rebrand.ly":  true,
	"shorturl.at": true,
}

// Artifacts holds the structured artifacts extracted from message text.
// Each slice is deduplicated in first-appearance order. Meant for rules
// and services, not UI.
type Artifacts struct {
	URLs    []string `json:"urls"`
	Domains []string `json:"domains"`
	Emails  []string `json:"emails"`
	Phones  []string `json:"phones"`
}

// All extracts urls/domains/emails/phones from text in one pass.
func All(text string) Artifacts {
	urls := URLs(text)
	return Artifacts{
		URLs:    urls,
		Domains: Domains(urls),
		Emails:  Emails(text),
		Phones:  Phones(text),
	}
}

// URLs extracts http/https URLs from text, with cleanup: wrapping
// quotes/brackets removed, trailing punctuation trimmed, one layer of
// balanced wrappers stripped. Returns unique URLs in appearance order.
func URLs(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)

	for _, raw := range urlRe.FindAllString(text, -1) {
		u := cleanURL(raw)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}

	return out
}

// cleanURL cleans a URL candidate without being too clever. The goal is
// stable extraction, not full RFC compliance. Returns "" for candidates
// that no longer look like a parseable http(s) URL after cleaning.
func cleanURL(raw string) string {
	s := strings.TrimSpace(raw)

	// Strip wrapping characters from both ends.
	s = strings.Trim(s, wrappingChars)

	// Trim trailing sentence punctuation (".", ",", "!", "…", ...).
	s = strings.TrimRight(s, trailingPunct)

	// Strip trailing wrappers exposed by punctuation removal,
	// e.g. "https://example.com/a?x=1)," -> ")" after comma removal.
	s = strings.TrimRight(s, wrappingChars)

	// Remove one level of balanced wrappers: "(https://x)" -> "https://x".
	s = stripBalancedWrappers(s)

	lower := strings.ToLower(s)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return ""
	}

	parsed, err := url.Parse(s)
	if err != nil || parsed.Host == "" {
		return ""
	}

	return s
}

var wrapperPairs = [][2]string{
	{"(", ")"}, {"[", "]"}, {"{", "}"}, {"<", ">"}, {`"`, `"`}, {"'", "'"},
}

func stripBalancedWrappers(s string) string {
	if len(s) < 2 {
		return s
	}
	for _, pair := range wrapperPairs {
		if strings.HasPrefix(s, pair[0]) && strings.HasSuffix(s, pair[1]) {
			return strings.TrimSpace(s[1 : len(s)-1])
		}
	}
	return s
}

// Domains derives normalized domains from URLs: lowercased, port
// stripped, leading "www." and trailing dot removed. Returns unique
// domains in appearance order.
func Domains(urls []string) []string {
	var out []string
	seen := make(map[string]bool)

	for _, u := range urls {
		d := DomainFromURL(u)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}

	return out
}

// DomainFromURL parses and normalizes the hostname from a URL.
func DomainFromURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	host := strings.ToLower(strings.TrimSpace(parsed.Hostname()))
	if host == "" {
		return ""
	}

	host = strings.TrimPrefix(host, "www.")
	host = strings.TrimRight(host, ".")

	return host
}

// Emails extracts email addresses, lowercased, unique, in appearance order.
func Emails(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)

	for _, m := range emailRe.FindAllString(text, -1) {
		email := strings.ToLower(m)
		if seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, email)
	}

	return out
}

// Phones extracts phone-like numbers (conservative), normalized to
// digits with an optional leading "+". Unique in appearance order.
//
// This is optional signal only. Expect some false positives; keep
// weights low if rules ever consume it.
func Phones(text string) []string {
	if text == "" {
		return nil
	}

	var out []string
	seen := make(map[string]bool)

	for _, m := range phoneRe.FindAllStringSubmatch(text, -1) {
		norm := normalizePhone(m[1])
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}

	return out
}

// normalizePhone keeps a leading "+" and digits only, and rejects
// candidates with fewer than 9 digits (anti-false-positive floor).
func normalizePhone(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	plus := strings.HasPrefix(s, "+")
	digits := nonDigitRe.ReplaceAllString(s, "")

	if len(digits) < 9 {
		return ""
	}

	if plus {
		return "+" + digits
	}
	return digits
}

// IsShortenerDomain reports whether domain is a known link shortener.
func IsShortenerDomain(domain string) bool {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "www.")
	return shortenerDomains[d]
}

// IsPunycodeDomain reports whether domain carries an IDN (xn--) label.
func IsPunycodeDomain(domain string) bool {
	return strings.Contains(strings.ToLower(domain), "xn--")
}

// SubdomainCount returns the number of dot-separated labels in domain.
// Example: a.b.c.example.com -> 5.
func SubdomainCount(domain string) int {
	d := strings.ToLower(strings.Trim(domain, "."))
	if d == "" {
		return 0
	}
	n := 0
	for _, p := range strings.Split(d, ".") {
		if p != "" {
			n++
		}
	}
	return n
}
