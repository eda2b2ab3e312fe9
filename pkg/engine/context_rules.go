package engine

import (
	"context"
	"sort"
	"strings"

	"github.com/phishguard/phishguard/pkg/extract"
	"github.com/phishguard/phishguard/pkg/reputation"
	"github.com/phishguard/phishguard/pkg/rules"
)

// Built-in context rule ids. These rules are not declaratively authored;
// they operate on pre-extracted artifacts instead of raw text.
const (
	RuleIDShortener  = "CTX-URL-SHORTENER"
	RuleIDPunycode   = "CTX-URL-PUNYCODE"
	RuleIDSubdomains = "CTX-URL-SUBDOMAINS"
	RuleIDReputation = "CTX-URL-REPUTATION"
)

// deepSubdomainLabels is the label count at which a domain counts as a
// suspiciously deep subdomain chain.
const deepSubdomainLabels = 5

// contextHits evaluates the built-in heuristics. Each rule only fires
// when a concrete evidence span can be located — no unevidenced hits.
func (e *Engine) contextHits(ctx context.Context, text, haystack string, artifacts *extract.Artifacts) []rules.Hit {
	var out []rules.Hit

	var shorteners []string
	for _, d := range artifacts.Domains {
		if extract.IsShortenerDomain(d) {
			shorteners = append(shorteners, d)
		}
	}
	if len(shorteners) > 0 {
		if ev, ok := evidenceForAnyToken(text, haystack, urlsForDomains(artifacts.URLs, shorteners), shorteners); ok {
			out = append(out, rules.Hit{
				RuleID:   RuleIDShortener,
				Title:    "URL shortener detected",
				Weight:   14,
				Severity: rules.SeverityHigh,
				Action:   rules.ActionBlock,
				Explain:  "Shortened URLs hide the real destination and are commonly used in phishing.",
				Tags:     []string{"links", "context"},
				Evidence: []rules.Evidence{ev},
			})
		}
	}

	var punycode []string
	for _, d := range artifacts.Domains {
		if extract.IsPunycodeDomain(d) {
			punycode = append(punycode, d)
		}
	}
	if len(punycode) > 0 {
		if ev, ok := evidenceForAnyToken(text, haystack, urlsForDomains(artifacts.URLs, punycode), punycode); ok {
			out = append(out, rules.Hit{
				RuleID:   RuleIDPunycode,
				Title:    "Punycode/IDN domain detected",
				Weight:   12,
				Severity: rules.SeverityHigh,
				Action:   rules.ActionBlock,
				Explain:  "Punycode domains (xn--) can be used for lookalike attacks via international characters.",
				Tags:     []string{"links", "context"},
				Evidence: []rules.Evidence{ev},
			})
		}
	}

	var deep []string
	for _, d := range artifacts.Domains {
		if extract.SubdomainCount(d) >= deepSubdomainLabels {
			deep = append(deep, d)
		}
	}
	if len(deep) > 0 {
		if ev, ok := evidenceForAnyToken(text, haystack, urlsForDomains(artifacts.URLs, deep), deep); ok {
			out = append(out, rules.Hit{
				RuleID:   RuleIDSubdomains,
				Title:    "Suspiciously deep subdomain chain",
				Weight:   10,
				Severity: rules.SeverityMedium,
				Action:   rules.ActionVerifyOutOfBand,
				Explain:  "Very deep subdomain chains are often used to impersonate trusted domains.",
				Tags:     []string{"links", "context"},
				Evidence: []rules.Evidence{ev},
			})
		}
	}

	if hit, ok := e.reputationHit(ctx, text, haystack, artifacts); ok {
		out = append(out, hit)
	}

	return out
}

// reputationHit consults the external collaborator once per distinct
// extracted domain. Lookup failures surface as "no intelligence" inside
// the service, so a dead provider simply produces no hit here.
func (e *Engine) reputationHit(ctx context.Context, text, haystack string, artifacts *extract.Artifacts) (rules.Hit, bool) {
	if !e.rep.Enabled() {
		return rules.Hit{}, false
	}

	var flagged []*reputation.Result
	for _, d := range artifacts.Domains {
		if res := e.rep.LookupDomain(ctx, d); res.Flagged() {
			flagged = append(flagged, res)
		}
	}
	if len(flagged) == 0 {
		return rules.Hit{}, false
	}

	// Representative domain: most malicious first, suspicious breaks ties.
	sort.SliceStable(flagged, func(i, j int) bool {
		if flagged[i].Malicious != flagged[j].Malicious {
			return flagged[i].Malicious > flagged[j].Malicious
		}
		return flagged[i].Suspicious > flagged[j].Suspicious
	})
	top := flagged[0]

	ev, ok := evidenceForAnyToken(text, haystack, urlsForDomains(artifacts.URLs, []string{top.Domain}), []string{top.Domain})
	if !ok {
		return rules.Hit{}, false
	}

	weight := 18
	if top.Malicious > 0 {
		weight = 25
	}

	e.log.Info().Str("domain", top.Domain).Int("malicious", top.Malicious).Int("suspicious", top.Suspicious).Msg("domain flagged by reputation service")

	return rules.Hit{
		RuleID:   RuleIDReputation,
		Title:    "Domain flagged by reputation service",
		Weight:   weight,
		Severity: rules.SeverityHigh,
		Action:   rules.ActionBlock,
		Explain:  "External reputation service reports this domain as malicious/suspicious.",
		Tags:     []string{"links", "intel", "context"},
		Evidence: []rules.Evidence{ev},
	}, true
}

// urlsForDomains keeps only the URLs that resolve to one of the given
// domains, so context-rule evidence always points at an offending URL.
// Deliberate narrowing: with several URLs in a message, the evidence
// span is the first URL of a flagged domain, not the first URL overall
// — a shortener hit must never highlight an innocent link.
func urlsForDomains(urls, domains []string) []string {
	want := make(map[string]bool, len(domains))
	for _, d := range domains {
		want[d] = true
	}
	var out []string
	for _, u := range urls {
		if want[extract.DomainFromURL(u)] {
			out = append(out, u)
		}
	}
	return out
}

// evidenceForAnyToken builds one clean Evidence span for a context
// rule: the first extracted URL locatable in the normalized haystack is
// preferred, the first locatable matching domain is the fallback.
func evidenceForAnyToken(text, haystack string, urls, domains []string) (rules.Evidence, bool) {
	for _, u := range urls {
		if u == "" {
			continue
		}
		if idx := strings.Index(haystack, strings.ToLower(u)); idx >= 0 {
			end := idx + len(u)
			return rules.Evidence{
				Kind:    rules.PatternKeyword,
				Pattern: "context:url",
				Match:   text[idx:end],
				Start:   idx,
				End:     end,
				Snippet: snippet(text, idx, end),
				Label:   "url",
			}, true
		}
	}

	for _, d := range domains {
		if d == "" {
			continue
		}
		if idx := strings.Index(haystack, strings.ToLower(d)); idx >= 0 {
			end := idx + len(d)
			return rules.Evidence{
				Kind:    rules.PatternKeyword,
				Pattern: "context:domain",
				Match:   text[idx:end],
				Start:   idx,
				End:     end,
				Snippet: snippet(text, idx, end),
				Label:   "domain",
			}, true
		}
	}

	return rules.Evidence{}, false
}
