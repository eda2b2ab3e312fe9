// Package engine compiles declarative detection rules into executable
// matchers and runs them, together with built-in context heuristics,
// against message text. Every hit carries evidence with byte-accurate
// spans into the original text.
package engine

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/phishguard/phishguard/pkg/extract"
	"github.com/phishguard/phishguard/pkg/reputation"
	"github.com/phishguard/phishguard/pkg/rules"
	"github.com/phishguard/phishguard/pkg/textnorm"
)

const (
	defaultMaxEvidencePerRule = 20
	maxEvidencePerKeyword     = 8
	maxEvidencePerRegex       = 10
	snippetWindow             = 48
)

type compiledPattern struct {
	src     rules.Pattern
	kind    rules.PatternType
	keyword string         // lowercased, set for keyword patterns
	re      *regexp.Regexp // set for regex patterns
}

type compiledRule struct {
	rule     rules.Rule
	matchAll bool
	patterns []compiledPattern
}

// Options configures an Engine.
type Options struct {
	// Reputation is the external domain-intelligence collaborator.
	// Defaults to a permanently disabled service.
	Reputation reputation.Service
	// MaxEvidencePerRule caps accumulated evidence per rule (default 20).
	MaxEvidencePerRule int
	Logger             zerolog.Logger
}

// Engine is immutable after construction and safe to share read-only
// across concurrent analyses. Construction is the only mutation point.
type Engine struct {
	enabled     []rules.Rule
	compiled    []compiledRule
	maxEvidence int
	rep         reputation.Service
	log         zerolog.Logger
}

// New compiles a rule set eagerly and fails fast: an invalid rule pack
// never produces a partially usable engine. Disabled rules are filtered
// out before compilation.
func New(rs []rules.Rule, opts Options) (*Engine, error) {
	if opts.MaxEvidencePerRule <= 0 {
		opts.MaxEvidencePerRule = defaultMaxEvidencePerRule
	}
	if opts.Reputation == nil {
		opts.Reputation = reputation.Disabled()
	}

	e := &Engine{
		maxEvidence: opts.MaxEvidencePerRule,
		rep:         opts.Reputation,
		log:         opts.Logger,
	}

	for _, r := range rs {
		if !r.Enabled {
			continue
		}
		cr, err := compileRule(r)
		if err != nil {
			return nil, err
		}
		e.enabled = append(e.enabled, r)
		e.compiled = append(e.compiled, cr)
	}

	return e, nil
}

// Rules returns the enabled rules the engine was built from.
func (e *Engine) Rules() []rules.Rule { return e.enabled }

// compileRule combines a rule's keyword list, regex list and explicit
// pattern list into compiled matchers.
func compileRule(r rules.Rule) (compiledRule, error) {
	var patterns []rules.Pattern

	for _, kw := range r.When.AnyKeywords {
		if s := strings.TrimSpace(kw); s != "" {
			patterns = append(patterns, rules.Pattern{Type: rules.PatternKeyword, Value: s, Label: "keyword"})
		}
	}
	for _, rx := range r.When.Regex {
		if s := strings.TrimSpace(rx); s != "" {
			patterns = append(patterns, rules.Pattern{Type: rules.PatternRegex, Value: s, Label: "regex"})
		}
	}
	patterns = append(patterns, r.When.Patterns...)

	if len(patterns) == 0 {
		return compiledRule{}, &rules.PackError{Index: -1, RuleID: r.ID, Err: fmt.Errorf("rule has no matchers in 'when'")}
	}

	compiled := make([]compiledPattern, 0, len(patterns))
	for _, p := range patterns {
		switch p.Type {
		case rules.PatternKeyword:
			compiled = append(compiled, compiledPattern{
				src:     p,
				kind:    rules.PatternKeyword,
				keyword: strings.ToLower(p.Value),
			})
		case rules.PatternRegex:
			re, err := regexp.Compile(flagPrefix(p.Flags) + p.Value)
			if err != nil {
				return compiledRule{}, &rules.PackError{Index: -1, RuleID: r.ID, Err: fmt.Errorf("invalid regex %q: %w", p.Value, err)}
			}
			compiled = append(compiled, compiledPattern{src: p, kind: rules.PatternRegex, re: re})
		default:
			return compiledRule{}, &rules.PackError{Index: -1, RuleID: r.ID, Err: fmt.Errorf("unsupported pattern type %q", p.Type)}
		}
	}

	return compiledRule{rule: r, matchAll: r.When.Match == "all", patterns: compiled}, nil
}

// flagPrefix maps compact flag strings to an inline RE2 prefix.
// No flags given → case-insensitive + multiline for convenience.
// Flags given → only those given apply (no implicit case-insensitivity).
func flagPrefix(flags string) string {
	if flags == "" {
		return "(?im)"
	}
	var b strings.Builder
	for _, ch := range strings.ToLower(flags) {
		switch ch {
		case 'i', 'm', 's':
			b.WriteRune(ch)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "(?" + b.String() + ")"
}

// Match runs every compiled rule plus the built-in context rules
// against text. artifacts may be nil to skip context rules. ctx only
// bounds the reputation lookup; matching itself is CPU-bound and short.
func (e *Engine) Match(ctx context.Context, text string, artifacts *extract.Artifacts) []rules.Hit {
	if text == "" {
		return nil
	}

	haystack := textnorm.Normalize(text)
	var hits []rules.Hit

	for _, cr := range e.compiled {
		if hit, ok := e.matchRule(cr, text, haystack); ok {
			hits = append(hits, hit)
		}
	}

	if artifacts != nil {
		hits = append(hits, e.contextHits(ctx, text, haystack, artifacts)...)
	}

	return hits
}

func (e *Engine) matchRule(cr compiledRule, text, haystack string) (rules.Hit, bool) {
	var evidence []rules.Evidence

	if cr.matchAll {
		// Every pattern must match; one evidence item per pattern is
		// kept as proof, and a missing pattern short-circuits. The
		// evidence cap can truncate proofs mid-iteration when set very
		// small; callers relying on one-proof-per-pattern must keep the
		// cap at or above the pattern count.
		for _, cp := range cr.patterns {
			ev := e.matchOne(cp, text, haystack)
			if len(ev) == 0 {
				return rules.Hit{}, false
			}
			evidence = append(evidence, ev[0])
			if len(evidence) >= e.maxEvidence {
				break
			}
		}
	} else {
		for _, cp := range cr.patterns {
			for _, ev := range e.matchOne(cp, text, haystack) {
				evidence = append(evidence, ev)
				if len(evidence) >= e.maxEvidence {
					break
				}
			}
			if len(evidence) >= e.maxEvidence {
				break
			}
		}
	}

	if len(evidence) == 0 {
		return rules.Hit{}, false
	}
	return toHit(cr.rule, evidence), true
}

func (e *Engine) matchOne(cp compiledPattern, text, haystack string) []rules.Evidence {
	switch cp.kind {
	case rules.PatternKeyword:
		return findKeyword(text, haystack, cp.keyword, cp.src)
	case rules.PatternRegex:
		return findRegex(text, cp.re, cp.src)
	default:
		return nil
	}
}

// findKeyword locates literal occurrences of needle in the normalized
// haystack; spans map 1:1 onto the original text because normalization
// preserves byte length.
func findKeyword(text, haystack, needle string, src rules.Pattern) []rules.Evidence {
	if needle == "" {
		return nil
	}

	var out []rules.Evidence
	offset := 0
	for len(out) < maxEvidencePerKeyword {
		idx := strings.Index(haystack[offset:], needle)
		if idx < 0 {
			break
		}
		start := offset + idx
		end := start + len(needle)
		out = append(out, rules.Evidence{
			Kind:    rules.PatternKeyword,
			Pattern: src.Value,
			Match:   text[start:end],
			Start:   start,
			End:     end,
			Snippet: snippet(text, start, end),
			Label:   src.Label,
		})
		offset = end
	}

	return out
}

// findRegex runs a compiled regex against the original text, skipping
// zero-length matches.
func findRegex(text string, re *regexp.Regexp, src rules.Pattern) []rules.Evidence {
	var out []rules.Evidence
	for _, loc := range re.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		if start == end {
			continue
		}
		out = append(out, rules.Evidence{
			Kind:    rules.PatternRegex,
			Pattern: src.Value,
			Match:   text[start:end],
			Start:   start,
			End:     end,
			Snippet: snippet(text, start, end),
			Label:   src.Label,
		})
		if len(out) >= maxEvidencePerRegex {
			break
		}
	}
	return out
}

func toHit(r rules.Rule, evidence []rules.Evidence) rules.Hit {
	return rules.Hit{
		RuleID:   r.ID,
		Title:    r.Title,
		Weight:   r.Weight,
		Severity: r.Severity,
		Action:   r.Action,
		Explain:  r.Explain,
		Tags:     r.Tags,
		Evidence: evidence,
	}
}

// snippet returns a short context window around [start, end), clamped
// to rune boundaries so multi-byte text never yields invalid UTF-8.
func snippet(text string, start, end int) string {
	left := start - snippetWindow
	if left < 0 {
		left = 0
	}
	right := end + snippetWindow
	if right > len(text) {
		right = len(text)
	}

	for left > 0 && !isRuneStart(text[left]) {
		left--
	}
	for right < len(text) && !isRuneStart(text[right]) {
		right++
	}

	var b strings.Builder
	if left > 0 {
		b.WriteString("…")
	}
	b.WriteString(text[left:right])
	if right < len(text) {
		b.WriteString("…")
	}
	return b.String()
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
