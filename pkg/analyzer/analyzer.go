// Package analyzer orchestrates a full message analysis: compose the
// message parts into one text, extract artifacts, run the rule engine
// and fold the hits into a scored verdict. It has no transport
// dependencies; the HTTP layer and the CLI both sit on top of it.
package analyzer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/phishguard/phishguard/pkg/engine"
	"github.com/phishguard/phishguard/pkg/extract"
	"github.com/phishguard/phishguard/pkg/reputation"
	"github.com/phishguard/phishguard/pkg/rules"
	"github.com/phishguard/phishguard/pkg/scoring"
)

// Request field limits. Oversized input is a caller error, not
// something to silently truncate.
const (
	maxSubjectLen    = 5_000
	maxBodyLen       = 200_000
	maxAddressLen    = 320
	maxHeadersLen    = 200_000
	maxAttachments   = 50
	maxAttachmentLen = 260
)

// Attachment identifies one attached file by name. Size is informative
// only and may be absent.
type Attachment struct {
	Filename  string `json:"filename"`
	SizeBytes *int64 `json:"size_bytes,omitempty"`
}

// Request is one message to analyze. Every field is optional but the
// composite must carry some content; see Validate.
type Request struct {
	Subject     string       `json:"subject"`
	Body        string       `json:"body"`
	FromEmail   string       `json:"from_email,omitempty"`
	ReplyTo     string       `json:"reply_to,omitempty"`
	HeadersRaw  string       `json:"headers_raw,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Validate enforces field limits and the at-least-some-content rule.
func (r *Request) Validate() error {
	switch {
	case len(r.Subject) > maxSubjectLen:
		return fmt.Errorf("subject exceeds %d characters", maxSubjectLen)
	case len(r.Body) > maxBodyLen:
		return fmt.Errorf("body exceeds %d characters", maxBodyLen)
	case len(r.FromEmail) > maxAddressLen:
		return fmt.Errorf("from_email exceeds %d characters", maxAddressLen)
	case len(r.ReplyTo) > maxAddressLen:
		return fmt.Errorf("reply_to exceeds %d characters", maxAddressLen)
	case len(r.HeadersRaw) > maxHeadersLen:
		return fmt.Errorf("headers_raw exceeds %d characters", maxHeadersLen)
	case len(r.Attachments) > maxAttachments:
		return fmt.Errorf("at most %d attachments allowed", maxAttachments)
	}

	for _, a := range r.Attachments {
		if a.Filename == "" || len(a.Filename) > maxAttachmentLen {
			return fmt.Errorf("attachment filename must be 1-%d characters", maxAttachmentLen)
		}
		if a.SizeBytes != nil && *a.SizeBytes < 0 {
			return fmt.Errorf("attachment size_bytes must not be negative")
		}
	}

	hasText := strings.TrimSpace(r.Subject) != "" ||
		strings.TrimSpace(r.Body) != "" ||
		strings.TrimSpace(r.HeadersRaw) != ""
	if !hasText && len(r.Attachments) == 0 {
		return fmt.Errorf("request must include at least subject/body/headers_raw or attachments")
	}
	return nil
}

// ComposeText flattens the request into the single text the pipeline
// analyzes. Labeled sections keep sender/header artifacts extractable
// alongside the body.
func ComposeText(r *Request) string {
	var parts []string

	if r.Subject != "" {
		parts = append(parts, "Subject: "+r.Subject)
	}
	if r.FromEmail != "" {
		parts = append(parts, "From: "+r.FromEmail)
	}
	if r.ReplyTo != "" {
		parts = append(parts, "Reply-To: "+r.ReplyTo)
	}
	if r.HeadersRaw != "" {
		parts = append(parts, "Headers:", r.HeadersRaw)
	}
	if r.Body != "" {
		parts = append(parts, "Body:", r.Body)
	}
	if len(r.Attachments) > 0 {
		parts = append(parts, "Attachments:")
		for _, a := range r.Attachments {
			if a.Filename != "" {
				parts = append(parts, "- "+a.Filename)
			}
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// Options configures an Analyzer.
type Options struct {
	Reputation reputation.Service
	// MaxEvidencePerRule caps accumulated evidence per rule hit;
	// zero keeps the engine default.
	MaxEvidencePerRule int
	Logger             zerolog.Logger
}

// Analyzer is safe for concurrent use once constructed.
type Analyzer struct {
	engine *engine.Engine
	log    zerolog.Logger
}

// New builds an analyzer over an already loaded rule set.
func New(rs []rules.Rule, opts Options) (*Analyzer, error) {
	eng, err := engine.New(rs, engine.Options{
		Reputation:         opts.Reputation,
		MaxEvidencePerRule: opts.MaxEvidencePerRule,
		Logger:             opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Analyzer{engine: eng, log: opts.Logger}, nil
}

// NewFromFile loads the rule pack at path, falling back to the
// embedded default pack when path is empty.
func NewFromFile(path string, opts Options) (*Analyzer, error) {
	var (
		rs  []rules.Rule
		err error
	)
	if path == "" {
		rs, err = rules.DefaultPack()
	} else {
		rs, err = rules.LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return New(rs, opts)
}

// Analyze runs the full pipeline. ctx bounds only the reputation
// lookup; a provider failure degrades to fewer hits, never to an error.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) (rules.AnalysisResult, error) {
	if err := req.Validate(); err != nil {
		return rules.AnalysisResult{}, err
	}

	text := ComposeText(req)
	artifacts := extract.All(text)
	hits := a.engine.Match(ctx, text, &artifacts)
	res := scoring.Score(hits)

	a.log.Debug().
		Int("score", res.Score).
		Str("severity", string(res.Severity)).
		Str("action", string(res.Action)).
		Int("hits", len(res.Hits)).
		Msg("analysis complete")

	return res, nil
}

// Rules lists the loaded, enabled rules for introspection.
func (a *Analyzer) Rules() []rules.Summary {
	rs := a.engine.Rules()
	out := make([]rules.Summary, 0, len(rs))
	for _, r := range rs {
		out = append(out, rules.Summary{
			ID:       r.ID,
			Title:    r.Title,
			Weight:   r.Weight,
			Severity: r.Severity,
			Tags:     r.Tags,
		})
	}
	return out
}
