// Package scoring turns raw rule hits into the final explainable
// verdict: a 0-100 score with diminishing returns, a severity tier, an
// escalated action and UI-ready highlight spans.
package scoring

import (
	"math"
	"sort"

	"github.com/phishguard/phishguard/pkg/rules"
)

// scoreDivisor tunes the exponential saturation: a handful of heavy
// hits crosses the action thresholds quickly while an endless pile of
// light hits approaches, but never exceeds, 100.
const scoreDivisor = 35.0

// NormalizeScore maps a raw weight sum to 0-100 with diminishing
// returns: round(100 * (1 - e^(-raw/35))), clamped.
func NormalizeScore(rawPoints int) int {
	if rawPoints < 0 {
		rawPoints = 0
	}
	score := int(math.Round(100 * (1 - math.Exp(-float64(rawPoints)/scoreDivisor))))
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// SeverityFromScore derives the score-based severity tier.
func SeverityFromScore(score int) rules.Severity {
	switch {
	case score >= 70:
		return rules.SeverityHigh
	case score >= 30:
		return rules.SeverityMedium
	default:
		return rules.SeverityLow
	}
}

// ChooseAction selects the per-severity baseline action, escalated by
// the strongest action carried by any hit. The result is never weaker
// than the baseline.
func ChooseAction(severity rules.Severity, hits []rules.Hit) rules.Action {
	base := baselineAction(severity)

	top := base
	for _, h := range hits {
		if h.Action.Rank() > top.Rank() {
			top = h.Action
		}
	}
	return top
}

func baselineAction(severity rules.Severity) rules.Action {
	switch severity {
	case rules.SeverityHigh:
		return rules.ActionBlock
	case rules.SeverityMedium:
		return rules.ActionVerifyOutOfBand
	default:
		return rules.ActionAllow
	}
}

// Recommendations returns the ordered recommendation tokens for the
// final action. Keyed off the action, not the severity, so action=block
// always recommends blocking.
func Recommendations(action rules.Action) []string {
	switch action {
	case rules.ActionBlock:
		return []string{"block", "report"}
	case rules.ActionVerifyOutOfBand:
		return []string{"verify_out_of_band", "report_if_confirmed"}
	case rules.ActionReport:
		return []string{"report", "educate_user"}
	default:
		return []string{"allow", "educate_user"}
	}
}

// BuildHighlights projects evidence spans into UI highlights, deduped
// by (start, end, rule id) and sorted by (start, end) ascending.
func BuildHighlights(hits []rules.Hit) []rules.Highlight {
	type key struct {
		start, end int
		ruleID     string
	}
	seen := make(map[key]bool)
	var out []rules.Highlight

	for _, h := range hits {
		for _, ev := range h.Evidence {
			k := key{ev.Start, ev.End, h.RuleID}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, rules.Highlight{
				Start:  ev.Start,
				End:    ev.End,
				RuleID: h.RuleID,
				Label:  h.Title,
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].End < out[j].End
	})

	return out
}

func maxSeverity(hits []rules.Hit) rules.Severity {
	top := rules.SeverityLow
	for _, h := range hits {
		if h.Severity.Rank() > top.Rank() {
			top = h.Severity
		}
	}
	return top
}

// Score aggregates hits into the terminal AnalysisResult. Hits are
// deduplicated by rule id first (repeated matches of one rule count
// once, keeping the first occurrence), then scored, then the severity
// is escalated by the strongest individual hit: one high-severity hit
// makes the overall result at least high even when points are modest.
func Score(hits []rules.Hit) rules.AnalysisResult {
	var unique []rules.Hit
	seen := make(map[string]bool)
	for _, h := range hits {
		if seen[h.RuleID] {
			continue
		}
		seen[h.RuleID] = true
		unique = append(unique, h)
	}

	rawPoints := 0
	for _, h := range unique {
		rawPoints += h.Weight
	}

	score := NormalizeScore(rawPoints)

	sev := SeverityFromScore(score)
	if hitSev := maxSeverity(unique); hitSev.Rank() > sev.Rank() {
		sev = hitSev
	}

	action := ChooseAction(sev, unique)

	return rules.AnalysisResult{
		Score:           score,
		Severity:        sev,
		Action:          action,
		Recommendations: Recommendations(action),
		Hits:            unique,
		Highlights:      BuildHighlights(unique),
	}
}
