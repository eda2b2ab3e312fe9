// Package rules defines the detection rule model and the YAML rule-pack
// loader. Rules are immutable once loaded and safe to share read-only
// across concurrent analyses.
package rules

// Severity is the risk tier a rule (or an overall result) carries.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{
	SeverityLow:    0,
	SeverityMedium: 1,
	SeverityHigh:   2,
}

// Rank returns the ordering position of s (low < medium < high).
// Unknown severities rank lowest.
func (s Severity) Rank() int { return severityRank[s] }

// Valid reports whether s is one of the known severity tiers.
func (s Severity) Valid() bool {
	_, ok := severityRank[s]
	return ok
}

// Action is the recommended handling for a message.
type Action string

const (
	ActionAllow           Action = "allow"
	ActionReport          Action = "report"
	ActionVerifyOutOfBand Action = "verify_out_of_band"
	ActionBlock           Action = "block"
)

var actionRank = map[Action]int{
	ActionAllow:           0,
	ActionReport:          1,
	ActionVerifyOutOfBand: 2,
	ActionBlock:           3,
}

// Rank returns the ordering position of a
// (allow < report < verify_out_of_band < block).
func (a Action) Rank() int { return actionRank[a] }

// Valid reports whether a is one of the known actions.
func (a Action) Valid() bool {
	_, ok := actionRank[a]
	return ok
}

// PatternType discriminates the two atomic matcher kinds.
type PatternType string

const (
	PatternKeyword PatternType = "keyword"
	PatternRegex   PatternType = "regex"
)

// Pattern is a single atomic matcher used by the rule engine.
//
//   - keyword: plain substring, matched case-insensitively against the
//     normalized text
//   - regex: regular expression with optional flags ("i", "m", "s");
//     when flags are omitted the engine defaults to case-insensitive +
//     multiline, when given only the given flags apply
type Pattern struct {
	Type  PatternType `yaml:"type" json:"type"`
	Value string      `yaml:"value" json:"value"`
	Flags string      `yaml:"flags,omitempty" json:"flags,omitempty"`
	Label string      `yaml:"label,omitempty" json:"label,omitempty"`
}

// When is a rule's matching configuration.
//
//   - match=any: at least one pattern must match
//   - match=all: every configured pattern must match at least once
//
// Matchers can be declared via any_keywords, regex, or explicit
// patterns; the three lists are concatenated at compile time.
type When struct {
	Match       string     `yaml:"match,omitempty" json:"match"`
	AnyKeywords StringList `yaml:"any_keywords,omitempty" json:"any_keywords,omitempty"`
	Regex       StringList `yaml:"regex,omitempty" json:"regex,omitempty"`
	Patterns    []Pattern  `yaml:"patterns,omitempty" json:"patterns,omitempty"`
}

// Rule is one declaratively authored detection rule.
type Rule struct {
	ID       string   `yaml:"id" json:"id"`
	Title    string   `yaml:"title" json:"title"`
	Weight   int      `yaml:"weight" json:"weight"`
	Severity Severity `yaml:"severity" json:"severity"`
	When     When     `yaml:"when" json:"when"`
	Explain  string   `yaml:"explain" json:"explain"`
	Action   Action   `yaml:"action" json:"action"`
	Tags     []string `yaml:"tags,omitempty" json:"tags"`
	Enabled  bool     `yaml:"enabled" json:"enabled"`
}

// Summary is the read-only rule listing exposed for introspection/UI.
type Summary struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Weight   int      `json:"weight"`
	Severity Severity `json:"severity"`
	Tags     []string `json:"tags"`
}

// Evidence is concrete proof of why a rule hit. Start/End are byte
// offsets into the analyzed (original, non-normalized) text; the engine
// guarantees End >= Start and that Match equals text[Start:End].
type Evidence struct {
	Kind    PatternType `json:"kind"`
	Pattern string      `json:"pattern"`
	Match   string      `json:"match"`
	Start   int         `json:"start"`
	End     int         `json:"end"`
	Snippet string      `json:"snippet"`
	Label   string      `json:"label,omitempty"`
}

// Hit is a single rule that matched plus its evidence (always at least
// one item). Rule metadata is copied at match time so a Hit serializes
// independently of the Rule that produced it.
type Hit struct {
	RuleID   string     `json:"rule_id"`
	Title    string     `json:"title"`
	Weight   int        `json:"weight"`
	Severity Severity   `json:"severity"`
	Action   Action     `json:"action"`
	Explain  string     `json:"explain"`
	Tags     []string   `json:"tags"`
	Evidence []Evidence `json:"evidence"`
}

// Highlight is a UI-facing projection of Evidence.
type Highlight struct {
	Start  int    `json:"start"`
	End    int    `json:"end"`
	RuleID string `json:"rule_id"`
	Label  string `json:"label"`
}

// AnalysisResult is the terminal, explainable output of one analysis.
// Hits contains exactly one entry per rule id; Highlights are deduped
// by (start, end, rule id) and sorted by (start, end).
type AnalysisResult struct {
	Score           int         `json:"score"`
	Severity        Severity    `json:"severity"`
	Action          Action      `json:"action"`
	Recommendations []string    `json:"recommendations"`
	Hits            []Hit       `json:"hits"`
	Highlights      []Highlight `json:"highlights"`
}
