package rules

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PackError describes why a rule pack failed to load. Index is the
// position of the offending record in the top-level array (-1 when the
// failure is not tied to a single record); RuleID is filled when the
// record's id was readable.
type PackError struct {
	Index  int
	RuleID string
	Err    error
}

func (e *PackError) Error() string {
	switch {
	case e.Index >= 0 && e.RuleID != "":
		return fmt.Sprintf("rule pack: rule %d (id=%s): %v", e.Index, e.RuleID, e.Err)
	case e.Index >= 0:
		return fmt.Sprintf("rule pack: rule %d: %v", e.Index, e.Err)
	default:
		return fmt.Sprintf("rule pack: %v", e.Err)
	}
}

func (e *PackError) Unwrap() error { return e.Err }

// ruleDoc mirrors Rule for strict YAML decoding; Enabled needs pointer
// semantics so an omitted field defaults to true.
type ruleDoc struct {
	ID       string     `yaml:"id"`
	Title    string     `yaml:"title"`
	Weight   int        `yaml:"weight"`
	Severity Severity   `yaml:"severity"`
	When     When       `yaml:"when"`
	Explain  string     `yaml:"explain"`
	Action   Action     `yaml:"action"`
	Tags     StringList `yaml:"tags"`
	Enabled  *bool      `yaml:"enabled"`
}

// LoadFile reads and parses a YAML rule pack from disk.
func LoadFile(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PackError{Index: -1, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	return Parse(data)
}

// Parse parses a YAML rule pack: a top-level array of rule records.
// Unknown fields are rejected; every violation carries the offending
// index (and id when available). Parsing is all-or-nothing — an invalid
// pack never loads partially.
func Parse(data []byte) ([]Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &PackError{Index: -1, Err: fmt.Errorf("parse yaml: %w", err)}
	}

	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, &PackError{Index: -1, Err: fmt.Errorf("rule pack is empty")}
	}

	root := doc.Content[0]
	if root.Kind != yaml.SequenceNode {
		return nil, &PackError{Index: -1, Err: fmt.Errorf("rule pack must be a top-level array, got %s", nodeKind(root))}
	}

	out := make([]Rule, 0, len(root.Content))
	for i, node := range root.Content {
		if node.Kind != yaml.MappingNode {
			return nil, &PackError{Index: i, Err: fmt.Errorf("rule must be a mapping, got %s", nodeKind(node))}
		}

		rule, err := decodeRule(node)
		if err != nil {
			return nil, &PackError{Index: i, RuleID: mappingValue(node, "id"), Err: err}
		}
		if err := validateRule(rule); err != nil {
			return nil, &PackError{Index: i, RuleID: rule.ID, Err: err}
		}

		out = append(out, rule)
	}

	return out, nil
}

// decodeRule strictly decodes one mapping node. The node is re-encoded
// so the decoder's KnownFields check applies; yaml.Node.Decode has no
// strict mode of its own.
func decodeRule(node *yaml.Node) (Rule, error) {
	raw, err := yaml.Marshal(node)
	if err != nil {
		return Rule{}, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var d ruleDoc
	if err := dec.Decode(&d); err != nil {
		return Rule{}, err
	}

	enabled := true
	if d.Enabled != nil {
		enabled = *d.Enabled
	}

	return Rule{
		ID:       strings.TrimSpace(d.ID),
		Title:    d.Title,
		Weight:   d.Weight,
		Severity: d.Severity,
		When:     d.When,
		Explain:  d.Explain,
		Action:   d.Action,
		Tags:     d.Tags,
		Enabled:  enabled,
	}, nil
}

func validateRule(r Rule) error {
	if n := len(r.ID); n < 3 || n > 64 {
		return fmt.Errorf("id must be 3-64 characters, got %d", n)
	}
	if n := len(r.Title); n < 3 || n > 200 {
		return fmt.Errorf("title must be 3-200 characters, got %d", n)
	}
	if r.Weight < 0 || r.Weight > 100 {
		return fmt.Errorf("weight must be 0-100, got %d", r.Weight)
	}
	if !r.Severity.Valid() {
		return fmt.Errorf("unknown severity %q", r.Severity)
	}
	if !r.Action.Valid() {
		return fmt.Errorf("unknown action %q", r.Action)
	}
	if n := len(r.Explain); n < 3 || n > 2000 {
		return fmt.Errorf("explain must be 3-2000 characters, got %d", n)
	}
	if m := r.When.Match; m != "" && m != "any" && m != "all" {
		return fmt.Errorf("when.match must be \"any\" or \"all\", got %q", m)
	}
	for i, p := range r.When.Patterns {
		if p.Type != PatternKeyword && p.Type != PatternRegex {
			return fmt.Errorf("pattern %d: unknown type %q", i, p.Type)
		}
		if p.Value == "" {
			return fmt.Errorf("pattern %d: value must not be empty", i)
		}
	}
	return nil
}

// mappingValue extracts a scalar value from a mapping node without a
// full decode; used to attach the rule id to schema errors.
func mappingValue(node *yaml.Node, key string) string {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1].Value
		}
	}
	return ""
}

func nodeKind(n *yaml.Node) string {
	switch n.Kind {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	default:
		return "unknown"
	}
}
