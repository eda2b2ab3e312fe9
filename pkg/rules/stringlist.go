package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// StringList unmarshals either a YAML scalar or a YAML sequence of
// scalars. Rule authors frequently write a single keyword or regex
// where a list is expected; coercing here keeps packs forgiving without
// loosening the rest of the schema.
type StringList []string

func (l *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return err
		}
		*l = StringList{s}
		return nil
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return err
		}
		*l = StringList(items)
		return nil
	default:
		return fmt.Errorf("line %d: expected string or list of strings", node.Line)
	}
}
