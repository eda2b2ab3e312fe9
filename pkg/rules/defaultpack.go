package rules

import _ "embed"

//go:embed pack_default.yml
var defaultPackYAML []byte

// DefaultPack parses the rule pack compiled into the binary. It is used
// when no external pack path is configured.
func DefaultPack() ([]Rule, error) {
	return Parse(defaultPackYAML)
}
