package config

import (
	_ "embed"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRules []byte

// Rules is the versioned reconciliation data: the manual alias table and
// the URL host denylist.
type Rules struct {
	Aliases  map[string]string `yaml:"aliases"`
	Denylist []string          `yaml:"denylist"`
}

// LoadRules reads rules from path, or the built-in rules when path is
// empty.
func LoadRules(path string) (*Rules, error) {
	data := defaultRules
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, eris.Wrapf(err, "config: read rules %s", path)
		}
		data = b
	}
	return ParseRules(data)
}

// ParseRules decodes a rules document.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrap(err, "config: parse rules")
	}
	if r.Aliases == nil {
		r.Aliases = map[string]string{}
	}
	for from, to := range r.Aliases {
		if from == "" || to == "" {
			return nil, eris.Errorf("config: alias %q -> %q has an empty side", from, to)
		}
	}
	return &r, nil
}
