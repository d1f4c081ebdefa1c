package normalize

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// RuleFile is the YAML layout for a custom rule table. Rules keep file order.
type RuleFile struct {
	Rules []Rule   `yaml:"rules"`
	Labor []string `yaml:"labor_keywords"`
}

// LoadRules reads a rule table from path. An empty labor list keeps the defaults.
func LoadRules(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules decodes a YAML rule table.
func ParseRules(data []byte) (*Classifier, error) {
	var rf RuleFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if len(rf.Rules) == 0 {
		return nil, fmt.Errorf("rules file defines no rules")
	}
	for i, r := range rf.Rules {
		if strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("rule %d has no category", i)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("rule %q has no keywords", r.Category)
		}
	}
	var labor []string
	if len(rf.Labor) > 0 {
		labor = rf.Labor
	}
	return NewClassifier(rf.Rules, labor), nil
}
