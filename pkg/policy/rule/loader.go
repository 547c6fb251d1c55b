package rule

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML document holding rule definitions.
//
// Example:
//
//	rules:
//	  - id: admin-access
//	    pattern: "prefix:/admin"
//	    priority: 10
//	    depends_on: [validate-user-input]
//	    conditions:
//	      required_context_keys: [user.role]
//	      matches:
//	        - {key: user.role, op: ne, value: admin}
//	    actions:
//	      - type: deny
//	        params: {reason: "Unauthorized access"}
type File struct {
	Rules []*Rule `yaml:"rules"`
}

// LoadFile reads and parses a YAML rule file. The returned rules are parsed
// but not yet validated against each other; pass them to Store.Replace.
func LoadFile(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule file %q: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse rule file %q: %w", path, err)
	}

	return f.Rules, nil
}

// ApplyFile loads a rule file and atomically replaces the store's rule set.
// On any load or validation error the store keeps its previous rule set.
func ApplyFile(s *Store, path string) error {
	rules, err := LoadFile(path)
	if err != nil {
		return err
	}
	if err := s.Replace(rules); err != nil {
		return fmt.Errorf("rule file %q rejected: %w", path, err)
	}
	return nil
}

// SaveFile writes the store's full rule set to a YAML file.
func SaveFile(s *Store, path string) error {
	f := File{Rules: s.List()}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("failed to marshal rules: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write rule file %q: %w", path, err)
	}
	return nil
}
