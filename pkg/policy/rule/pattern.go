package rule

import (
	"fmt"
	"regexp"
	"strings"
)

// PatternKind identifies how a rule pattern matches request values.
type PatternKind int

const (
	// PatternExact matches the value verbatim.
	PatternExact PatternKind = iota

	// PatternPrefix matches values starting with the pattern.
	PatternPrefix

	// PatternRegex matches values against a compiled regular expression.
	PatternRegex
)

// String returns the kind's encoding prefix name.
func (k PatternKind) String() string {
	switch k {
	case PatternPrefix:
		return "prefix"
	case PatternRegex:
		return "regex"
	default:
		return "exact"
	}
}

// Pattern is a parsed rule pattern. Patterns are parsed once at rule
// registration and never re-parsed per evaluation.
type Pattern struct {
	// Kind is the match strategy.
	Kind PatternKind

	// Raw is the original encoded pattern string.
	Raw string

	value string
	re    *regexp.Regexp
}

// ParsePattern parses an encoded pattern string into a Pattern.
//
// Encodings:
//
//	"regex:<expr>"   - regular expression match
//	"prefix:<path>"  - prefix match
//	"exact:<value>"  - exact match
//	"<value>"        - exact match (no prefix)
func ParsePattern(raw string) (*Pattern, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty pattern")
	}

	kind := PatternExact
	value := raw
	switch {
	case strings.HasPrefix(raw, "regex:"):
		kind = PatternRegex
		value = strings.TrimPrefix(raw, "regex:")
	case strings.HasPrefix(raw, "prefix:"):
		kind = PatternPrefix
		value = strings.TrimPrefix(raw, "prefix:")
	case strings.HasPrefix(raw, "exact:"):
		value = strings.TrimPrefix(raw, "exact:")
	}

	if value == "" {
		return nil, fmt.Errorf("pattern %q has an empty match value", raw)
	}

	p := &Pattern{Kind: kind, Raw: raw, value: value}

	if kind == PatternRegex {
		re, err := regexp.Compile(value)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", value, err)
		}
		p.re = re
	}

	return p, nil
}

// Match reports whether the value matches the pattern.
func (p *Pattern) Match(value string) bool {
	switch p.Kind {
	case PatternRegex:
		return p.re.MatchString(value)
	case PatternPrefix:
		return strings.HasPrefix(value, p.value)
	default:
		return value == p.value
	}
}
