package domain

import (
	"fmt"
	"regexp"
)

// Implicit patterns applied on every run, matching dependency-cache and
// standard-library paths.
var implicitPatterns = []string{`\.cargo/registry`, `library/std`}

// ExclusionRuleSet is an ordered set of filename regexes. A file path
// matching any pattern is dropped from the coverage model. Immutable once
// built.
type ExclusionRuleSet struct {
	patterns []string
	compiled []*regexp.Regexp
}

// NewExclusionRuleSet compiles the implicit patterns plus any user-supplied
// ones, in that order.
func NewExclusionRuleSet(userPatterns ...string) (ExclusionRuleSet, error) {
	patterns := make([]string, 0, len(implicitPatterns)+len(userPatterns))
	patterns = append(patterns, implicitPatterns...)
	patterns = append(patterns, userPatterns...)

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return ExclusionRuleSet{}, fmt.Errorf("invalid ignore pattern %q: %w", p, err)
		}
		compiled = append(compiled, re)
	}
	return ExclusionRuleSet{patterns: patterns, compiled: compiled}, nil
}

// Excluded reports whether path matches any pattern.
func (r ExclusionRuleSet) Excluded(path string) bool {
	for _, re := range r.compiled {
		if re.MatchString(path) {
			return true
		}
	}
	return false
}

// Patterns returns the full ordered pattern list, implicit entries first.
func (r ExclusionRuleSet) Patterns() []string {
	return append([]string(nil), r.patterns...)
}
