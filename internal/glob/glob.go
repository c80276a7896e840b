// Package glob matches archive-relative paths against zip/unzip's
// include and exclude pattern lists. Matching is delegated to
// doublestar, which already implements the full pattern grammar the
// planner needs (*, **, ?, [...], [!...], backslash-escape);
// case-sensitivity is layered on top since doublestar itself is
// always case-sensitive.
package glob

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"zipkit/internal/zerr"
)

// Matcher tests archive-relative names against a fixed set of
// patterns under one case-sensitivity policy.
type Matcher struct {
	patterns      []string
	caseSensitive bool
}

// New validates patterns and returns a Matcher. caseSensitive=false
// folds both pattern and candidate name to lower case before
// matching, the -ic/match_case=false policy.
func New(patterns []string, caseSensitive bool) (*Matcher, error) {
	m := &Matcher{caseSensitive: caseSensitive}
	for _, p := range patterns {
		norm := p
		if !caseSensitive {
			norm = strings.ToLower(norm)
		}
		if !doublestar.ValidatePattern(norm) {
			return nil, zerr.Newf(zerr.Usage, "invalid glob pattern %q", p)
		}
		m.patterns = append(m.patterns, norm)
	}
	return m, nil
}

// Match reports whether name matches any of the Matcher's patterns.
func (m *Matcher) Match(name string) bool {
	candidate := name
	if !m.caseSensitive {
		candidate = strings.ToLower(candidate)
	}
	for _, p := range m.patterns {
		if ok, _ := doublestar.Match(p, candidate); ok {
			return true
		}
	}
	return false
}

// Empty reports whether the Matcher was built with no patterns, the
// common case for an unset exclude list where callers want
// Match to always report false without a nil check at every call site.
func (m *Matcher) Empty() bool {
	return m == nil || len(m.patterns) == 0
}
