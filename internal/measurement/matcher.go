// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package measurement

import (
	"fmt"
	"regexp"
)

// DefaultTokenPattern matches tokens such as __INIT__ or __PHASE_2__
const DefaultTokenPattern = `__[A-Z0-9_]+__`

// TokenMatcher recognizes window boundaries in workload output
type TokenMatcher interface {
	// Match returns the token found in line, if any
	Match(line string) (string, bool)
	// Pattern returns the textual form of the matcher
	Pattern() string
}

// RegexpMatcher is a TokenMatcher backed by a regular expression. When the
// expression has a capture group, the first group is the token; otherwise the
// whole match is.
type RegexpMatcher struct {
	re *regexp.Regexp
}

var _ TokenMatcher = (*RegexpMatcher)(nil)

// NewRegexpMatcher compiles pattern
func NewRegexpMatcher(pattern string) (*RegexpMatcher, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidPattern, pattern, err)
	}
	return &RegexpMatcher{re: re}, nil
}

func (m *RegexpMatcher) Match(line string) (string, bool) {
	loc := m.re.FindStringSubmatchIndex(line)
	if loc == nil {
		return "", false
	}
	if len(loc) >= 4 && loc[2] >= 0 {
		return line[loc[2]:loc[3]], true
	}
	return line[loc[0]:loc[1]], true
}

func (m *RegexpMatcher) Pattern() string {
	return m.re.String()
}
