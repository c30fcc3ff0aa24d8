// Copyright 2025 The Tablescope Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package datatable

import (
	"fmt"
	"regexp"
	"strings"
)

// SearchMode selects how a query matches a cell's formatted text.
type SearchMode int

const (
	// MatchSubstring matches cells containing the query.
	MatchSubstring SearchMode = iota
	// MatchExact matches cells equal to the query.
	MatchExact
	// MatchRegex matches cells against the query as a regular expression.
	MatchRegex
)

// String returns the string representation of a SearchMode.
func (m SearchMode) String() string {
	switch m {
	case MatchSubstring:
		return "Substring"
	case MatchExact:
		return "Exact"
	case MatchRegex:
		return "Regex"
	default:
		return fmt.Sprintf("Unknown(%d)", m)
	}
}

// SearchSpec describes one search over the current view.
type SearchSpec struct {
	// Query is the text or pattern to look for.
	Query string
	// Mode selects the match predicate.
	Mode SearchMode
	// CaseSensitive disables case folding when true.
	CaseSensitive bool
	// Column restricts the search to one original column index,
	// or searches every visible column when negative.
	Column int
}

// matcher reports whether one cell's formatted text matches.
type matcher func(string) bool

// compileMatcher turns a spec into a predicate. An uncompilable regex
// returns ErrInvalidPattern; the caller's previous search stays intact.
func compileMatcher(spec SearchSpec) (matcher, error) {
	switch spec.Mode {
	case MatchExact:
		if spec.CaseSensitive {
			return func(s string) bool { return s == spec.Query }, nil
		}
		return func(s string) bool { return strings.EqualFold(s, spec.Query) }, nil

	case MatchRegex:
		pattern := spec.Query
		if !spec.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPattern, err)
		}
		return re.MatchString, nil

	default:
		if spec.CaseSensitive {
			return func(s string) bool { return strings.Contains(s, spec.Query) }, nil
		}
		query := strings.ToLower(spec.Query)
		return func(s string) bool { return strings.Contains(strings.ToLower(s), query) }, nil
	}
}

// searchState holds the active query and its match positions over the
// current view. Positions are view offsets in ascending order; cursor is
// an index into positions, -1 until the first next/prev call. Any view
// change invalidates positions, so the model re-runs the search and
// resets the cursor after every swap.
type searchState struct {
	spec      SearchSpec
	match     matcher
	active    bool
	positions []int
	cursor    int
}

func (ss *searchState) clear() {
	*ss = searchState{cursor: -1}
}

// next advances the cursor circularly and returns the new match position.
// From the unset cursor it lands on the first match.
func (ss *searchState) next() (int, bool) {
	if len(ss.positions) == 0 {
		return 0, false
	}
	ss.cursor = (ss.cursor + 1) % len(ss.positions)
	return ss.positions[ss.cursor], true
}

// prev moves the cursor circularly backwards. From the unset cursor it
// lands on the last match.
func (ss *searchState) prev() (int, bool) {
	if len(ss.positions) == 0 {
		return 0, false
	}
	if ss.cursor <= 0 {
		ss.cursor = len(ss.positions) - 1
	} else {
		ss.cursor--
	}
	return ss.positions[ss.cursor], true
}

// current returns the match position under the cursor, if any.
func (ss *searchState) current() (int, bool) {
	if ss.cursor < 0 || ss.cursor >= len(ss.positions) {
		return 0, false
	}
	return ss.positions[ss.cursor], true
}
