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

// Package filter provides the built-in row filters: substring matching,
// typed comparisons, AND/OR composition, and a small query language that
// compiles to them.
package filter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tablescope/tablescope/datatable"
)

// findColumn resolves a column name case-insensitively, -1 if absent.
func findColumn(names []string, name string) int {
	for i, n := range names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

// Contains keeps rows where a cell's formatted text contains Text.
// An empty Column searches every cell of the row.
type Contains struct {
	Column        string
	Text          string
	CaseSensitive bool
}

// Evaluate implements the Filter interface.
func (f *Contains) Evaluate(row []datatable.Value, columnNames []string) (bool, error) {
	match := func(cell string) bool {
		if f.CaseSensitive {
			return strings.Contains(cell, f.Text)
		}
		return strings.Contains(strings.ToLower(cell), strings.ToLower(f.Text))
	}

	if f.Column == "" {
		for _, v := range row {
			if match(v.Formatted) {
				return true, nil
			}
		}
		return false, nil
	}

	idx := findColumn(columnNames, f.Column)
	if idx < 0 || idx >= len(row) {
		return false, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, f.Column)
	}
	return match(row[idx].Formatted), nil
}

// Description implements the Filter interface.
func (f *Contains) Description() string {
	if f.Column == "" {
		return fmt.Sprintf("~ %q", f.Text)
	}
	return fmt.Sprintf("%s ~ %q", f.Column, f.Text)
}

// CompareOp is a comparison operator of the query language.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpGreater
	OpLess
	OpGreaterEqual
	OpLessEqual
	OpContains
)

// String returns the operator's query-language spelling.
func (op CompareOp) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpGreater:
		return ">"
	case OpLess:
		return "<"
	case OpGreaterEqual:
		return ">="
	case OpLessEqual:
		return "<="
	case OpContains:
		return "~"
	default:
		return fmt.Sprintf("op(%d)", op)
	}
}

// Compare keeps rows where one column's cell compares against Value.
// Equality is case-insensitive on the formatted text. Ordering compares
// numerically when both sides parse as numbers and falls back to
// case-insensitive lexicographic order otherwise.
type Compare struct {
	Column string
	Op     CompareOp
	Value  string
}

// Evaluate implements the Filter interface.
func (f *Compare) Evaluate(row []datatable.Value, columnNames []string) (bool, error) {
	idx := findColumn(columnNames, f.Column)
	if idx < 0 || idx >= len(row) {
		return false, fmt.Errorf("%w: %s", datatable.ErrColumnNotFound, f.Column)
	}
	cell := row[idx].Formatted

	switch f.Op {
	case OpEqual:
		return strings.EqualFold(cell, f.Value), nil
	case OpNotEqual:
		return !strings.EqualFold(cell, f.Value), nil
	case OpContains:
		return strings.Contains(strings.ToLower(cell), strings.ToLower(f.Value)), nil
	case OpGreater, OpLess, OpGreaterEqual, OpLessEqual:
		return compareOrdered(cell, f.Value, f.Op), nil
	default:
		return false, fmt.Errorf("%w: operator %d", datatable.ErrInvalidFilter, f.Op)
	}
}

// Description implements the Filter interface.
func (f *Compare) Description() string {
	return fmt.Sprintf("%s %s %q", f.Column, f.Op, f.Value)
}

// compareOrdered compares numerically when both sides parse as floats,
// lexicographically otherwise.
func compareOrdered(cell, value string, op CompareOp) bool {
	a, err1 := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	b, err2 := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err1 != nil || err2 != nil {
		return compareStrings(cell, value, op)
	}

	switch op {
	case OpGreater:
		return a > b
	case OpLess:
		return a < b
	case OpGreaterEqual:
		return a >= b
	case OpLessEqual:
		return a <= b
	}
	return false
}

func compareStrings(cell, value string, op CompareOp) bool {
	cmp := strings.Compare(strings.ToLower(cell), strings.ToLower(value))

	switch op {
	case OpGreater:
		return cmp > 0
	case OpLess:
		return cmp < 0
	case OpGreaterEqual:
		return cmp >= 0
	case OpLessEqual:
		return cmp <= 0
	}
	return false
}
