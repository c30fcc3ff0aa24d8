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
	"strconv"
	"strings"
	"time"
)

// keyKind classifies the comparable form a cell resolves to for sorting.
type keyKind int

const (
	keyNull keyKind = iota
	keyInt
	keyFloat
	keyTime
	keyString
)

// sortVal is the resolved, directly comparable form of one cell under its
// column's type. Resolving once per row keeps parsing out of the comparator.
type sortVal struct {
	kind keyKind
	i    int64
	f    float64
	t    time.Time
	s    string
}

// coerceSortVal resolves a cell to its comparable form under the column
// type. failed reports a non-null cell whose raw value could not be
// coerced; such cells sort with the nulls and count as a warning.
func coerceSortVal(v Value, t DataType) (sv sortVal, failed bool) {
	if v.IsNull {
		return sortVal{kind: keyNull}, false
	}

	switch t {
	case TypeInt:
		switch n := v.Raw.(type) {
		case int64:
			return sortVal{kind: keyInt, i: n}, false
		case int:
			return sortVal{kind: keyInt, i: int64(n)}, false
		case int32:
			return sortVal{kind: keyInt, i: int64(n)}, false
		case int16:
			return sortVal{kind: keyInt, i: int64(n)}, false
		case int8:
			return sortVal{kind: keyInt, i: int64(n)}, false
		case uint64:
			return sortVal{kind: keyInt, i: int64(n)}, false
		case uint32:
			return sortVal{kind: keyInt, i: int64(n)}, false
		}
		if n, err := strconv.ParseInt(strings.TrimSpace(v.Formatted), 10, 64); err == nil {
			return sortVal{kind: keyInt, i: n}, false
		}
		return sortVal{kind: keyNull}, true

	case TypeFloat:
		switch f := v.Raw.(type) {
		case float64:
			return sortVal{kind: keyFloat, f: f}, false
		case float32:
			return sortVal{kind: keyFloat, f: float64(f)}, false
		case int64:
			return sortVal{kind: keyFloat, f: float64(f)}, false
		case int:
			return sortVal{kind: keyFloat, f: float64(f)}, false
		}
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Formatted), 64); err == nil {
			return sortVal{kind: keyFloat, f: f}, false
		}
		return sortVal{kind: keyNull}, true

	case TypeBool:
		if b, ok := v.Raw.(bool); ok {
			if b {
				return sortVal{kind: keyInt, i: 1}, false
			}
			return sortVal{kind: keyInt, i: 0}, false
		}
		if b, err := strconv.ParseBool(strings.TrimSpace(v.Formatted)); err == nil {
			if b {
				return sortVal{kind: keyInt, i: 1}, false
			}
			return sortVal{kind: keyInt, i: 0}, false
		}
		return sortVal{kind: keyNull}, true

	case TypeDate, TypeTimestamp:
		if tm, ok := v.Raw.(time.Time); ok {
			return sortVal{kind: keyTime, t: tm}, false
		}
		for _, layout := range []string{TimestampLayout, DateLayout, time.RFC3339} {
			if tm, err := time.Parse(layout, strings.TrimSpace(v.Formatted)); err == nil {
				return sortVal{kind: keyTime, t: tm}, false
			}
		}
		return sortVal{kind: keyNull}, true

	case TypeDecimal:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v.Formatted), 64); err == nil {
			return sortVal{kind: keyFloat, f: f}, false
		}
		return sortVal{kind: keyString, s: v.Formatted}, false
	}

	// String, binary and nested types compare by their formatted text.
	return sortVal{kind: keyString, s: v.Formatted}, false
}

// compareSortVals orders two resolved cells of the same column.
// Null handling is the caller's job; a null here sorts before everything.
func compareSortVals(a, b sortVal) int {
	if a.kind != b.kind {
		// A decimal column can resolve some cells numerically and others
		// textually. Numbers order before text, nulls before both.
		an, aok := a.asFloat()
		bn, bok := b.asFloat()
		if aok && bok {
			return compareFloats(an, bn)
		}
		return int(a.kind) - int(b.kind)
	}

	switch a.kind {
	case keyNull:
		return 0
	case keyInt:
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	case keyFloat:
		return compareFloats(a.f, b.f)
	case keyTime:
		switch {
		case a.t.Before(b.t):
			return -1
		case a.t.After(b.t):
			return 1
		}
		return 0
	default:
		return strings.Compare(a.s, b.s)
	}
}

func (sv sortVal) asFloat() (float64, bool) {
	switch sv.kind {
	case keyInt:
		return float64(sv.i), true
	case keyFloat:
		return sv.f, true
	}
	return 0, false
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
