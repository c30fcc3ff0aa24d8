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

// Package slice provides data sources backed by in-memory Go values.
// It is the landing place for JSON documents and for other adapters that
// materialize their rows before handing them to the model.
package slice

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/tablescope/tablescope/datatable"
)

// Source is an immutable in-memory data source.
type Source struct {
	cols []datatable.Column
	rows [][]datatable.Value
	meta datatable.Metadata
}

var _ datatable.DataSource = (*Source)(nil)

// NewFromValues builds a source from already-typed rows. Every row must
// have one value per column.
func NewFromValues(cols []datatable.Column, rows [][]datatable.Value, meta datatable.Metadata) (*Source, error) {
	if len(cols) == 0 {
		return nil, datatable.ErrEmptyData
	}
	for i, r := range rows {
		if len(r) != len(cols) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d",
				datatable.ErrSchemaMismatch, i, len(r), len(cols))
		}
	}
	if meta == nil {
		meta = datatable.Metadata{}
	}
	return &Source{cols: cols, rows: rows, meta: meta}, nil
}

// NewFromStrings builds an all-string source, one column per header.
func NewFromStrings(headers []string, rows [][]string) (*Source, error) {
	if len(headers) == 0 {
		return nil, datatable.ErrEmptyData
	}

	cols := make([]datatable.Column, len(headers))
	for i, h := range headers {
		cols[i] = datatable.Column{Name: h, Type: datatable.TypeString}
	}

	converted := make([][]datatable.Value, len(rows))
	for i, r := range rows {
		if len(r) != len(headers) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d",
				datatable.ErrSchemaMismatch, i, len(r), len(headers))
		}
		vals := make([]datatable.Value, len(r))
		for j, s := range r {
			vals[j] = datatable.NewValue(s, datatable.TypeString)
		}
		converted[i] = vals
	}

	return &Source{cols: cols, rows: converted, meta: datatable.Metadata{}}, nil
}

// NewFromMaps builds a source from decoded JSON records. Columns are the
// union of the keys in alphabetical order, since Go maps carry no key
// order. Column types are inferred from the values; a column whose
// numbers are all integral becomes an integer column.
func NewFromMaps(records []map[string]interface{}) (*Source, error) {
	if len(records) == 0 {
		return nil, datatable.ErrEmptyData
	}

	seen := map[string]bool{}
	var names []string
	for _, rec := range records {
		for k := range rec {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, datatable.ErrEmptyData
	}

	cols := make([]datatable.Column, len(names))
	for i, name := range names {
		cols[i] = datatable.Column{Name: name, Type: inferMapColumn(records, name)}
	}

	rows := make([][]datatable.Value, len(records))
	for i, rec := range records {
		vals := make([]datatable.Value, len(cols))
		for j, col := range cols {
			vals[j] = mapValue(rec[col.Name], col.Type)
		}
		rows[i] = vals
	}

	return &Source{cols: cols, rows: rows, meta: datatable.Metadata{}}, nil
}

// inferMapColumn unifies the JSON kinds seen in one column. Mixed kinds
// fall back to string; a column that is null throughout is unknown.
func inferMapColumn(records []map[string]interface{}, name string) datatable.DataType {
	decided := datatable.TypeString
	first := true
	integral := true

	for _, rec := range records {
		v, ok := rec[name]
		if !ok || v == nil {
			continue
		}

		var t datatable.DataType
		switch n := v.(type) {
		case float64:
			t = datatable.TypeFloat
			if n != math.Trunc(n) {
				integral = false
			}
		case bool:
			t = datatable.TypeBool
		case string:
			t = datatable.TypeString
		case map[string]interface{}:
			t = datatable.TypeStruct
		case []interface{}:
			t = datatable.TypeList
		default:
			t = datatable.TypeString
		}

		if first {
			decided = t
			first = false
		} else if decided != t {
			return datatable.TypeString
		}
	}

	if first {
		return datatable.TypeUnknown
	}
	if decided == datatable.TypeFloat && integral {
		return datatable.TypeInt
	}
	return decided
}

// mapValue converts one JSON value into a typed cell.
func mapValue(v interface{}, t datatable.DataType) datatable.Value {
	if v == nil {
		return datatable.NewNullValue(t)
	}

	switch t {
	case datatable.TypeInt:
		if f, ok := v.(float64); ok {
			return datatable.NewValue(int64(f), t)
		}
	case datatable.TypeFloat:
		if f, ok := v.(float64); ok {
			return datatable.NewValue(f, t)
		}
	case datatable.TypeBool:
		if b, ok := v.(bool); ok {
			return datatable.NewValue(b, t)
		}
	case datatable.TypeStruct, datatable.TypeList:
		b, err := json.Marshal(v)
		if err != nil {
			return datatable.NewValue(fmt.Sprintf("%v", v), t)
		}
		return datatable.Value{Raw: v, Type: t, Formatted: string(b)}
	case datatable.TypeString:
		if s, ok := v.(string); ok {
			return datatable.NewValue(s, t)
		}
	}

	// Mixed-kind column: keep the display text.
	return datatable.NewValue(fmt.Sprintf("%v", v), t)
}

func (s *Source) RowCount() int    { return len(s.rows) }
func (s *Source) ColumnCount() int { return len(s.cols) }

func (s *Source) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(s.cols) {
		return "", datatable.ErrInvalidColumn
	}
	return s.cols[col].Name, nil
}

func (s *Source) ColumnType(col int) (datatable.DataType, error) {
	if col < 0 || col >= len(s.cols) {
		return datatable.TypeString, datatable.ErrInvalidColumn
	}
	return s.cols[col].Type, nil
}

func (s *Source) Cell(row, col int) (datatable.Value, error) {
	if row < 0 || row >= len(s.rows) {
		return datatable.Value{}, datatable.ErrInvalidRow
	}
	if col < 0 || col >= len(s.cols) {
		return datatable.Value{}, datatable.ErrInvalidColumn
	}
	return s.rows[row][col], nil
}

func (s *Source) Row(row int) ([]datatable.Value, error) {
	if row < 0 || row >= len(s.rows) {
		return nil, datatable.ErrInvalidRow
	}
	return s.rows[row], nil
}

func (s *Source) Metadata() datatable.Metadata { return s.meta }

// SetMetadata records extra information about where the data came from.
func (s *Source) SetMetadata(key string, value interface{}) {
	s.meta[key] = value
}
