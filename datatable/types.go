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

// Package datatable provides the core model for interactive browsing of
// tabular data: typed cell values, a stable row identity, filtering,
// multi-key sorting, searching, and windowed rendering.
package datatable

import (
	"fmt"
	"strconv"
	"time"
)

// DataType represents the type of data in a column.
type DataType int

const (
	// TypeString represents string data.
	TypeString DataType = iota
	// TypeInt represents integer data (any size).
	TypeInt
	// TypeFloat represents floating-point data (any precision).
	TypeFloat
	// TypeBool represents boolean data.
	TypeBool
	// TypeDate represents date data (without time).
	TypeDate
	// TypeTimestamp represents timestamp data (date + time).
	TypeTimestamp
	// TypeBinary represents binary/blob data.
	TypeBinary
	// TypeDecimal represents decimal/numeric data (fixed precision).
	TypeDecimal
	// TypeStruct represents structured data (nested fields).
	TypeStruct
	// TypeList represents list/array data.
	TypeList
	// TypeUnknown represents data whose type could not be determined,
	// for example a column with no non-null values. Unknown values
	// compare and render as text.
	TypeUnknown
)

// String returns the string representation of a DataType.
func (dt DataType) String() string {
	switch dt {
	case TypeString:
		return "String"
	case TypeInt:
		return "Int"
	case TypeFloat:
		return "Float"
	case TypeBool:
		return "Bool"
	case TypeDate:
		return "Date"
	case TypeTimestamp:
		return "Timestamp"
	case TypeBinary:
		return "Binary"
	case TypeDecimal:
		return "Decimal"
	case TypeStruct:
		return "Struct"
	case TypeList:
		return "List"
	case TypeUnknown:
		return "Unknown"
	default:
		return fmt.Sprintf("Unknown(%d)", dt)
	}
}

// IsNumeric reports whether values of this type are compared numerically.
func (dt DataType) IsNumeric() bool {
	return dt == TypeInt || dt == TypeFloat || dt == TypeDecimal
}

// IsTemporal reports whether values of this type are compared chronologically.
func (dt DataType) IsTemporal() bool {
	return dt == TypeDate || dt == TypeTimestamp
}

// Value is a typed container for cell values.
// It holds the raw value, type information, and a pre-formatted string for display.
type Value struct {
	// Raw holds the underlying value.
	// The type depends on the DataType field.
	Raw interface{}

	// Type indicates the data type of this value.
	Type DataType

	// IsNull indicates whether this value is null/nil.
	IsNull bool

	// Formatted is a pre-formatted string representation for display.
	// This improves rendering performance by avoiding repeated formatting.
	Formatted string
}

// NewValue creates a new Value from a raw value and type.
func NewValue(raw interface{}, dataType DataType) Value {
	if raw == nil {
		return Value{
			Raw:       nil,
			Type:      dataType,
			IsNull:    true,
			Formatted: "",
		}
	}

	return Value{
		Raw:       raw,
		Type:      dataType,
		IsNull:    false,
		Formatted: formatValue(raw, dataType),
	}
}

// NewNullValue creates a null value of the specified type.
func NewNullValue(dataType DataType) Value {
	return Value{
		Raw:       nil,
		Type:      dataType,
		IsNull:    true,
		Formatted: "",
	}
}

// DateLayout and TimestampLayout are the display formats for temporal values.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// formatValue converts a raw value to a formatted string.
func formatValue(raw interface{}, dataType DataType) string {
	if raw == nil {
		return ""
	}

	switch dataType {
	case TypeFloat:
		switch f := raw.(type) {
		case float64:
			return strconv.FormatFloat(f, 'g', -1, 64)
		case float32:
			return strconv.FormatFloat(float64(f), 'g', -1, 32)
		}
	case TypeDate:
		if t, ok := raw.(time.Time); ok {
			return t.Format(DateLayout)
		}
	case TypeTimestamp:
		if t, ok := raw.(time.Time); ok {
			return t.Format(TimestampLayout)
		}
	}

	return fmt.Sprintf("%v", raw)
}

// Column describes one column of a data source: its name, value type, and
// the display width last fitted for it (in terminal cells, 0 = unfitted).
type Column struct {
	Name  string
	Type  DataType
	Width int
}

// Metadata holds optional metadata about a data source.
type Metadata map[string]interface{}

// SortDirection specifies the direction of sorting.
type SortDirection int

const (
	// SortNone indicates no sorting.
	SortNone SortDirection = iota
	// SortAscending indicates ascending sort order.
	SortAscending
	// SortDescending indicates descending sort order.
	SortDescending
)

// String returns the string representation of a SortDirection.
func (sd SortDirection) String() string {
	switch sd {
	case SortNone:
		return "None"
	case SortAscending:
		return "Ascending"
	case SortDescending:
		return "Descending"
	default:
		return fmt.Sprintf("Unknown(%d)", sd)
	}
}

// NullOrder specifies where null values are placed in a sorted view,
// independent of the sort direction.
type NullOrder int

const (
	// NullsLast places null values after all non-null values.
	NullsLast NullOrder = iota
	// NullsFirst places null values before all non-null values.
	NullsFirst
)

// String returns the string representation of a NullOrder.
func (no NullOrder) String() string {
	switch no {
	case NullsLast:
		return "NullsLast"
	case NullsFirst:
		return "NullsFirst"
	default:
		return fmt.Sprintf("Unknown(%d)", no)
	}
}

// SortColumn is a single key of a multi-key sort.
type SortColumn struct {
	// Column is the original column index the key sorts on.
	Column int
	// Direction is the sort direction for this key.
	Direction SortDirection
	// Nulls controls null placement for this key.
	Nulls NullOrder
}

// SortKey is an ordered list of sort columns. The first entry is the
// primary key; later entries break ties among equal prefixes. Rows that
// compare equal on every key keep their relative load order.
type SortKey []SortColumn

// IsSorted returns true if the key contains at least one active column.
func (k SortKey) IsSorted() bool {
	for _, sc := range k {
		if sc.Direction != SortNone {
			return true
		}
	}
	return false
}

// SortState represents the primary sorting configuration, as surfaced to
// presentation layers.
type SortState struct {
	// Column is the index of the sorted column (-1 if unsorted).
	Column int
	// Direction is the sort direction.
	Direction SortDirection
}

// IsSorted returns true if this state represents an active sort.
func (s SortState) IsSorted() bool {
	return s.Column >= 0 && s.Direction != SortNone
}
