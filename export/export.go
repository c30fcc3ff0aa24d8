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

// Package export writes the current view of a table model, exactly the
// rows and columns the user sees after filtering, sorting and hiding, to
// Parquet, CSV, or JSON. All three formats go through an Arrow table.
package export

import (
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/tablescope/tablescope/datatable"
)

// BuildArrowTable assembles an Arrow table from the model's visible rows
// and columns, in view order. The caller releases the table.
func BuildArrowTable(m *datatable.TableModel) (arrow.Table, error) {
	rows := m.VisibleRowCount()
	if rows == 0 {
		return nil, fmt.Errorf("%w: nothing visible to export", datatable.ErrEmptyData)
	}

	cols := m.Columns()
	fields := make([]arrow.Field, len(cols))
	for i, col := range cols {
		fields[i] = arrowField(col)
	}
	schema := arrow.NewSchema(fields, nil)

	pool := memory.NewGoAllocator()
	builders := make([]array.Builder, len(fields))
	for i, field := range fields {
		builders[i] = array.NewBuilder(pool, field.Type)
		defer builders[i].Release()
	}

	for r := 0; r < rows; r++ {
		vals, err := m.VisibleRow(r)
		if err != nil {
			return nil, err
		}
		for c, v := range vals {
			appendValue(builders[c], v)
		}
	}

	columns := make([]arrow.Column, len(fields))
	for i, field := range fields {
		arr := builders[i].NewArray()
		defer arr.Release()

		chunked := arrow.NewChunked(field.Type, []arrow.Array{arr})
		columns[i] = *arrow.NewColumn(field, chunked)
	}

	return array.NewTable(schema, columns, int64(rows)), nil
}

// arrowField maps a column onto an Arrow field. Decimal, struct, list
// and unknown columns export as their display text.
func arrowField(col datatable.Column) arrow.Field {
	var dt arrow.DataType
	switch col.Type {
	case datatable.TypeInt:
		dt = arrow.PrimitiveTypes.Int64
	case datatable.TypeFloat:
		dt = arrow.PrimitiveTypes.Float64
	case datatable.TypeBool:
		dt = arrow.FixedWidthTypes.Boolean
	case datatable.TypeDate:
		dt = arrow.FixedWidthTypes.Date32
	case datatable.TypeTimestamp:
		dt = arrow.FixedWidthTypes.Timestamp_us
	case datatable.TypeBinary:
		dt = arrow.BinaryTypes.Binary
	default:
		dt = arrow.BinaryTypes.String
	}
	return arrow.Field{Name: col.Name, Type: dt, Nullable: true}
}

// appendValue appends one cell to a builder. A raw value that does not
// fit the column's Arrow type is exported as null.
func appendValue(b array.Builder, v datatable.Value) {
	if v.IsNull {
		b.AppendNull()
		return
	}

	switch bb := b.(type) {
	case *array.StringBuilder:
		bb.Append(v.Formatted)

	case *array.Int64Builder:
		switch n := v.Raw.(type) {
		case int64:
			bb.Append(n)
		case int:
			bb.Append(int64(n))
		case int32:
			bb.Append(int64(n))
		default:
			bb.AppendNull()
		}

	case *array.Float64Builder:
		switch f := v.Raw.(type) {
		case float64:
			bb.Append(f)
		case float32:
			bb.Append(float64(f))
		case int64:
			bb.Append(float64(f))
		default:
			bb.AppendNull()
		}

	case *array.BooleanBuilder:
		if val, ok := v.Raw.(bool); ok {
			bb.Append(val)
		} else {
			bb.AppendNull()
		}

	case *array.Date32Builder:
		if t, ok := v.Raw.(time.Time); ok {
			bb.Append(arrow.Date32FromTime(t))
		} else {
			bb.AppendNull()
		}

	case *array.TimestampBuilder:
		t, ok := v.Raw.(time.Time)
		if !ok {
			bb.AppendNull()
			return
		}
		ts, err := arrow.TimestampFromTime(t, arrow.Microsecond)
		if err != nil {
			bb.AppendNull()
			return
		}
		bb.Append(ts)

	case *array.BinaryBuilder:
		switch raw := v.Raw.(type) {
		case []byte:
			bb.Append(raw)
		case string:
			bb.Append([]byte(raw))
		default:
			bb.AppendNull()
		}

	default:
		b.AppendNull()
	}
}
