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

// Package arrow adapts Apache Arrow tables, the in-memory format behind
// Parquet files and Delta Sharing responses, into a data source. Rows are
// materialized up front; the caller may release the table afterwards.
package arrow

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/tablescope/tablescope/datatable"
)

// Source is a data source materialized from an Arrow table.
type Source struct {
	cols []datatable.Column
	rows [][]datatable.Value
	meta datatable.Metadata
}

var _ datatable.DataSource = (*Source)(nil)

// NewFromArrowTable copies an Arrow table into typed cells. Key/value
// metadata on the schema is carried over.
func NewFromArrowTable(table arrow.Table) (*Source, error) {
	if table == nil {
		return nil, datatable.ErrNoDataSource
	}
	schema := table.Schema()
	if schema.NumFields() == 0 {
		return nil, datatable.ErrEmptyData
	}

	cols := make([]datatable.Column, schema.NumFields())
	for i, field := range schema.Fields() {
		cols[i] = datatable.Column{Name: field.Name, Type: columnType(field.Type)}
	}

	meta := datatable.Metadata{}
	md := schema.Metadata()
	for i, key := range md.Keys() {
		meta[key] = md.Values()[i]
	}

	rows := make([][]datatable.Value, 0, table.NumRows())
	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		for pos := 0; pos < int(rec.NumRows()); pos++ {
			row := make([]datatable.Value, len(cols))
			for c := 0; c < len(cols); c++ {
				row[c] = cellValue(rec.Column(c), pos, cols[c].Type)
			}
			rows = append(rows, row)
		}
	}
	if err := tr.Err(); err != nil {
		return nil, err
	}

	return &Source{cols: cols, rows: rows, meta: meta}, nil
}

// columnType maps an Arrow field type onto a cell type. Types without a
// natural mapping browse as text.
func columnType(dt arrow.DataType) datatable.DataType {
	switch dt.ID() {
	case arrow.STRING, arrow.LARGE_STRING:
		return datatable.TypeString
	case arrow.BINARY, arrow.LARGE_BINARY:
		return datatable.TypeBinary
	case arrow.BOOL:
		return datatable.TypeBool
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.INT64,
		arrow.UINT8, arrow.UINT16, arrow.UINT32, arrow.UINT64:
		return datatable.TypeInt
	case arrow.FLOAT16, arrow.FLOAT32, arrow.FLOAT64:
		return datatable.TypeFloat
	case arrow.DATE32, arrow.DATE64:
		return datatable.TypeDate
	case arrow.TIMESTAMP:
		return datatable.TypeTimestamp
	case arrow.DECIMAL128:
		return datatable.TypeDecimal
	case arrow.STRUCT:
		return datatable.TypeStruct
	case arrow.LIST, arrow.LARGE_LIST:
		return datatable.TypeList
	default:
		return datatable.TypeString
	}
}

// cellValue extracts one position from an Arrow array as a typed cell.
func cellValue(col arrow.Array, pos int, t datatable.DataType) datatable.Value {
	if col.IsNull(pos) {
		return datatable.NewNullValue(t)
	}

	switch col.DataType().ID() {
	case arrow.STRING:
		return datatable.NewValue(col.(*array.String).Value(pos), t)
	case arrow.LARGE_STRING:
		return datatable.NewValue(col.(*array.LargeString).Value(pos), t)
	case arrow.BINARY:
		return datatable.NewValue(string(col.(*array.Binary).Value(pos)), t)
	case arrow.LARGE_BINARY:
		return datatable.NewValue(string(col.(*array.LargeBinary).Value(pos)), t)
	case arrow.BOOL:
		return datatable.NewValue(col.(*array.Boolean).Value(pos), t)

	case arrow.INT8:
		return datatable.NewValue(int64(col.(*array.Int8).Value(pos)), t)
	case arrow.INT16:
		return datatable.NewValue(int64(col.(*array.Int16).Value(pos)), t)
	case arrow.INT32:
		return datatable.NewValue(int64(col.(*array.Int32).Value(pos)), t)
	case arrow.INT64:
		return datatable.NewValue(col.(*array.Int64).Value(pos), t)
	case arrow.UINT8:
		return datatable.NewValue(int64(col.(*array.Uint8).Value(pos)), t)
	case arrow.UINT16:
		return datatable.NewValue(int64(col.(*array.Uint16).Value(pos)), t)
	case arrow.UINT32:
		return datatable.NewValue(int64(col.(*array.Uint32).Value(pos)), t)
	case arrow.UINT64:
		return datatable.NewValue(int64(col.(*array.Uint64).Value(pos)), t)

	case arrow.FLOAT16:
		return datatable.NewValue(float64(col.(*array.Float16).Value(pos).Float32()), t)
	case arrow.FLOAT32:
		return datatable.NewValue(float64(col.(*array.Float32).Value(pos)), t)
	case arrow.FLOAT64:
		return datatable.NewValue(col.(*array.Float64).Value(pos), t)

	case arrow.DATE32:
		return datatable.NewValue(col.(*array.Date32).Value(pos).ToTime(), t)
	case arrow.DATE64:
		return datatable.NewValue(col.(*array.Date64).Value(pos).ToTime(), t)
	case arrow.TIMESTAMP:
		// The unit lives on the column type; assuming nanoseconds would
		// misread second- or millisecond-encoded tables.
		unit := col.DataType().(*arrow.TimestampType).Unit
		return datatable.NewValue(col.(*array.Timestamp).Value(pos).ToTime(unit), t)

	case arrow.DECIMAL128:
		// ValueStr applies the type's scale.
		return datatable.NewValue(col.ValueStr(pos), t)

	default:
		// Struct, list, interval and friends browse as their text form.
		return datatable.NewValue(col.ValueStr(pos), t)
	}
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
