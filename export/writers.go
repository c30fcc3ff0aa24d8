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

package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/tablescope/tablescope/datatable"
)

// WriteParquet exports the current view as a snappy-compressed Parquet
// file.
func WriteParquet(m *datatable.TableModel, path string) error {
	table, err := BuildArrowTable(m)
	if err != nil {
		return err
	}
	defer table.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}
	defer f.Close()

	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(table.Schema(), f, props, arrowProps)
	if err != nil {
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}

	if err := writer.WriteTable(table, table.NumRows()); err != nil {
		writer.Close()
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}
	return writer.Close()
}

// WriteCSV exports the current view as comma-separated text with a
// header row.
func WriteCSV(m *datatable.TableModel, path string) error {
	table, err := BuildArrowTable(m)
	if err != nil {
		return err
	}
	defer table.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	schema := table.Schema()
	header := make([]string, schema.NumFields())
	for i, field := range schema.Fields() {
		header[i] = field.Name
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}

	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		for pos := 0; pos < int(rec.NumRows()); pos++ {
			row := make([]string, rec.NumCols())
			for c, col := range rec.Columns() {
				row[c] = cellText(col, pos)
			}
			if err := w.Write(row); err != nil {
				return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
			}
		}
	}
	if err := tr.Err(); err != nil {
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}

	w.Flush()
	return w.Error()
}

// WriteJSON exports the current view as an indented array of objects.
func WriteJSON(m *datatable.TableModel, path string) error {
	table, err := BuildArrowTable(m)
	if err != nil {
		return err
	}
	defer table.Release()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}
	defer f.Close()

	schema := table.Schema()
	records := make([]map[string]interface{}, 0, table.NumRows())

	tr := array.NewTableReader(table, table.NumRows())
	defer tr.Release()

	for tr.Next() {
		rec := tr.Record()
		for pos := 0; pos < int(rec.NumRows()); pos++ {
			record := make(map[string]interface{}, rec.NumCols())
			for c, col := range rec.Columns() {
				record[schema.Field(c).Name] = cellJSON(col, pos)
			}
			records = append(records, record)
		}
	}
	if err := tr.Err(); err != nil {
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("%w: %v", datatable.ErrExportFailed, err)
	}
	return nil
}

// cellText renders one Arrow cell the way the viewer displays it.
func cellText(col arrow.Array, pos int) string {
	if col.IsNull(pos) {
		return ""
	}

	switch col.DataType().ID() {
	case arrow.STRING:
		return col.(*array.String).Value(pos)
	case arrow.INT64:
		return strconv.FormatInt(col.(*array.Int64).Value(pos), 10)
	case arrow.FLOAT64:
		return strconv.FormatFloat(col.(*array.Float64).Value(pos), 'g', -1, 64)
	case arrow.BOOL:
		return strconv.FormatBool(col.(*array.Boolean).Value(pos))
	case arrow.DATE32:
		return col.(*array.Date32).Value(pos).ToTime().Format(datatable.DateLayout)
	case arrow.TIMESTAMP:
		unit := col.DataType().(*arrow.TimestampType).Unit
		return col.(*array.Timestamp).Value(pos).ToTime(unit).Format(datatable.TimestampLayout)
	case arrow.BINARY:
		return string(col.(*array.Binary).Value(pos))
	default:
		return col.ValueStr(pos)
	}
}

// cellJSON renders one Arrow cell as a JSON-friendly value, keeping
// numbers and booleans typed.
func cellJSON(col arrow.Array, pos int) interface{} {
	if col.IsNull(pos) {
		return nil
	}

	switch col.DataType().ID() {
	case arrow.INT64:
		return col.(*array.Int64).Value(pos)
	case arrow.FLOAT64:
		return col.(*array.Float64).Value(pos)
	case arrow.BOOL:
		return col.(*array.Boolean).Value(pos)
	default:
		return cellText(col, pos)
	}
}
