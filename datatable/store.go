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

import "fmt"

// Store owns access to the loaded rows. A row's identity is its load-order
// index into the data source; identities are dense, stable for the lifetime
// of the store, and never reused. The store is immutable after construction,
// so views, searches and exports may read it concurrently without locking.
type Store struct {
	source DataSource
	cols   []Column
}

// newStore validates the data source against its own column model and wraps
// it. Validation walks every row once: a row whose arity differs from the
// column count, or whose non-null cells carry a different type than the
// column declares, fails the load with ErrSchemaMismatch.
func newStore(source DataSource) (*Store, error) {
	if source == nil {
		return nil, ErrNoDataSource
	}

	ncols := source.ColumnCount()
	cols := make([]Column, ncols)
	for c := 0; c < ncols; c++ {
		name, err := source.ColumnName(c)
		if err != nil {
			return nil, fmt.Errorf("column %d name: %w", c, err)
		}
		typ, err := source.ColumnType(c)
		if err != nil {
			return nil, fmt.Errorf("column %d type: %w", c, err)
		}
		cols[c] = Column{Name: name, Type: typ}
	}

	for r := 0; r < source.RowCount(); r++ {
		row, err := source.Row(r)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", r, err)
		}
		if len(row) != ncols {
			return nil, fmt.Errorf("%w: row %d has %d cells, expected %d",
				ErrSchemaMismatch, r, len(row), ncols)
		}
		for c, v := range row {
			if !v.IsNull && v.Type != cols[c].Type {
				return nil, fmt.Errorf("%w: row %d column %q holds %s, expected %s",
					ErrSchemaMismatch, r, cols[c].Name, v.Type, cols[c].Type)
			}
		}
	}

	return &Store{source: source, cols: cols}, nil
}

// RowCount returns the number of rows the store holds.
func (s *Store) RowCount() int {
	return s.source.RowCount()
}

// ColumnCount returns the number of columns in the column model.
func (s *Store) ColumnCount() int {
	return len(s.cols)
}

// Column returns the column model entry at the given index.
func (s *Store) Column(col int) (Column, error) {
	if col < 0 || col >= len(s.cols) {
		return Column{}, fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	return s.cols[col], nil
}

// Columns returns a copy of the column model.
func (s *Store) Columns() []Column {
	out := make([]Column, len(s.cols))
	copy(out, s.cols)
	return out
}

// RowByID returns the cells of the row with the given identity.
// Returns ErrUnknownRow for an identity outside the loaded range.
func (s *Store) RowByID(id int) ([]Value, error) {
	if id < 0 || id >= s.source.RowCount() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRow, id)
	}
	return s.source.Row(id)
}

// CellByID returns a single cell of the row with the given identity.
func (s *Store) CellByID(id, col int) (Value, error) {
	if id < 0 || id >= s.source.RowCount() {
		return Value{}, fmt.Errorf("%w: %d", ErrUnknownRow, id)
	}
	return s.source.Cell(id, col)
}

// AllIDs returns every row identity in load order.
func (s *Store) AllIDs() []int {
	ids := make([]int, s.source.RowCount())
	for i := range ids {
		ids[i] = i
	}
	return ids
}

// Metadata returns the data source's metadata.
func (s *Store) Metadata() Metadata {
	return s.source.Metadata()
}

// columnNames returns the names of all columns in order.
func (s *Store) columnNames() []string {
	names := make([]string, len(s.cols))
	for i, c := range s.cols {
		names[i] = c.Name
	}
	return names
}
