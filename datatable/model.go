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
	"sync"
	"sync/atomic"
)

// Summary describes the model's state after a command, for status lines.
type Summary struct {
	// Rows is the number of rows in the current view.
	Rows int
	// TotalRows is the number of rows in the store.
	TotalRows int
	// Matches is the number of active search matches in the view.
	Matches int
	// Warnings counts the row-local failures recovered during the last
	// view computation.
	Warnings int
}

// TableModel coordinates a store, a view over it, and an optional search.
// The view is an ordered list of row ids; every filter or sort command
// computes a complete replacement and swaps it in atomically, so readers
// always see either the old view or the new one, never a partial state.
//
// All methods are safe for concurrent use. Reads take a shared lock;
// the swap takes the exclusive lock only briefly.
type TableModel struct {
	mu    sync.RWMutex
	store *Store

	state    ViewState
	view     []int
	hidden   []bool
	visCols  []int
	widths   []int
	warnings int
	search   searchState

	defaultNulls NullOrder

	// pending is the generation of the most recently requested view
	// computation. A computation only commits if its generation still
	// matches; anything older is discarded when it completes.
	pending atomic.Uint64

	reqCh     chan applyRequest
	quit      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

// NewTableModel validates the data source and builds a model over it.
// The initial view contains every row in load order with no sort, no
// filter and no search.
func NewTableModel(source DataSource) (*TableModel, error) {
	store, err := newStore(source)
	if err != nil {
		return nil, err
	}

	m := &TableModel{
		store:  store,
		view:   store.AllIDs(),
		hidden: make([]bool, store.ColumnCount()),
		widths: make([]int, store.ColumnCount()),
		reqCh:  make(chan applyRequest, 1),
		quit:   make(chan struct{}),
	}
	m.search.clear()
	m.rebuildVisColsLocked()
	go m.applyWorker()
	return m, nil
}

// Close stops the background view worker. Commands issued after Close
// report ErrSuperseded. Close is idempotent.
func (m *TableModel) Close() {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.quit)
	})
}

// rebuildVisColsLocked recomputes the visible column index list.
func (m *TableModel) rebuildVisColsLocked() {
	m.visCols = m.visCols[:0]
	for c := range m.hidden {
		if !m.hidden[c] {
			m.visCols = append(m.visCols, c)
		}
	}
}

// OriginalRowCount returns the number of loaded rows.
func (m *TableModel) OriginalRowCount() int {
	return m.store.RowCount()
}

// OriginalColumnCount returns the number of columns in the column model.
func (m *TableModel) OriginalColumnCount() int {
	return m.store.ColumnCount()
}

// VisibleRowCount returns the number of rows in the current view.
func (m *TableModel) VisibleRowCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.view)
}

// VisibleColumnCount returns the number of columns currently shown.
func (m *TableModel) VisibleColumnCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.visCols)
}

// VisibleColumnName returns the name of the visible column at col.
func (m *TableModel) VisibleColumnName(col int) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orig, err := m.origColLocked(col)
	if err != nil {
		return "", err
	}
	return m.store.cols[orig].Name, nil
}

// VisibleColumnType returns the data type of the visible column at col.
func (m *TableModel) VisibleColumnType(col int) (DataType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	orig, err := m.origColLocked(col)
	if err != nil {
		return TypeString, err
	}
	return m.store.cols[orig].Type, nil
}

// VisibleCell returns the cell at a view offset and visible column index.
func (m *TableModel) VisibleCell(row, col int) (Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row < 0 || row >= len(m.view) {
		return Value{}, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	orig, err := m.origColLocked(col)
	if err != nil {
		return Value{}, err
	}
	return m.store.CellByID(m.view[row], orig)
}

// VisibleRow returns the visible cells of the row at a view offset.
func (m *TableModel) VisibleRow(row int) ([]Value, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row < 0 || row >= len(m.view) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	full, err := m.store.RowByID(m.view[row])
	if err != nil {
		return nil, err
	}
	out := make([]Value, len(m.visCols))
	for i, c := range m.visCols {
		out[i] = full[c]
	}
	return out, nil
}

// RowByID returns every cell of the row with the given identity,
// regardless of view membership or column visibility.
func (m *TableModel) RowByID(id int) ([]Value, error) {
	return m.store.RowByID(id)
}

// RowID returns the identity of the row at a view offset.
func (m *TableModel) RowID(row int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if row < 0 || row >= len(m.view) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRow, row)
	}
	return m.view[row], nil
}

// GetVisibleRowIndices returns the row ids of the current view in order.
func (m *TableModel) GetVisibleRowIndices() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.view))
	copy(out, m.view)
	return out
}

// GetVisibleColumnIndices returns the original indices of the visible columns.
func (m *TableModel) GetVisibleColumnIndices() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.visCols))
	copy(out, m.visCols)
	return out
}

// Columns returns the visible columns with their fitted display widths.
func (m *TableModel) Columns() []Column {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Column, len(m.visCols))
	for i, c := range m.visCols {
		col := m.store.cols[c]
		col.Width = m.widths[c]
		out[i] = col
	}
	return out
}

// ColumnNames returns the names of every column in original order.
func (m *TableModel) ColumnNames() []string {
	return m.store.columnNames()
}

// Metadata returns the underlying data source's metadata.
func (m *TableModel) Metadata() Metadata {
	return m.store.Metadata()
}

// GetSortKey returns a copy of the active sort key.
func (m *TableModel) GetSortKey() SortKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(SortKey, len(m.state.Sort))
	copy(out, m.state.Sort)
	return out
}

// GetSortState reports the primary sort column as a visible index,
// or Column -1 when unsorted or when the sorted column is hidden.
func (m *TableModel) GetSortState() SortState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sc := range m.state.Sort {
		if sc.Direction == SortNone {
			continue
		}
		for vis, orig := range m.visCols {
			if orig == sc.Column {
				return SortState{Column: vis, Direction: sc.Direction}
			}
		}
		return SortState{Column: -1, Direction: sc.Direction}
	}
	return SortState{Column: -1, Direction: SortNone}
}

// GetFilter returns the active filter, or nil.
func (m *TableModel) GetFilter() Filter {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state.Filter
}

// ViewState returns a copy of the active view state.
func (m *TableModel) ViewState() ViewState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	key := make(SortKey, len(m.state.Sort))
	copy(key, m.state.Sort)
	return ViewState{Sort: key, Filter: m.state.Filter}
}

// Summary reports the current view's counts.
func (m *TableModel) Summary() Summary {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summaryLocked()
}

func (m *TableModel) summaryLocked() Summary {
	return Summary{
		Rows:      len(m.view),
		TotalRows: m.store.RowCount(),
		Matches:   len(m.search.positions),
		Warnings:  m.warnings,
	}
}

// SetDefaultNullOrder sets the null placement used by sort keys created
// through ToggleSort and AddSortColumn.
func (m *TableModel) SetDefaultNullOrder(no NullOrder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultNulls = no
}

// Apply computes and installs a new view synchronously. If a newer
// computation was requested while this one ran, the result is discarded
// and ErrSuperseded returned; the installed view is then the newer one's.
func (m *TableModel) Apply(state ViewState) (Summary, error) {
	key, err := normalizeKey(state.Sort, m.store.ColumnCount())
	if err != nil {
		return m.Summary(), err
	}
	gen := m.pending.Add(1)
	res := buildView(m.store, state.Filter, key)
	return m.commit(gen, state.Filter, key, res)
}

// commit installs a computed view if its generation is still the latest.
func (m *TableModel) commit(gen uint64, filter Filter, key SortKey, res viewResult) (Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.pending.Load() {
		return m.summaryLocked(), ErrSuperseded
	}
	m.state = ViewState{Sort: key, Filter: filter}
	m.view = res.rows
	m.warnings = res.warnings
	m.rescanSearchLocked()
	return m.summaryLocked(), nil
}

// SetSort replaces the sort key and recomputes the view.
func (m *TableModel) SetSort(key SortKey) (Summary, error) {
	state := m.ViewState()
	state.Sort = key
	return m.Apply(state)
}

// ClearSort removes any sorting; the view returns to filtered load order.
func (m *TableModel) ClearSort() (Summary, error) {
	state := m.ViewState()
	state.Sort = nil
	return m.Apply(state)
}

// ToggleSort cycles the sort on a visible column through
// ascending, descending, none. It replaces any multi-column key.
func (m *TableModel) ToggleSort(visCol int) (Summary, error) {
	m.mu.RLock()
	orig, err := m.origColLocked(visCol)
	if err != nil {
		m.mu.RUnlock()
		return m.Summary(), err
	}
	next := SortAscending
	if len(m.state.Sort) == 1 && m.state.Sort[0].Column == orig {
		switch m.state.Sort[0].Direction {
		case SortAscending:
			next = SortDescending
		case SortDescending:
			next = SortNone
		}
	}
	nulls := m.defaultNulls
	m.mu.RUnlock()

	if next == SortNone {
		return m.ClearSort()
	}
	return m.SetSort(SortKey{{Column: orig, Direction: next, Nulls: nulls}})
}

// AddSortColumn appends a visible column as a further sort key, or cycles
// its direction if it is already part of the key.
func (m *TableModel) AddSortColumn(visCol int) (Summary, error) {
	m.mu.RLock()
	orig, err := m.origColLocked(visCol)
	if err != nil {
		m.mu.RUnlock()
		return m.Summary(), err
	}
	key := make(SortKey, len(m.state.Sort))
	copy(key, m.state.Sort)
	nulls := m.defaultNulls
	m.mu.RUnlock()

	found := false
	for i := range key {
		if key[i].Column == orig {
			found = true
			switch key[i].Direction {
			case SortAscending:
				key[i].Direction = SortDescending
			default:
				key = append(key[:i], key[i+1:]...)
			}
			break
		}
	}
	if !found {
		key = append(key, SortColumn{Column: orig, Direction: SortAscending, Nulls: nulls})
	}
	return m.SetSort(key)
}

// SetFilter replaces the active filter and recomputes the view.
func (m *TableModel) SetFilter(f Filter) (Summary, error) {
	state := m.ViewState()
	state.Filter = f
	return m.Apply(state)
}

// ClearFilter removes the active filter.
func (m *TableModel) ClearFilter() (Summary, error) {
	return m.SetFilter(nil)
}

// SetColumnVisible shows or hides a column by its original index.
// The last visible column cannot be hidden.
func (m *TableModel) SetColumnVisible(origCol int, visible bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if origCol < 0 || origCol >= len(m.hidden) {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, origCol)
	}
	if !visible && len(m.visCols) == 1 && m.visCols[0] == origCol {
		return fmt.Errorf("%w: cannot hide last column", ErrEmptyData)
	}
	if m.hidden[origCol] == !visible {
		return nil
	}
	m.hidden[origCol] = !visible
	m.rebuildVisColsLocked()
	m.rescanSearchLocked()
	return nil
}

// ShowAllColumns makes every column visible again.
func (m *TableModel) ShowAllColumns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.hidden {
		m.hidden[i] = false
	}
	m.rebuildVisColsLocked()
	m.rescanSearchLocked()
}

// JumpToRow resolves a row identity to its position in the current view.
// Returns ErrUnknownRow for an identity that was never loaded and
// ErrRowHidden for one the active filter excludes.
func (m *TableModel) JumpToRow(id int) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || id >= m.store.RowCount() {
		return 0, fmt.Errorf("%w: %d", ErrUnknownRow, id)
	}
	for off, rid := range m.view {
		if rid == id {
			return off, nil
		}
	}
	return 0, fmt.Errorf("%w: id %d", ErrRowHidden, id)
}

// SetSearch runs a search over the current view and makes it the active
// one. With zero matches it returns ErrNoMatches and leaves any previous
// search (and its cursor) untouched. An invalid regex pattern returns
// ErrInvalidPattern the same way.
func (m *TableModel) SetSearch(spec SearchSpec) (Summary, error) {
	match, err := compileMatcher(spec)
	if err != nil {
		return m.Summary(), err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if spec.Column >= m.store.ColumnCount() {
		return m.summaryLocked(), fmt.Errorf("%w: %d", ErrInvalidColumn, spec.Column)
	}
	positions := m.scanLocked(spec, match)
	if len(positions) == 0 {
		return m.summaryLocked(), ErrNoMatches
	}
	m.search = searchState{
		spec:      spec,
		match:     match,
		active:    true,
		positions: positions,
		cursor:    -1,
	}
	return m.summaryLocked(), nil
}

// ClearSearch drops the active search.
func (m *TableModel) ClearSearch() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.search.clear()
}

// ActiveSearch returns the active search spec, if any.
func (m *TableModel) ActiveSearch() (SearchSpec, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.search.spec, m.search.active
}

// MatchCount returns the number of matches of the active search.
func (m *TableModel) MatchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.search.positions)
}

// MatchPositions returns the view offsets of the active search's matches.
func (m *TableModel) MatchPositions() []int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]int, len(m.search.positions))
	copy(out, m.search.positions)
	return out
}

// NextMatch advances the search cursor circularly and returns the view
// offset of the match it lands on. The first call lands on the first
// match; advancing past the last wraps to the first.
func (m *TableModel) NextMatch() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.search.next()
	if !ok {
		return 0, ErrNoMatches
	}
	return pos, nil
}

// PrevMatch moves the search cursor circularly backwards.
func (m *TableModel) PrevMatch() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pos, ok := m.search.prev()
	if !ok {
		return 0, ErrNoMatches
	}
	return pos, nil
}

// CurrentMatch returns the view offset under the search cursor, if set.
func (m *TableModel) CurrentMatch() (int, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.search.current()
}

// scanLocked collects the view offsets of rows matching the spec.
// A row matches if any searched cell's formatted text matches.
func (m *TableModel) scanLocked(spec SearchSpec, match matcher) []int {
	cols := m.visCols
	if spec.Column >= 0 {
		cols = []int{spec.Column}
	}
	var out []int
	for off, id := range m.view {
		for _, c := range cols {
			cell, err := m.store.CellByID(id, c)
			if err != nil {
				continue
			}
			if match(cell.Formatted) {
				out = append(out, off)
				break
			}
		}
	}
	return out
}

// rescanSearchLocked re-executes the active search after a view or column
// visibility change. Positions referring to the old view are meaningless,
// so the cursor resets to unset.
func (m *TableModel) rescanSearchLocked() {
	if !m.search.active {
		return
	}
	m.search.positions = m.scanLocked(m.search.spec, m.search.match)
	m.search.cursor = -1
}

// origColLocked maps a visible column index to its original index.
func (m *TableModel) origColLocked(visCol int) (int, error) {
	if visCol < 0 || visCol >= len(m.visCols) {
		return 0, fmt.Errorf("%w: %d", ErrInvalidColumn, visCol)
	}
	return m.visCols[visCol], nil
}
