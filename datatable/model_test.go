package datatable

import (
	"errors"
	"fmt"
	"testing"
)

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

// testSource is a fixed in-memory DataSource for tests.
type testSource struct {
	cols []Column
	rows [][]Value
	meta Metadata
}

func (s *testSource) RowCount() int    { return len(s.rows) }
func (s *testSource) ColumnCount() int { return len(s.cols) }

func (s *testSource) ColumnName(col int) (string, error) {
	if col < 0 || col >= len(s.cols) {
		return "", ErrInvalidColumn
	}
	return s.cols[col].Name, nil
}

func (s *testSource) ColumnType(col int) (DataType, error) {
	if col < 0 || col >= len(s.cols) {
		return TypeString, ErrInvalidColumn
	}
	return s.cols[col].Type, nil
}

func (s *testSource) Cell(row, col int) (Value, error) {
	if row < 0 || row >= len(s.rows) {
		return Value{}, ErrInvalidRow
	}
	if col < 0 || col >= len(s.cols) {
		return Value{}, ErrInvalidColumn
	}
	return s.rows[row][col], nil
}

func (s *testSource) Row(row int) ([]Value, error) {
	if row < 0 || row >= len(s.rows) {
		return nil, ErrInvalidRow
	}
	return s.rows[row], nil
}

func (s *testSource) Metadata() Metadata {
	if s.meta == nil {
		return Metadata{}
	}
	return s.meta
}

func intVal(n int64) Value      { return NewValue(n, TypeInt) }
func strVal(v string) Value     { return NewValue(v, TypeString) }
func floatVal(f float64) Value  { return NewValue(f, TypeFloat) }
func nullOf(t DataType) Value   { return NewNullValue(t) }
func row(vals ...Value) []Value { return vals }

// peopleSource returns a small Name/Age/City table.
func peopleSource() *testSource {
	return &testSource{
		cols: []Column{
			{Name: "Name", Type: TypeString},
			{Name: "Age", Type: TypeInt},
			{Name: "City", Type: TypeString},
		},
		rows: [][]Value{
			row(strVal("Alice"), intVal(30), strVal("New York")),
			row(strVal("Bob"), intVal(25), strVal("London")),
			row(strVal("Charlie"), intVal(35), strVal("Tokyo")),
			row(strVal("Dave"), intVal(25), strVal("London")),
		},
	}
}

// mustModel builds a model and fails the test on error.
func mustModel(t *testing.T, src DataSource) *TableModel {
	t.Helper()
	m, err := NewTableModel(src)
	if err != nil {
		t.Fatalf("NewTableModel: %v", err)
	}
	t.Cleanup(m.Close)
	return m
}

// funcFilter adapts a function to the Filter interface.
type funcFilter struct {
	desc string
	fn   func(row []Value, names []string) (bool, error)
}

func (f funcFilter) Evaluate(row []Value, names []string) (bool, error) {
	return f.fn(row, names)
}

func (f funcFilter) Description() string { return f.desc }

// keepCity keeps rows whose City column equals city.
func keepCity(city string) Filter {
	return funcFilter{
		desc: "city = " + city,
		fn: func(row []Value, names []string) (bool, error) {
			return row[2].Formatted == city, nil
		},
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// construction
// ---------------------------------------------------------------------------

func TestNewTableModel_NilSource(t *testing.T) {
	_, err := NewTableModel(nil)
	if !errors.Is(err, ErrNoDataSource) {
		t.Fatalf("expected ErrNoDataSource, got %v", err)
	}
}

func TestNewTableModel_RaggedRowFailsLoad(t *testing.T) {
	src := peopleSource()
	src.rows[2] = row(strVal("Charlie"), intVal(35)) // one cell short
	_, err := NewTableModel(src)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestNewTableModel_TypeMismatchFailsLoad(t *testing.T) {
	src := peopleSource()
	src.rows[1][1] = strVal("twenty-five") // string cell in an int column
	_, err := NewTableModel(src)
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestNewTableModel_InitialViewIsLoadOrder(t *testing.T) {
	m := mustModel(t, peopleSource())

	if got := m.VisibleRowCount(); got != 4 {
		t.Errorf("expected 4 visible rows, got %d", got)
	}
	if got := m.OriginalRowCount(); got != 4 {
		t.Errorf("expected 4 original rows, got %d", got)
	}
	if got := m.GetVisibleRowIndices(); !equalInts(got, []int{0, 1, 2, 3}) {
		t.Errorf("expected load order view, got %v", got)
	}
	sum := m.Summary()
	if sum.Rows != 4 || sum.TotalRows != 4 || sum.Matches != 0 || sum.Warnings != 0 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

// ---------------------------------------------------------------------------
// accessors
// ---------------------------------------------------------------------------

func TestVisibleCell(t *testing.T) {
	m := mustModel(t, peopleSource())

	cell, err := m.VisibleCell(1, 0)
	if err != nil {
		t.Fatalf("VisibleCell: %v", err)
	}
	if cell.Formatted != "Bob" {
		t.Errorf("expected Bob, got %q", cell.Formatted)
	}

	if _, err := m.VisibleCell(99, 0); !errors.Is(err, ErrInvalidRow) {
		t.Errorf("expected ErrInvalidRow, got %v", err)
	}
	if _, err := m.VisibleCell(0, 99); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("expected ErrInvalidColumn, got %v", err)
	}
}

func TestVisibleRowAndRowID(t *testing.T) {
	m := mustModel(t, peopleSource())

	vals, err := m.VisibleRow(2)
	if err != nil {
		t.Fatalf("VisibleRow: %v", err)
	}
	if len(vals) != 3 || vals[0].Formatted != "Charlie" {
		t.Errorf("unexpected row: %v", vals)
	}

	id, err := m.RowID(2)
	if err != nil {
		t.Fatalf("RowID: %v", err)
	}
	if id != 2 {
		t.Errorf("expected id 2, got %d", id)
	}

	full, err := m.RowByID(id)
	if err != nil {
		t.Fatalf("RowByID: %v", err)
	}
	if full[2].Formatted != "Tokyo" {
		t.Errorf("expected Tokyo, got %q", full[2].Formatted)
	}

	if _, err := m.RowByID(42); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("expected ErrUnknownRow, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// filtering
// ---------------------------------------------------------------------------

func TestSetFilter_KeepsOnlyMatchingRows(t *testing.T) {
	m := mustModel(t, peopleSource())

	sum, err := m.SetFilter(keepCity("London"))
	if err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if sum.Rows != 2 || sum.TotalRows != 4 {
		t.Errorf("expected 2/4 rows, got %d/%d", sum.Rows, sum.TotalRows)
	}
	// Survivors keep load order and every one satisfies the predicate.
	if got := m.GetVisibleRowIndices(); !equalInts(got, []int{1, 3}) {
		t.Errorf("expected view [1 3], got %v", got)
	}
	for i := 0; i < m.VisibleRowCount(); i++ {
		cell, _ := m.VisibleCell(i, 2)
		if cell.Formatted != "London" {
			t.Errorf("row %d leaked through filter: %q", i, cell.Formatted)
		}
	}
}

func TestSetFilter_ErrorExcludesRowAndWarns(t *testing.T) {
	m := mustModel(t, peopleSource())

	flaky := funcFilter{
		desc: "flaky",
		fn: func(row []Value, names []string) (bool, error) {
			if row[0].Formatted == "Charlie" {
				return false, fmt.Errorf("predicate blew up")
			}
			return true, nil
		},
	}
	sum, err := m.SetFilter(flaky)
	if err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	if sum.Rows != 3 {
		t.Errorf("expected 3 rows, got %d", sum.Rows)
	}
	if sum.Warnings != 1 {
		t.Errorf("expected 1 warning, got %d", sum.Warnings)
	}
}

func TestClearFilter_RestoresAllRows(t *testing.T) {
	m := mustModel(t, peopleSource())

	if _, err := m.SetFilter(keepCity("Tokyo")); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}
	sum, err := m.ClearFilter()
	if err != nil {
		t.Fatalf("ClearFilter: %v", err)
	}
	if sum.Rows != 4 {
		t.Errorf("expected all rows back, got %d", sum.Rows)
	}
	if got := m.GetVisibleRowIndices(); !equalInts(got, []int{0, 1, 2, 3}) {
		t.Errorf("expected load order, got %v", got)
	}
}

func TestApply_SameInputsSameView(t *testing.T) {
	m := mustModel(t, peopleSource())

	state := ViewState{
		Filter: keepCity("London"),
		Sort:   SortKey{{Column: 1, Direction: SortDescending}},
	}
	if _, err := m.Apply(state); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	first := m.GetVisibleRowIndices()
	if _, err := m.Apply(state); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if second := m.GetVisibleRowIndices(); !equalInts(first, second) {
		t.Errorf("same inputs produced different views: %v then %v", first, second)
	}
}

// ---------------------------------------------------------------------------
// row jumps
// ---------------------------------------------------------------------------

func TestJumpToRow(t *testing.T) {
	m := mustModel(t, peopleSource())

	if _, err := m.SetFilter(keepCity("London")); err != nil {
		t.Fatalf("SetFilter: %v", err)
	}

	off, err := m.JumpToRow(3)
	if err != nil {
		t.Fatalf("JumpToRow: %v", err)
	}
	if off != 1 {
		t.Errorf("expected view offset 1, got %d", off)
	}

	if _, err := m.JumpToRow(0); !errors.Is(err, ErrRowHidden) {
		t.Errorf("expected ErrRowHidden for filtered row, got %v", err)
	}
	if _, err := m.JumpToRow(100); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("expected ErrUnknownRow, got %v", err)
	}
	if _, err := m.JumpToRow(-1); !errors.Is(err, ErrUnknownRow) {
		t.Errorf("expected ErrUnknownRow for negative id, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// column visibility
// ---------------------------------------------------------------------------

func TestSetColumnVisible(t *testing.T) {
	m := mustModel(t, peopleSource())

	if err := m.SetColumnVisible(1, false); err != nil {
		t.Fatalf("SetColumnVisible: %v", err)
	}
	if got := m.VisibleColumnCount(); got != 2 {
		t.Errorf("expected 2 visible columns, got %d", got)
	}
	name, err := m.VisibleColumnName(1)
	if err != nil {
		t.Fatalf("VisibleColumnName: %v", err)
	}
	if name != "City" {
		t.Errorf("expected City at visible index 1, got %q", name)
	}
	if got := m.GetVisibleColumnIndices(); !equalInts(got, []int{0, 2}) {
		t.Errorf("expected visible columns [0 2], got %v", got)
	}

	m.ShowAllColumns()
	if got := m.VisibleColumnCount(); got != 3 {
		t.Errorf("expected 3 visible columns, got %d", got)
	}
}

func TestSetColumnVisible_RefusesToHideLast(t *testing.T) {
	m := mustModel(t, peopleSource())

	for _, c := range []int{0, 1} {
		if err := m.SetColumnVisible(c, false); err != nil {
			t.Fatalf("hide %d: %v", c, err)
		}
	}
	if err := m.SetColumnVisible(2, false); !errors.Is(err, ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
	if err := m.SetColumnVisible(7, false); !errors.Is(err, ErrInvalidColumn) {
		t.Errorf("expected ErrInvalidColumn, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// sort toggling
// ---------------------------------------------------------------------------

func TestToggleSort_Cycles(t *testing.T) {
	m := mustModel(t, peopleSource())

	if _, err := m.ToggleSort(1); err != nil {
		t.Fatalf("ToggleSort: %v", err)
	}
	st := m.GetSortState()
	if st.Column != 1 || st.Direction != SortAscending {
		t.Errorf("expected ascending on column 1, got %+v", st)
	}

	if _, err := m.ToggleSort(1); err != nil {
		t.Fatalf("ToggleSort: %v", err)
	}
	st = m.GetSortState()
	if st.Direction != SortDescending {
		t.Errorf("expected descending, got %+v", st)
	}

	if _, err := m.ToggleSort(1); err != nil {
		t.Fatalf("ToggleSort: %v", err)
	}
	if st = m.GetSortState(); st.IsSorted() {
		t.Errorf("expected unsorted, got %+v", st)
	}
	if got := m.GetVisibleRowIndices(); !equalInts(got, []int{0, 1, 2, 3}) {
		t.Errorf("expected load order after clearing sort, got %v", got)
	}
}

func TestAddSortColumn_BuildsMultiKey(t *testing.T) {
	m := mustModel(t, peopleSource())

	if _, err := m.ToggleSort(2); err != nil { // City ascending
		t.Fatalf("ToggleSort: %v", err)
	}
	if _, err := m.AddSortColumn(1); err != nil { // then Age ascending
		t.Fatalf("AddSortColumn: %v", err)
	}
	key := m.GetSortKey()
	if len(key) != 2 || key[0].Column != 2 || key[1].Column != 1 {
		t.Fatalf("unexpected key: %+v", key)
	}

	// Cycling the secondary flips it to descending, then removes it.
	if _, err := m.AddSortColumn(1); err != nil {
		t.Fatalf("AddSortColumn: %v", err)
	}
	key = m.GetSortKey()
	if key[1].Direction != SortDescending {
		t.Errorf("expected secondary descending, got %+v", key)
	}
	if _, err := m.AddSortColumn(1); err != nil {
		t.Fatalf("AddSortColumn: %v", err)
	}
	if key = m.GetSortKey(); len(key) != 1 {
		t.Errorf("expected secondary removed, got %+v", key)
	}
}
