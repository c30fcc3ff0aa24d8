package export

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	arrowadapter "github.com/tablescope/tablescope/adapters/arrow"
	"github.com/tablescope/tablescope/adapters/slice"
	"github.com/tablescope/tablescope/datatable"
)

func testModel(t *testing.T) *datatable.TableModel {
	t.Helper()

	cols := []datatable.Column{
		{Name: "name", Type: datatable.TypeString},
		{Name: "age", Type: datatable.TypeInt},
		{Name: "score", Type: datatable.TypeFloat},
		{Name: "active", Type: datatable.TypeBool},
		{Name: "joined", Type: datatable.TypeDate},
	}
	day := func(m, d int) time.Time {
		return time.Date(2024, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	}
	rows := [][]datatable.Value{
		{
			datatable.NewValue("Charlie", datatable.TypeString),
			datatable.NewValue(int64(35), datatable.TypeInt),
			datatable.NewValue(91.5, datatable.TypeFloat),
			datatable.NewValue(true, datatable.TypeBool),
			datatable.NewValue(day(3, 20), datatable.TypeDate),
		},
		{
			datatable.NewValue("Alice", datatable.TypeString),
			datatable.NewNullValue(datatable.TypeInt),
			datatable.NewValue(78.25, datatable.TypeFloat),
			datatable.NewValue(false, datatable.TypeBool),
			datatable.NewValue(day(1, 15), datatable.TypeDate),
		},
		{
			datatable.NewValue("Bob", datatable.TypeString),
			datatable.NewValue(int64(25), datatable.TypeInt),
			datatable.NewValue(60.0, datatable.TypeFloat),
			datatable.NewValue(true, datatable.TypeBool),
			datatable.NewValue(day(2, 10), datatable.TypeDate),
		},
	}

	src, err := slice.NewFromValues(cols, rows, nil)
	if err != nil {
		t.Fatal(err)
	}
	m, err := datatable.NewTableModel(src)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(m.Close)

	// Alphabetical by name, so exports come out Alice, Bob, Charlie.
	key := datatable.SortKey{{Column: 0, Direction: datatable.SortAscending}}
	if _, err := m.SetSort(key); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestBuildArrowTable(t *testing.T) {
	m := testModel(t)

	table, err := BuildArrowTable(m)
	if err != nil {
		t.Fatal(err)
	}
	defer table.Release()

	if table.NumRows() != 3 || table.NumCols() != 5 {
		t.Fatalf("table = %dx%d", table.NumRows(), table.NumCols())
	}
	if got := table.Schema().Field(1).Type.ID(); got != arrow.INT64 {
		t.Errorf("age field type = %v", got)
	}
	if got := table.Schema().Field(4).Type.ID(); got != arrow.DATE32 {
		t.Errorf("joined field type = %v", got)
	}
}

func TestBuildArrowTable_FollowsView(t *testing.T) {
	m := testModel(t)

	// Hide score and keep only active rows.
	if err := m.SetColumnVisible(2, false); err != nil {
		t.Fatal(err)
	}
	_, err := m.SetFilter(activeOnly{})
	if err != nil {
		t.Fatal(err)
	}

	table, err := BuildArrowTable(m)
	if err != nil {
		t.Fatal(err)
	}
	defer table.Release()

	if table.NumRows() != 2 || table.NumCols() != 4 {
		t.Fatalf("table = %dx%d, want 2x4", table.NumRows(), table.NumCols())
	}
	if table.Schema().Field(2).Name != "active" {
		t.Errorf("field 2 = %q, hidden column should be gone", table.Schema().Field(2).Name)
	}
}

type activeOnly struct{}

func (activeOnly) Evaluate(row []datatable.Value, names []string) (bool, error) {
	for i, n := range names {
		if n == "active" {
			return row[i].Formatted == "true", nil
		}
	}
	return false, nil
}

func (activeOnly) Description() string { return "active = true" }

func TestBuildArrowTable_EmptyView(t *testing.T) {
	m := testModel(t)
	if _, err := m.SetFilter(nothing{}); err != nil {
		t.Fatal(err)
	}

	_, err := BuildArrowTable(m)
	if !errors.Is(err, datatable.ErrEmptyData) {
		t.Fatalf("err = %v, want ErrEmptyData", err)
	}
}

type nothing struct{}

func (nothing) Evaluate([]datatable.Value, []string) (bool, error) { return false, nil }
func (nothing) Description() string                                { return "nothing" }

func TestWriteCSV(t *testing.T) {
	m := testModel(t)
	path := filepath.Join(t.TempDir(), "out.csv")

	if err := WriteCSV(m, path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("lines = %d: %q", len(lines), lines)
	}
	if lines[0] != "name,age,score,active,joined" {
		t.Errorf("header = %q", lines[0])
	}
	if lines[1] != "Alice,,78.25,false,2024-01-15" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[3] != "Charlie,35,91.5,true,2024-03-20" {
		t.Errorf("row 3 = %q", lines[3])
	}
}

func TestWriteJSON(t *testing.T) {
	m := testModel(t)
	path := filepath.Join(t.TempDir(), "out.json")

	if err := WriteJSON(m, path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var records []map[string]interface{}
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatal(err)
	}

	if len(records) != 3 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0]["name"] != "Alice" {
		t.Errorf("name = %v", records[0]["name"])
	}
	if records[0]["age"] != nil {
		t.Errorf("null age = %v", records[0]["age"])
	}
	if records[1]["age"] != float64(25) {
		t.Errorf("age = %v (%T)", records[1]["age"], records[1]["age"])
	}
	if records[2]["active"] != true {
		t.Errorf("active = %v", records[2]["active"])
	}
	if records[1]["joined"] != "2024-02-10" {
		t.Errorf("joined = %v", records[1]["joined"])
	}
}

func TestWriteParquetRoundTrip(t *testing.T) {
	m := testModel(t)
	path := filepath.Join(t.TempDir(), "out.parquet")

	if err := WriteParquet(m, path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	pf, err := file.NewParquetReader(f, file.WithReadProps(&parquet.ReaderProperties{}))
	if err != nil {
		t.Fatal(err)
	}
	defer pf.Close()

	reader, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.NewGoAllocator())
	if err != nil {
		t.Fatal(err)
	}
	table, err := reader.ReadTable(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer table.Release()

	src, err := arrowadapter.NewFromArrowTable(table)
	if err != nil {
		t.Fatal(err)
	}

	if src.RowCount() != 3 || src.ColumnCount() != 5 {
		t.Fatalf("read back %dx%d", src.RowCount(), src.ColumnCount())
	}

	v, _ := src.Cell(0, 0)
	if v.Formatted != "Alice" {
		t.Errorf("cell(0,0) = %q", v.Formatted)
	}
	v, _ = src.Cell(0, 1)
	if !v.IsNull {
		t.Errorf("Alice's age should survive as null: %+v", v)
	}
	v, _ = src.Cell(2, 1)
	if v.Formatted != "35" {
		t.Errorf("Charlie's age = %q", v.Formatted)
	}
	v, _ = src.Cell(1, 4)
	if v.Formatted != "2024-02-10" {
		t.Errorf("Bob's joined = %q", v.Formatted)
	}
}
