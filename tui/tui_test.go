package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tablescope/tablescope/adapters/slice"
	"github.com/tablescope/tablescope/datatable"
	"github.com/tablescope/tablescope/internal/applog"
	"github.com/tablescope/tablescope/internal/config"
)

func stripANSI(s string) string {
	var sb strings.Builder
	inEsc := false
	for _, r := range s {
		if inEsc {
			if r == 'm' {
				inEsc = false
			}
			continue
		}
		if r == '\x1b' {
			inEsc = true
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func containsVisible(rendered, sub string) bool {
	return strings.Contains(stripANSI(rendered), sub)
}

func testTUI(t *testing.T) *Model {
	t.Helper()

	cols := []datatable.Column{
		{Name: "Name", Type: datatable.TypeString},
		{Name: "Age", Type: datatable.TypeInt},
		{Name: "City", Type: datatable.TypeString},
	}
	person := func(name string, age interface{}, city string) []datatable.Value {
		ageVal := datatable.NewNullValue(datatable.TypeInt)
		if n, ok := age.(int); ok {
			ageVal = datatable.NewValue(int64(n), datatable.TypeInt)
		}
		return []datatable.Value{
			datatable.NewValue(name, datatable.TypeString),
			ageVal,
			datatable.NewValue(city, datatable.TypeString),
		}
	}
	rows := [][]datatable.Value{
		person("Dana", 41, "London"),
		person("Alice", 34, "Oslo"),
		person("Bob", nil, "London"),
		person("Carol", 29, "Tokyo"),
	}

	src, err := slice.NewFromValues(cols, rows, nil)
	if err != nil {
		t.Fatal(err)
	}
	table, err := datatable.NewTableModel(src)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(table.Close)

	logger, err := applog.New("", applog.LevelDebug)
	if err != nil {
		t.Fatal(err)
	}

	m := New(table, config.Default(), logger, "people")
	m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return m
}

// drain collects one async recompute result and feeds it back into the
// model the way the bubbletea loop would.
func drain(t *testing.T, m *Model) {
	t.Helper()
	select {
	case msg := <-m.results:
		m.applyDone(msg)
	case <-time.After(2 * time.Second):
		t.Fatal("recompute result never arrived")
	}
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestViewShowsHeaderAndCells(t *testing.T) {
	m := testTUI(t)
	out := m.View()

	for _, want := range []string{"Name", "Age", "City", "Dana", "Alice", "Tokyo"} {
		if !containsVisible(out, want) {
			t.Errorf("view is missing %q", want)
		}
	}
	if !containsVisible(out, "Table people (3 columns x 4 rows)") {
		t.Errorf("status line not found in:\n%s", stripANSI(out))
	}
}

func TestNavigationClampsAtEdges(t *testing.T) {
	m := testTUI(t)

	m.Update(key("k"))
	if m.cy != 0 {
		t.Errorf("cy = %d after up at top", m.cy)
	}
	for i := 0; i < 10; i++ {
		m.Update(key("j"))
	}
	if m.cy != 3 {
		t.Errorf("cy = %d, want clamped to last row 3", m.cy)
	}
	for i := 0; i < 10; i++ {
		m.Update(key("l"))
	}
	if m.cx != 2 {
		t.Errorf("cx = %d, want clamped to last column 2", m.cx)
	}
	m.Update(key("g"))
	if m.cy != 0 {
		t.Errorf("cy = %d after g", m.cy)
	}
}

func TestToggleSortCyclesThroughDirections(t *testing.T) {
	m := testTUI(t)
	m.cx = 1 // Age

	m.toggleSort(false)
	drain(t, m)
	sk := m.table.GetSortKey()
	if len(sk) != 1 || sk[0].Column != 1 || sk[0].Direction != datatable.SortAscending {
		t.Fatalf("after first toggle: %+v", sk)
	}

	// Ascending with nulls last: Carol, Alice, Dana, Bob.
	window := m.table.Render(0, 4, 0, 1)
	got := []string{window[0][0], window[3][0]}
	if got[0] != "Carol" || got[1] != "Bob" {
		t.Errorf("sorted order = %v", got)
	}

	m.toggleSort(false)
	drain(t, m)
	if sk := m.table.GetSortKey(); sk[0].Direction != datatable.SortDescending {
		t.Fatalf("after second toggle: %+v", sk)
	}

	m.toggleSort(false)
	drain(t, m)
	if sk := m.table.GetSortKey(); sk.IsSorted() {
		t.Fatalf("after third toggle key should be empty: %+v", sk)
	}
}

func TestSearchMovesCursorAndWraps(t *testing.T) {
	m := testTUI(t)

	m.runSearch("London", -1)
	if m.cy != 0 {
		t.Fatalf("first match should be Dana at 0, cy = %d", m.cy)
	}
	m.jumpMatch(+1)
	if m.cy != 2 {
		t.Fatalf("second match should be Bob at 2, cy = %d", m.cy)
	}
	m.jumpMatch(+1)
	if m.cy != 0 {
		t.Fatalf("third advance should wrap to 0, cy = %d", m.cy)
	}
	m.jumpMatch(-1)
	if m.cy != 2 {
		t.Fatalf("backwards from first should wrap to 2, cy = %d", m.cy)
	}
}

func TestSearchNoMatchesKeepsPrevious(t *testing.T) {
	m := testTUI(t)

	m.runSearch("London", -1)
	m.runSearch("Atlantis", -1)

	if m.flash == "" || !strings.Contains(m.flash, "no matches") {
		t.Errorf("flash = %q", m.flash)
	}
	if spec, ok := m.table.ActiveSearch(); !ok || spec.Query != "London" {
		t.Errorf("previous search should survive, got %+v ok=%v", spec, ok)
	}
}

func TestParseSearchSpec(t *testing.T) {
	spec := parseSearchSpec("plain", -1, false)
	if spec.Mode != datatable.MatchSubstring || spec.Query != "plain" {
		t.Errorf("plain: %+v", spec)
	}
	spec = parseSearchSpec("=exact", -1, false)
	if spec.Mode != datatable.MatchExact || spec.Query != "exact" {
		t.Errorf("exact: %+v", spec)
	}
	spec = parseSearchSpec("/^a.*/", 2, true)
	if spec.Mode != datatable.MatchRegex || spec.Query != "^a.*" || spec.Column != 2 || !spec.CaseSensitive {
		t.Errorf("regex: %+v", spec)
	}
	// A single slash is not a regex delimiter pair.
	spec = parseSearchSpec("/", -1, false)
	if spec.Mode != datatable.MatchSubstring {
		t.Errorf("single slash: %+v", spec)
	}
}

func TestBuildFilterComposesColumnsAndExpression(t *testing.T) {
	m := testTUI(t)
	m.globalExpr = "Age > 30"
	m.colFilters[2] = "london|tokyo"

	f, err := m.buildFilter()
	if err != nil {
		t.Fatal(err)
	}
	desc := f.Description()
	if !strings.Contains(desc, "AND") || !strings.Contains(desc, "OR") {
		t.Errorf("description = %q", desc)
	}

	cmd := m.applyFilters()
	if cmd == nil {
		t.Fatal("applyFilters returned no command")
	}
	drain(t, m)

	// Age > 30 AND city in (london, tokyo) leaves only Dana.
	if got := m.table.VisibleRowCount(); got != 1 {
		t.Fatalf("visible rows = %d", got)
	}
	window := m.table.Render(0, 1, 0, 1)
	if window[0][0] != "Dana" {
		t.Errorf("surviving row = %q", window[0][0])
	}
}

func TestClearFiltersRestoresAllRows(t *testing.T) {
	m := testTUI(t)
	m.colFilters[2] = "oslo"
	m.applyFilters()
	drain(t, m)
	if got := m.table.VisibleRowCount(); got != 1 {
		t.Fatalf("filtered rows = %d", got)
	}

	m.Update(key("F"))
	drain(t, m)
	if got := m.table.VisibleRowCount(); got != 4 {
		t.Errorf("rows after clear = %d", got)
	}
}

func TestBadFilterExpressionFlashes(t *testing.T) {
	m := testTUI(t)
	m.globalExpr = "Age > 30 AND"

	if cmd := m.applyFilters(); cmd != nil {
		t.Fatal("invalid expression should not dispatch")
	}
	if m.flash == "" || !m.flashWarn {
		t.Errorf("flash = %q warn=%v", m.flash, m.flashWarn)
	}
}

func TestStatusLineReportsFilteredShape(t *testing.T) {
	m := testTUI(t)
	m.colFilters[2] = "london"
	m.applyFilters()
	drain(t, m)

	line := stripANSI(m.statusLine())
	if !strings.Contains(line, "showing 3/3 columns x 2/4 rows") {
		t.Errorf("status = %q", line)
	}
	if !strings.Contains(line, "Filter:") {
		t.Errorf("status misses filter: %q", line)
	}
}

func TestStatusLineShowsSortArrow(t *testing.T) {
	m := testTUI(t)
	m.cx = 1
	m.toggleSort(false)
	drain(t, m)

	line := stripANSI(m.statusLine())
	if !strings.Contains(line, "Sorted: Age ↑") {
		t.Errorf("status = %q", line)
	}
	out := m.View()
	if !containsVisible(out, "Age ↑") {
		t.Errorf("header misses sort arrow:\n%s", stripANSI(out))
	}
}

func TestColumnsPaneTogglesVisibility(t *testing.T) {
	m := testTUI(t)

	m.Update(key("c"))
	if m.pane != paneColumns {
		t.Fatal("c should open the columns pane")
	}
	out := m.View()
	if !containsVisible(out, "[x]") {
		t.Errorf("columns pane misses checkboxes:\n%s", stripANSI(out))
	}

	// Hide the first column (Name).
	m.colCursor = 0
	m.Update(key(" "))
	if got := m.table.VisibleColumnCount(); got != 2 {
		t.Fatalf("visible columns = %d", got)
	}
	if !containsVisible(m.View(), "[ ]") {
		t.Error("hidden column should show an empty checkbox")
	}

	m.Update(key("a"))
	if got := m.table.VisibleColumnCount(); got != 3 {
		t.Errorf("columns after show all = %d", got)
	}

	m.Update(key("esc"))
	if m.pane != paneGrid {
		t.Error("esc should return to the grid")
	}
}

func TestColumnsPaneStats(t *testing.T) {
	m := testTUI(t)
	m.Update(key("c"))
	m.colCursor = 2 // City
	m.Update(key("enter"))

	if len(m.stats) == 0 {
		t.Fatal("no stats computed")
	}
	if m.stats[0].Value != "London" || m.stats[0].Count != 2 {
		t.Errorf("top value = %+v", m.stats[0])
	}
	out := m.View()
	if !containsVisible(out, "London") || !containsVisible(out, "50.0%") {
		t.Errorf("stats pane content missing:\n%s", stripANSI(out))
	}
}

func TestGotoRowById(t *testing.T) {
	m := testTUI(t)

	m.commitPrompt(promptGoto, -1, "3")
	if m.cy != 3 {
		t.Errorf("cy = %d, want view offset of row id 3", m.cy)
	}

	m.commitPrompt(promptGoto, -1, "99")
	if !strings.Contains(m.flash, "no row 99") {
		t.Errorf("flash = %q", m.flash)
	}

	// Filter Carol's row away, then jump to it.
	m.colFilters[2] = "london"
	m.applyFilters()
	drain(t, m)
	m.commitPrompt(promptGoto, -1, "3")
	if !strings.Contains(m.flash, "filtered out") {
		t.Errorf("flash = %q", m.flash)
	}
}

func TestFlashClearsOnNextKey(t *testing.T) {
	m := testTUI(t)
	m.setFlash("boom", true)
	m.Update(key("j"))
	if m.flash != "" {
		t.Errorf("flash = %q after keypress", m.flash)
	}
}

func TestPadCell(t *testing.T) {
	if got := padCell("abc", 5, false); got != "abc  " {
		t.Errorf("left pad = %q", got)
	}
	if got := padCell("42", 5, true); got != "   42" {
		t.Errorf("right align = %q", got)
	}
	if got := padCell("abcdefgh", 5, false); got != "abcd…" {
		t.Errorf("truncate = %q", got)
	}
}

func TestVisibleColRangeFollowsCursor(t *testing.T) {
	m := testTUI(t)
	m.width = 20 // narrow terminal, not all columns fit

	m.cx = 2
	m.followCursor()
	start, end := m.visibleColRange()
	if m.cx < start || m.cx >= end {
		t.Errorf("cursor column %d outside visible range [%d, %d)", m.cx, start, end)
	}
}

func TestSupersededResultKeepsQuiet(t *testing.T) {
	m := testTUI(t)
	m.inflight = 1
	m.applyDone(applyDoneMsg{summary: m.table.Summary(), err: datatable.ErrSuperseded})
	if m.flash != "" {
		t.Errorf("superseded result should not flash, got %q", m.flash)
	}
	if m.inflight != 0 {
		t.Errorf("inflight = %d", m.inflight)
	}
}
