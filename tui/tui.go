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

// Package tui is the interactive terminal front end. It paints windows of
// a datatable.TableModel and routes keys to the model's commands; every
// sort and filter goes through the model's async path so the grid stays
// responsive while a view recomputes.
package tui

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tablescope/tablescope/datatable"
	"github.com/tablescope/tablescope/export"
	"github.com/tablescope/tablescope/internal/applog"
	"github.com/tablescope/tablescope/internal/config"
	filterpkg "github.com/tablescope/tablescope/internal/filter"
	"github.com/tablescope/tablescope/internal/script"
)

type pane int

const (
	paneGrid pane = iota
	paneColumns
	paneLog
)

type prompt int

const (
	promptNone prompt = iota
	promptSearch
	promptFilter
	promptColumnFilter
	promptGoto
	promptExport
)

// applyDoneMsg delivers the outcome of one async view recompute.
type applyDoneMsg struct {
	summary datatable.Summary
	err     error
}

// exportDoneMsg delivers the outcome of a background export.
type exportDoneMsg struct {
	path string
	rows int
	err  error
}

// Model is the bubbletea model for one loaded table.
type Model struct {
	table  *datatable.TableModel
	cfg    config.Config
	logger *applog.Logger
	styles Styles
	title  string

	// allCols keeps every original column's name and type, captured
	// before any column is hidden.
	allCols []datatable.Column

	width  int
	height int

	// cursor in view coordinates: cx indexes visible columns,
	// cy indexes rows of the current view.
	cx, cy  int
	scrollX int
	scrollY int
	widths  []int

	pane      pane
	prompt    prompt
	promptCol int
	input     textinput.Model

	spin     spinner.Model
	inflight int

	colCursor int
	colScroll int
	stats     []datatable.ValueCount
	statsCol  int

	logView viewport.Model

	// Filter state follows the one-predicate contract: per-column texts
	// and the global expression are rebuilt into a single composite on
	// every change, and that composite replaces the model's filter.
	colFilters map[int]string
	globalExpr string

	summary   datatable.Summary
	flash     string
	flashWarn bool

	results chan applyDoneMsg
}

// New builds the TUI model over an already-loaded table. title names the
// table in the status bar, usually the file or delta-sharing table name.
func New(table *datatable.TableModel, cfg config.Config, logger *applog.Logger, title string) *Model {
	m := &Model{
		table:      table,
		cfg:        cfg,
		logger:     logger,
		styles:     NewStyles(cfg),
		title:      title,
		allCols:    table.Columns(),
		statsCol:   -1,
		colFilters: make(map[int]string),
		results:    make(chan applyDoneMsg, 8),
	}

	m.input = textinput.New()
	m.input.CharLimit = 512

	m.spin = spinner.New()
	m.spin.Spinner = spinner.Dot
	m.spin.Style = m.styles.Status

	m.logView = viewport.New(80, 20)

	if cfg.Sort.NullsFirst {
		table.SetDefaultNullOrder(datatable.NullsFirst)
	}
	m.summary = table.Summary()
	m.refit()
	return m
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.logView.Width = msg.Width
		m.logView.Height = m.dataHeight() + 2
		m.refit()
		m.followCursor()
		return m, nil

	case spinner.TickMsg:
		if m.inflight > 0 {
			var cmd tea.Cmd
			m.spin, cmd = m.spin.Update(msg)
			return m, cmd
		}
		return m, nil

	case applyDoneMsg:
		return m.applyDone(msg)

	case exportDoneMsg:
		if msg.err != nil {
			m.setFlash(fmt.Sprintf("export failed: %v", msg.err), true)
			m.logger.Error("export to %s failed: %v", msg.path, msg.err)
		} else {
			m.setFlash(fmt.Sprintf("exported %d rows to %s", msg.rows, msg.path), false)
			m.logger.Info("exported %d rows to %s", msg.rows, msg.path)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		m.flash = ""
		switch m.pane {
		case paneColumns:
			return m.updateColumns(msg)
		case paneLog:
			return m.updateLog(msg)
		default:
			return m.updateGrid(msg)
		}
	}
	return m, nil
}

// applyDone consumes one recompute result. A superseded result belongs to
// a command the user already replaced, so it only decrements the in-flight
// count.
func (m *Model) applyDone(msg applyDoneMsg) (tea.Model, tea.Cmd) {
	if m.inflight > 0 {
		m.inflight--
	}
	switch {
	case msg.err == nil:
		m.summary = msg.summary
		m.refit()
		m.logger.Debug("view swapped: %d/%d rows, %d warnings",
			msg.summary.Rows, msg.summary.TotalRows, msg.summary.Warnings)
	case errors.Is(msg.err, datatable.ErrSuperseded):
	default:
		m.setFlash(fmt.Sprintf("recompute failed: %v", msg.err), true)
		m.logger.Warn("recompute failed: %v", msg.err)
	}
	m.clampCursor()
	m.followCursor()
	if m.pane == paneLog {
		m.refreshLog()
	}
	if m.pane == paneColumns && m.statsCol >= 0 {
		m.refreshStats()
	}
	return m, nil
}

// dispatch hands a new view state to the model's worker and returns the
// commands that keep the spinner moving and collect the result.
func (m *Model) dispatch(state datatable.ViewState) tea.Cmd {
	m.inflight++
	ch := m.results
	m.table.ApplyAsync(state, func(s datatable.Summary, err error) {
		ch <- applyDoneMsg{summary: s, err: err}
	})
	return tea.Batch(m.spin.Tick, func() tea.Msg { return <-ch })
}

// refit recomputes the visible columns' display widths. Sorted columns
// get two extra cells so the header arrow fits.
func (m *Model) refit() {
	m.widths = m.table.FitColumnWidths(m.cfg.Columns.MinWidth, m.cfg.Columns.MaxWidth)

	key := m.table.GetSortKey()
	if !key.IsSorted() {
		return
	}
	for i, orig := range m.table.GetVisibleColumnIndices() {
		if i >= len(m.widths) {
			break
		}
		for _, sc := range key {
			if sc.Column == orig && sc.Direction != datatable.SortNone {
				m.widths[i] += 2
				break
			}
		}
	}
}

func (m *Model) clampCursor() {
	if rows := m.table.VisibleRowCount(); m.cy >= rows {
		m.cy = rows - 1
	}
	if m.cy < 0 {
		m.cy = 0
	}
	if cols := m.table.VisibleColumnCount(); m.cx >= cols {
		m.cx = cols - 1
	}
	if m.cx < 0 {
		m.cx = 0
	}
}

func (m *Model) setFlash(text string, warn bool) {
	m.flash = text
	m.flashWarn = warn
}

// dataHeight is the number of grid rows the terminal can show: everything
// minus title, header, separator, status and help lines.
func (m *Model) dataHeight() int {
	h := m.height - 5
	if h < 1 {
		h = 1
	}
	return h
}

// followCursor adjusts both scroll offsets so the cursor cell stays on
// screen.
func (m *Model) followCursor() {
	dh := m.dataHeight()
	if m.cy < m.scrollY {
		m.scrollY = m.cy
	}
	if m.cy >= m.scrollY+dh {
		m.scrollY = m.cy - dh + 1
	}
	if m.scrollY < 0 {
		m.scrollY = 0
	}

	if m.cx < m.scrollX {
		m.scrollX = m.cx
	}
	for m.scrollX < m.cx {
		_, end := m.visibleColRange()
		if m.cx < end {
			break
		}
		m.scrollX++
	}
}

// --- sort ---

// toggleSort cycles the cursor column through ascending, descending and
// unsorted. additive keeps the existing key and appends or cycles this
// column within it instead.
func (m *Model) toggleSort(additive bool) tea.Cmd {
	vis := m.table.GetVisibleColumnIndices()
	if m.cx < 0 || m.cx >= len(vis) {
		return nil
	}
	orig := vis[m.cx]
	nulls := datatable.NullsLast
	if m.cfg.Sort.NullsFirst {
		nulls = datatable.NullsFirst
	}

	key := m.table.GetSortKey()
	if additive {
		found := false
		for i := range key {
			if key[i].Column == orig {
				found = true
				if key[i].Direction == datatable.SortAscending {
					key[i].Direction = datatable.SortDescending
				} else {
					key = append(key[:i], key[i+1:]...)
				}
				break
			}
		}
		if !found {
			key = append(key, datatable.SortColumn{Column: orig, Direction: datatable.SortAscending, Nulls: nulls})
		}
	} else {
		next := datatable.SortAscending
		if len(key) == 1 && key[0].Column == orig {
			switch key[0].Direction {
			case datatable.SortAscending:
				next = datatable.SortDescending
			case datatable.SortDescending:
				next = datatable.SortNone
			}
		}
		if next == datatable.SortNone {
			key = nil
		} else {
			key = datatable.SortKey{{Column: orig, Direction: next, Nulls: nulls}}
		}
	}

	state := m.table.ViewState()
	state.Sort = key
	m.logger.Debug("sort key: %v", key)
	return m.dispatch(state)
}

// --- search ---

// parseSearchSpec maps prompt text to a search: /re/ is a regular
// expression, a leading = asks for an exact match, anything else is a
// substring. col scopes the search to one original column, -1 searches
// all visible columns.
func parseSearchSpec(text string, col int, caseSensitive bool) datatable.SearchSpec {
	mode := datatable.MatchSubstring
	if strings.HasPrefix(text, "/") && strings.HasSuffix(text, "/") && len(text) > 2 {
		mode = datatable.MatchRegex
		text = text[1 : len(text)-1]
	} else if strings.HasPrefix(text, "=") {
		mode = datatable.MatchExact
		text = text[1:]
	}
	return datatable.SearchSpec{Query: text, Mode: mode, CaseSensitive: caseSensitive, Column: col}
}

func (m *Model) runSearch(text string, col int) {
	spec := parseSearchSpec(text, col, m.cfg.Search.CaseSensitive)
	if spec.Query == "" {
		m.table.ClearSearch()
		return
	}
	if _, err := m.table.SetSearch(spec); err != nil {
		switch {
		case errors.Is(err, datatable.ErrNoMatches):
			m.setFlash(fmt.Sprintf("no matches for %q", spec.Query), true)
		default:
			m.setFlash(fmt.Sprintf("search: %v", err), true)
		}
		return
	}
	m.jumpMatch(+1)
}

// jumpMatch moves the cursor to the next or previous match, wrapping at
// either end of the view.
func (m *Model) jumpMatch(dir int) {
	var (
		pos int
		err error
	)
	if dir < 0 {
		pos, err = m.table.PrevMatch()
	} else {
		pos, err = m.table.NextMatch()
	}
	if err != nil {
		m.setFlash("no active search", true)
		return
	}
	m.cy = pos
	m.followCursor()
}

// --- filters ---

// parseGlobalExpr turns the filter bar's text into a predicate. A "go:"
// prefix hands the rest to the script compiler; anything else goes
// through the expression grammar.
func parseGlobalExpr(s string, columns []string) (datatable.Filter, error) {
	if rest, ok := strings.CutPrefix(s, "go:"); ok {
		return script.Compile(strings.TrimSpace(rest))
	}
	return filterpkg.Parse(s, columns)
}

// buildFilter combines the global expression and the per-column texts
// into the single predicate the model holds. Texts within one column OR
// together (split on |); columns AND together.
func (m *Model) buildFilter() (datatable.Filter, error) {
	var parts []datatable.Filter

	if s := strings.TrimSpace(m.globalExpr); s != "" {
		f, err := parseGlobalExpr(s, m.table.ColumnNames())
		if err != nil {
			return nil, err
		}
		if f != nil {
			parts = append(parts, f)
		}
	}

	names := m.table.ColumnNames()
	for _, orig := range sortedKeys(m.colFilters) {
		if orig < 0 || orig >= len(names) {
			continue
		}
		var alts []datatable.Filter
		for _, alt := range strings.Split(m.colFilters[orig], "|") {
			alt = strings.TrimSpace(alt)
			if alt == "" {
				continue
			}
			alts = append(alts, &filterpkg.Contains{Column: names[orig], Text: alt})
		}
		switch len(alts) {
		case 0:
		case 1:
			parts = append(parts, alts[0])
		default:
			parts = append(parts, filterpkg.Or(alts...))
		}
	}

	switch len(parts) {
	case 0:
		return nil, nil
	case 1:
		return parts[0], nil
	default:
		return filterpkg.And(parts...), nil
	}
}

func (m *Model) applyFilters() tea.Cmd {
	f, err := m.buildFilter()
	if err != nil {
		m.setFlash(fmt.Sprintf("filter: %v", err), true)
		return nil
	}
	state := m.table.ViewState()
	state.Filter = f
	if f != nil {
		m.logger.Info("filter: %s", f.Description())
	} else {
		m.logger.Info("filter cleared")
	}
	return m.dispatch(state)
}

// sortedKeys orders the per-column filter map so rebuilt composites come
// out the same every time.
func sortedKeys(m map[int]string) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// --- clipboard / export ---

func (m *Model) copyRow() {
	row, err := m.table.VisibleRow(m.cy)
	if err != nil {
		m.setFlash(fmt.Sprintf("copy: %v", err), true)
		return
	}
	cells := make([]string, len(row))
	for i, v := range row {
		cells[i] = v.Formatted
	}
	if err := clipboard.WriteAll(strings.Join(cells, "\t")); err != nil {
		m.setFlash(fmt.Sprintf("clipboard: %v", err), true)
		return
	}
	m.setFlash("row copied", false)
}

func (m *Model) copyCell() {
	v, err := m.table.VisibleCell(m.cy, m.cx)
	if err != nil {
		m.setFlash(fmt.Sprintf("copy: %v", err), true)
		return
	}
	if err := clipboard.WriteAll(v.Formatted); err != nil {
		m.setFlash(fmt.Sprintf("clipboard: %v", err), true)
		return
	}
	m.setFlash("cell copied", false)
}

// exportCmd writes the current view to path in the background; the
// extension picks the format.
func (m *Model) exportCmd(path string) tea.Cmd {
	table := m.table
	rows := table.VisibleRowCount()
	return func() tea.Msg {
		var err error
		switch strings.ToLower(filepath.Ext(path)) {
		case ".csv":
			err = export.WriteCSV(table, path)
		case ".json":
			err = export.WriteJSON(table, path)
		case ".parquet":
			err = export.WriteParquet(table, path)
		default:
			err = fmt.Errorf("unsupported export extension %q (use .csv, .json or .parquet)", filepath.Ext(path))
		}
		return exportDoneMsg{path: path, rows: rows, err: err}
	}
}

// --- prompt handling ---

func (m *Model) startPrompt(p prompt, label, placeholder, prefill string) tea.Cmd {
	m.prompt = p
	m.input.Prompt = label
	m.input.Placeholder = placeholder
	m.input.SetValue(prefill)
	m.input.CursorEnd()
	m.input.Focus()
	return textinput.Blink
}

func (m *Model) cancelPrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.cancelPrompt()
		return m, nil
	case tea.KeyEnter:
		text := strings.TrimSpace(m.input.Value())
		p, col := m.prompt, m.promptCol
		m.cancelPrompt()
		return m.commitPrompt(p, col, text)
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) commitPrompt(p prompt, col int, text string) (tea.Model, tea.Cmd) {
	switch p {
	case promptSearch:
		m.runSearch(text, col)
		return m, nil

	case promptFilter:
		m.globalExpr = text
		return m, m.applyFilters()

	case promptColumnFilter:
		if text == "" {
			delete(m.colFilters, col)
		} else {
			m.colFilters[col] = text
		}
		return m, m.applyFilters()

	case promptGoto:
		if text == "" {
			return m, nil
		}
		id, err := strconv.Atoi(text)
		if err != nil {
			m.setFlash(fmt.Sprintf("goto: %q is not a row number", text), true)
			return m, nil
		}
		off, err := m.table.JumpToRow(id)
		if err != nil {
			switch {
			case errors.Is(err, datatable.ErrRowHidden):
				m.setFlash(fmt.Sprintf("row %d is filtered out", id), true)
			case errors.Is(err, datatable.ErrUnknownRow):
				m.setFlash(fmt.Sprintf("no row %d", id), true)
			default:
				m.setFlash(fmt.Sprintf("goto: %v", err), true)
			}
			return m, nil
		}
		m.cy = off
		m.followCursor()
		return m, nil

	case promptExport:
		if text == "" {
			return m, nil
		}
		m.setFlash(fmt.Sprintf("exporting to %s", text), false)
		return m, m.exportCmd(text)
	}
	return m, nil
}

func (m *Model) View() string {
	if m.width == 0 {
		return "loading..."
	}
	switch m.pane {
	case paneColumns:
		return m.viewColumns()
	case paneLog:
		return m.viewLog()
	default:
		return m.viewGrid()
	}
}
