package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m *Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit

	case "up", "k":
		if m.cy > 0 {
			m.cy--
		}
	case "down", "j":
		if m.cy < m.table.VisibleRowCount()-1 {
			m.cy++
		}
	case "left", "h":
		if m.cx > 0 {
			m.cx--
		}
	case "right", "l":
		if m.cx < m.table.VisibleColumnCount()-1 {
			m.cx++
		}
	case "pgdown", "ctrl+d":
		m.cy += m.dataHeight()
		m.clampCursor()
	case "pgup", "ctrl+u":
		m.cy -= m.dataHeight()
		m.clampCursor()
	case "g", "ctrl+home":
		m.cy = 0
	case "G", "ctrl+end":
		m.cy = m.table.VisibleRowCount() - 1
		m.clampCursor()
	case "0", "home":
		m.cx = 0
	case "$", "end":
		m.cx = m.table.VisibleColumnCount() - 1
		m.clampCursor()

	case "s":
		return m, m.toggleSort(false)
	case "S":
		return m, m.toggleSort(true)

	case "f":
		return m, m.startPrompt(promptFilter, "filter> ", `age > 30 AND city = Tokyo, or go: num("age") > 30`, m.globalExpr)
	case "F":
		m.globalExpr = ""
		m.colFilters = map[int]string{}
		return m, m.applyFilters()

	case "/":
		m.promptCol = -1
		prefill := ""
		if spec, ok := m.table.ActiveSearch(); ok {
			prefill = spec.Query
		}
		return m, m.startPrompt(promptSearch, "/", "text, =exact or /regex/", prefill)
	case "n":
		m.jumpMatch(+1)
	case "N":
		m.jumpMatch(-1)
	case "esc":
		m.table.ClearSearch()

	case ":":
		return m, m.startPrompt(promptGoto, "row> ", "row id", "")

	case "c":
		m.openColumns()
	case "L":
		m.openLog()
	case "e":
		return m, m.startPrompt(promptExport, "export> ", "path ending in .csv, .json or .parquet", "")

	case "y":
		m.copyRow()
	case "Y":
		m.copyCell()

	case "H":
		vis := m.table.GetVisibleColumnIndices()
		if m.cx >= 0 && m.cx < len(vis) {
			if err := m.table.SetColumnVisible(vis[m.cx], false); err != nil {
				m.setFlash(fmt.Sprintf("hide: %v", err), true)
			} else {
				m.refit()
				m.clampCursor()
			}
		}
	}
	m.followCursor()
	return m, nil
}

func (m *Model) openColumns() {
	m.pane = paneColumns
	vis := m.table.GetVisibleColumnIndices()
	if m.cx >= 0 && m.cx < len(vis) {
		m.colCursor = vis[m.cx]
	}
	m.statsCol = -1
	m.stats = nil
}

func (m *Model) updateColumns(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "c":
		m.pane = paneGrid
		return m, nil

	case "up", "k":
		if m.colCursor > 0 {
			m.colCursor--
		}
	case "down", "j":
		if m.colCursor < len(m.allCols)-1 {
			m.colCursor++
		}

	case " ":
		visible := m.visibleSet()
		if err := m.table.SetColumnVisible(m.colCursor, !visible[m.colCursor]); err != nil {
			m.setFlash(fmt.Sprintf("toggle: %v", err), true)
		} else {
			m.refit()
			m.clampCursor()
			if m.statsCol == m.colCursor {
				m.statsCol = -1
				m.stats = nil
			}
		}
	case "a":
		m.table.ShowAllColumns()
		m.refit()

	case "enter":
		m.statsCol = m.colCursor
		m.refreshStats()

	case "f":
		m.promptCol = m.colCursor
		name := m.allCols[m.colCursor].Name
		return m, m.startPrompt(promptColumnFilter,
			fmt.Sprintf("filter %s> ", name), "text, | separates alternatives", m.colFilters[m.colCursor])

	case "/":
		m.promptCol = m.colCursor
		prefill := ""
		if spec, ok := m.table.ActiveSearch(); ok {
			prefill = spec.Query
		}
		return m, m.startPrompt(promptSearch, "/", "search this column", prefill)
	}
	return m, nil
}

func (m *Model) updateLog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "L":
		m.pane = paneGrid
		return m, nil
	}
	var cmd tea.Cmd
	m.logView, cmd = m.logView.Update(msg)
	return m, cmd
}

// visibleSet reports which original columns are currently shown.
func (m *Model) visibleSet() map[int]bool {
	set := make(map[int]bool)
	for _, orig := range m.table.GetVisibleColumnIndices() {
		set[orig] = true
	}
	return set
}
