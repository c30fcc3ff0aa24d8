package tui

import (
	"fmt"

	"github.com/tablescope/tablescope/datatable"
)

func (m *Model) titleLine() string {
	line := m.styles.Title.Render(" tablescope") + "  " + m.title
	if m.inflight > 0 {
		line += "  " + m.spin.View() + m.styles.Status.Render("recomputing...")
	}
	return line
}

// statusLine reports table shape, sort, filter, search and warning state
// in one line.
func (m *Model) statusLine() string {
	totalRows := m.table.OriginalRowCount()
	totalCols := m.table.OriginalColumnCount()
	visRows := m.table.VisibleRowCount()
	visCols := m.table.VisibleColumnCount()

	var s string
	if visRows != totalRows || visCols != totalCols {
		s = fmt.Sprintf("Table %s (showing %d/%d columns x %d/%d rows)",
			m.title, visCols, totalCols, visRows, totalRows)
	} else {
		s = fmt.Sprintf("Table %s (%d columns x %d rows)", m.title, totalCols, totalRows)
	}

	sortState := m.table.GetSortState()
	if sortState.IsSorted() {
		colName, _ := m.table.VisibleColumnName(sortState.Column)
		direction := "↑"
		if sortState.Direction == datatable.SortDescending {
			direction = "↓"
		}
		s += fmt.Sprintf(" | Sorted: %s %s", colName, direction)
	}

	if f := m.table.GetFilter(); f != nil {
		s += " | Filter: " + f.Description()
	}

	if count := m.table.MatchCount(); count > 0 {
		if cur, ok := m.table.CurrentMatch(); ok {
			ord := 0
			for i, pos := range m.table.MatchPositions() {
				if pos == cur {
					ord = i + 1
					break
				}
			}
			s += fmt.Sprintf(" | match %d/%d", ord, count)
		} else {
			s += fmt.Sprintf(" | %d matches", count)
		}
	}

	line := m.styles.Status.Render(" " + s)
	if m.summary.Warnings > 0 {
		line += m.styles.Warning.Render(fmt.Sprintf(" | %d warnings", m.summary.Warnings))
	}
	return line
}

// bottomLine is the prompt when one is open, the latest flash message
// when one is set, or the key help for the active pane.
func (m *Model) bottomLine() string {
	if m.prompt != promptNone {
		return " " + m.input.View()
	}
	if m.flash != "" {
		if m.flashWarn {
			return m.styles.Warning.Render(" " + m.flash)
		}
		return m.styles.Status.Render(" " + m.flash)
	}
	switch m.pane {
	case paneColumns:
		return m.styles.Dim.Render(" j/k move  space show/hide  enter stats  f filter  / search  a show all  esc back")
	case paneLog:
		return m.styles.Dim.Render(" j/k scroll  esc back")
	default:
		return m.styles.Dim.Render(" hjkl move  s/S sort  / search  n/N match  f filter  c columns  e export  y copy  L log  q quit")
	}
}
