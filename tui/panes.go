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

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// statsRowCap bounds the frequency table shown in the stats pane.
const statsRowCap = 30

// refreshStats recomputes the frequency table for the selected column.
// The column must be visible; stats run over the current view.
func (m *Model) refreshStats() {
	vis := m.table.GetVisibleColumnIndices()
	visIdx := -1
	for i, orig := range vis {
		if orig == m.statsCol {
			visIdx = i
			break
		}
	}
	if visIdx < 0 {
		m.setFlash("stats need a visible column", true)
		m.statsCol = -1
		m.stats = nil
		return
	}
	stats, err := m.table.ColumnStats(visIdx)
	if err != nil {
		m.setFlash(fmt.Sprintf("stats: %v", err), true)
		m.stats = nil
		return
	}
	m.stats = stats
}

func (m *Model) viewColumns() string {
	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteString("\n")

	listHeight := m.height - 3
	if listHeight < 1 {
		listHeight = 1
	}
	if m.colCursor < m.colScroll {
		m.colScroll = m.colCursor
	}
	if m.colCursor >= m.colScroll+listHeight {
		m.colScroll = m.colCursor - listHeight + 1
	}

	visible := m.visibleSet()
	var list strings.Builder
	end := m.colScroll + listHeight
	if end > len(m.allCols) {
		end = len(m.allCols)
	}
	for i := m.colScroll; i < end; i++ {
		col := m.allCols[i]
		box := "[ ]"
		if visible[i] {
			box = "[x]"
		}
		line := fmt.Sprintf(" %s %-20s %-9s", box, runewidth.Truncate(col.Name, 20, "…"), col.Type)
		if text, ok := m.colFilters[i]; ok {
			line += " " + m.styles.Status.Render(fmt.Sprintf("~ %q", text))
		}
		if i == m.colCursor {
			line = m.styles.Cursor.Render(line)
		}
		list.WriteString(line)
		list.WriteString("\n")
	}

	content := strings.TrimRight(list.String(), "\n")
	if m.statsCol >= 0 && m.stats != nil {
		content = lipgloss.JoinHorizontal(lipgloss.Top, content, m.statsPane(listHeight-1))
	}
	b.WriteString(content)
	b.WriteString("\n")
	for i := lipgloss.Height(content); i < listHeight; i++ {
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.bottomLine())
	return b.String()
}

// statsPane renders the value frequency table for the selected column,
// capped to what fits next to the column list.
func (m *Model) statsPane(maxRows int) string {
	if maxRows > statsRowCap {
		maxRows = statsRowCap
	}
	if maxRows < 1 {
		maxRows = 1
	}

	var b strings.Builder
	name := m.allCols[m.statsCol].Name
	b.WriteString(m.styles.Header.Render(fmt.Sprintf("  %-24s %8s %7s ", name, "count", "pct")))

	rows := m.stats
	if len(rows) > maxRows {
		rows = rows[:maxRows-1]
	}
	for _, vc := range rows {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("  %-24s %8d %6.1f%% ",
			runewidth.Truncate(vc.Value, 24, "…"), vc.Count, vc.Percent))
	}
	if hidden := len(m.stats) - len(rows); hidden > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.Dim.Render(fmt.Sprintf("  … %d more values", hidden)))
	}
	return b.String()
}

// openLog fills the log pane from the logger's in-memory tail and
// switches to it.
func (m *Model) openLog() {
	m.pane = paneLog
	m.logView.Width = m.width
	m.logView.Height = m.dataHeight() + 2
	m.refreshLog()
	m.logView.GotoBottom()
}

func (m *Model) refreshLog() {
	lines := m.logger.Tail(500)
	if len(lines) == 0 {
		m.logView.SetContent("(log is empty)")
		return
	}
	m.logView.SetContent(strings.Join(lines, "\n"))
}

func (m *Model) viewLog() string {
	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteString("\n")
	b.WriteString(m.logView.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.bottomLine())
	return b.String()
}
