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

	"github.com/mattn/go-runewidth"

	"github.com/tablescope/tablescope/datatable"
)

// visibleColRange returns the half-open range of visible column indices
// that fit on screen starting at scrollX. At least one column is always
// included, however narrow the terminal.
func (m *Model) visibleColRange() (int, int) {
	total := len(m.widths)
	if total == 0 {
		return 0, 0
	}
	start := m.scrollX
	if start >= total {
		start = total - 1
	}
	if start < 0 {
		start = 0
	}
	avail := m.width - 1
	used := 0
	end := start
	for end < total {
		w := m.widths[end] + 3
		if used+w > avail && end > start {
			break
		}
		used += w
		end++
	}
	return start, end
}

// padCell truncates or pads text to exactly width terminal cells.
// Numeric cells are right-aligned.
func padCell(s string, width int, rightAlign bool) string {
	if runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	if rightAlign {
		return runewidth.FillLeft(s, width)
	}
	return runewidth.FillRight(s, width)
}

func matchSet(positions []int) map[int]bool {
	set := make(map[int]bool, len(positions))
	for _, p := range positions {
		set[p] = true
	}
	return set
}

// sortArrows returns a direction marker per on-screen column, empty for
// unsorted columns.
func (m *Model) sortArrows(visStart, n int) []string {
	out := make([]string, n)
	key := m.table.GetSortKey()
	if !key.IsSorted() {
		return out
	}
	vis := m.table.GetVisibleColumnIndices()
	for i := 0; i < n; i++ {
		if visStart+i >= len(vis) {
			break
		}
		orig := vis[visStart+i]
		for _, sc := range key {
			if sc.Column != orig || sc.Direction == datatable.SortNone {
				continue
			}
			if sc.Direction == datatable.SortAscending {
				out[i] = " ↑"
			} else {
				out[i] = " ↓"
			}
			break
		}
	}
	return out
}

func (m *Model) viewGrid() string {
	var b strings.Builder
	b.WriteString(m.titleLine())
	b.WriteString("\n")

	visStart, visEnd := m.visibleColRange()
	n := visEnd - visStart

	names := m.table.RenderHeader(visStart, n)
	arrows := m.sortArrows(visStart, n)
	for i, name := range names {
		w := m.widths[visStart+i]
		cell := fmt.Sprintf(" %s ", padCell(name+arrows[i], w, false))
		b.WriteString(m.styles.Header.Render(cell))
		if i < n-1 {
			b.WriteString(m.styles.Dim.Render("|"))
		}
	}
	b.WriteString("\n")

	var sep strings.Builder
	for i := 0; i < n; i++ {
		sep.WriteString(strings.Repeat("─", m.widths[visStart+i]+2))
		if i < n-1 {
			sep.WriteString("┼")
		}
	}
	b.WriteString(m.styles.Dim.Render(sep.String()))
	b.WriteString("\n")

	dh := m.dataHeight()
	window := m.table.Render(m.scrollY, dh, visStart, n)
	matches := matchSet(m.table.MatchPositions())
	current, hasCurrent := m.table.CurrentMatch()
	currentStyle := m.styles.Match.Bold(true)

	numeric := make([]bool, n)
	for i := 0; i < n; i++ {
		t, err := m.table.VisibleColumnType(visStart + i)
		numeric[i] = err == nil && (t == datatable.TypeInt || t == datatable.TypeFloat)
	}

	for r, cells := range window {
		viewRow := m.scrollY + r
		for c, text := range cells {
			w := m.widths[visStart+c]
			cell := fmt.Sprintf(" %s ", padCell(text, w, numeric[c]))
			switch {
			case viewRow == m.cy && visStart+c == m.cx:
				b.WriteString(m.styles.Cursor.Render(cell))
			case hasCurrent && viewRow == current:
				b.WriteString(currentStyle.Render(cell))
			case matches[viewRow]:
				b.WriteString(m.styles.Match.Render(cell))
			default:
				b.WriteString(cell)
			}
			if c < len(cells)-1 {
				b.WriteString(m.styles.Dim.Render("│"))
			}
		}
		b.WriteString("\n")
	}
	if len(window) == 0 {
		b.WriteString(m.styles.Dim.Render(" (no rows)"))
		b.WriteString("\n")
	}
	for i := len(window); i < dh; i++ {
		if i == 0 {
			continue
		}
		b.WriteString("\n")
	}

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(m.bottomLine())
	return b.String()
}
