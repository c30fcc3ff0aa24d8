package datatable

import "github.com/mattn/go-runewidth"

// widthSampleRows caps how many view rows are measured when fitting
// column widths; measuring the whole dataset would make every resize
// proportional to row count.
const widthSampleRows = 100

// FitColumnWidths measures the header and a sample of the current view's
// rows and records a display width per visible column, clamped to
// [minWidth, maxWidth]. Widths are measured in terminal cells, so wide
// runes count as two. It returns the widths of the visible columns in
// order; they are also retrievable through Columns.
func (m *TableModel) FitColumnWidths(minWidth, maxWidth int) []int {
	if minWidth < 1 {
		minWidth = 1
	}
	if maxWidth < minWidth {
		maxWidth = minWidth
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	sample := len(m.view)
	if sample > widthSampleRows {
		sample = widthSampleRows
	}

	out := make([]int, len(m.visCols))
	for i, orig := range m.visCols {
		w := runewidth.StringWidth(m.store.cols[orig].Name)
		for r := 0; r < sample; r++ {
			cell, err := m.store.CellByID(m.view[r], orig)
			if err != nil {
				continue
			}
			if cw := runewidth.StringWidth(cell.Formatted); cw > w {
				w = cw
			}
		}
		if w < minWidth {
			w = minWidth
		}
		if w > maxWidth {
			w = maxWidth
		}
		m.widths[orig] = w
		out[i] = w
	}
	return out
}
