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

// Render returns the formatted cell text of a window of the current view:
// rowCount rows starting at rowOffset, colCount visible columns starting
// at colOffset. The window is clamped to what exists, so offsets past the
// end yield an empty result rather than an error, and a window straddling
// the end yields the remainder. Cost is proportional to the window, not
// the dataset.
func (m *TableModel) Render(rowOffset, rowCount, colOffset, colCount int) [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rlo, rhi := clampWindow(rowOffset, rowCount, len(m.view))
	clo, chi := clampWindow(colOffset, colCount, len(m.visCols))

	out := make([][]string, 0, rhi-rlo)
	for r := rlo; r < rhi; r++ {
		row, err := m.store.RowByID(m.view[r])
		if err != nil {
			// Ids in the view always resolve; keep the window shape anyway.
			out = append(out, make([]string, chi-clo))
			continue
		}
		cells := make([]string, 0, chi-clo)
		for c := clo; c < chi; c++ {
			cells = append(cells, row[m.visCols[c]].Formatted)
		}
		out = append(out, cells)
	}
	return out
}

// RenderHeader returns the names of a window of visible columns, clamped
// the same way Render clamps.
func (m *TableModel) RenderHeader(colOffset, colCount int) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clo, chi := clampWindow(colOffset, colCount, len(m.visCols))
	out := make([]string, 0, chi-clo)
	for c := clo; c < chi; c++ {
		out = append(out, m.store.cols[m.visCols[c]].Name)
	}
	return out
}

// clampWindow clips [off, off+count) to [0, total).
func clampWindow(off, count, total int) (lo, hi int) {
	if off < 0 {
		off = 0
	}
	if count < 0 {
		count = 0
	}
	if off > total {
		off = total
	}
	hi = off + count
	if hi > total {
		hi = total
	}
	return off, hi
}
