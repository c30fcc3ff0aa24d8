package datatable

import (
	"fmt"
	"sort"
)

// NoValueLabel groups null and empty cells in column statistics.
const NoValueLabel = "(no value)"

// ValueCount is one row of a column's value frequency table.
type ValueCount struct {
	// Value is the formatted cell text, or NoValueLabel for null/empty.
	Value string
	// Count is how many view rows hold this value.
	Count int
	// Percent is Count as a percentage of the view's rows.
	Percent float64
}

// ColumnStats tabulates the distinct values of a visible column across
// the current view, most frequent first, ties broken by value. Null and
// empty cells are grouped under NoValueLabel. An empty view yields an
// empty table.
func (m *TableModel) ColumnStats(visCol int) ([]ValueCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orig, err := m.origColLocked(visCol)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, id := range m.view {
		cell, err := m.store.CellByID(id, orig)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", id, err)
		}
		text := cell.Formatted
		if cell.IsNull || text == "" {
			text = NoValueLabel
		}
		counts[text]++
	}

	out := make([]ValueCount, 0, len(counts))
	total := len(m.view)
	for v, n := range counts {
		pct := 0.0
		if total > 0 {
			pct = float64(n) * 100 / float64(total)
		}
		out = append(out, ValueCount{Value: v, Count: n, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out, nil
}
