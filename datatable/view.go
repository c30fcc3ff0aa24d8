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

import (
	"fmt"
	"sort"
)

// ViewState is the declarative input to a view computation: which rows to
// keep and in what order to present them. A zero ViewState yields every
// row in load order.
type ViewState struct {
	Sort   SortKey
	Filter Filter
}

// viewResult is the outcome of one view computation.
type viewResult struct {
	// rows holds the ids of the included rows in presentation order.
	rows []int
	// warnings counts row-local failures the computation recovered from:
	// filter errors (row excluded) and sort cells that could not be
	// coerced to the column type (sorted with the nulls).
	warnings int
}

// viewRow pairs a row id with its resolved sort cells so the comparator
// never parses. The extraction happens once per row before sorting.
type viewRow struct {
	id   int
	keys []sortVal
}

// normalizeKey drops inactive entries and validates column indices.
func normalizeKey(key SortKey, ncols int) (SortKey, error) {
	out := make(SortKey, 0, len(key))
	for _, sc := range key {
		if sc.Direction == SortNone {
			continue
		}
		if sc.Column < 0 || sc.Column >= ncols {
			return nil, fmt.Errorf("%w: %d", ErrInvalidSortColumn, sc.Column)
		}
		out = append(out, sc)
	}
	return out, nil
}

// buildView computes a full view over the store: a filter pass in load
// order followed by a stable multi-key sort. It reads only the immutable
// store and its inputs, so it is safe to run outside the model's lock.
// The sort key must already be normalized.
func buildView(store *Store, filter Filter, key SortKey) viewResult {
	var res viewResult

	if filter == nil {
		res.rows = store.AllIDs()
	} else {
		names := store.columnNames()
		res.rows = make([]int, 0, store.RowCount())
		for id := 0; id < store.RowCount(); id++ {
			row, err := store.RowByID(id)
			if err != nil {
				res.warnings++
				continue
			}
			keep, err := filter.Evaluate(row, names)
			if err != nil {
				res.warnings++
				continue
			}
			if keep {
				res.rows = append(res.rows, id)
			}
		}
	}

	if len(key) == 0 || len(res.rows) < 2 {
		return res
	}

	decorated := make([]viewRow, len(res.rows))
	for i, id := range res.rows {
		keys := make([]sortVal, len(key))
		for k, sc := range key {
			cell, err := store.CellByID(id, sc.Column)
			if err != nil {
				keys[k] = sortVal{kind: keyNull}
				res.warnings++
				continue
			}
			sv, failed := coerceSortVal(cell, store.cols[sc.Column].Type)
			if failed {
				res.warnings++
			}
			keys[k] = sv
		}
		decorated[i] = viewRow{id: id, keys: keys}
	}

	// SliceStable over ids that are already in load order keeps equal
	// rows in load order, which makes every recompute deterministic.
	sort.SliceStable(decorated, func(i, j int) bool {
		a, b := decorated[i], decorated[j]
		for k := range key {
			if c := compareKeyed(a.keys[k], b.keys[k], key[k]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	for i, vr := range decorated {
		res.rows[i] = vr.id
	}
	return res
}

// compareKeyed orders two resolved cells under one sort column. Null
// placement is absolute: SortDescending flips value order but nulls stay
// where the NullOrder puts them.
func compareKeyed(a, b sortVal, sc SortColumn) int {
	aNull := a.kind == keyNull
	bNull := b.kind == keyNull
	if aNull || bNull {
		if aNull && bNull {
			return 0
		}
		if sc.Nulls == NullsFirst {
			if aNull {
				return -1
			}
			return 1
		}
		if aNull {
			return 1
		}
		return -1
	}

	c := compareSortVals(a, b)
	if sc.Direction == SortDescending {
		c = -c
	}
	return c
}
