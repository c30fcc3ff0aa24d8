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

// applyRequest is one queued view computation.
type applyRequest struct {
	gen    uint64
	filter Filter
	key    SortKey
	notify func(Summary, error)
}

// ApplyAsync queues a view computation on the model's single background
// worker and returns immediately. notify is called exactly once: with a
// nil error when the result was committed, or with ErrSuperseded when a
// newer request displaced this one before it could commit. The current
// view stays fully readable while the worker runs.
//
// The queue holds one request. Issuing a new request while one is queued
// replaces it; issuing one while the worker is computing lets that
// computation finish and then discards its result.
func (m *TableModel) ApplyAsync(state ViewState, notify func(Summary, error)) {
	key, err := normalizeKey(state.Sort, m.store.ColumnCount())
	if err != nil {
		if notify != nil {
			notify(m.Summary(), err)
		}
		return
	}

	if m.closed.Load() {
		if notify != nil {
			notify(m.Summary(), ErrSuperseded)
		}
		return
	}

	gen := m.pending.Add(1)
	req := applyRequest{gen: gen, filter: state.Filter, key: key, notify: notify}

	for {
		select {
		case m.reqCh <- req:
			return
		case <-m.quit:
			if notify != nil {
				notify(m.Summary(), ErrSuperseded)
			}
			return
		default:
		}
		// Queue full: whatever is queued is older than req, drop it.
		select {
		case old := <-m.reqCh:
			if old.notify != nil {
				old.notify(m.Summary(), ErrSuperseded)
			}
		default:
		}
	}
}

// applyWorker serializes view computations. One runs at a time; requests
// that went stale while queued are skipped without computing.
func (m *TableModel) applyWorker() {
	for {
		select {
		case <-m.quit:
			// Flush anything queued so its notify still fires.
			select {
			case req := <-m.reqCh:
				if req.notify != nil {
					req.notify(m.Summary(), ErrSuperseded)
				}
			default:
			}
			return
		case req := <-m.reqCh:
			if req.gen != m.pending.Load() {
				if req.notify != nil {
					req.notify(m.Summary(), ErrSuperseded)
				}
				continue
			}
			res := buildView(m.store, req.filter, req.key)
			sum, err := m.commit(req.gen, req.filter, req.key, res)
			if req.notify != nil {
				req.notify(sum, err)
			}
		}
	}
}
