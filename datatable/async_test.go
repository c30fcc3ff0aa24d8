package datatable

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// gateFilter blocks its first Evaluate call until released, so tests can
// hold a view computation in flight deterministically.
type gateFilter struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateFilter() *gateFilter {
	return &gateFilter{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateFilter) Evaluate(row []Value, names []string) (bool, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return true, nil
}

func (g *gateFilter) Description() string { return "gate" }

// numbersSource is ten rows of one int column, values 0..9.
func numbersSource() *testSource {
	rows := make([][]Value, 10)
	for i := range rows {
		rows[i] = []Value{intVal(int64(i))}
	}
	return &testSource{
		cols: []Column{{Name: "n", Type: TypeInt}},
		rows: rows,
	}
}

func evenFilter() Filter {
	return funcFilter{
		desc: "even",
		fn: func(row []Value, names []string) (bool, error) {
			n, _ := row[0].Raw.(int64)
			return n%2 == 0, nil
		},
	}
}

func waitErr(t *testing.T, ch <-chan error, what string) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		return nil
	}
}

func TestApplyAsync_CommitsAndNotifies(t *testing.T) {
	m := mustModel(t, numbersSource())

	done := make(chan error, 1)
	var got Summary
	m.ApplyAsync(ViewState{Filter: evenFilter()}, func(sum Summary, err error) {
		got = sum
		done <- err
	})
	if err := waitErr(t, done, "notify"); err != nil {
		t.Fatalf("ApplyAsync: %v", err)
	}
	if got.Rows != 5 || got.TotalRows != 10 {
		t.Errorf("expected 5/10 rows, got %d/%d", got.Rows, got.TotalRows)
	}
	if got2 := m.GetVisibleRowIndices(); !equalInts(got2, []int{0, 2, 4, 6, 8}) {
		t.Errorf("expected even ids, got %v", got2)
	}
}

func TestApplyAsync_SupersedeInFlight(t *testing.T) {
	m := mustModel(t, numbersSource())
	gate := newGateFilter()

	done1 := make(chan error, 1)
	m.ApplyAsync(ViewState{Filter: gate}, func(_ Summary, err error) { done1 <- err })
	<-gate.started

	// The worker is mid-computation; the old view stays fully readable.
	if got := m.VisibleRowCount(); got != 10 {
		t.Errorf("expected old view readable during compute, got %d rows", got)
	}

	done2 := make(chan error, 1)
	m.ApplyAsync(ViewState{Filter: evenFilter()}, func(_ Summary, err error) { done2 <- err })

	close(gate.release)

	if err := waitErr(t, done1, "first notify"); !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded for first request, got %v", err)
	}
	if err := waitErr(t, done2, "second notify"); err != nil {
		t.Errorf("expected second request to commit, got %v", err)
	}
	// Only the second request's result is visible.
	if got := m.GetVisibleRowIndices(); !equalInts(got, []int{0, 2, 4, 6, 8}) {
		t.Errorf("expected even ids from second request, got %v", got)
	}
}

func TestApplyAsync_ReplacesQueuedRequest(t *testing.T) {
	m := mustModel(t, numbersSource())
	gate := newGateFilter()

	done1 := make(chan error, 1)
	done2 := make(chan error, 1)
	done3 := make(chan error, 1)

	m.ApplyAsync(ViewState{Filter: gate}, func(_ Summary, err error) { done1 <- err })
	<-gate.started

	// While the worker is busy, queue one request and displace it with
	// another. The displaced one reports superseded before any compute.
	m.ApplyAsync(ViewState{Filter: evenFilter()}, func(_ Summary, err error) { done2 <- err })
	m.ApplyAsync(ViewState{}, func(_ Summary, err error) { done3 <- err })

	if err := waitErr(t, done2, "displaced notify"); !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded for displaced request, got %v", err)
	}

	close(gate.release)

	if err := waitErr(t, done1, "first notify"); !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded for in-flight request, got %v", err)
	}
	if err := waitErr(t, done3, "last notify"); err != nil {
		t.Errorf("expected last request to commit, got %v", err)
	}
	if got := m.VisibleRowCount(); got != 10 {
		t.Errorf("expected unfiltered view from last request, got %d rows", got)
	}
}

func TestApplyAsync_InvalidSortReportsImmediately(t *testing.T) {
	m := mustModel(t, numbersSource())

	done := make(chan error, 1)
	m.ApplyAsync(ViewState{Sort: SortKey{{Column: 42, Direction: SortAscending}}},
		func(_ Summary, err error) { done <- err })
	if err := waitErr(t, done, "notify"); !errors.Is(err, ErrInvalidSortColumn) {
		t.Errorf("expected ErrInvalidSortColumn, got %v", err)
	}
}

func TestApplyAsync_AfterClose(t *testing.T) {
	m, err := NewTableModel(numbersSource())
	if err != nil {
		t.Fatalf("NewTableModel: %v", err)
	}
	m.Close()
	m.Close() // idempotent

	done := make(chan error, 1)
	m.ApplyAsync(ViewState{Filter: evenFilter()}, func(_ Summary, err error) { done <- err })
	if err := waitErr(t, done, "notify"); !errors.Is(err, ErrSuperseded) {
		t.Errorf("expected ErrSuperseded after Close, got %v", err)
	}
}

func TestApply_SyncPathStillChecksGenerations(t *testing.T) {
	m := mustModel(t, numbersSource())

	// A sync Apply after async traffic must still commit normally.
	done := make(chan error, 1)
	m.ApplyAsync(ViewState{Filter: evenFilter()}, func(_ Summary, err error) { done <- err })
	waitErr(t, done, "async notify")

	sum, err := m.Apply(ViewState{})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if sum.Rows != 10 {
		t.Errorf("expected full view restored, got %d rows", sum.Rows)
	}
}
