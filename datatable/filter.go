package datatable

// Filter decides row membership in a view.
// Implementations must be safe for concurrent use: a filter may be
// evaluated from a background view computation while the presentation
// layer still holds a reference to it.
type Filter interface {
	// Evaluate returns true if the row should be included in the view.
	// row contains every cell of the candidate row in column order, and
	// columnNames the full set of column names. An error excludes the row
	// and is counted as a warning for the computation; it does not abort it.
	Evaluate(row []Value, columnNames []string) (bool, error)

	// Description returns a human-readable description of the filter,
	// suitable for a status line.
	Description() string
}
