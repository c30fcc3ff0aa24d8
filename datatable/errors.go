package datatable

import "errors"

// Common errors returned by the datatable package.
var (
	// ErrInvalidColumn is returned when a column index is out of range.
	ErrInvalidColumn = errors.New("invalid column index")

	// ErrInvalidRow is returned when a row index is out of range.
	ErrInvalidRow = errors.New("invalid row index")

	// ErrInvalidFilter is returned when a filter expression is invalid.
	ErrInvalidFilter = errors.New("invalid filter expression")

	// ErrInvalidPattern is returned when a search pattern does not compile.
	ErrInvalidPattern = errors.New("invalid search pattern")

	// ErrTypeMismatch is returned when a type comparison is invalid.
	ErrTypeMismatch = errors.New("type mismatch in comparison")

	// ErrNoDataSource is returned when a required data source is nil.
	ErrNoDataSource = errors.New("data source is nil")

	// ErrEmptyData is returned when data is empty where it shouldn't be.
	ErrEmptyData = errors.New("data is empty")

	// ErrColumnNotFound is returned when a column name is not found.
	ErrColumnNotFound = errors.New("column not found")

	// ErrInvalidSortColumn is returned when trying to sort by an invalid column.
	ErrInvalidSortColumn = errors.New("invalid sort column")

	// ErrSchemaMismatch is returned when a row's shape or declared types do
	// not agree with the column model. It is fatal to the load that caused it.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrUnknownRow is returned when a row identity does not exist in the store.
	ErrUnknownRow = errors.New("unknown row id")

	// ErrNoMatches is returned when a search finds nothing. It is a signal,
	// not a failure; the previous view and cursor remain valid.
	ErrNoMatches = errors.New("no matches")

	// ErrRowHidden is returned when a row exists but is excluded from the
	// current view by the active filter.
	ErrRowHidden = errors.New("row not visible in current view")

	// ErrSuperseded is returned for a view computation whose result was
	// discarded because a newer computation was requested before it finished.
	ErrSuperseded = errors.New("view computation superseded")

	// ErrExportFailed is returned when export operation fails.
	ErrExportFailed = errors.New("export failed")
)
