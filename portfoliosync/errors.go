package portfoliosync

import "errors"

// Structural ingestion failures abort the run immediately. Data-level
// problems go to the quality report instead and never abort.
var (
	ErrNoSheet            = errors.New("workbook has no sheets")
	ErrNoHeaderRow        = errors.New("sheet has no header row")
	ErrInvalidHeaderRow   = errors.New("header row has blank or auto-generated column names")
	ErrNoDataRows         = errors.New("sheet has no data rows")
	ErrTooManyRedirects   = errors.New("remote source redirected more than once")
	ErrUnsupportedSource  = errors.New("source must be a local path or http(s) url")
	ErrSyncAlreadyRunning = errors.New("a sync is already in progress for this organization")
)
