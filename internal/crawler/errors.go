package crawler

import "errors"

// Failure classes. Fetch-level classes are absorbed by the planner; only
// ErrPersistence propagates out of a run.
var (
	ErrTransientNetwork = errors.New("transient network failure")
	ErrDetection        = errors.New("detection redirect")
	ErrHTTPStatus       = errors.New("unexpected http status")
	ErrPersistence      = errors.New("persistence failed")
	ErrNoData           = errors.New("no data obtained")
)
