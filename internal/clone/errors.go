package clone

import "errors"

// Sentinel errors shared between the API layer and the stores.
var (
	// ErrNotFound signals an unknown or expired job id.
	ErrNotFound = errors.New("job not found")
	// ErrNotReady signals a raw-result fetch before the job completed.
	ErrNotReady = errors.New("result not ready")
	// ErrInvalidURL rejects enqueue input before a job is created.
	ErrInvalidURL = errors.New("invalid url")
)

// Failure detail prefixes recorded on terminal error jobs. Clients see
// these as human-readable error_detail strings, never stack traces.
const (
	DetailScrapeFailed    = "scrape failed"
	DetailSynthesisFailed = "synthesis failed"
	DetailInternalError   = "internal error"
)
