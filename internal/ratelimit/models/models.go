package models

import "time"

// Class splits endpoints into separately budgeted groups.
type Class string

const (
	// ClassRead covers GET and HEAD requests.
	ClassRead Class = "read"
	// ClassWrite covers every command.
	ClassWrite Class = "write"
)

// Result is the outcome of one limiter check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	// RetryAfter is whole seconds until the oldest counted request leaves the
	// window. Zero when allowed.
	RetryAfter int
}

// ExceededResponse is the 429 body. The wait is in the Retry-After header.
type ExceededResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}
