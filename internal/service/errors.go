// Package service implements the billing engine's operations over the
// repositories: spreadsheet import, branch aggregation, duplicate
// reconciliation and invoice assembly.
package service

import "errors"

// Sentinel errors the HTTP layer maps to status codes. Row-level failures
// never surface through these; they travel inside batch results instead.
var (
	// ErrValidation marks missing or malformed caller input, rejected
	// before any write.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a reference to an absent invoice or department.
	ErrNotFound = errors.New("not found")
)
