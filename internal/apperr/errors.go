// Package apperr defines sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// ErrAuditUnavailable marks an interaction that completed but could
	// not be durably recorded. This is the one failure surfaced to
	// callers as an error rather than an abstain outcome.
	ErrAuditUnavailable = errors.New("audit trail unavailable")
)
