package domain

import "errors"

// Structured failures surfaced to the delivery layer. None of these are retried;
// each needs caller or user action.
var (
	// ErrQuoteNotFound means a referenced quote id does not exist at some step of
	// a lookup, including a dangling parent reference mid-chain.
	ErrQuoteNotFound = errors.New("quote not found")

	// ErrUnauthorized means the acting user does not own the resolved quote
	// family. Checked on every family-spanning query, not just the entry lookup.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRevisionLimit means the free-tier revision ceiling is reached for the
	// quote family.
	ErrRevisionLimit = errors.New("revision limit exceeded")

	// ErrCorruptFamily means the parent chain exceeded the sane depth bound,
	// which only happens with malformed data (a cycle or a runaway chain).
	ErrCorruptFamily = errors.New("corrupt quote family")

	// ErrWriteFailed wraps a persistence error from a message or quote insert.
	ErrWriteFailed = errors.New("write failed")
)
