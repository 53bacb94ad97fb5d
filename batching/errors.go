package batching

import "errors"

// Failure taxonomy for batch operations. Callers classify with errors.Is; the
// wrapped message carries the human-readable reason.
var (
	// ErrInvalidInput covers malformed parameters, unknown statuses and
	// unresolvable references (collection ids, processor usernames).
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict marks a collection id already claimed by another batch or a
	// duplicate unique key; the operation can be retried after inspection.
	ErrConflict = errors.New("conflict")

	// ErrInvalidState marks a lifecycle transition the state machine forbids.
	ErrInvalidState = errors.New("invalid state")

	// ErrNotFound marks a missing batch or user.
	ErrNotFound = errors.New("not found")
)
