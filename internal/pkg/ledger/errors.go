package ledger

import (
	"errors"
	"strings"
)

// Rejection kinds returned by the engine. All of them are recoverable
// caller-facing conditions, never process-fatal.
var (
	// ErrDuplicateApplication means the idempotency key already reached a
	// terminal Successful application; the caller must not retry.
	ErrDuplicateApplication = errors.New("payment with matching idempotency key already applied -- payment declined")

	// ErrOrderNotFound means the caller-supplied reference key matches no
	// order. Expected and recoverable, not a defect.
	ErrOrderNotFound = errors.New("order with given reference key not found -- payment declined")

	// ErrBalanceVerificationFailed means the projected balance after the
	// tentative commit diverged from the expected value. The application is
	// left Failed and may be retried under the same idempotency key.
	ErrBalanceVerificationFailed = errors.New("unexpected balance after applying payment -- payment declined")

	// ErrApplicationExists is the store-conflict signal: the unique index on
	// the idempotency key rejected a concurrent second insert. The engine
	// folds it back into duplicate/retry resolution and never surfaces it.
	ErrApplicationExists = errors.New("application for idempotency key already exists")
)

// ValidationError rejects malformed input before any write occurs.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Messages, "; ")
}

func newValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}
