// browser/dom/errors.go
package dom

import "errors"

// Failure taxonomy. Step executors fold these into result fields; they are
// wrapped with context and compared with errors.Is.
var (
	// ErrResolution means no candidate selector matched.
	ErrResolution = errors.New("no element matched")
	// ErrTimeout means an element never reached the required state within budget.
	ErrTimeout = errors.New("element wait timed out")
	// ErrActivation means a click or key dispatch itself failed.
	ErrActivation = errors.New("element activation failed")
	// ErrValidationBlocked means the page raised a modal rejecting the current state.
	ErrValidationBlocked = errors.New("page validation blocked the action")
)
