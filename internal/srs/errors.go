package srs

import "errors"

// ErrInvalidState is returned in strict mode when a persisted ReviewState
// violates the scheduling invariants.
var ErrInvalidState = errors.New("srs: invalid review state")
