package gamepad

import "codeberg.org/mutker/padstate/internal/errors"

const (
	// Snapshot Errors
	ErrMalformedSnapshot = errors.ErrorCode("gamepad_malformed_snapshot")

	// Layout Errors
	ErrInvalidLayout  = errors.ErrorCode("gamepad_invalid_layout")
	ErrInvalidBinding = errors.ErrorCode("gamepad_invalid_binding")
)

// MissingControl describes the control a malformed snapshot lacks.
type MissingControl struct {
	Field  Field
	Source InputSource
	Index  int
	Length int
}

// BindingProblem describes why a binding was rejected.
type BindingProblem struct {
	Binding Binding
	Reason  string
}
