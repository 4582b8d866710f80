package joystick

import "codeberg.org/mutker/padstate/internal/errors"

const (
	ErrOpenFailed    = errors.ErrorCode("joystick_open_failed")
	ErrQueryFailed   = errors.ErrorCode("joystick_query_failed")
	ErrDisconnected  = errors.ErrorCode("joystick_disconnected")
	ErrUnsupportedOS = errors.ErrorCode("joystick_unsupported_os")
	ErrAlreadyClosed = errors.ErrorCode("joystick_already_closed")
)
