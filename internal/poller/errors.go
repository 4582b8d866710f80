package poller

import "codeberg.org/mutker/padstate/internal/errors"

const (
	// Configuration Errors
	ErrInvalidRate     = errors.ErrorCode("poller_invalid_rate")
	ErrInvalidDeadzone = errors.ErrorCode("poller_invalid_deadzone")
	ErrNoSource        = errors.ErrorCode("poller_no_source")

	// Tick Errors
	ErrSourceRead = errors.ErrorCode("poller_source_read_failed")
	ErrSample     = errors.ErrorCode("poller_sample_failed")

	// Observer Errors
	ErrObserverFault = errors.ErrorCode("poller_observer_fault")

	// Lifecycle Errors
	ErrClosed = errors.ErrorCode("poller_closed")
)
