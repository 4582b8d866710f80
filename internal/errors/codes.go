package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrNotImplemented  ErrorCode = "not_implemented"
	ErrUnavailable     ErrorCode = "service_unavailable"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrInvalidRate     ErrorCode = "invalid_rate"
	ErrInvalidDeadzone ErrorCode = "invalid_deadzone"
	ErrInvalidDevice   ErrorCode = "invalid_device"
	ErrInvalidLayout   ErrorCode = "invalid_layout"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Application errors
	ErrInitApp      ErrorCode = "init_app_failed"
	ErrOpenDevice   ErrorCode = "open_device_failed"
	ErrStartPoller  ErrorCode = "start_poller_failed"
	ErrWatchConfig  ErrorCode = "watch_config_failed"
	ErrWritePIDFile ErrorCode = "write_pid_file_failed"

	// Operation errors
	ErrOperationFailed ErrorCode = "operation_failed"
	ErrTimeout         ErrorCode = "operation_timeout"

	// Recorder errors
	ErrInitRecorder  ErrorCode = "init_recorder_failed"
	ErrRecordState   ErrorCode = "record_state_failed"
	ErrCloseRecorder ErrorCode = "close_recorder_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrNotImplemented:  "Operation not implemented",
	ErrUnavailable:     "Service unavailable",
	ErrAlreadyRunning:  "Another instance is already running",
	ErrInvalidConfig:   "Invalid configuration",
	ErrReadConfig:      "Failed to read config file",
	ErrBindFlags:       "Failed to bind flags",
	ErrInvalidRate:     "Invalid polling rate",
	ErrInvalidDeadzone: "Invalid deadzone threshold",
	ErrInvalidDevice:   "Invalid device path",
	ErrInvalidLayout:   "Unknown controller layout",
	ErrInvalidLogLevel: "Invalid log level",
	ErrInitFailed:      "Initialization failed",
	ErrShutdownFailed:  "Shutdown failed",
	ErrInitApp:         "Failed to initialize application",
	ErrOpenDevice:      "Failed to open input device",
	ErrStartPoller:     "Failed to start poller",
	ErrWatchConfig:     "Failed to watch configuration",
	ErrWritePIDFile:    "Failed to write PID file",
	ErrOperationFailed: "Operation failed",
	ErrTimeout:         "Operation timed out",
	ErrInitRecorder:    "Failed to initialize recorder",
	ErrRecordState:     "Failed to record device state",
	ErrCloseRecorder:   "Failed to close recorder",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
