package errors

// ErrorCode identifies a failure independently of its message. Codes are
// stable strings so they can be matched in logs and tests.
type ErrorCode string

// Error is a coded failure with an optional cause and structured data.
type Error interface {
	error
	Code() ErrorCode
	// Message is the human readable text without data or cause.
	Message() string
	WithMessage(msg string) Error
	WithData(data any) Error
	GetData() any
	Unwrap() error
}

// Factory creates coded errors. Packages keep one per call site or one at
// package level.
type Factory interface {
	New(code ErrorCode) Error
	Wrap(code ErrorCode, err error) Error
	WithMessage(code ErrorCode, msg string) Error
	WithData(code ErrorCode, data any) Error
}
