package recorder

import "codeberg.org/mutker/padstate/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("recorder_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("recorder_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("recorder_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("recorder_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("recorder_transaction_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitRecorder
	ErrStorageClose = errors.ErrCloseRecorder

	// Recording Errors
	ErrRecordFailed  = errors.ErrRecordState
	ErrInvalidSample = errors.ErrorCode("recorder_invalid_sample")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
