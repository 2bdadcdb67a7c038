package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Availability errors (retryable)
const (
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	ErrCodeSlowConsumer       ErrorCode = "SLOW_CONSUMER"
	ErrCodeExternalService    ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrCodeRateLimited        ErrorCode = "RATE_LIMITED"
)

// Resource errors
const (
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	// ErrCodeConnectionClosed indicates a write to a stream whose transport is gone.
	ErrCodeConnectionClosed ErrorCode = "CONNECTION_CLOSED"
)

// Client errors
const (
	ErrCodeClient       ErrorCode = "CLIENT_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeInvalidIdentity indicates a stream was opened without a user id.
	ErrCodeInvalidIdentity ErrorCode = "INVALID_IDENTITY"
)

// Internal errors
const (
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrCodeDBConnection  ErrorCode = "DB_CONNECTION_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeServiceUnavailable: true,
	ErrCodeSlowConsumer:       true,
	ErrCodeExternalService:    true,
	ErrCodeRateLimited:        true,
	ErrCodeDatabaseError:      true,
	ErrCodeDBConnection:       true,
	ErrCodeInternal:           false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
