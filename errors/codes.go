package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Per-record errors (non-fatal)
const (
	// ErrCodeLookupFailed indicates the remote lookup returned an error or a non-2xx status.
	ErrCodeLookupFailed ErrorCode = "LOOKUP_FAILED"
	// ErrCodeTimeout indicates the remote lookup exceeded its deadline.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeParseFailed indicates a response payload could not be parsed.
	ErrCodeParseFailed ErrorCode = "PARSE_FAILED"
)

// Stage and run errors
const (
	// ErrCodeSourceRead indicates the record source failed; fatal to the extractor only.
	ErrCodeSourceRead ErrorCode = "SOURCE_READ_ERROR"
	// ErrCodeSinkWrite indicates the finished document could not be persisted; fatal to the run.
	ErrCodeSinkWrite ErrorCode = "SINK_WRITE_ERROR"
	// ErrCodeInvalidConfig indicates a configuration value is unusable.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var fatalCodes = map[ErrorCode]bool{
	ErrCodeSinkWrite:     true,
	ErrCodeInvalidConfig: true,
	ErrCodeInternal:      true,
}

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTimeout:      true,
	ErrCodeLookupFailed: true,
}

// IsFatalCode reports whether an error with this code ends the whole run.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}

// IsRetryableCode reports whether the operation could succeed if repeated.
// The pipeline never retries; the flag is informational.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
