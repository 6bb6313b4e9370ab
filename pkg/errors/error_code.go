package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInsufficientData     ErrorCode = 102
	ErrCodeMissingParameter     ErrorCode = 103
	ErrCodeInvalidVersion       ErrorCode = 104
	ErrCodeVersionMismatch      ErrorCode = 105

	// Input data errors (200-299)
	ErrCodeMalformedInput        ErrorCode = 200
	ErrCodeDataNotFound          ErrorCode = 201
	ErrCodeDataSourceUnavailable ErrorCode = 202
	ErrCodeQueryFailed           ErrorCode = 203

	// Portfolio errors (300-399)
	ErrCodeMissingPrice  ErrorCode = 300
	ErrCodeUnknownSymbol ErrorCode = 301

	// Backtest errors (400-499)
	ErrCodeBacktestStateNil   ErrorCode = 400
	ErrCodeBacktestInitFailed ErrorCode = 401
	ErrCodeBacktestRunFailed  ErrorCode = 402
	ErrCodeWriteFailed        ErrorCode = 403

	// Forward bias errors (500-599)
	ErrCodeStrategyFailed ErrorCode = 500
	ErrCodeForwardBias    ErrorCode = 501

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
