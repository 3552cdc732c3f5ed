package apperror

// Code represents a unique error code for the application.
type Code string

// General error codes, unchanged in meaning across every bounded context.
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// MEV pipeline error codes — one per failure category named in the spec's
// error-handling table (Category, below, maps each of these back to it).
const (
	// Config
	CodeMissingEnvVar     Code = "MISSING_ENV_VAR"
	CodeInvalidRunConfig  Code = "INVALID_RUN_CONFIG"
	CodeInvalidBlockRange Code = "INVALID_BLOCK_RANGE"

	// Data missing (non-fatal, per-query)
	CodeNoTradesInWindow  Code = "NO_TRADES_IN_WINDOW"
	CodeNoDexQuote        Code = "NO_DEX_QUOTE"
	CodeNoMetadata        Code = "NO_METADATA"
	CodeTokenNotFound     Code = "TOKEN_NOT_FOUND"
	CodeNoIntermediary    Code = "NO_INTERMEDIARY_PATH"

	// Price unavailable (non-fatal, per-price)
	CodePriceUnavailable   Code = "PRICE_UNAVAILABLE"
	CodeWindowExhausted    Code = "WINDOW_EXHAUSTED"
	CodeStablePairRequired Code = "STABLE_PAIR_REQUIRED"

	// Trace / collector errors (per-block, logged and skipped)
	CodeTraceFetchFailed  Code = "TRACE_FETCH_FAILED"
	CodeTraceDecodeFailed Code = "TRACE_DECODE_FAILED"
	CodeCollectorBusy     Code = "COLLECTOR_BUSY"

	// Store errors (persistence / KV)
	CodeStoreWriteFailed Code = "STORE_WRITE_FAILED"
	CodeStoreReadFailed  Code = "STORE_READ_FAILED"
	CodeStoreUnavailable Code = "STORE_UNAVAILABLE"

	// Shutdown sentinel
	CodeShutdown Code = "SHUTDOWN"
)
