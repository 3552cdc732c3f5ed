package apperror

// messages maps error codes to human-readable default messages.
var messages = map[Code]string{
	CodeRequiredField:   "required field is missing",
	CodeInvalidInput:    "invalid input provided",
	CodeInvalidFormat:   "invalid data format",
	CodeInvalidState:    "invalid state for this operation",
	CodeNotFound:        "resource not found",
	CodeValidationError: "validation error",

	CodeConfigurationError: "configuration error",

	CodeExternalServiceError: "external service error",
	CodeServiceTimeout:       "service request timeout",
	CodeServiceUnavailable:   "service temporarily unavailable",
	CodeRateLimitExceeded:    "rate limit exceeded",

	CodeInternalError: "internal error",
	CodeUnknownError:  "an unknown error occurred",

	CodeMissingEnvVar:     "required environment variable is not set",
	CodeInvalidRunConfig:  "run configuration failed validation",
	CodeInvalidBlockRange: "start block must be less than or equal to end block",

	CodeNoTradesInWindow: "no trades found in the requested time window",
	CodeNoDexQuote:       "no dex quote available for pair at block",
	CodeNoMetadata:       "no metadata available for block",
	CodeTokenNotFound:    "token decimals not found",
	CodeNoIntermediary:   "no intermediary path found between pair and quote asset",

	CodePriceUnavailable:   "no price available after window expansion",
	CodeWindowExhausted:    "time window expansion exceeded its configured bound",
	CodeStablePairRequired: "via-intermediary pricing requires a stable quote pair",

	CodeTraceFetchFailed:  "failed to fetch block trace",
	CodeTraceDecodeFailed: "failed to decode block trace into actions",
	CodeCollectorBusy:     "state collector is already collecting a block",

	CodeStoreWriteFailed: "failed to persist bundle",
	CodeStoreReadFailed:  "failed to read from store",
	CodeStoreUnavailable: "store is unavailable",

	CodeShutdown: "graceful shutdown requested",
}
