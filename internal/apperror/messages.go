package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General validation
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidFormat:   "Invalid data format",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	// Configuration
	CodeConfigurationError: "Configuration error",

	// External service errors
	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	// System errors
	CodeInternalError: "Internal server error",
	CodeUnknownError:  "An unknown error occurred",

	// Quote fetching
	CodeQuoteFetchFailed: "Failed to fetch quote from router",
	CodeNoQuoteAvailable: "No quote available from this router",
	CodeInvalidQuote:     "Invalid quote data",
	CodeNoRoutesFound:    "No viable routes found",

	// Chain / RPC
	CodeRPCConnectionFailed: "Failed to connect to chain RPC",
	CodeContractCallFailed:  "Smart contract call failed",
	CodeUnsupportedChain:    "Chain is not supported",

	// Policy
	CodePolicyViolation:     "Quote rejected by policy",
	CodePolicyConfigMissing: "No policy configuration for chain",

	// Permits
	CodeUnsupportedPermitType: "Unsupported permit type",
	CodePermitBuildFailed:     "Failed to build permit typed data",
	CodeInvalidPermitData:     "Invalid permit data",
	CodeInvalidTTL:            "TTL out of allowed range",

	// Simulation
	CodeSimulationFailed:  "Transaction simulation failed",
	CodeGuardCheckFailed:  "Pre-execution guard check failed",
	CodeTargetNotDeployed: "Execution target not deployed on this chain",
	CodeCalldataEncoding:  "Failed to encode execution calldata",
	CodeSimulatorAPIError: "Simulator API error",

	// Oracles
	CodePriceOracleFailed: "Price oracle lookup failed",
	CodeGasOracleFailed:   "Gas oracle lookup failed",

	// Stats store
	CodeStatsStoreFailed: "Stats store operation failed",

	// Circuit breaker errors
	CodeCircuitOpen:     "Circuit breaker is open",
	CodeCircuitHalfOpen: "Circuit breaker is half-open",
}
