package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	// General validation
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidFormat   Code = "INVALID_FORMAT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	// Configuration
	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	// External service errors
	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	// System errors
	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Routing pipeline error codes
const (
	// Quote fetching
	CodeQuoteFetchFailed Code = "QUOTE_FETCH_FAILED"
	CodeNoQuoteAvailable Code = "NO_QUOTE_AVAILABLE"
	CodeInvalidQuote     Code = "INVALID_QUOTE"
	CodeNoRoutesFound    Code = "NO_ROUTES_FOUND"

	// Chain / RPC
	CodeRPCConnectionFailed Code = "RPC_CONNECTION_FAILED"
	CodeContractCallFailed  Code = "CONTRACT_CALL_FAILED"
	CodeUnsupportedChain    Code = "UNSUPPORTED_CHAIN"

	// Policy
	CodePolicyViolation     Code = "POLICY_VIOLATION"
	CodePolicyConfigMissing Code = "POLICY_CONFIG_MISSING"

	// Permits
	CodeUnsupportedPermitType Code = "UNSUPPORTED_PERMIT_TYPE"
	CodePermitBuildFailed     Code = "PERMIT_BUILD_FAILED"
	CodeInvalidPermitData     Code = "INVALID_PERMIT_DATA"
	CodeInvalidTTL            Code = "INVALID_TTL"

	// Simulation
	CodeSimulationFailed  Code = "SIMULATION_FAILED"
	CodeGuardCheckFailed  Code = "GUARD_CHECK_FAILED"
	CodeTargetNotDeployed Code = "TARGET_NOT_DEPLOYED"
	CodeCalldataEncoding  Code = "CALLDATA_ENCODING_FAILED"
	CodeSimulatorAPIError Code = "SIMULATOR_API_ERROR"

	// Oracles
	CodePriceOracleFailed Code = "PRICE_ORACLE_FAILED"
	CodeGasOracleFailed   Code = "GAS_ORACLE_FAILED"

	// Stats store
	CodeStatsStoreFailed Code = "STATS_STORE_FAILED"

	// Circuit breaker errors
	CodeCircuitOpen     Code = "CIRCUIT_OPEN"
	CodeCircuitHalfOpen Code = "CIRCUIT_HALF_OPEN"
)
