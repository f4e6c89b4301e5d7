// Code constants grouped by subsystem. Codes are part of the public
// contract: logs, metrics labels, and callers branch on them.
package errors

// Model orchestration errors (MODEL_xxx)
const (
	// CodeConfigurationInvalid indicates a model configuration failed validation
	CodeConfigurationInvalid = "MODEL_001"

	// CodeModelNotFound indicates an unknown model id
	CodeModelNotFound = "MODEL_002"

	// CodeRateLimited indicates a per-(model,user) rate budget was exhausted
	CodeRateLimited = "MODEL_003"

	// CodeNoModelAvailable indicates selection exhausted every candidate
	CodeNoModelAvailable = "MODEL_004"
)

// Provider collaborator errors (PROVIDER_xxx)
const (
	// CodeProviderFailure indicates a backend generate call failed
	CodeProviderFailure = "PROVIDER_001"

	// CodeProviderUnsupported indicates no backend implements the requested provider
	CodeProviderUnsupported = "PROVIDER_002"
)

// Generation pipeline errors (GEN_xxx)
const (
	// CodeCacheFailure indicates a shared cache tier operation failed
	CodeCacheFailure = "GEN_001"

	// CodeRequestInvalid indicates a generation request failed validation
	CodeRequestInvalid = "GEN_002"
)

// System errors (SYS_xxx)
const (
	// CodeInternal indicates an unexpected internal error
	CodeInternal = "SYS_001"

	// CodeInfrastructure indicates an external dependency error
	CodeInfrastructure = "SYS_002"

	// CodeConfigLoad indicates the application configuration could not be loaded
	CodeConfigLoad = "SYS_003"
)
