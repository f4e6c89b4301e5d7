// Configuration and health validation for model registrations.
package orchestration

import (
	"context"
	"fmt"

	"github.com/pixelforge/pixelforge/pkg/types"
)

// HealthProber performs a liveness probe against the provider backend
// serving a model. Implementations live outside the orchestration core.
type HealthProber interface {
	// Probe returns whether the model's backend answered a liveness
	// check, with a human-readable message
	Probe(ctx context.Context, modelID string) (bool, string)
}

// Validator checks configurations statically and delegates liveness
// probes to the provider collaborator
type Validator struct {
	prober HealthProber
}

// NewValidator creates a validator backed by the given prober
func NewValidator(prober HealthProber) *Validator {
	return &Validator{prober: prober}
}

// ValidateConfiguration performs pure, synchronous checks on a
// configuration. It returns validity plus every problem found.
func (v *Validator) ValidateConfiguration(config *ModelConfiguration) (bool, []string) {
	var problems []string

	if config == nil {
		return false, []string{"configuration is nil"}
	}

	if config.ID == "" {
		problems = append(problems, "model id is required")
	}
	if !config.Provider.Valid() {
		problems = append(problems, fmt.Sprintf("unknown provider: %q", config.Provider))
	}
	if !config.Type.Valid() {
		problems = append(problems, fmt.Sprintf("unknown model type: %q", config.Type))
	}

	if config.Provider.RequiresAPIKey() && config.APIKey == "" {
		problems = append(problems, fmt.Sprintf("provider %s requires an api key", config.Provider))
	}

	if config.MaxTokens <= 0 {
		problems = append(problems, "max_tokens must be positive")
	}
	if config.Temperature < 0 || config.Temperature > 2 {
		problems = append(problems, "temperature must be within [0, 2]")
	}
	if config.TopP < 0 || config.TopP > 1 {
		problems = append(problems, "top_p must be within [0, 1]")
	}
	if config.Timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if config.RequestsPerMinute <= 0 {
		problems = append(problems, "requests_per_minute must be positive")
	}
	if config.RequestsPerHour <= 0 {
		problems = append(problems, "requests_per_hour must be positive")
	}
	if config.TokensPerMinute <= 0 {
		problems = append(problems, "tokens_per_minute must be positive")
	}

	if len(config.Capabilities) == 0 {
		problems = append(problems, "capabilities must not be empty")
	} else if config.Type.Valid() {
		compatible := make(map[types.Capability]struct{})
		for _, cap := range config.Type.CompatibleCapabilities() {
			compatible[cap] = struct{}{}
		}
		for _, cap := range config.Capabilities {
			if !cap.Valid() {
				problems = append(problems, fmt.Sprintf("unknown capability: %q", cap))
				continue
			}
			if _, ok := compatible[cap]; !ok {
				problems = append(problems, fmt.Sprintf("capability %s is not compatible with model type %s", cap, config.Type))
			}
		}
	}

	return len(problems) == 0, problems
}

// ValidateHealth delegates a liveness probe to the provider collaborator.
// It never panics; probe failures come back as (false, message).
func (v *Validator) ValidateHealth(ctx context.Context, config *ModelConfiguration) (healthy bool, message string) {
	defer func() {
		if r := recover(); r != nil {
			healthy = false
			message = fmt.Sprintf("health probe panicked: %v", r)
		}
	}()

	if config == nil || config.ID == "" {
		return false, "no model configuration"
	}
	if v.prober == nil {
		return false, "no health prober configured"
	}

	return v.prober.Probe(ctx, config.ID)
}
