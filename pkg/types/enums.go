// Package types provides shared enumeration and data types for the
// orchestration core. All enums implement String(), Valid(), and a
// FromString constructor for type-safe conversion at config boundaries.
package types

import (
	"fmt"
	"strings"
)

// ============================================================================
// Provider Enumeration
// ============================================================================

// Provider identifies the backend service hosting a model
type Provider string

const (
	// ProviderOpenAI represents OpenAI-hosted models
	ProviderOpenAI Provider = "openai"

	// ProviderAnthropic represents Anthropic-hosted models
	ProviderAnthropic Provider = "anthropic"

	// ProviderGoogle represents Google-hosted models
	ProviderGoogle Provider = "google"

	// ProviderAzure represents Azure OpenAI deployments
	ProviderAzure Provider = "azure"

	// ProviderHuggingFace represents HuggingFace inference endpoints
	ProviderHuggingFace Provider = "huggingface"

	// ProviderLocal represents locally hosted models
	ProviderLocal Provider = "local"
)

// String returns the string representation
func (p Provider) String() string {
	return string(p)
}

// Valid checks if the provider is a known value
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderAzure, ProviderHuggingFace, ProviderLocal:
		return true
	default:
		return false
	}
}

// RequiresAPIKey reports whether the provider needs an API key to operate
func (p Provider) RequiresAPIKey() bool {
	return p == ProviderOpenAI || p == ProviderAnthropic
}

// FromStringProvider converts a string to a Provider
func FromStringProvider(s string) (Provider, error) {
	p := Provider(strings.ToLower(s))
	if !p.Valid() {
		return "", fmt.Errorf("invalid provider: %s", s)
	}
	return p, nil
}

// ============================================================================
// Model Type Enumeration
// ============================================================================

// ModelType classifies what kind of generation a model performs
type ModelType string

const (
	// ModelTypeVisionToCode generates code from UI screenshots
	ModelTypeVisionToCode ModelType = "vision_to_code"

	// ModelTypeTextToCode generates code from text prompts
	ModelTypeTextToCode ModelType = "text_to_code"

	// ModelTypeCodeRefinement improves or optimizes existing code
	ModelTypeCodeRefinement ModelType = "code_refinement"

	// ModelTypeMultimodal handles mixed image/text generation
	ModelTypeMultimodal ModelType = "multimodal"
)

// String returns the string representation
func (mt ModelType) String() string {
	return string(mt)
}

// Valid checks if the model type is a known value
func (mt ModelType) Valid() bool {
	switch mt {
	case ModelTypeVisionToCode, ModelTypeTextToCode, ModelTypeCodeRefinement, ModelTypeMultimodal:
		return true
	default:
		return false
	}
}

// FromStringModelType converts a string to a ModelType
func FromStringModelType(s string) (ModelType, error) {
	mt := ModelType(strings.ToLower(s))
	if !mt.Valid() {
		return "", fmt.Errorf("invalid model type: %s", s)
	}
	return mt, nil
}

// ============================================================================
// Capability Enumeration
// ============================================================================

// Capability is a labeled skill a model claims to have, used to filter
// candidates during selection
type Capability string

const (
	// CapabilityImageAnalysis analyzes screenshots and mockups
	CapabilityImageAnalysis Capability = "image_analysis"

	// CapabilityTextUnderstanding interprets natural-language prompts
	CapabilityTextUnderstanding Capability = "text_understanding"

	// CapabilityCodeGeneration produces source code
	CapabilityCodeGeneration Capability = "code_generation"

	// CapabilityMultiFramework targets more than one output framework
	CapabilityMultiFramework Capability = "multi_framework"

	// CapabilityResponsiveDesign produces responsive layouts
	CapabilityResponsiveDesign Capability = "responsive_design"

	// CapabilityAccessibility produces accessible markup
	CapabilityAccessibility Capability = "accessibility_features"

	// CapabilityCodeOptimization restructures existing code
	CapabilityCodeOptimization Capability = "code_optimization"
)

// String returns the string representation
func (c Capability) String() string {
	return string(c)
}

// Valid checks if the capability is a known value
func (c Capability) Valid() bool {
	switch c {
	case CapabilityImageAnalysis, CapabilityTextUnderstanding, CapabilityCodeGeneration,
		CapabilityMultiFramework, CapabilityResponsiveDesign, CapabilityAccessibility,
		CapabilityCodeOptimization:
		return true
	default:
		return false
	}
}

// FromStringCapability converts a string to a Capability
func FromStringCapability(s string) (Capability, error) {
	c := Capability(strings.ToLower(s))
	if !c.Valid() {
		return "", fmt.Errorf("invalid capability: %s", s)
	}
	return c, nil
}

// CompatibleCapabilities returns the fixed set of capabilities a model type
// may declare. A configuration declaring anything outside this set is invalid.
func (mt ModelType) CompatibleCapabilities() []Capability {
	switch mt {
	case ModelTypeVisionToCode:
		return []Capability{
			CapabilityImageAnalysis,
			CapabilityCodeGeneration,
			CapabilityMultiFramework,
			CapabilityResponsiveDesign,
			CapabilityAccessibility,
		}
	case ModelTypeTextToCode:
		return []Capability{
			CapabilityTextUnderstanding,
			CapabilityCodeGeneration,
			CapabilityMultiFramework,
			CapabilityResponsiveDesign,
			CapabilityAccessibility,
		}
	case ModelTypeCodeRefinement:
		return []Capability{
			CapabilityCodeGeneration,
			CapabilityCodeOptimization,
			CapabilityMultiFramework,
		}
	case ModelTypeMultimodal:
		return []Capability{
			CapabilityImageAnalysis,
			CapabilityTextUnderstanding,
			CapabilityCodeGeneration,
			CapabilityMultiFramework,
			CapabilityResponsiveDesign,
			CapabilityAccessibility,
			CapabilityCodeOptimization,
		}
	default:
		return nil
	}
}

// ============================================================================
// Selection Strategy Enumeration
// ============================================================================

// Strategy is the policy used to pick one model among capability-matching
// candidates
type Strategy string

const (
	// StrategyRoundRobin cycles candidates in registration order
	StrategyRoundRobin Strategy = "round_robin"

	// StrategyLeastLoaded picks the candidate with the lowest current load
	StrategyLeastLoaded Strategy = "least_loaded"

	// StrategyPerformance ranks candidates by composite performance score
	StrategyPerformance Strategy = "performance"

	// StrategyRandom picks uniformly at random
	StrategyRandom Strategy = "random"
)

// String returns the string representation
func (s Strategy) String() string {
	return string(s)
}

// Valid checks if the strategy is a known value
func (s Strategy) Valid() bool {
	switch s {
	case StrategyRoundRobin, StrategyLeastLoaded, StrategyPerformance, StrategyRandom:
		return true
	default:
		return false
	}
}

// FromStringStrategy converts a string to a Strategy
func FromStringStrategy(s string) (Strategy, error) {
	st := Strategy(strings.ToLower(s))
	if !st.Valid() {
		return "", fmt.Errorf("invalid selection strategy: %s", s)
	}
	return st, nil
}
