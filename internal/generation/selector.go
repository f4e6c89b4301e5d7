// Package generation implements the code-generation pipeline on top of
// the orchestration core: capability derivation, the two-tier result
// cache, and the service that runs requests against provider backends.
package generation

import (
	"github.com/pixelforge/pixelforge/pkg/types"
)

// DeriveCapabilities maps request content and style flags to the
// capabilities a serving model must declare. Code generation is always
// required; image input demands image analysis, a text prompt demands
// text understanding, and the responsive/accessibility flags demand
// their matching capabilities.
func DeriveCapabilities(req *types.GenerationRequest) []types.Capability {
	caps := make([]types.Capability, 0, 5)

	if req.HasImage() {
		caps = append(caps, types.CapabilityImageAnalysis)
	}
	if req.HasPrompt() {
		caps = append(caps, types.CapabilityTextUnderstanding)
	}
	caps = append(caps, types.CapabilityCodeGeneration)

	if req.ResponsiveDesign {
		caps = append(caps, types.CapabilityResponsiveDesign)
	}
	if req.AccessibilityFeatures {
		caps = append(caps, types.CapabilityAccessibility)
	}

	return caps
}
