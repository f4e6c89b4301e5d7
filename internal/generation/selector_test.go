package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pixelforge/pixelforge/pkg/types"
)

func TestDeriveCapabilities(t *testing.T) {
	cases := []struct {
		name string
		req  types.GenerationRequest
		want []types.Capability
	}{
		{
			name: "prompt only",
			req:  types.GenerationRequest{Prompt: "a login form"},
			want: []types.Capability{
				types.CapabilityTextUnderstanding,
				types.CapabilityCodeGeneration,
			},
		},
		{
			name: "image only",
			req:  types.GenerationRequest{ImageData: "aGVsbG8="},
			want: []types.Capability{
				types.CapabilityImageAnalysis,
				types.CapabilityCodeGeneration,
			},
		},
		{
			name: "image and prompt",
			req:  types.GenerationRequest{Prompt: "match this mockup", ImageData: "aGVsbG8="},
			want: []types.Capability{
				types.CapabilityImageAnalysis,
				types.CapabilityTextUnderstanding,
				types.CapabilityCodeGeneration,
			},
		},
		{
			name: "style flags add their capabilities",
			req: types.GenerationRequest{
				Prompt:                "a dashboard",
				ResponsiveDesign:      true,
				AccessibilityFeatures: true,
			},
			want: []types.Capability{
				types.CapabilityTextUnderstanding,
				types.CapabilityCodeGeneration,
				types.CapabilityResponsiveDesign,
				types.CapabilityAccessibility,
			},
		},
		{
			name: "dark mode does not demand a capability",
			req:  types.GenerationRequest{Prompt: "a card", DarkModeSupport: true},
			want: []types.Capability{
				types.CapabilityTextUnderstanding,
				types.CapabilityCodeGeneration,
			},
		},
		{
			name: "empty request still requires code generation",
			req:  types.GenerationRequest{},
			want: []types.Capability{types.CapabilityCodeGeneration},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveCapabilities(&tc.req))
		})
	}
}
