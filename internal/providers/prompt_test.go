package providers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pixelforge/pixelforge/pkg/types"
)

func TestBuildUserPrompt(t *testing.T) {
	t.Run("defaults to react", func(t *testing.T) {
		prompt := buildUserPrompt(&types.GenerationRequest{Prompt: "a card"})
		assert.Contains(t, prompt, "Target framework: react.")
		assert.Contains(t, prompt, "a card")
	})

	t.Run("carries framework and quality tier", func(t *testing.T) {
		prompt := buildUserPrompt(&types.GenerationRequest{
			Prompt:    "a card",
			Framework: "vue",
			Quality:   "high",
		})
		assert.Contains(t, prompt, "Target framework: vue.")
		assert.Contains(t, prompt, "Quality tier: high.")
	})

	t.Run("style flags add instructions", func(t *testing.T) {
		prompt := buildUserPrompt(&types.GenerationRequest{
			Prompt:                "a card",
			ResponsiveDesign:      true,
			AccessibilityFeatures: true,
			DarkModeSupport:       true,
		})
		assert.Contains(t, prompt, "responsive")
		assert.Contains(t, prompt, "ARIA")
		assert.Contains(t, prompt, "dark color schemes")
	})

	t.Run("image input asks for reproduction", func(t *testing.T) {
		prompt := buildUserPrompt(&types.GenerationRequest{ImageData: "aGVsbG8="})
		assert.Contains(t, prompt, "attached UI design")
		assert.NotContains(t, prompt, "aGVsbG8=", "image bytes stay out of the text prompt")
	})
}

func TestStripCodeFences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"no fence", "export default foo", "export default foo"},
		{"plain fence", "```\ncode here\n```", "code here"},
		{"language fence", "```jsx\ncode here\n```", "code here"},
		{"surrounding whitespace", "  \n```\ncode here\n```\n ", "code here"},
		{"unterminated fence", "```jsx\ncode here", "code here"},
		{"fence only", "```", "```"},
		{"empty", "", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, stripCodeFences(tc.in))
		})
	}
}

func TestEstimateQuality(t *testing.T) {
	t.Run("empty output scores zero", func(t *testing.T) {
		assert.Zero(t, estimateQuality(""))
	})

	t.Run("short plain text scores the base", func(t *testing.T) {
		assert.InDelta(t, 0.5, estimateQuality("hello"), 1e-9)
	})

	t.Run("code markers raise the score", func(t *testing.T) {
		assert.InDelta(t, 0.7, estimateQuality("export default function X() {}"), 1e-9)
	})

	t.Run("length, markers, and aria reach the cap", func(t *testing.T) {
		code := "export default function X() {\n" +
			strings.Repeat("  // filler line for body length\n", 10) +
			"  return <div aria-label=\"x\" />;\n}\n"
		assert.InDelta(t, 1.0, estimateQuality(code), 1e-9)
	})
}

func TestEstimateCost(t *testing.T) {
	usage := types.TokenUsage{PromptTokens: 1500, CompletionTokens: 500, TotalTokens: 2000}
	assert.InDelta(t, 0.06, estimateCost(usage, 0.03), 1e-9)
	assert.Zero(t, estimateCost(usage, 0))
}
