package providers

import (
	"fmt"
	"strings"
	"time"

	"github.com/pixelforge/pixelforge/pkg/types"
)

// systemPrompt frames every generation request for the backend
const systemPrompt = `You are an expert front-end engineer. Generate clean,
production-quality component code for the requested framework. Return only
code, without surrounding explanation.`

// buildUserPrompt folds the request settings into one instruction string
func buildUserPrompt(req *types.GenerationRequest) string {
	var b strings.Builder

	framework := req.Framework
	if framework == "" {
		framework = "react"
	}
	fmt.Fprintf(&b, "Target framework: %s.\n", framework)

	if req.Quality != "" {
		fmt.Fprintf(&b, "Quality tier: %s.\n", req.Quality)
	}
	if req.ResponsiveDesign {
		b.WriteString("The layout must be responsive across mobile, tablet, and desktop.\n")
	}
	if req.AccessibilityFeatures {
		b.WriteString("Include ARIA attributes and semantic markup for accessibility.\n")
	}
	if req.DarkModeSupport {
		b.WriteString("Support both light and dark color schemes.\n")
	}

	if req.HasImage() {
		b.WriteString("Reproduce the attached UI design as code.\n")
	}
	if req.HasPrompt() {
		b.WriteString("\n")
		b.WriteString(req.Prompt)
	}

	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence if present
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}

	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// estimateQuality is a cheap backend-side quality signal in [0,1] based
// on output shape. Empty output scores zero.
func estimateQuality(code string) float64 {
	if code == "" {
		return 0
	}

	score := 0.5
	if len(code) > 200 {
		score += 0.2
	}
	if strings.Contains(code, "export") || strings.Contains(code, "function") ||
		strings.Contains(code, "<template>") || strings.Contains(code, "class=") {
		score += 0.2
	}
	if strings.Contains(code, "aria-") {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// estimateCost converts token usage to USD using the model rate
func estimateCost(usage types.TokenUsage, costPer1K float64) float64 {
	return float64(usage.TotalTokens) / 1000.0 * costPer1K
}

// successResult assembles a completed GenerationResult
func successResult(req *types.GenerationRequest, modelID, code string, usage types.TokenUsage, costPer1K float64) *types.GenerationResult {
	clean := stripCodeFences(code)
	quality := estimateQuality(clean)

	return &types.GenerationResult{
		RequestID:    req.ID,
		ModelID:      modelID,
		Success:      true,
		Code:         clean,
		Usage:        usage,
		QualityScore: quality,
		Confidence:   quality,
		CostUSD:      estimateCost(usage, costPer1K),
		GeneratedAt:  time.Now(),
	}
}
