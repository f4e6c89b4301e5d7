package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// Local backs a model with a deterministic template generator. It needs
// no network or API key and serves as the offline fallback backend.
type Local struct {
	opts   Options
	logger logging.Logger
}

// NewLocal creates a local backend client
func NewLocal(opts Options, logger logging.Logger) *Local {
	return &Local{opts: opts, logger: logger}
}

// Initialize is a no-op
func (p *Local) Initialize(ctx context.Context) error {
	return nil
}

// GenerateCode renders a component skeleton from the request settings
func (p *Local) GenerateCode(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	code := p.render(req)
	usage := types.TokenUsage{
		PromptTokens:     len(strings.Fields(buildUserPrompt(req))),
		CompletionTokens: len(strings.Fields(code)),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens

	return successResult(req, p.opts.ModelID, code, usage, p.opts.CostPer1KTokens), nil
}

// GenerateCodeStream emits the rendered skeleton line by line
func (p *Local) GenerateCodeStream(ctx context.Context, req *types.GenerationRequest) (<-chan types.StreamChunk, error) {
	lines := strings.SplitAfter(p.render(req), "\n")

	out := make(chan types.StreamChunk)
	go func() {
		defer close(out)
		for _, line := range lines {
			if line == "" {
				continue
			}
			select {
			case out <- types.StreamChunk{Type: types.ChunkTypeContent, Content: line}:
			case <-ctx.Done():
				return
			}
		}
		// The terminal send also races consumer abandonment.
		select {
		case out <- types.StreamChunk{Type: types.ChunkTypeComplete}:
		case <-ctx.Done():
		}
	}()

	return out, nil
}

// ValidateModel always reports healthy
func (p *Local) ValidateModel(ctx context.Context) (bool, string) {
	return true, "ok"
}

// Cleanup is a no-op
func (p *Local) Cleanup() error {
	return nil
}

func (p *Local) render(req *types.GenerationRequest) string {
	framework := req.Framework
	if framework == "" {
		framework = "react"
	}

	className := "generated-component"
	aria := ""
	if req.AccessibilityFeatures {
		aria = ` role="region" aria-label="Generated component"`
	}

	switch framework {
	case "vue":
		return fmt.Sprintf("<template>\n  <div class=%q%s>\n    <!-- %s -->\n  </div>\n</template>\n\n<script setup>\n</script>\n",
			className, aria, summarize(req))
	case "svelte":
		return fmt.Sprintf("<div class=%q%s>\n  <!-- %s -->\n</div>\n\n<style>\n.%s { display: block; }\n</style>\n",
			className, aria, summarize(req), className)
	case "html":
		return fmt.Sprintf("<!DOCTYPE html>\n<html>\n<body>\n  <div class=%q%s>\n    <!-- %s -->\n  </div>\n</body>\n</html>\n",
			className, aria, summarize(req))
	default:
		return fmt.Sprintf("export default function GeneratedComponent() {\n  return (\n    <div className=%q%s>\n      {/* %s */}\n    </div>\n  );\n}\n",
			className, aria, summarize(req))
	}
}

func summarize(req *types.GenerationRequest) string {
	if req.HasPrompt() {
		// Truncate on a rune boundary so multi-byte prompts stay valid UTF-8.
		runes := []rune(req.Prompt)
		if len(runes) > 80 {
			runes = runes[:80]
		}
		return string(runes)
	}
	if req.HasImage() {
		return "rendered from image input"
	}
	return "empty request"
}
