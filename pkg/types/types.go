// Shared request/response types exchanged between the generation pipeline,
// the orchestration core, and provider backends.
package types

import (
	"context"
	"time"
)

// ============================================================================
// Context Keys
// ============================================================================

type contextKey string

const (
	// ContextKeyRequestID carries the request identifier
	ContextKeyRequestID contextKey = "request_id"

	// ContextKeyUserID carries the calling user identifier
	ContextKeyUserID contextKey = "user_id"

	// ContextKeyTraceID carries the trace identifier
	ContextKeyTraceID contextKey = "trace_id"
)

// WithRequestID adds a request id to the context
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// RequestIDFrom retrieves the request id from the context
func RequestIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return id
	}
	return ""
}

// WithUserID adds a user id to the context
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, id)
}

// UserIDFrom retrieves the user id from the context
func UserIDFrom(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyUserID).(string); ok {
		return id
	}
	return ""
}

// ============================================================================
// Generation Request / Result
// ============================================================================

// GenerationRequest describes an inbound code-generation request
type GenerationRequest struct {
	// Unique request identifier
	ID string `json:"id"`

	// Natural-language prompt; may be empty when ImageData is set
	Prompt string `json:"prompt,omitempty"`

	// Base64-encoded screenshot/mockup payload; may be empty
	ImageData string `json:"image_data,omitempty"`

	// Target framework (react, vue, svelte, html)
	Framework string `json:"framework"`

	// Output quality tier (draft, standard, premium)
	Quality string `json:"quality"`

	// Style flags
	ResponsiveDesign      bool `json:"responsive_design"`
	AccessibilityFeatures bool `json:"accessibility_features"`
	DarkModeSupport       bool `json:"dark_mode_support"`

	// Calling user, used for rate limiting
	UserID string `json:"user_id"`

	// Generation parameters; zero values defer to model defaults
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Request creation time
	CreatedAt time.Time `json:"created_at"`
}

// HasImage reports whether the request carries an image payload
func (r *GenerationRequest) HasImage() bool {
	return r.ImageData != ""
}

// HasPrompt reports whether the request carries a text prompt
func (r *GenerationRequest) HasPrompt() bool {
	return r.Prompt != ""
}

// TokenUsage represents token consumption for one generation
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerationResult is the outcome of one generation attempt
type GenerationResult struct {
	// RequestID echoes the originating request id
	RequestID string `json:"request_id"`

	// ModelID identifies which model produced the result
	ModelID string `json:"model_id"`

	// Success reports whether generation completed
	Success bool `json:"success"`

	// Code is the generated content
	Code string `json:"code,omitempty"`

	// Usage is the token consumption reported by the backend
	Usage TokenUsage `json:"usage"`

	// QualityScore is the backend's quality signal in [0,1]
	QualityScore float64 `json:"quality_score"`

	// Confidence is the backend's confidence signal in [0,1]
	Confidence float64 `json:"confidence"`

	// CostUSD is the estimated request cost
	CostUSD float64 `json:"cost_usd"`

	// Error code/message populated on failure
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Cached reports whether the result was served from the result cache
	Cached bool `json:"cached"`

	// GeneratedAt is when the backend finished
	GeneratedAt time.Time `json:"generated_at"`
}

// ============================================================================
// Streaming
// ============================================================================

// ChunkType classifies a streaming chunk
type ChunkType string

const (
	// ChunkTypeContent carries a fragment of generated code
	ChunkTypeContent ChunkType = "content"

	// ChunkTypeComplete terminates a successful stream
	ChunkTypeComplete ChunkType = "complete"

	// ChunkTypeError terminates a failed stream
	ChunkTypeError ChunkType = "error"
)

// StreamChunk is one element of a streaming generation
type StreamChunk struct {
	Type    ChunkType   `json:"type"`
	Content string      `json:"content,omitempty"`
	Usage   *TokenUsage `json:"usage,omitempty"`
	Err     error       `json:"-"`
}
