package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	apperrors "github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

// OpenAI backs a model with the OpenAI chat completions API. Azure
// deployments use the same client with Azure endpoint configuration.
type OpenAI struct {
	opts   Options
	client *openai.Client
	logger logging.Logger
}

// NewOpenAI creates an OpenAI or Azure backend client
func NewOpenAI(opts Options, logger logging.Logger) *OpenAI {
	var cfg openai.ClientConfig
	if opts.Provider == types.ProviderAzure {
		cfg = openai.DefaultAzureConfig(opts.APIKey, opts.BaseURL)
	} else {
		cfg = openai.DefaultConfig(opts.APIKey)
		if opts.BaseURL != "" {
			cfg.BaseURL = opts.BaseURL
		}
	}

	return &OpenAI{
		opts:   opts,
		client: openai.NewClientWithConfig(cfg),
		logger: logger,
	}
}

// Initialize is a no-op; the client is connectionless
func (p *OpenAI) Initialize(ctx context.Context) error {
	return nil
}

// GenerateCode performs one chat completion round trip
func (p *OpenAI) GenerateCode(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.timeout())
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctx, p.buildRequest(req, false))
	if err != nil {
		return nil, apperrors.ProviderError(p.opts.Provider.String(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, apperrors.ProviderError(p.opts.Provider.String(),
			fmt.Errorf("empty completion for model %s", p.opts.ModelName))
	}

	usage := types.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	return successResult(req, p.opts.ModelID, resp.Choices[0].Message.Content, usage, p.opts.CostPer1KTokens), nil
}

// GenerateCodeStream streams completion deltas as content chunks
func (p *OpenAI) GenerateCodeStream(ctx context.Context, req *types.GenerationRequest) (<-chan types.StreamChunk, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.timeout())

	stream, err := p.client.CreateChatCompletionStream(ctx, p.buildRequest(req, true))
	if err != nil {
		cancel()
		return nil, apperrors.ProviderError(p.opts.Provider.String(), err)
	}

	out := make(chan types.StreamChunk)
	go func() {
		defer close(out)
		defer cancel()
		defer stream.Close()

		// Every send races consumer abandonment; an abandoned consumer
		// must not strand this goroutine on the unbuffered channel.
		send := func(chunk types.StreamChunk) bool {
			select {
			case out <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				send(types.StreamChunk{Type: types.ChunkTypeComplete})
				return
			}
			if err != nil {
				send(types.StreamChunk{
					Type: types.ChunkTypeError,
					Err:  apperrors.ProviderError(p.opts.Provider.String(), err),
				})
				return
			}

			if len(resp.Choices) > 0 && resp.Choices[0].Delta.Content != "" {
				if !send(types.StreamChunk{Type: types.ChunkTypeContent, Content: resp.Choices[0].Delta.Content}) {
					return
				}
			}
		}
	}()

	return out, nil
}

// ValidateModel probes the models endpoint
func (p *OpenAI) ValidateModel(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := p.client.ListModels(ctx); err != nil {
		return false, err.Error()
	}
	return true, "ok"
}

// Cleanup is a no-op; the client holds no persistent connections
func (p *OpenAI) Cleanup() error {
	return nil
}

func (p *OpenAI) buildRequest(req *types.GenerationRequest, stream bool) openai.ChatCompletionRequest {
	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.HasImage() {
		userMsg.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: buildUserPrompt(req)},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: "data:image/png;base64," + req.ImageData,
				},
			},
		}
	} else {
		userMsg.Content = buildUserPrompt(req)
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.opts.MaxTokens
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = p.opts.Temperature
	}

	return openai.ChatCompletionRequest{
		Model: p.opts.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			userMsg,
		},
		MaxTokens:   maxTokens,
		Temperature: float32(temperature),
		Stream:      stream,
	}
}
