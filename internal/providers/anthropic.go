package providers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/errors"
	"github.com/pixelforge/pixelforge/pkg/types"
)

const (
	anthropicBaseURL    = "https://api.anthropic.com"
	anthropicVersion    = "2023-06-01"
	anthropicDefaultMax = 4096
)

// Anthropic backs a model with the Anthropic Messages API over plain HTTP
type Anthropic struct {
	opts       Options
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	// Temperature is only serialized when set
	Temperature *float64 `json:"temperature,omitempty"`
	Stream      bool     `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
}

type anthropicContent struct {
	Type   string           `json:"type"`
	Text   string           `json:"text,omitempty"`
	Source *anthropicSource `json:"source,omitempty"`
}

type anthropicSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type anthropicResponse struct {
	ID      string             `json:"id"`
	Content []anthropicContent `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// NewAnthropic creates an Anthropic backend client
func NewAnthropic(opts Options, logger logging.Logger) *Anthropic {
	baseURL := anthropicBaseURL
	if opts.BaseURL != "" {
		baseURL = strings.TrimSuffix(opts.BaseURL, "/")
	}

	return &Anthropic{
		opts:    opts,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: opts.timeout(),
		},
		logger: logger,
	}
}

// Initialize is a no-op; requests are stateless
func (p *Anthropic) Initialize(ctx context.Context) error {
	return nil
}

// GenerateCode performs one messages round trip
func (p *Anthropic) GenerateCode(ctx context.Context, req *types.GenerationRequest) (*types.GenerationResult, error) {
	body, err := p.doRequest(ctx, p.buildRequest(req, false))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.ProviderError("anthropic", err)
	}

	var resp anthropicResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, errors.ProviderError("anthropic", fmt.Errorf("decode response: %w", err))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	usage := types.TokenUsage{
		PromptTokens:     resp.Usage.InputTokens,
		CompletionTokens: resp.Usage.OutputTokens,
		TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
	}
	return successResult(req, p.opts.ModelID, text.String(), usage, p.opts.CostPer1KTokens), nil
}

// GenerateCodeStream streams server-sent events as content chunks
func (p *Anthropic) GenerateCodeStream(ctx context.Context, req *types.GenerationRequest) (<-chan types.StreamChunk, error) {
	body, err := p.doRequest(ctx, p.buildRequest(req, true))
	if err != nil {
		return nil, err
	}

	out := make(chan types.StreamChunk)
	go func() {
		defer close(out)
		defer body.Close()

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

		reader := bufio.NewReader(body)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					send(types.StreamChunk{Type: types.ChunkTypeComplete})
				} else {
					send(types.StreamChunk{
						Type: types.ChunkTypeError,
						Err:  errors.ProviderError("anthropic", err),
					})
				}
				return
			}

			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			var event struct {
				Type  string `json:"type"`
				Delta struct {
					Text string `json:"text"`
				} `json:"delta"`
			}
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				continue
			}

			switch event.Type {
			case "content_block_delta":
				if event.Delta.Text != "" {
					if !send(types.StreamChunk{Type: types.ChunkTypeContent, Content: event.Delta.Text}) {
						return
					}
				}
			case "message_stop":
				send(types.StreamChunk{Type: types.ChunkTypeComplete})
				return
			}
		}
	}()

	return out, nil
}

// ValidateModel probes the messages endpoint with a minimal request
func (p *Anthropic) ValidateModel(ctx context.Context) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	probe := anthropicRequest{
		Model:     p.opts.ModelName,
		MaxTokens: 1,
		Messages: []anthropicMessage{
			{Role: "user", Content: []anthropicContent{{Type: "text", Text: "ping"}}},
		},
	}

	body, err := p.doRequest(ctx, probe)
	if err != nil {
		return false, err.Error()
	}
	body.Close()
	return true, "ok"
}

// Cleanup is a no-op; the client holds no persistent connections
func (p *Anthropic) Cleanup() error {
	return nil
}

func (p *Anthropic) buildRequest(req *types.GenerationRequest, stream bool) anthropicRequest {
	content := []anthropicContent{}
	if req.HasImage() {
		content = append(content, anthropicContent{
			Type: "image",
			Source: &anthropicSource{
				Type:      "base64",
				MediaType: "image/png",
				Data:      req.ImageData,
			},
		})
	}
	content = append(content, anthropicContent{Type: "text", Text: buildUserPrompt(req)})

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.opts.MaxTokens
	}
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMax
	}

	out := anthropicRequest{
		Model:     p.opts.ModelName,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: content}},
		Stream:    stream,
	}
	if req.Temperature > 0 {
		t := req.Temperature
		out.Temperature = &t
	} else if p.opts.Temperature > 0 {
		t := p.opts.Temperature
		out.Temperature = &t
	}
	return out
}

// doRequest posts to the messages endpoint and returns the response body
// on 200; the caller closes it
func (p *Anthropic) doRequest(ctx context.Context, payload anthropicRequest) (io.ReadCloser, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.ProviderError("anthropic", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(raw))
	if err != nil {
		return nil, errors.ProviderError("anthropic", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.opts.APIKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)

	httpResp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.ProviderError("anthropic", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		defer httpResp.Body.Close()
		respBody, _ := io.ReadAll(httpResp.Body)
		return nil, errors.ProviderError("anthropic",
			fmt.Errorf("status %d: %s", httpResp.StatusCode, string(respBody)))
	}

	return httpResp.Body, nil
}
