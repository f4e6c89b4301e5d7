package providers

import (
	"context"
	"runtime"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/types"
)

func newLocalProvider() *Local {
	return NewLocal(Options{
		ModelID:         "local-1",
		Provider:        types.ProviderLocal,
		ModelName:       "local-template",
		CostPer1KTokens: 0.01,
	}, logging.NewNoopLogger())
}

func TestLocalGenerateCode(t *testing.T) {
	t.Run("renders a react component by default", func(t *testing.T) {
		p := newLocalProvider()

		result, err := p.GenerateCode(context.Background(), &types.GenerationRequest{
			ID:     "req-1",
			Prompt: "a login form",
		})
		require.NoError(t, err)

		assert.True(t, result.Success)
		assert.Equal(t, "req-1", result.RequestID)
		assert.Equal(t, "local-1", result.ModelID)
		assert.Contains(t, result.Code, "export default function")
		assert.Contains(t, result.Code, "a login form")
		assert.Positive(t, result.Usage.TotalTokens)
		assert.Positive(t, result.CostUSD)
	})

	t.Run("renders per-framework templates", func(t *testing.T) {
		p := newLocalProvider()
		cases := map[string]string{
			"vue":    "<template>",
			"svelte": "<style>",
			"html":   "<!DOCTYPE html>",
		}

		for framework, marker := range cases {
			result, err := p.GenerateCode(context.Background(), &types.GenerationRequest{
				Prompt:    "a card",
				Framework: framework,
			})
			require.NoError(t, err)
			assert.Contains(t, result.Code, marker, framework)
		}
	})

	t.Run("accessibility flag adds aria attributes", func(t *testing.T) {
		p := newLocalProvider()

		result, err := p.GenerateCode(context.Background(), &types.GenerationRequest{
			Prompt:                "a card",
			AccessibilityFeatures: true,
		})
		require.NoError(t, err)
		assert.Contains(t, result.Code, "aria-label")
	})

	t.Run("deterministic for identical requests", func(t *testing.T) {
		p := newLocalProvider()
		req := &types.GenerationRequest{Prompt: "a sidebar", Framework: "html"}

		first, err := p.GenerateCode(context.Background(), req)
		require.NoError(t, err)
		second, err := p.GenerateCode(context.Background(), req)
		require.NoError(t, err)

		assert.Equal(t, first.Code, second.Code)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		p := newLocalProvider()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.GenerateCode(ctx, &types.GenerationRequest{Prompt: "a card"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("multi-byte prompt truncates on a rune boundary", func(t *testing.T) {
		p := newLocalProvider()

		result, err := p.GenerateCode(context.Background(), &types.GenerationRequest{
			Prompt: strings.Repeat("日本語", 40),
		})
		require.NoError(t, err)
		assert.True(t, utf8.ValidString(result.Code))
		assert.Contains(t, result.Code, strings.Repeat("日本語", 26)+"日本")
	})
}

func TestLocalGenerateCodeStream(t *testing.T) {
	t.Run("streams the rendered component", func(t *testing.T) {
		p := newLocalProvider()

		stream, err := p.GenerateCodeStream(context.Background(), &types.GenerationRequest{
			Prompt: "a navbar",
		})
		require.NoError(t, err)

		var content string
		var last types.StreamChunk
		for chunk := range stream {
			if chunk.Type == types.ChunkTypeContent {
				content += chunk.Content
			}
			last = chunk
		}

		assert.Equal(t, types.ChunkTypeComplete, last.Type)
		assert.Contains(t, content, "a navbar")
	})

	t.Run("abandoned consumer does not strand the producer", func(t *testing.T) {
		p := newLocalProvider()
		req := &types.GenerationRequest{Prompt: "a navbar"}

		var contentChunks int
		for _, line := range strings.SplitAfter(p.render(req), "\n") {
			if line != "" {
				contentChunks++
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		base := runtime.NumGoroutine()
		stream, err := p.GenerateCodeStream(ctx, req)
		require.NoError(t, err)

		// Drain the content but never take the terminal chunk, leaving the
		// producer parked on its final send when the context is cancelled.
		for i := 0; i < contentChunks; i++ {
			<-stream
		}
		cancel()

		require.Eventually(t, func() bool {
			return runtime.NumGoroutine() <= base
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestSetProbe(t *testing.T) {
	set := NewSet(logging.NewNoopLogger())
	set.Register("local-1", newLocalProvider())

	t.Run("registered model probes healthy", func(t *testing.T) {
		healthy, msg := set.Probe(context.Background(), "local-1")
		assert.True(t, healthy)
		assert.Equal(t, "ok", msg)
	})

	t.Run("unknown model probes unhealthy", func(t *testing.T) {
		healthy, msg := set.Probe(context.Background(), "ghost")
		assert.False(t, healthy)
		assert.Equal(t, "no backend client registered", msg)
	})

	t.Run("unregister removes the backend", func(t *testing.T) {
		set.Unregister("local-1")
		_, ok := set.ProviderFor("local-1")
		assert.False(t, ok)
	})
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := New(Options{ModelID: "x", Provider: types.Provider("carrier-pigeon")}, logging.NewNoopLogger())
	assert.Error(t, err)
}
