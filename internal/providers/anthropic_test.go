package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/pixelforge/internal/observability/logging"
	"github.com/pixelforge/pixelforge/pkg/types"
)

func newAnthropicAgainst(t *testing.T, handler http.HandlerFunc) *Anthropic {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewAnthropic(Options{
		ModelID:   "claude-1",
		Provider:  types.ProviderAnthropic,
		ModelName: "claude-test",
		APIKey:    "test-key",
		BaseURL:   srv.URL,
	}, logging.NewNoopLogger())
}

func writeDelta(w http.ResponseWriter, text string) {
	fmt.Fprintf(w, "data: {\"type\":\"content_block_delta\",\"delta\":{\"text\":%q}}\n\n", text)
	w.(http.Flusher).Flush()
}

func TestAnthropicGenerateCodeStream(t *testing.T) {
	t.Run("aggregates deltas and terminates on message_stop", func(t *testing.T) {
		p := newAnthropicAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			writeDelta(w, "const App = ")
			writeDelta(w, "() => null;")
			fmt.Fprint(w, "data: {\"type\":\"message_stop\"}\n\n")
		})

		stream, err := p.GenerateCodeStream(context.Background(), &types.GenerationRequest{Prompt: "a button"})
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
		assert.Equal(t, "const App = () => null;", content)
	})

	t.Run("abandoned consumer does not strand the producer", func(t *testing.T) {
		p := newAnthropicAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/event-stream")
			writeDelta(w, "const App = ")
			// Hold the stream open until the client goes away.
			<-r.Context().Done()
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		base := runtime.NumGoroutine()
		stream, err := p.GenerateCodeStream(ctx, &types.GenerationRequest{Prompt: "a button"})
		require.NoError(t, err)

		// Take one chunk, then walk away without draining. Cancellation
		// fails the body read and the producer must still exit even though
		// nothing will ever receive its error chunk.
		chunk := <-stream
		assert.Equal(t, types.ChunkTypeContent, chunk.Type)
		cancel()

		require.Eventually(t, func() bool {
			return runtime.NumGoroutine() <= base
		}, 3*time.Second, 10*time.Millisecond)
	})
}
