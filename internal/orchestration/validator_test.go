package orchestration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelforge/pixelforge/pkg/types"
)

func TestValidateConfiguration(t *testing.T) {
	v := NewValidator(&staticProber{})

	t.Run("valid configuration passes", func(t *testing.T) {
		ok, problems := v.ValidateConfiguration(testConfig("m1"))
		assert.True(t, ok)
		assert.Empty(t, problems)
	})

	t.Run("nil configuration", func(t *testing.T) {
		ok, problems := v.ValidateConfiguration(nil)
		assert.False(t, ok)
		require.Len(t, problems, 1)
	})

	t.Run("missing api key for hosted provider", func(t *testing.T) {
		cfg := testConfig("m1")
		cfg.Provider = types.ProviderOpenAI
		cfg.Type = types.ModelTypeTextToCode
		cfg.Capabilities = []types.Capability{types.CapabilityTextUnderstanding, types.CapabilityCodeGeneration}

		ok, problems := v.ValidateConfiguration(cfg)
		assert.False(t, ok)
		assert.Contains(t, problems, "provider openai requires an api key")
	})

	t.Run("local provider needs no api key", func(t *testing.T) {
		cfg := testConfig("m1")
		cfg.APIKey = ""
		ok, _ := v.ValidateConfiguration(cfg)
		assert.True(t, ok)
	})

	t.Run("parameter bounds", func(t *testing.T) {
		cfg := testConfig("m1")
		cfg.MaxTokens = 0
		cfg.Temperature = 2.5
		cfg.TopP = -0.1
		cfg.Timeout = 0

		ok, problems := v.ValidateConfiguration(cfg)
		assert.False(t, ok)
		assert.Len(t, problems, 4)
	})

	t.Run("rate budgets must be positive", func(t *testing.T) {
		cfg := testConfig("m1")
		cfg.RequestsPerMinute = 0
		cfg.RequestsPerHour = -1
		cfg.TokensPerMinute = 0

		ok, problems := v.ValidateConfiguration(cfg)
		assert.False(t, ok)
		assert.Len(t, problems, 3)
	})

	t.Run("incompatible capability for model type", func(t *testing.T) {
		cfg := testConfig("m1")
		cfg.Type = types.ModelTypeTextToCode
		cfg.Capabilities = []types.Capability{
			types.CapabilityTextUnderstanding,
			types.CapabilityImageAnalysis, // vision capability on a text model
		}

		ok, problems := v.ValidateConfiguration(cfg)
		assert.False(t, ok)
		require.Len(t, problems, 1)
		assert.Contains(t, problems[0], "not compatible")
	})

	t.Run("multimodal accepts the full capability set", func(t *testing.T) {
		cfg := testConfig("m1")
		cfg.Type = types.ModelTypeMultimodal
		cfg.Capabilities = types.ModelTypeMultimodal.CompatibleCapabilities()

		ok, _ := v.ValidateConfiguration(cfg)
		assert.True(t, ok)
	})

	t.Run("empty capabilities", func(t *testing.T) {
		cfg := testConfig("m1")
		cfg.Capabilities = nil

		ok, problems := v.ValidateConfiguration(cfg)
		assert.False(t, ok)
		assert.Contains(t, problems, "capabilities must not be empty")
	})
}

func TestValidateHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("delegates to the prober", func(t *testing.T) {
		v := NewValidator(&staticProber{unhealthy: map[string]string{"down": "connection refused"}})

		healthy, msg := v.ValidateHealth(ctx, testConfig("up"))
		assert.True(t, healthy)
		assert.Equal(t, "ok", msg)

		healthy, msg = v.ValidateHealth(ctx, testConfig("down"))
		assert.False(t, healthy)
		assert.Equal(t, "connection refused", msg)
	})

	t.Run("nil configuration is unhealthy", func(t *testing.T) {
		v := NewValidator(&staticProber{})
		healthy, _ := v.ValidateHealth(ctx, nil)
		assert.False(t, healthy)
	})

	t.Run("missing prober is unhealthy", func(t *testing.T) {
		v := NewValidator(nil)
		healthy, _ := v.ValidateHealth(ctx, testConfig("m1"))
		assert.False(t, healthy)
	})

	t.Run("panicking prober is contained", func(t *testing.T) {
		v := NewValidator(panicProber{})
		healthy, msg := v.ValidateHealth(ctx, testConfig("m1"))
		assert.False(t, healthy)
		assert.Contains(t, msg, "panicked")
	})
}

type panicProber struct{}

func (panicProber) Probe(context.Context, string) (bool, string) {
	panic("probe exploded")
}
