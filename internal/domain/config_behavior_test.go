package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dexter/internal/domain"
)

func sampleConfig() domain.Config {
	return domain.Config{
		Providers: []domain.Provider{
			{ID: "openai", Kind: domain.ProviderKindNative, Preset: "openai", Enabled: true},
			{ID: "ollama", Kind: domain.ProviderKindLocal, Preset: "ollama", Enabled: true},
			{ID: "groq", Kind: domain.ProviderKindOpenAICompatible, Preset: "groq", Enabled: false},
		},
		Models: []domain.Model{
			{Provider: "openai", Name: "gpt-4o-mini", Enabled: true, Rank: 2},
			{Provider: "ollama", Name: "llama3.2", Enabled: true, Rank: 1},
			{Provider: "groq", Name: "llama-3.3-70b-versatile", Enabled: true, Rank: 3},
			{Provider: "openai", Name: "gpt-4o", Enabled: false},
		},
	}
}

func TestConfig_FallbackChain(t *testing.T) {
	cfg := sampleConfig()

	chain := cfg.FallbackChain()

	require.Len(t, chain, 2, "disabled provider models must not appear")
	assert.Equal(t, "llama3.2", chain[0].Model.Name)
	assert.Equal(t, "ollama", chain[0].Provider.ID)
	assert.Equal(t, "gpt-4o-mini", chain[1].Model.Name)
}

func TestConfig_FallbackChainEmptyWhenNothingEnabled(t *testing.T) {
	cfg := domain.Config{
		Providers: []domain.Provider{{ID: "openai", Enabled: false}},
		Models:    []domain.Model{{Provider: "openai", Name: "gpt-4o", Enabled: true, Rank: 1}},
	}
	assert.Empty(t, cfg.FallbackChain())
}

func TestConfig_ApplyModelOrder(t *testing.T) {
	cfg := sampleConfig()

	cfg.ApplyModelOrder([]domain.ModelRef{
		{Provider: "openai", Name: "gpt-4o"},
		{Provider: "ollama", Name: "llama3.2"},
	})

	gpt4o, ok := cfg.FindModel(domain.ModelRef{Provider: "openai", Name: "gpt-4o"})
	require.True(t, ok)
	assert.True(t, gpt4o.Enabled)
	assert.Equal(t, 1, gpt4o.Rank)

	mini, ok := cfg.FindModel(domain.ModelRef{Provider: "openai", Name: "gpt-4o-mini"})
	require.True(t, ok)
	assert.False(t, mini.Enabled)
	assert.Zero(t, mini.Rank)

	llama, _ := cfg.FindModel(domain.ModelRef{Provider: "ollama", Name: "llama3.2"})
	assert.Equal(t, 2, llama.Rank)
}

func TestConfig_ApplyModelOrderAddsUnknownModels(t *testing.T) {
	cfg := sampleConfig()

	cfg.ApplyModelOrder([]domain.ModelRef{{Provider: "ollama", Name: "qwen2.5"}})

	model, ok := cfg.FindModel(domain.ModelRef{Provider: "ollama", Name: "qwen2.5"})
	require.True(t, ok)
	assert.True(t, model.Enabled)
	assert.Equal(t, 1, model.Rank)
}

func TestConfig_NormalizeRanksClosesGaps(t *testing.T) {
	cfg := domain.Config{
		Providers: []domain.Provider{{ID: "p", Enabled: true}},
		Models: []domain.Model{
			{Provider: "p", Name: "a", Enabled: true, Rank: 7},
			{Provider: "p", Name: "b", Enabled: true, Rank: 3},
			{Provider: "p", Name: "c", Enabled: false, Rank: 5},
		},
	}

	cfg.NormalizeRanks()

	assert.Equal(t, 2, cfg.Models[0].Rank)
	assert.Equal(t, 1, cfg.Models[1].Rank)
	assert.Equal(t, 0, cfg.Models[2].Rank)
}

func TestConfig_ValidateConsistency(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.Config)
		wantErr string
	}{
		{
			name:   "valid config",
			mutate: func(*domain.Config) {},
		},
		{
			name: "duplicate provider",
			mutate: func(c *domain.Config) {
				c.Providers = append(c.Providers, domain.Provider{ID: "openai"})
			},
			wantErr: "duplicate provider",
		},
		{
			name: "unknown provider reference",
			mutate: func(c *domain.Config) {
				c.Models = append(c.Models, domain.Model{Provider: "missing", Name: "x"})
			},
			wantErr: "unknown provider",
		},
		{
			name: "shared rank",
			mutate: func(c *domain.Config) {
				c.Models[0].Rank = 1
			},
			wantErr: "share fallback rank",
		},
		{
			name: "enabled without rank",
			mutate: func(c *domain.Config) {
				c.Models[1].Rank = 0
			},
			wantErr: "no fallback rank",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sampleConfig()
			tt.mutate(&cfg)
			err := cfg.ValidateConsistency()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_CloneIsIndependent(t *testing.T) {
	cfg := sampleConfig()
	snapshot := cfg.Clone()

	cfg.Providers[0].Enabled = false
	cfg.Models[0].Rank = 99

	assert.True(t, snapshot.Providers[0].Enabled)
	assert.Equal(t, 2, snapshot.Models[0].Rank)
}

func TestProvider_ResolvedPreset(t *testing.T) {
	ollama := domain.Provider{ID: "ollama", Preset: "ollama", Kind: domain.ProviderKindLocal}
	preset := ollama.ResolvedPreset()
	assert.Equal(t, "http://localhost:11434/v1", preset.BaseURL)
	assert.False(t, preset.RequiresCredential())

	custom := domain.Provider{ID: "corp", Kind: domain.ProviderKindAnthropicCompatible, BaseURL: "https://llm.corp.example/ "}
	preset = custom.ResolvedPreset()
	assert.Equal(t, domain.WireAnthropic, preset.Wire)
	assert.Equal(t, "https://llm.corp.example", preset.BaseURL)
	assert.True(t, preset.RequiresCredential())
}
