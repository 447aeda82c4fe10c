// Package domain defines core business entities and value objects for dexter.
//
// This file contains language-model provider and model definitions used throughout
// the application. The domain layer is independent of infrastructure concerns and
// represents pure business logic and data structures.
package domain

import "strings"

// ProviderKind enumerates the backend families a provider can belong to.
type ProviderKind string

const (
	ProviderKindNative              ProviderKind = "native"
	ProviderKindOpenAICompatible    ProviderKind = "openai_compatible"
	ProviderKindAnthropicCompatible ProviderKind = "anthropic_compatible"
	ProviderKindLocal               ProviderKind = "local"
)

// Valid reports whether k is one of the known kinds.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderKindNative, ProviderKindOpenAICompatible, ProviderKindAnthropicCompatible, ProviderKindLocal:
		return true
	default:
		return false
	}
}

// AuthStyle describes how a credential is presented to the backend.
type AuthStyle string

const (
	AuthBearer AuthStyle = "bearer"
	AuthAPIKey AuthStyle = "api_key"
	AuthNone   AuthStyle = "none"
)

// WireFormat selects the request/response shape spoken by a backend.
type WireFormat string

const (
	WireOpenAI    WireFormat = "openai"
	WireAnthropic WireFormat = "anthropic"
)

// Provider identifies one language-model backend declared in the config file.
// A disabled provider is kept in configuration but never consulted.
type Provider struct {
	ID            string       `yaml:"id"`
	Kind          ProviderKind `yaml:"kind"`
	Preset        string       `yaml:"preset,omitempty"`
	Enabled       bool         `yaml:"enabled"`
	CredentialRef string       `yaml:"credential_ref,omitempty"`
	BaseURL       string       `yaml:"base_url,omitempty"`
	Auth          AuthStyle    `yaml:"auth,omitempty"`
}

// Model is a selectable target within a provider.
type Model struct {
	Provider string `yaml:"provider"`
	Name     string `yaml:"name"`
	Enabled  bool   `yaml:"enabled"`
	Rank     int    `yaml:"rank"`
}

// Key uniquely identifies a model across providers.
func (m Model) Key() ModelRef {
	return ModelRef{Provider: m.Provider, Name: m.Name}
}

// ModelRef points at a model without carrying its selection state.
type ModelRef struct {
	Provider string `yaml:"provider" json:"provider"`
	Name     string `yaml:"name" json:"name"`
}

func (r ModelRef) String() string {
	return r.Provider + "/" + r.Name
}

// Route is one resolved entry of the fallback chain.
type Route struct {
	Provider Provider
	Model    Model
}

// ProviderPreset carries the defaults attached to a well-known backend.
type ProviderPreset struct {
	ID          string
	DisplayName string
	Kind        ProviderKind
	Wire        WireFormat
	BaseURL     string
	Auth        AuthStyle
	Models      []string
}

// RequiresCredential reports whether the preset cannot be reached without a secret.
func (p ProviderPreset) RequiresCredential() bool {
	return p.Auth != AuthNone
}

// RequiresBaseURL reports whether the user has to supply an endpoint.
func (p ProviderPreset) RequiresBaseURL() bool {
	return p.BaseURL == "" && p.Kind != ProviderKindNative
}

var providerPresets = []ProviderPreset{
	{ID: "openai", DisplayName: "OpenAI", Kind: ProviderKindNative, Wire: WireOpenAI, Auth: AuthBearer,
		Models: []string{"gpt-4o-mini", "gpt-4o"}},
	{ID: "anthropic", DisplayName: "Anthropic", Kind: ProviderKindNative, Wire: WireAnthropic, Auth: AuthAPIKey,
		Models: []string{"claude-3-5-haiku-latest", "claude-sonnet-4-0"}},
	{ID: "gemini", DisplayName: "Gemini", Kind: ProviderKindOpenAICompatible, Wire: WireOpenAI, Auth: AuthBearer,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai",
		Models:  []string{"gemini-2.5-flash-lite", "gemini-2.5-flash", "gemini-2.5-pro"}},
	{ID: "deepseek", DisplayName: "DeepSeek", Kind: ProviderKindOpenAICompatible, Wire: WireOpenAI, Auth: AuthBearer,
		BaseURL: "https://api.deepseek.com/v1",
		Models:  []string{"deepseek-chat", "deepseek-reasoner"}},
	{ID: "groq", DisplayName: "Groq", Kind: ProviderKindOpenAICompatible, Wire: WireOpenAI, Auth: AuthBearer,
		BaseURL: "https://api.groq.com/openai/v1",
		Models:  []string{"llama-3.3-70b-versatile", "llama3-8b-8192"}},
	{ID: "baseten", DisplayName: "Baseten", Kind: ProviderKindOpenAICompatible, Wire: WireOpenAI, Auth: AuthAPIKey,
		BaseURL: "https://inference.baseten.co/v1",
		Models:  []string{"deepseek-ai/DeepSeek-V3-0324"}},
	{ID: "openrouter", DisplayName: "OpenRouter", Kind: ProviderKindOpenAICompatible, Wire: WireOpenAI, Auth: AuthBearer,
		BaseURL: "https://openrouter.ai/api/v1"},
	{ID: "moonshot", DisplayName: "Moonshot", Kind: ProviderKindOpenAICompatible, Wire: WireOpenAI, Auth: AuthBearer,
		BaseURL: "https://api.moonshot.ai/v1"},
	{ID: "ollama", DisplayName: "Ollama", Kind: ProviderKindLocal, Wire: WireOpenAI, Auth: AuthNone,
		BaseURL: "http://localhost:11434/v1",
		Models:  []string{"llama3.2", "qwen2.5", "gemma3"}},
	{ID: "custom-openai", DisplayName: "OpenAI-compatible", Kind: ProviderKindOpenAICompatible, Wire: WireOpenAI, Auth: AuthBearer},
	{ID: "custom-anthropic", DisplayName: "Anthropic-compatible", Kind: ProviderKindAnthropicCompatible, Wire: WireAnthropic, Auth: AuthAPIKey},
}

// ProviderPresets returns the built-in presets in display order.
func ProviderPresets() []ProviderPreset {
	out := make([]ProviderPreset, len(providerPresets))
	copy(out, providerPresets)
	return out
}

// LookupPreset finds a preset by id.
func LookupPreset(id string) (ProviderPreset, bool) {
	for _, preset := range providerPresets {
		if strings.EqualFold(preset.ID, id) {
			return preset, true
		}
	}
	return ProviderPreset{}, false
}

// ResolvedPreset merges the provider's own settings over its preset.
// Providers without a known preset fall back to kind-derived defaults.
func (p Provider) ResolvedPreset() ProviderPreset {
	preset, ok := LookupPreset(p.Preset)
	if !ok {
		preset = ProviderPreset{ID: p.ID, DisplayName: p.ID, Kind: p.Kind, Wire: WireOpenAI, Auth: AuthBearer}
		if p.Kind == ProviderKindAnthropicCompatible {
			preset.Wire = WireAnthropic
			preset.Auth = AuthAPIKey
		}
		if p.Kind == ProviderKindLocal {
			preset.Auth = AuthNone
		}
	}
	if p.Kind != "" {
		preset.Kind = p.Kind
	}
	if p.BaseURL != "" {
		preset.BaseURL = strings.TrimRight(strings.TrimSpace(p.BaseURL), "/")
	}
	if p.Auth != "" {
		preset.Auth = p.Auth
	}
	return preset
}

// DisplayName returns a human label for the provider.
func (p Provider) DisplayName() string {
	if preset, ok := LookupPreset(p.Preset); ok && preset.ID == p.ID {
		return preset.DisplayName
	}
	return p.ID
}
