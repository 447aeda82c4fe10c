// Package ai builds model clients for the providers declared in the config file.
//
// Two wire formats are spoken:
//   - openai: OpenAI, every OpenAI-compatible preset and local runtimes such as Ollama
//   - anthropic: Anthropic and Anthropic-compatible gateways
//
// Clients never retry on their own. Failover between models is the job of the
// fallback manager, so every error is returned promptly as a *domain.ModelCallError.
package ai

import (
	"context"
	"fmt"
	"net/http"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// Factory creates model clients. It shares a single HTTP client across all of them.
type Factory struct {
	httpClient  *http.Client
	credentials ports.CredentialStore
}

// NewFactory creates a factory that resolves provider secrets through credentials.
func NewFactory(credentials ports.CredentialStore) *Factory {
	return &Factory{
		httpClient:  &http.Client{Timeout: domain.DefaultHTTPClientTimeout},
		credentials: credentials,
	}
}

// WithHTTPClient replaces the shared HTTP client.
func (f *Factory) WithHTTPClient(client *http.Client) *Factory {
	f.httpClient = client
	return f
}

// ForRoute builds the client for one entry of the fallback chain.
func (f *Factory) ForRoute(_ context.Context, route domain.Route) (ports.ModelClient, error) {
	ep, err := f.endpointFor(route.Provider, "")
	if err != nil {
		return nil, err
	}
	return f.build(ep, route.Model.Name)
}

// ListerFor builds a model lister. A non-empty secret takes precedence over the
// provider's stored credential so the setup wizard can discover models before saving.
func (f *Factory) ListerFor(_ context.Context, provider domain.Provider, secret string) (ports.ModelLister, error) {
	ep, err := f.endpointFor(provider, secret)
	if err != nil {
		return nil, err
	}
	return f.build(ep, "")
}

type client interface {
	ports.ModelClient
	ports.ModelLister
}

func (f *Factory) build(ep endpoint, model string) (client, error) {
	switch ep.preset.Wire {
	case domain.WireAnthropic:
		return newAnthropicClient(ep, model, f.httpClient), nil
	case domain.WireOpenAI, "":
		return newOpenAIClient(ep, model, f.httpClient), nil
	default:
		return nil, fmt.Errorf("provider %s: unsupported wire format %q", ep.providerID, ep.preset.Wire)
	}
}

// endpoint is everything a client needs to reach one provider.
type endpoint struct {
	providerID string
	preset     domain.ProviderPreset
	secret     string
}

func (f *Factory) endpointFor(provider domain.Provider, secret string) (endpoint, error) {
	preset := provider.ResolvedPreset()
	if secret == "" && provider.CredentialRef != "" && f.credentials != nil {
		resolved, err := f.credentials.Resolve(provider.CredentialRef)
		if err != nil {
			return endpoint{}, &domain.ModelCallError{Kind: domain.FailureAuth, Message: fmt.Sprintf("provider %s: %v", provider.ID, err), Err: err}
		}
		secret = resolved
	}
	if preset.RequiresCredential() && secret == "" {
		return endpoint{}, &domain.ModelCallError{Kind: domain.FailureAuth, Message: fmt.Sprintf("provider %s has no credential configured", provider.ID)}
	}
	if preset.Kind != domain.ProviderKindNative && preset.BaseURL == "" {
		return endpoint{}, fmt.Errorf("provider %s: base_url is required", provider.ID)
	}
	return endpoint{providerID: provider.ID, preset: preset, secret: secret}, nil
}

var _ ports.ClientFactory = (*Factory)(nil)
