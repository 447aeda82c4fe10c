package ai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dexter/internal/domain"
)

type stubCredentials struct {
	secrets map[string]string
}

func (s stubCredentials) Resolve(ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	secret, ok := s.secrets[ref]
	if !ok {
		return "", errors.New("no secret stored for " + ref)
	}
	return secret, nil
}

func (stubCredentials) Ref(providerID string) string             { return "keyring:" + providerID }
func (stubCredentials) Put(providerID, _ string) (string, error) { return "keyring:" + providerID, nil }
func (stubCredentials) Restore(string, string, bool) error       { return nil }
func (stubCredentials) Lookup(string) (string, bool, error)      { return "", false, nil }

func openAIRoute(baseURL string) domain.Route {
	return domain.Route{
		Provider: domain.Provider{ID: "proxy", Kind: domain.ProviderKindOpenAICompatible, Preset: "custom-openai",
			Enabled: true, CredentialRef: "keyring:proxy", BaseURL: baseURL},
		Model: domain.Model{Provider: "proxy", Name: "small-model", Enabled: true},
	}
}

func anthropicRoute(baseURL string) domain.Route {
	return domain.Route{
		Provider: domain.Provider{ID: "gateway", Kind: domain.ProviderKindAnthropicCompatible, Preset: "custom-anthropic",
			Enabled: true, CredentialRef: "keyring:gateway", BaseURL: baseURL},
		Model: domain.Model{Provider: "gateway", Name: "claude-test", Enabled: true},
	}
}

func newTestFactory() *Factory {
	return NewFactory(stubCredentials{secrets: map[string]string{
		"keyring:proxy":   "sk-proxy",
		"keyring:gateway": "gw-secret",
	}})
}

func TestOpenAIClientComplete(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-proxy", r.Header.Get("Authorization"))
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"small-model",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"  {\"intent\":\"route\"}  "}}]}`)
	}))
	defer server.Close()

	client, err := newTestFactory().ForRoute(context.Background(), openAIRoute(server.URL+"/v1"))
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), domain.ModelRequest{System: "sys", User: "rename photo1", MaxTokens: 64})
	require.NoError(t, err)
	assert.Equal(t, `{"intent":"route"}`, text)
	assert.Equal(t, "small-model", body["model"])
	messages, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, messages, 2)
}

func TestAnthropicClientComplete(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "gw-secret", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-test",
			"content":[{"type":"text","text":"hello "},{"type":"text","text":"there"}],
			"stop_reason":"end_turn","usage":{"input_tokens":3,"output_tokens":2}}`)
	}))
	defer server.Close()

	client, err := newTestFactory().ForRoute(context.Background(), anthropicRoute(server.URL))
	require.NoError(t, err)

	text, err := client.Complete(context.Background(), domain.ModelRequest{System: "sys", User: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hello there", text)
}

func TestClientErrorsAreClassified(t *testing.T) {
	cases := []struct {
		status int
		kind   domain.FailureKind
	}{
		{http.StatusUnauthorized, domain.FailureAuth},
		{http.StatusForbidden, domain.FailureAuth},
		{http.StatusTooManyRequests, domain.FailureRateLimit},
		{http.StatusBadGateway, domain.FailureTransport},
		{http.StatusNotFound, domain.FailureOther},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(tc.status)
			_, _ = io.WriteString(w, `{"error":{"message":"nope","type":"error"}}`)
		}))

		for name, route := range map[string]domain.Route{
			"openai":    openAIRoute(server.URL + "/v1"),
			"anthropic": anthropicRoute(server.URL),
		} {
			client, err := newTestFactory().ForRoute(context.Background(), route)
			require.NoError(t, err)
			_, err = client.Complete(context.Background(), domain.ModelRequest{User: "hi"})
			var callErr *domain.ModelCallError
			require.ErrorAs(t, err, &callErr, "%s %d", name, tc.status)
			assert.Equal(t, tc.kind, callErr.Kind, "%s %d", name, tc.status)
			assert.Equal(t, tc.status, callErr.StatusCode)
		}
		server.Close()
	}
}

func TestClientCancellationIsClassified(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client, err := newTestFactory().ForRoute(context.Background(), openAIRoute(server.URL+"/v1"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Complete(ctx, domain.ModelRequest{User: "hi"})
	var callErr *domain.ModelCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, domain.FailureCancelled, callErr.Kind)
}

func TestForRouteRequiresCredential(t *testing.T) {
	route := openAIRoute("http://127.0.0.1:1/v1")
	route.Provider.CredentialRef = ""

	_, err := newTestFactory().ForRoute(context.Background(), route)
	var callErr *domain.ModelCallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, domain.FailureAuth, callErr.Kind)

	route.Provider.CredentialRef = "keyring:missing"
	_, err = newTestFactory().ForRoute(context.Background(), route)
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, domain.FailureAuth, callErr.Kind)
}

func TestForRouteLocalNeedsNoCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"object":"list","data":[{"id":"qwen2.5","object":"model","created":1,"owned_by":"library"},
			{"id":"llama3.2","object":"model","created":1,"owned_by":"library"}]}`)
	}))
	defer server.Close()

	provider := domain.Provider{ID: "ollama", Kind: domain.ProviderKindLocal, Preset: "ollama", Enabled: true, BaseURL: server.URL + "/v1"}
	lister, err := newTestFactory().ListerFor(context.Background(), provider, "")
	require.NoError(t, err)

	names, err := lister.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"llama3.2", "qwen2.5"}, names)
}

func TestListerForPrefersExplicitSecret(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		assert.Equal(t, "typed-in", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"data":[{"id":"claude-b","type":"model","display_name":"B","created_at":"2025-01-01T00:00:00Z"},
			{"id":"claude-a","type":"model","display_name":"A","created_at":"2025-01-01T00:00:00Z"}],
			"has_more":false,"first_id":"claude-b","last_id":"claude-a"}`)
	}))
	defer server.Close()

	lister, err := newTestFactory().ListerFor(context.Background(), anthropicRoute(server.URL).Provider, "typed-in")
	require.NoError(t, err)

	names, err := lister.ListModels(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"claude-a", "claude-b"}, names)
}

func TestCompatibleProviderRequiresBaseURL(t *testing.T) {
	route := openAIRoute("")
	_, err := newTestFactory().ForRoute(context.Background(), route)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}
