package setup

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

type memoryStore struct {
	cfg   domain.Config
	saves int
	fail  error
}

func (s *memoryStore) Load(context.Context) (domain.Config, error) { return s.cfg.Clone(), nil }
func (s *memoryStore) Path() string                                { return "/tmp/config.yaml" }

func (s *memoryStore) Save(_ context.Context, cfg domain.Config) error {
	if s.fail != nil {
		return s.fail
	}
	s.saves++
	s.cfg = cfg.Clone()
	return nil
}

type memoryCredentials struct {
	secrets map[string]string
}

func newMemoryCredentials() *memoryCredentials {
	return &memoryCredentials{secrets: map[string]string{}}
}

func (c *memoryCredentials) Ref(providerID string) string { return "keyring:" + providerID }

func (c *memoryCredentials) Resolve(ref string) (string, error) {
	return c.secrets[ref], nil
}

func (c *memoryCredentials) Put(providerID, secret string) (string, error) {
	c.secrets[c.Ref(providerID)] = secret
	return c.Ref(providerID), nil
}

func (c *memoryCredentials) Lookup(ref string) (string, bool, error) {
	secret, ok := c.secrets[ref]
	return secret, ok, nil
}

func (c *memoryCredentials) Restore(ref, previous string, existed bool) error {
	if existed {
		c.secrets[ref] = previous
	} else {
		delete(c.secrets, ref)
	}
	return nil
}

type listerFunc func(context.Context) ([]string, error)

func (f listerFunc) ListModels(ctx context.Context) ([]string, error) { return f(ctx) }

type stubFactory struct {
	models map[string][]string
}

func (f stubFactory) ForRoute(context.Context, domain.Route) (ports.ModelClient, error) {
	return nil, errors.New("not used")
}

func (f stubFactory) ListerFor(_ context.Context, provider domain.Provider, _ string) (ports.ModelLister, error) {
	names, ok := f.models[provider.ID]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return listerFunc(func(context.Context) ([]string, error) { return names, nil }), nil
}

func newWizard(t *testing.T, store *memoryStore, creds *memoryCredentials) *Wizard {
	t.Helper()
	w, err := NewWizard(context.Background(), store, creds, nil, nil)
	require.NoError(t, err)
	return w
}

func providerIndex(t *testing.T, w *Wizard, id string) int {
	t.Helper()
	for i, draft := range w.State().Providers {
		if draft.Provider.ID == id {
			return i
		}
	}
	t.Fatalf("provider %s not offered", id)
	return -1
}

func names(order []domain.ModelRef) []string {
	out := make([]string, 0, len(order))
	for _, ref := range order {
		out = append(out, ref.Name)
	}
	return out
}

func TestWizardFullFlowSavesContiguousRanks(t *testing.T) {
	store := &memoryStore{}
	w := newWizard(t, store, newMemoryCredentials())

	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "ollama")))
	require.NoError(t, w.Next())
	assert.Equal(t, domain.StepProviderConfig, w.State().Step)
	current, ok := w.Current()
	require.True(t, ok)
	assert.Equal(t, "ollama", current.Provider.ID)

	require.NoError(t, w.Next())
	state := w.State()
	require.Equal(t, domain.StepModelsToggle, state.Step)
	require.Len(t, state.Models, 3)
	for _, option := range state.Models {
		assert.False(t, option.Selected)
	}

	require.NoError(t, w.ToggleModel(len(state.Models)))
	require.NoError(t, w.Next())
	require.Equal(t, domain.StepModelsConfirmFallback, w.State().Step)
	assert.Equal(t, []string{"llama3.2", "qwen2.5", "gemma3"}, names(w.State().Order))

	// rank 3 to position 1
	require.NoError(t, w.Move(2, 0))
	chain := w.Chain()
	require.Len(t, chain, 3)
	assert.Equal(t, "gemma3", chain[0].Name)
	for i, model := range chain {
		assert.Equal(t, i+1, model.Rank)
	}

	require.NoError(t, w.Save(context.Background()))
	assert.Equal(t, domain.StepSaved, w.State().Step)
	assert.True(t, w.Done())
	assert.Equal(t, 1, store.saves)

	saved := store.cfg.EnabledModels()
	require.Len(t, saved, 3)
	assert.Equal(t, []string{"gemma3", "llama3.2", "qwen2.5"}, []string{saved[0].Name, saved[1].Name, saved[2].Name})
	for i, model := range saved {
		assert.Equal(t, i+1, model.Rank)
	}
	provider, ok := store.cfg.ProviderByID("ollama")
	require.True(t, ok)
	assert.True(t, provider.Enabled)
	assert.Empty(t, provider.CredentialRef)
	assert.NoError(t, store.cfg.ValidateConsistency())
}

func TestWizardRequiresAProvider(t *testing.T) {
	w := newWizard(t, &memoryStore{}, newMemoryCredentials())
	require.Error(t, w.Next())
	assert.Equal(t, domain.StepProvidersToggle, w.State().Step)
}

func TestWizardRequiresCredentialAndBaseURL(t *testing.T) {
	creds := newMemoryCredentials()
	store := &memoryStore{}
	w := newWizard(t, store, creds)

	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "openai")))
	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "custom-openai")))
	require.NoError(t, w.Next())

	err := w.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key")
	require.NoError(t, w.SetSecret("  sk-openai  "))
	require.NoError(t, w.Next())

	current, _ := w.Current()
	assert.Equal(t, "custom-openai", current.Provider.ID)
	require.NoError(t, w.SetSecret("sk-proxy"))
	err = w.Next()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base URL")
	require.NoError(t, w.SetBaseURL("http://proxy.local/v1/"))
	require.NoError(t, w.Next())
	assert.Equal(t, domain.StepModelsToggle, w.State().Step)

	require.NoError(t, w.ToggleModel(0))
	require.NoError(t, w.Next())
	require.NoError(t, w.Save(context.Background()))

	assert.Equal(t, "sk-openai", creds.secrets["keyring:openai"])
	assert.Equal(t, "sk-proxy", creds.secrets["keyring:custom-openai"])
	proxy, ok := store.cfg.ProviderByID("custom-openai")
	require.True(t, ok)
	assert.Equal(t, "http://proxy.local/v1", proxy.BaseURL)
	assert.Equal(t, "keyring:custom-openai", proxy.CredentialRef)
	for _, draft := range w.State().Providers {
		assert.Empty(t, draft.Secret)
	}
}

func TestWizardEscapeReturnsToFirstStep(t *testing.T) {
	w := newWizard(t, &memoryStore{}, newMemoryCredentials())
	openai := providerIndex(t, w, "openai")
	ollama := providerIndex(t, w, "ollama")

	require.NoError(t, w.ToggleProvider(openai))
	require.NoError(t, w.ToggleProvider(ollama))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetSecret("sk-typed"))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	require.Equal(t, domain.StepModelsToggle, w.State().Step)
	require.NoError(t, w.ToggleModel(0))

	w.Escape()
	state := w.State()
	assert.Equal(t, domain.StepProvidersToggle, state.Step)
	assert.True(t, state.Providers[openai].Provider.Enabled)
	assert.True(t, state.Providers[ollama].Provider.Enabled)
	assert.Empty(t, state.Providers[openai].Secret)
	assert.False(t, state.Providers[openai].SecretChanged)
	assert.Empty(t, state.Models)
	assert.Empty(t, state.Order)

	// the discarded secret must be entered again
	require.NoError(t, w.Next())
	assert.Error(t, w.Next())

	w.Escape()
	w.Escape()
	assert.Equal(t, domain.StepAborted, w.State().Step)
	assert.True(t, w.Done())
}

func TestWizardAbortLeavesConfigUntouched(t *testing.T) {
	store := &memoryStore{}
	w := newWizard(t, store, newMemoryCredentials())
	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "ollama")))
	w.Escape()
	assert.Equal(t, domain.StepAborted, w.State().Step)
	assert.Zero(t, store.saves)
	assert.ErrorIs(t, w.Save(context.Background()), ErrWrongStep)
}

func TestWizardSelectAll(t *testing.T) {
	w := newWizard(t, &memoryStore{}, newMemoryCredentials())
	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "ollama")))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())

	n := len(w.State().Models)
	require.NoError(t, w.ToggleModel(1))
	require.NoError(t, w.ToggleModel(n))
	for _, option := range w.State().Models {
		assert.True(t, option.Selected)
	}

	require.NoError(t, w.ToggleModel(n))
	for _, option := range w.State().Models {
		assert.False(t, option.Selected)
	}
	assert.Error(t, w.Next())
	assert.Error(t, w.ToggleModel(n+1))
}

func TestWizardKeepsSavedOrderAndAppendsNewModels(t *testing.T) {
	store := &memoryStore{cfg: domain.Config{
		Providers: []domain.Provider{
			{ID: "openai", Kind: domain.ProviderKindNative, Preset: "openai", Enabled: true, CredentialRef: "keyring:openai"},
		},
		Models: []domain.Model{
			{Provider: "openai", Name: "gpt-4o-mini", Enabled: true, Rank: 2},
			{Provider: "openai", Name: "gpt-4o", Enabled: true, Rank: 1},
		},
	}}
	creds := newMemoryCredentials()
	creds.secrets["keyring:openai"] = "old"
	w := newWizard(t, store, creds)

	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "ollama")))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())

	state := w.State()
	require.Equal(t, domain.StepModelsToggle, state.Step)
	var selected []string
	for i, option := range state.Models {
		if option.Selected {
			selected = append(selected, option.Ref.Name)
		}
		if option.Ref == (domain.ModelRef{Provider: "ollama", Name: "qwen2.5"}) {
			require.NoError(t, w.ToggleModel(i))
		}
	}
	assert.ElementsMatch(t, []string{"gpt-4o", "gpt-4o-mini"}, selected)

	require.NoError(t, w.Next())
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini", "qwen2.5"}, names(w.State().Order))
	require.NoError(t, w.MoveDown(0))
	require.NoError(t, w.MoveUp(2))
	assert.Equal(t, []string{"gpt-4o-mini", "qwen2.5", "gpt-4o"}, names(w.State().Order))

	require.NoError(t, w.Save(context.Background()))
	assert.Equal(t, "old", creds.secrets["keyring:openai"])
	chain := store.cfg.FallbackChain()
	require.Len(t, chain, 3)
	assert.Equal(t, "gpt-4o-mini", chain[0].Model.Name)
	assert.Equal(t, "qwen2.5", chain[1].Model.Name)
	assert.Equal(t, "gpt-4o", chain[2].Model.Name)
}

func TestWizardSaveFailureRestoresSecrets(t *testing.T) {
	previous := domain.Config{
		Providers: []domain.Provider{
			{ID: "openai", Kind: domain.ProviderKindNative, Preset: "openai", Enabled: true, CredentialRef: "keyring:openai"},
		},
		Models: []domain.Model{{Provider: "openai", Name: "gpt-4o", Enabled: true, Rank: 1}},
	}
	store := &memoryStore{cfg: previous, fail: errors.New("disk full")}
	creds := newMemoryCredentials()
	creds.secrets["keyring:openai"] = "old"
	w := newWizard(t, store, creds)

	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "groq")))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetSecret("new-openai"))
	require.NoError(t, w.Next())
	require.NoError(t, w.SetSecret("new-groq"))
	require.NoError(t, w.Next())
	require.NoError(t, w.Next())

	err := w.Save(context.Background())
	require.ErrorIs(t, err, domain.ErrConfigPersist)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, "old", creds.secrets["keyring:openai"])
	_, exists := creds.secrets["keyring:groq"]
	assert.False(t, exists)
	assert.Equal(t, previous, store.cfg)
	assert.Equal(t, domain.StepModelsConfirmFallback, w.State().Step)
}

func TestWizardDiscoverModelsFallsBackToPreset(t *testing.T) {
	store := &memoryStore{}
	clients := stubFactory{models: map[string][]string{"ollama": {"mistral", "phi4"}}}
	w, err := NewWizard(context.Background(), store, newMemoryCredentials(), clients, nil)
	require.NoError(t, err)

	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "ollama")))
	require.NoError(t, w.ToggleProvider(providerIndex(t, w, "gemini")))
	w.DiscoverModels(context.Background())

	state := w.State()
	assert.Equal(t, []string{"mistral", "phi4"}, state.Providers[providerIndex(t, w, "ollama")].AvailableModels)
	assert.Equal(t, []string{"gemini-2.5-flash-lite", "gemini-2.5-flash", "gemini-2.5-pro"},
		state.Providers[providerIndex(t, w, "gemini")].AvailableModels)
}

func TestWizardOperationsCheckStep(t *testing.T) {
	w := newWizard(t, &memoryStore{}, newMemoryCredentials())
	assert.ErrorIs(t, w.ToggleModel(0), ErrWrongStep)
	assert.ErrorIs(t, w.Move(0, 1), ErrWrongStep)
	assert.ErrorIs(t, w.SetSecret("x"), ErrWrongStep)
	assert.Error(t, w.ToggleProvider(-1))
}

func TestNewWizardRequiresDependencies(t *testing.T) {
	_, err := NewWizard(context.Background(), nil, nil, nil, nil)
	assert.Error(t, err)
}
