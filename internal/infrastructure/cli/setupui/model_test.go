package setupui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dexter/internal/application/setup"
	"github.com/doeshing/dexter/internal/domain"
)

type memoryStore struct {
	cfg   domain.Config
	saves int
}

func (s *memoryStore) Load(context.Context) (domain.Config, error) { return s.cfg.Clone(), nil }
func (s *memoryStore) Path() string                                { return "/tmp/dexter/config.yaml" }

func (s *memoryStore) Save(_ context.Context, cfg domain.Config) error {
	s.cfg = cfg.Clone()
	s.saves++
	return nil
}

type memoryCredentials struct {
	secrets map[string]string
}

func (c *memoryCredentials) Ref(id string) string { return "keyring:" + id }

func (c *memoryCredentials) Resolve(ref string) (string, error) { return c.secrets[ref], nil }

func (c *memoryCredentials) Put(id, secret string) (string, error) {
	c.secrets["keyring:"+id] = secret
	return "keyring:" + id, nil
}

func (c *memoryCredentials) Restore(ref, previous string, existed bool) error {
	if existed {
		c.secrets[ref] = previous
	} else {
		delete(c.secrets, ref)
	}
	return nil
}

func (c *memoryCredentials) Lookup(ref string) (string, bool, error) {
	secret, ok := c.secrets[ref]
	return secret, ok, nil
}

func newModel(t *testing.T) (Model, *memoryStore, *memoryCredentials) {
	t.Helper()
	store := &memoryStore{cfg: domain.Config{ConfigFormatVersion: "1"}}
	creds := &memoryCredentials{secrets: map[string]string{}}
	w, err := setup.NewWizard(context.Background(), store, creds, nil, nil)
	require.NoError(t, err)
	return New(context.Background(), w), store, creds
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press feeds msg to m. When the model starts a background wizard call the
// call is run inline and its result fed back.
func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model := next.(Model)
	if model.busy == "" {
		return model, cmd
	}
	for _, result := range collect(cmd) {
		switch result.(type) {
		case savedMsg, discoveredMsg:
			next, cmd = model.Update(result)
			model = next.(Model)
		}
	}
	return model, cmd
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func cursorAt(t *testing.T, m Model, providerID string) Model {
	t.Helper()
	for i, draft := range m.wizard.State().Providers {
		if draft.Provider.ID == providerID {
			m.cursor = i
			return m
		}
	}
	t.Fatalf("provider %s not listed", providerID)
	return m
}

func isQuit(cmd tea.Cmd) bool {
	for _, msg := range collect(cmd) {
		if _, ok := msg.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

func TestSetupFlowSavesChain(t *testing.T) {
	m, store, creds := newModel(t)

	m = cursorAt(t, m, "groq")
	m, _ = press(t, m, key("space"))
	m = cursorAt(t, m, "ollama")
	m, _ = press(t, m, key("space"))
	m, _ = press(t, m, key("enter"))
	require.Equal(t, domain.StepProviderConfig, m.wizard.State().Step)
	assert.Contains(t, m.View(), "Configure Groq")

	// groq needs a key
	m, _ = press(t, m, key("enter"))
	require.Error(t, m.err)
	assert.Contains(t, m.View(), "needs an API key")

	for _, r := range "gsk-test" {
		m, _ = press(t, m, key(string(r)))
	}
	m, _ = press(t, m, key("enter"))
	require.NoError(t, m.err)
	assert.Contains(t, m.View(), "Configure Ollama")

	m, _ = press(t, m, key("enter"))
	require.Equal(t, domain.StepModelsToggle, m.wizard.State().Step)
	assert.Contains(t, m.View(), "Select all")

	m, _ = press(t, m, key("a"))
	assert.Contains(t, m.View(), "Clear all")
	m, _ = press(t, m, key("enter"))
	require.Equal(t, domain.StepModelsConfirmFallback, m.wizard.State().Step)

	first := m.wizard.State().Order[0]
	m, _ = press(t, m, key("J"))
	assert.Equal(t, 1, m.cursor)
	assert.Equal(t, first, m.wizard.State().Order[1])

	m, cmd := press(t, m, key("enter"))
	require.NoError(t, m.err)
	assert.True(t, isQuit(cmd))
	assert.Equal(t, domain.StepSaved, m.wizard.State().Step)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, "gsk-test", creds.secrets["keyring:groq"])
	assert.Len(t, store.cfg.FallbackChain(), len(m.wizard.State().Order))
}

func TestSetupEscapeAborts(t *testing.T) {
	m, store, _ := newModel(t)

	m = cursorAt(t, m, "ollama")
	m, _ = press(t, m, key("space"))
	m, _ = press(t, m, key("enter"))
	require.Equal(t, domain.StepProviderConfig, m.wizard.State().Step)

	m, cmd := press(t, m, key("esc"))
	assert.False(t, isQuit(cmd))
	assert.Equal(t, domain.StepProvidersToggle, m.wizard.State().Step)

	m, cmd = press(t, m, key("esc"))
	assert.True(t, isQuit(cmd))
	assert.Equal(t, domain.StepAborted, m.wizard.State().Step)
	assert.Contains(t, m.View(), "Setup cancelled")
	assert.Zero(t, store.saves)
}

func TestSetupRequiresProvider(t *testing.T) {
	m, _, _ := newModel(t)
	m, _ = press(t, m, key("enter"))
	assert.Equal(t, domain.StepProvidersToggle, m.wizard.State().Step)
	assert.Contains(t, m.View(), "enable at least one provider")
}

func TestBusyModelIgnoresKeys(t *testing.T) {
	m, _, _ := newModel(t)
	m.busy = "Saving configuration…"

	next, _ := m.Update(key("space"))
	m = next.(Model)
	assert.False(t, m.wizard.State().Providers[0].Provider.Enabled)
	assert.Contains(t, m.View(), "Saving configuration")

	next, _ = m.Update(savedMsg{})
	m = next.(Model)
	assert.Empty(t, m.busy)
}
