package setupui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/doeshing/dexter/internal/domain"
)

// Providers step

func (m Model) updateProviders(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	count := len(m.wizard.State().Providers)
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < count-1 {
			m.cursor++
		}
	case " ", "x":
		m.err = m.wizard.ToggleProvider(m.cursor)
	case "enter":
		if m.err = m.wizard.Next(); m.err != nil {
			return m, nil
		}
		return m.prepareProviderInputs()
	}
	return m, nil
}

func (m Model) viewProviders(state domain.WizardState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Which model providers do you want to use?") + "\n")
	for i, draft := range state.Providers {
		check := "[ ]"
		if draft.Provider.Enabled {
			check = "[x]"
		}
		line := fmt.Sprintf("%s %-22s %s", check, draft.Provider.DisplayName(), dimStyle.Render(string(draft.Preset.Kind)))
		if i == m.cursor {
			b.WriteString(selectedStyle.Render("> "+line) + "\n")
		} else {
			b.WriteString(normalStyle.Render("  "+line) + "\n")
		}
	}
	b.WriteString(helpStyle.Render("↑/↓ move • space toggle • enter continue • esc cancel"))
	return b.String() + "\n"
}

// Provider configuration step

// prepareProviderInputs resets the inputs for the provider now being
// configured, or moves on when the wizard has left ProviderConfig.
func (m Model) prepareProviderInputs() (tea.Model, tea.Cmd) {
	draft, ok := m.wizard.Current()
	if !ok {
		return m.enterModels()
	}

	m.secret.SetValue("")
	m.secret.Placeholder = "API key"
	if draft.Provider.CredentialRef != "" {
		m.secret.Placeholder = "leave empty to keep the stored key"
	}
	m.baseURL.SetValue(draft.Provider.BaseURL)
	m.baseURL.Placeholder = draft.Preset.BaseURL
	if m.baseURL.Placeholder == "" {
		m.baseURL.Placeholder = "https://host/v1"
	}

	m.secret.Blur()
	m.baseURL.Blur()
	m.focus = 0
	if !draft.Preset.RequiresCredential() {
		m.focus = 1
	}
	if m.focus == 1 && showsBaseURL(draft) {
		return m, m.baseURL.Focus()
	}
	return m, m.secret.Focus()
}

func showsBaseURL(draft domain.ProviderDraft) bool {
	return draft.Preset.Kind != domain.ProviderKindNative
}

func (m Model) updateProviderConfig(msg tea.Msg) (tea.Model, tea.Cmd) {
	draft, _ := m.wizard.Current()
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "shift+tab", "up", "down":
			if showsBaseURL(draft) && draft.Preset.RequiresCredential() {
				return m.switchFocus()
			}
			return m, nil
		case "enter":
			return m.submitProvider(draft)
		}
	}

	var cmd tea.Cmd
	if m.focus == 0 {
		m.secret, cmd = m.secret.Update(msg)
	} else {
		m.baseURL, cmd = m.baseURL.Update(msg)
	}
	return m, cmd
}

func (m Model) switchFocus() (tea.Model, tea.Cmd) {
	if m.focus == 0 {
		m.focus = 1
		m.secret.Blur()
		return m, m.baseURL.Focus()
	}
	m.focus = 0
	m.baseURL.Blur()
	return m, m.secret.Focus()
}

func (m Model) submitProvider(draft domain.ProviderDraft) (tea.Model, tea.Cmd) {
	if value := strings.TrimSpace(m.secret.Value()); value != "" {
		if m.err = m.wizard.SetSecret(value); m.err != nil {
			return m, nil
		}
	}
	if showsBaseURL(draft) {
		if value := strings.TrimSpace(m.baseURL.Value()); value != draft.Provider.BaseURL {
			if m.err = m.wizard.SetBaseURL(value); m.err != nil {
				return m, nil
			}
		}
	}
	if m.err = m.wizard.Next(); m.err != nil {
		return m, nil
	}
	return m.prepareProviderInputs()
}

func (m Model) viewProviderConfig() string {
	draft, ok := m.wizard.Current()
	if !ok {
		return ""
	}
	state := m.wizard.State()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Configure %s (%d of %d)",
		draft.Provider.DisplayName(), state.ConfigPos+1, len(state.Configuring))) + "\n")

	var fields []string
	if draft.Preset.RequiresCredential() {
		fields = append(fields, "API key\n"+m.secret.View())
	} else {
		fields = append(fields, dimStyle.Render("No API key needed."))
	}
	if showsBaseURL(draft) {
		label := "Base URL"
		if !draft.Preset.RequiresBaseURL() {
			label += dimStyle.Render(" (optional)")
		}
		fields = append(fields, label+"\n"+m.baseURL.View())
	}
	b.WriteString(boxStyle.Render(strings.Join(fields, "\n\n")) + "\n")
	b.WriteString(helpStyle.Render("tab switch field • enter continue • esc start over"))
	return b.String() + "\n"
}

// Models step

func (m Model) enterModels() (tea.Model, tea.Cmd) {
	m.cursor = 0
	m.secret.Blur()
	m.baseURL.Blur()
	if m.wizard.Clients == nil {
		return m, nil
	}
	m.busy = "Fetching model lists…"
	ctx, w := m.ctx, m.wizard
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		w.DiscoverModels(ctx)
		return discoveredMsg{}
	})
}

func (m Model) updateModels(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	// the last row is "select all"
	rows := len(m.wizard.State().Models) + 1
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < rows-1 {
			m.cursor++
		}
	case " ", "x":
		m.err = m.wizard.ToggleModel(m.cursor)
	case "a":
		m.err = m.wizard.ToggleModel(rows - 1)
	case "enter":
		if m.err = m.wizard.Next(); m.err == nil {
			m.cursor = 0
		}
	}
	return m, nil
}

func (m Model) viewModels(state domain.WizardState) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Which models may dexter use?") + "\n")

	all := len(state.Models) > 0
	for i, option := range state.Models {
		all = all && option.Selected
		check := "[ ]"
		if option.Selected {
			check = "[x]"
		}
		b.WriteString(m.row(i, fmt.Sprintf("%s %s", check, option.Ref)))
	}
	label := "Select all"
	if all {
		label = "Clear all"
	}
	b.WriteString(m.row(len(state.Models), label))

	b.WriteString(helpStyle.Render("↑/↓ move • space toggle • a all • enter continue • esc start over"))
	return b.String() + "\n"
}

// Fallback order step

func (m Model) updateFallback(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	count := len(m.wizard.State().Order)
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < count-1 {
			m.cursor++
		}
	case "shift+up", "K":
		if m.err = m.wizard.MoveUp(m.cursor); m.err == nil && m.cursor > 0 {
			m.cursor--
		}
	case "shift+down", "J":
		if m.err = m.wizard.MoveDown(m.cursor); m.err == nil && m.cursor < count-1 {
			m.cursor++
		}
	case "enter":
		m.err = nil
		m.busy = "Saving configuration…"
		ctx, w := m.ctx, m.wizard
		return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
			return savedMsg{err: w.Save(ctx)}
		})
	}
	return m, nil
}

func (m Model) viewFallback() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Fallback order") + "\n")
	b.WriteString(dimStyle.Render("Models are tried top to bottom until one answers.") + "\n\n")
	for i, model := range m.wizard.Chain() {
		b.WriteString(m.row(i, fmt.Sprintf("%d. %s", model.Rank, model.Key())))
	}
	b.WriteString(helpStyle.Render("↑/↓ move • shift+↑/↓ or K/J reorder • enter save • esc start over"))
	return b.String() + "\n"
}

func (m Model) row(i int, text string) string {
	if i == m.cursor {
		return selectedStyle.Render("> "+text) + "\n"
	}
	return normalStyle.Render("  "+text) + "\n"
}
