// Package setupui renders the setup wizard as a full-screen terminal view.
// All decisions live in setup.Wizard; this package only maps keys to wizard
// operations and draws its state.
package setupui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/doeshing/dexter/internal/application/setup"
	"github.com/doeshing/dexter/internal/domain"
)

type (
	discoveredMsg struct{}
	savedMsg      struct{ err error }
)

// Model drives one wizard session.
type Model struct {
	ctx    context.Context
	wizard *setup.Wizard

	cursor  int
	focus   int // 0 = secret, 1 = base URL
	secret  textinput.Model
	baseURL textinput.Model
	spinner spinner.Model

	// busy is the label of a background wizard call. The wizard is not
	// touched while it is set.
	busy     string
	err      error
	quitting bool

	width  int
	height int
}

// New creates a model over w.
func New(ctx context.Context, w *setup.Wizard) Model {
	secret := textinput.New()
	secret.EchoMode = textinput.EchoPassword
	secret.EchoCharacter = '•'
	secret.CharLimit = 512

	baseURL := textinput.New()
	baseURL.CharLimit = 512

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = selectedStyle

	return Model{
		ctx:     ctx,
		wizard:  w,
		secret:  secret,
		baseURL: baseURL,
		spinner: spin,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case discoveredMsg:
		m.busy = ""
		return m, nil

	case savedMsg:
		m.busy = ""
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, tea.Quit

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}
		if m.busy != "" {
			return m, nil
		}
		if msg.String() == "esc" {
			return m.escape()
		}
	}

	if m.busy != "" {
		return m, nil
	}

	switch m.wizard.State().Step {
	case domain.StepProvidersToggle:
		return m.updateProviders(msg)
	case domain.StepProviderConfig:
		return m.updateProviderConfig(msg)
	case domain.StepModelsToggle:
		return m.updateModels(msg)
	case domain.StepModelsConfirmFallback:
		return m.updateFallback(msg)
	}
	return m, tea.Quit
}

func (m Model) escape() (tea.Model, tea.Cmd) {
	m.wizard.Escape()
	m.err = nil
	m.cursor = 0
	m.secret.Blur()
	m.baseURL.Blur()
	if m.wizard.Done() {
		m.quitting = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return dimStyle.Render("Setup cancelled.") + "\n"
	}
	if m.busy != "" {
		return m.renderProgress(m.wizardStepWhileBusy()) + m.spinner.View() + " " + m.busy + "\n"
	}

	state := m.wizard.State()
	var b strings.Builder
	b.WriteString(m.renderProgress(state.Step))

	switch state.Step {
	case domain.StepProvidersToggle:
		b.WriteString(m.viewProviders(state))
	case domain.StepProviderConfig:
		b.WriteString(m.viewProviderConfig())
	case domain.StepModelsToggle:
		b.WriteString(m.viewModels(state))
	case domain.StepModelsConfirmFallback:
		b.WriteString(m.viewFallback())
	case domain.StepSaved:
		b.WriteString(successStyle.Render("Configuration saved.") + "\n")
	}

	if m.err != nil {
		b.WriteString(errorStyle.Render("! "+m.err.Error()) + "\n")
	}
	return b.String()
}

// wizardStepWhileBusy names the step shown under the spinner without
// reading wizard state.
func (m Model) wizardStepWhileBusy() domain.WizardStep {
	if strings.HasPrefix(m.busy, "Saving") {
		return domain.StepModelsConfirmFallback
	}
	return domain.StepModelsToggle
}

var stepTitles = []struct {
	step  domain.WizardStep
	title string
}{
	{domain.StepProvidersToggle, "Providers"},
	{domain.StepProviderConfig, "Credentials"},
	{domain.StepModelsToggle, "Models"},
	{domain.StepModelsConfirmFallback, "Fallback order"},
}

func (m Model) renderProgress(current domain.WizardStep) string {
	passed := true
	var progress strings.Builder
	for i, entry := range stepTitles {
		switch {
		case entry.step == current:
			progress.WriteString(selectedStyle.Render("● " + entry.title))
			passed = false
		case passed:
			progress.WriteString(successStyle.Render("✓ " + entry.title))
		default:
			progress.WriteString(dimStyle.Render("○ " + entry.title))
		}
		if i < len(stepTitles)-1 {
			progress.WriteString(dimStyle.Render(" → "))
		}
	}
	return progress.String() + "\n\n"
}

// Result is what a finished session produced.
type Result struct {
	Saved bool
	Chain []domain.Model
}

// Run shows the wizard until it is saved or abandoned.
func Run(ctx context.Context, w *setup.Wizard) (Result, error) {
	p := tea.NewProgram(New(ctx, w), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return Result{}, err
	}
	if w.State().Step != domain.StepSaved {
		return Result{}, nil
	}
	return Result{Saved: true, Chain: w.Chain()}, nil
}
