package domain

// WizardStep is a node of the setup state machine.
type WizardStep string

const (
	StepProvidersToggle       WizardStep = "providers_toggle"
	StepProviderConfig        WizardStep = "provider_config"
	StepModelsToggle          WizardStep = "models_toggle"
	StepModelsConfirmFallback WizardStep = "models_confirm_fallback"
	StepSaved                 WizardStep = "saved"
	StepAborted               WizardStep = "aborted"
)

// ProviderDraft is the in-progress edit of one provider.
type ProviderDraft struct {
	Provider Provider
	Preset   ProviderPreset
	// Secret is held only until Save hands it to the credential store.
	Secret          string
	SecretChanged   bool
	AvailableModels []string
}

// ModelOption is one row of the models toggle list.
type ModelOption struct {
	Ref      ModelRef
	Selected bool
}

// WizardState is created on entering setup and committed only on Save.
type WizardState struct {
	Step      WizardStep
	Providers []ProviderDraft
	// Configuring indexes Providers for the ProviderConfig step.
	Configuring []int
	ConfigPos   int
	Models      []ModelOption
	Order       []ModelRef
}

// Clone deep-copies the state for callers that render it.
func (s WizardState) Clone() WizardState {
	out := s
	out.Providers = make([]ProviderDraft, len(s.Providers))
	for i, draft := range s.Providers {
		draft.AvailableModels = append([]string(nil), draft.AvailableModels...)
		draft.Preset.Models = append([]string(nil), draft.Preset.Models...)
		out.Providers[i] = draft
	}
	out.Configuring = append([]int(nil), s.Configuring...)
	out.Models = append([]ModelOption(nil), s.Models...)
	out.Order = append([]ModelRef(nil), s.Order...)
	return out
}
