// Package setup implements the provider and model selection wizard.
//
// The wizard is a small state machine:
//
//	ProvidersToggle -> ProviderConfig -> ModelsToggle -> ModelsConfirmFallback -> Saved
//
// Escape from any step jumps back to ProvidersToggle; Escape from ProvidersToggle
// aborts. Nothing is persisted until Save.
package setup

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// ErrWrongStep is returned when an operation does not belong to the current step.
var ErrWrongStep = errors.New("operation not available at this step")

// forward is the transition table for Next. ProviderConfig loops on itself
// until every enabled provider has been visited.
var forward = map[domain.WizardStep]domain.WizardStep{
	domain.StepProvidersToggle: domain.StepProviderConfig,
	domain.StepProviderConfig:  domain.StepModelsToggle,
	domain.StepModelsToggle:    domain.StepModelsConfirmFallback,
}

// Wizard holds one setup session.
type Wizard struct {
	Store       ports.ConfigStore
	Credentials ports.CredentialStore
	Clients     ports.ClientFactory
	Logger      ports.Logger

	baseline domain.Config
	initial  []domain.ProviderDraft
	state    domain.WizardState
}

// NewWizard starts a session from the currently saved configuration.
func NewWizard(ctx context.Context, store ports.ConfigStore, credentials ports.CredentialStore, clients ports.ClientFactory, logger ports.Logger) (*Wizard, error) {
	if store == nil || credentials == nil {
		return nil, errors.New("setup.Wizard dependencies not satisfied")
	}
	cfg, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	w := &Wizard{Store: store, Credentials: credentials, Clients: clients, Logger: logger, baseline: cfg.Clone()}
	w.initial = draftsFor(w.baseline)
	w.state = domain.WizardState{Step: domain.StepProvidersToggle, Providers: cloneDrafts(w.initial)}
	return w, nil
}

// draftsFor lists every preset, then any custom providers found in cfg.
func draftsFor(cfg domain.Config) []domain.ProviderDraft {
	var drafts []domain.ProviderDraft
	used := make(map[string]bool)
	for _, preset := range domain.ProviderPresets() {
		provider, ok := cfg.ProviderByID(preset.ID)
		if !ok {
			provider = domain.Provider{ID: preset.ID, Kind: preset.Kind, Preset: preset.ID}
		}
		used[provider.ID] = true
		drafts = append(drafts, newDraft(cfg, provider))
	}
	for _, provider := range cfg.Providers {
		if !used[provider.ID] {
			drafts = append(drafts, newDraft(cfg, provider))
		}
	}
	return drafts
}

func newDraft(cfg domain.Config, provider domain.Provider) domain.ProviderDraft {
	preset := provider.ResolvedPreset()
	names := append([]string(nil), preset.Models...)
	for _, model := range cfg.Models {
		if model.Provider == provider.ID && !contains(names, model.Name) {
			names = append(names, model.Name)
		}
	}
	return domain.ProviderDraft{Provider: provider, Preset: preset, AvailableModels: names}
}

// State returns a copy of the session for rendering.
func (w *Wizard) State() domain.WizardState {
	return w.state.Clone()
}

// Current returns the provider being edited in ProviderConfig.
func (w *Wizard) Current() (domain.ProviderDraft, bool) {
	idx, ok := w.currentIndex()
	if !ok {
		return domain.ProviderDraft{}, false
	}
	return w.state.Providers[idx], true
}

func (w *Wizard) currentIndex() (int, bool) {
	s := &w.state
	if s.Step != domain.StepProviderConfig || s.ConfigPos >= len(s.Configuring) {
		return 0, false
	}
	return s.Configuring[s.ConfigPos], true
}

// ToggleProvider flips the enabled flag of the i-th provider.
func (w *Wizard) ToggleProvider(i int) error {
	if err := w.expect(domain.StepProvidersToggle); err != nil {
		return err
	}
	if i < 0 || i >= len(w.state.Providers) {
		return fmt.Errorf("provider index %d out of range", i)
	}
	w.state.Providers[i].Provider.Enabled = !w.state.Providers[i].Provider.Enabled
	return nil
}

// SetSecret records a new credential for the provider being configured.
func (w *Wizard) SetSecret(secret string) error {
	idx, ok := w.currentIndex()
	if !ok {
		return ErrWrongStep
	}
	draft := &w.state.Providers[idx]
	draft.Secret = strings.TrimSpace(secret)
	draft.SecretChanged = draft.Secret != ""
	return nil
}

// SetBaseURL overrides the endpoint of the provider being configured.
func (w *Wizard) SetBaseURL(url string) error {
	idx, ok := w.currentIndex()
	if !ok {
		return ErrWrongStep
	}
	draft := &w.state.Providers[idx]
	draft.Provider.BaseURL = strings.TrimRight(strings.TrimSpace(url), "/")
	draft.Preset = draft.Provider.ResolvedPreset()
	return nil
}

// SetAvailableModels replaces the model names offered for providerID.
func (w *Wizard) SetAvailableModels(providerID string, names []string) {
	for i := range w.state.Providers {
		if w.state.Providers[i].Provider.ID == providerID && len(names) > 0 {
			w.state.Providers[i].AvailableModels = append([]string(nil), names...)
		}
	}
	if w.state.Step == domain.StepModelsToggle {
		w.state.Models = w.modelOptions(w.state.Models)
	}
}

// DiscoverModels asks every enabled provider for its model list in parallel.
// A provider that cannot be listed keeps its preset models.
func (w *Wizard) DiscoverModels(ctx context.Context) {
	if w.Clients == nil {
		return
	}
	type listing struct {
		id    string
		names []string
	}
	var (
		mu      sync.Mutex
		results []listing
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, draft := range w.state.Providers {
		if !draft.Provider.Enabled {
			continue
		}
		g.Go(func() error {
			lister, err := w.Clients.ListerFor(gctx, draft.Provider, draft.Secret)
			if err == nil {
				var names []string
				if names, err = lister.ListModels(gctx); err == nil {
					mu.Lock()
					results = append(results, listing{id: draft.Provider.ID, names: names})
					mu.Unlock()
					return nil
				}
			}
			w.debug("model listing unavailable, using preset models", map[string]interface{}{
				"provider": draft.Provider.ID,
				"error":    err.Error(),
			})
			return nil
		})
	}
	_ = g.Wait()
	for _, result := range results {
		w.SetAvailableModels(result.id, result.names)
	}
}

// Next validates the current step and advances.
func (w *Wizard) Next() error {
	s := &w.state
	switch s.Step {
	case domain.StepProvidersToggle:
		s.Configuring = s.Configuring[:0]
		for i, draft := range s.Providers {
			if draft.Provider.Enabled {
				s.Configuring = append(s.Configuring, i)
			}
		}
		if len(s.Configuring) == 0 {
			return errors.New("enable at least one provider")
		}
		s.ConfigPos = 0
	case domain.StepProviderConfig:
		idx, _ := w.currentIndex()
		if err := w.checkProvider(s.Providers[idx]); err != nil {
			return err
		}
		s.ConfigPos++
		if s.ConfigPos < len(s.Configuring) {
			return nil
		}
		s.Models = w.modelOptions(nil)
	case domain.StepModelsToggle:
		if len(w.selected()) == 0 {
			return errors.New("select at least one model")
		}
		s.Order = w.fallbackOrder()
	default:
		return ErrWrongStep
	}
	s.Step = forward[s.Step]
	return nil
}

func (w *Wizard) checkProvider(draft domain.ProviderDraft) error {
	if draft.Preset.RequiresCredential() && draft.Secret == "" && draft.Provider.CredentialRef == "" {
		return fmt.Errorf("%s needs an API key", draft.Provider.DisplayName())
	}
	if draft.Preset.RequiresBaseURL() && draft.Provider.BaseURL == "" {
		return fmt.Errorf("%s needs a base URL", draft.Provider.DisplayName())
	}
	return nil
}

// Escape jumps back to ProvidersToggle, keeping the provider toggles and
// discarding every later edit. At ProvidersToggle it aborts the session.
func (w *Wizard) Escape() {
	if w.state.Step == domain.StepProvidersToggle {
		w.state.Step = domain.StepAborted
		return
	}
	if w.state.Step == domain.StepSaved || w.state.Step == domain.StepAborted {
		return
	}
	drafts := cloneDrafts(w.initial)
	for i := range drafts {
		drafts[i].Provider.Enabled = w.state.Providers[i].Provider.Enabled
	}
	w.state = domain.WizardState{Step: domain.StepProvidersToggle, Providers: drafts}
}

// modelOptions lists the models of enabled providers. Selection is carried
// over from prev when present, otherwise taken from the saved config.
func (w *Wizard) modelOptions(prev []domain.ModelOption) []domain.ModelOption {
	selected := make(map[domain.ModelRef]bool, len(prev))
	for _, option := range prev {
		selected[option.Ref] = option.Selected
	}
	var options []domain.ModelOption
	for _, draft := range w.state.Providers {
		if !draft.Provider.Enabled {
			continue
		}
		for _, name := range draft.AvailableModels {
			ref := domain.ModelRef{Provider: draft.Provider.ID, Name: name}
			on, ok := selected[ref]
			if !ok && prev == nil {
				model, found := w.baseline.FindModel(ref)
				on = found && model.Enabled
			}
			options = append(options, domain.ModelOption{Ref: ref, Selected: on})
		}
	}
	return options
}

// ToggleModel flips the i-th visible model. i == len(models) is the
// select-all row: it clears everything when all are selected and selects
// everything otherwise.
func (w *Wizard) ToggleModel(i int) error {
	if err := w.expect(domain.StepModelsToggle); err != nil {
		return err
	}
	models := w.state.Models
	switch {
	case i == len(models):
		all := len(models) > 0
		for _, option := range models {
			all = all && option.Selected
		}
		for j := range models {
			models[j].Selected = !all
		}
	case i >= 0 && i < len(models):
		models[i].Selected = !models[i].Selected
	default:
		return fmt.Errorf("model index %d out of range", i)
	}
	return nil
}

func (w *Wizard) selected() []domain.ModelRef {
	var refs []domain.ModelRef
	for _, option := range w.state.Models {
		if option.Selected {
			refs = append(refs, option.Ref)
		}
	}
	return refs
}

// fallbackOrder keeps the saved ranking for models that stay selected and
// appends newly selected ones in list order.
func (w *Wizard) fallbackOrder() []domain.ModelRef {
	chosen := make(map[domain.ModelRef]bool)
	for _, ref := range w.selected() {
		chosen[ref] = true
	}
	var order []domain.ModelRef
	for _, model := range w.baseline.EnabledModels() {
		if chosen[model.Key()] {
			order = append(order, model.Key())
			delete(chosen, model.Key())
		}
	}
	for _, ref := range w.selected() {
		if chosen[ref] {
			order = append(order, ref)
		}
	}
	return order
}

// Move relocates the model at position from to position to in the fallback order.
func (w *Wizard) Move(from, to int) error {
	if err := w.expect(domain.StepModelsConfirmFallback); err != nil {
		return err
	}
	order := w.state.Order
	if from < 0 || from >= len(order) || to < 0 || to >= len(order) {
		return fmt.Errorf("cannot move %d to %d", from, to)
	}
	ref := order[from]
	order = append(order[:from], order[from+1:]...)
	order = append(order[:to], append([]domain.ModelRef{ref}, order[to:]...)...)
	w.state.Order = order
	return nil
}

// MoveUp swaps the i-th model with the one ranked above it.
func (w *Wizard) MoveUp(i int) error {
	if i == 0 {
		return nil
	}
	return w.Move(i, i-1)
}

// MoveDown swaps the i-th model with the one ranked below it.
func (w *Wizard) MoveDown(i int) error {
	if i == len(w.state.Order)-1 {
		return nil
	}
	return w.Move(i, i+1)
}

// Chain previews the fallback chain Save would write, ranks included.
func (w *Wizard) Chain() []domain.Model {
	chain := make([]domain.Model, 0, len(w.state.Order))
	for i, ref := range w.state.Order {
		chain = append(chain, domain.Model{Provider: ref.Provider, Name: ref.Name, Enabled: true, Rank: i + 1})
	}
	return chain
}

type savedSecret struct {
	ref      string
	previous string
	existed  bool
}

// Save commits the session. Secrets go to the credential store first; if the
// config file cannot be written they are rolled back and the previous
// configuration stays authoritative.
func (w *Wizard) Save(ctx context.Context) error {
	if err := w.expect(domain.StepModelsConfirmFallback); err != nil {
		return err
	}
	if len(w.state.Order) == 0 {
		return errors.New("fallback chain is empty")
	}

	cfg := w.baseline.Clone()
	var written []savedSecret
	rollback := func() {
		for i := len(written) - 1; i >= 0; i-- {
			if err := w.Credentials.Restore(written[i].ref, written[i].previous, written[i].existed); err != nil {
				w.warn("failed to restore credential", map[string]interface{}{"ref": written[i].ref, "error": err.Error()})
			}
		}
	}

	for _, draft := range w.state.Providers {
		provider := draft.Provider
		_, known := w.baseline.ProviderByID(provider.ID)
		if !known && !provider.Enabled {
			continue
		}
		if provider.Enabled && draft.SecretChanged {
			ref := w.Credentials.Ref(provider.ID)
			previous, existed, err := w.Credentials.Lookup(ref)
			if err != nil {
				rollback()
				return fmt.Errorf("%w: read credential for %s: %v", domain.ErrConfigPersist, provider.ID, err)
			}
			if ref, err = w.Credentials.Put(provider.ID, draft.Secret); err != nil {
				rollback()
				return fmt.Errorf("%w: store credential for %s: %v", domain.ErrConfigPersist, provider.ID, err)
			}
			written = append(written, savedSecret{ref: ref, previous: previous, existed: existed})
			provider.CredentialRef = ref
		}
		cfg.UpsertProvider(provider)
	}
	cfg.ApplyModelOrder(w.state.Order)

	if err := cfg.ValidateConsistency(); err != nil {
		rollback()
		return fmt.Errorf("%w: %v", domain.ErrConfigPersist, err)
	}
	if err := w.Store.Save(ctx, cfg); err != nil {
		rollback()
		return fmt.Errorf("%w: %v", domain.ErrConfigPersist, err)
	}

	w.baseline = cfg.Clone()
	w.initial = draftsFor(w.baseline)
	for i := range w.state.Providers {
		w.state.Providers[i].Secret = ""
		w.state.Providers[i].SecretChanged = false
	}
	w.state.Step = domain.StepSaved
	w.info("configuration saved", map[string]interface{}{"path": w.Store.Path(), "models": len(w.state.Order)})
	return nil
}

// Done reports whether the session reached a terminal step.
func (w *Wizard) Done() bool {
	return w.state.Step == domain.StepSaved || w.state.Step == domain.StepAborted
}

func (w *Wizard) expect(step domain.WizardStep) error {
	if w.state.Step != step {
		return fmt.Errorf("%w: at %s", ErrWrongStep, w.state.Step)
	}
	return nil
}

func cloneDrafts(drafts []domain.ProviderDraft) []domain.ProviderDraft {
	return domain.WizardState{Providers: drafts}.Clone().Providers
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func (w *Wizard) debug(msg string, fields map[string]interface{}) {
	if w.Logger != nil {
		w.Logger.Debug(msg, fields)
	}
}

func (w *Wizard) info(msg string, fields map[string]interface{}) {
	if w.Logger != nil {
		w.Logger.Info(msg, fields)
	}
}

func (w *Wizard) warn(msg string, fields map[string]interface{}) {
	if w.Logger != nil {
		w.Logger.Warn(msg, fields)
	}
}
