package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/dexter/internal/domain"
)

// Validate ensures config structure is consistent.
func Validate(cfg domain.Config) error {
	if err := validateProviders(cfg.Providers); err != nil {
		return err
	}
	if err := cfg.ValidateConsistency(); err != nil {
		return err
	}
	if err := validatePreferences(cfg.Preferences); err != nil {
		return err
	}
	if err := validateContext(cfg.Context); err != nil {
		return err
	}
	if err := validateSafety(cfg.Safety); err != nil {
		return err
	}
	if err := validateHistory(cfg.History); err != nil {
		return err
	}
	return nil
}

func validateProviders(providers []domain.Provider) error {
	for _, provider := range providers {
		if !provider.Kind.Valid() {
			return fmt.Errorf("provider %s: kind must be native|openai_compatible|anthropic_compatible|local, got %q", provider.ID, provider.Kind)
		}
		switch provider.Auth {
		case "", domain.AuthBearer, domain.AuthAPIKey, domain.AuthNone:
		default:
			return fmt.Errorf("provider %s: auth must be bearer|api_key|none, got %s", provider.ID, provider.Auth)
		}
		if ref := provider.CredentialRef; ref != "" && !strings.HasPrefix(ref, "keyring:") && !strings.HasPrefix(ref, "env:") {
			return fmt.Errorf("provider %s: credential_ref must start with keyring: or env:", provider.ID)
		}
		if provider.Enabled && provider.ResolvedPreset().RequiresBaseURL() {
			return fmt.Errorf("provider %s: base_url is required", provider.ID)
		}
	}
	return nil
}

func validatePreferences(prefs domain.Preferences) error {
	if prefs.RequestTimeoutSeconds < 0 {
		return errors.New("preferences.request_timeout_seconds must be >= 0")
	}
	if prefs.MaxOutputBytes < 0 {
		return errors.New("preferences.max_output_bytes must be >= 0")
	}
	if prefs.RouterMinConfidence < 0 || prefs.RouterMinConfidence > 1 {
		return fmt.Errorf("preferences.router_min_confidence must be within [0,1], got %v", prefs.RouterMinConfidence)
	}
	if prefs.MaxClarifyRounds < 0 {
		return errors.New("preferences.max_clarify_rounds must be >= 0")
	}
	return nil
}

func validateContext(ctx domain.ContextSettings) error {
	if ctx.MaxFiles <= 0 {
		return fmt.Errorf("context.max_files must be > 0")
	}
	if ctx.MaxDepth < 0 {
		return fmt.Errorf("context.max_depth must be >= 0")
	}
	return nil
}

func validateSafety(safety domain.SafetySettings) error {
	if safety.RulesFile == "" {
		return fmt.Errorf("safety.rules_file must be set")
	}
	return nil
}

func validateHistory(history domain.HistorySettings) error {
	if history.Enabled && history.Path == "" {
		return fmt.Errorf("history.path must be set when history is enabled")
	}
	return nil
}
