// Package credentials resolves provider secrets from credential references.
//
// A reference is "keyring:<account>" for a secret held by the OS keychain under
// the dexter service, or "env:<VAR>" for a secret read from the environment.
// Secrets never appear in the config file itself.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/doeshing/dexter/internal/ports"
)

const (
	// ServiceName is the keychain service identifier.
	ServiceName = "dexter"

	keyringPrefix = "keyring:"
	envPrefix     = "env:"
)

// Store implements ports.CredentialStore.
type Store struct {
	service string
}

func NewStore() *Store {
	return &Store{service: ServiceName}
}

// KeyringRef builds the reference under which Put stores a provider's secret.
func KeyringRef(providerID string) string {
	return keyringPrefix + providerID
}

// Ref implements ports.CredentialStore.
func (s *Store) Ref(providerID string) string {
	return KeyringRef(providerID)
}

// Resolve returns the secret behind ref. An empty ref resolves to "".
func (s *Store) Resolve(ref string) (string, error) {
	switch {
	case ref == "":
		return "", nil
	case strings.HasPrefix(ref, envPrefix):
		name := strings.TrimPrefix(ref, envPrefix)
		value := os.Getenv(name)
		if value == "" {
			return "", fmt.Errorf("environment variable %s is not set", name)
		}
		return value, nil
	case strings.HasPrefix(ref, keyringPrefix):
		secret, err := keyring.Get(s.service, strings.TrimPrefix(ref, keyringPrefix))
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("no secret stored for %s", ref)
		}
		if err != nil {
			return "", fmt.Errorf("read keychain: %w", err)
		}
		return secret, nil
	default:
		return "", fmt.Errorf("unsupported credential reference %q (want keyring:<id> or env:<VAR>)", ref)
	}
}

// Put stores secret for providerID in the keychain and returns its reference.
func (s *Store) Put(providerID, secret string) (string, error) {
	if providerID == "" {
		return "", fmt.Errorf("provider id is required")
	}
	if err := keyring.Set(s.service, providerID, secret); err != nil {
		return "", fmt.Errorf("store secret: %w", err)
	}
	return KeyringRef(providerID), nil
}

// Lookup reports the current keychain value behind ref, used to undo a Put.
// Non-keychain references report existed=false.
func (s *Store) Lookup(ref string) (string, bool, error) {
	if !strings.HasPrefix(ref, keyringPrefix) {
		return "", false, nil
	}
	secret, err := keyring.Get(s.service, strings.TrimPrefix(ref, keyringPrefix))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read keychain: %w", err)
	}
	return secret, true, nil
}

// Restore puts back the value Lookup reported, or removes the entry if there was none.
func (s *Store) Restore(ref, previous string, existed bool) error {
	if !strings.HasPrefix(ref, keyringPrefix) {
		return nil
	}
	account := strings.TrimPrefix(ref, keyringPrefix)
	if existed {
		if err := keyring.Set(s.service, account, previous); err != nil {
			return fmt.Errorf("restore secret: %w", err)
		}
		return nil
	}
	if err := keyring.Delete(s.service, account); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("remove secret: %w", err)
	}
	return nil
}

var _ ports.CredentialStore = (*Store)(nil)
