// Package fallback performs a single logical model call across the ranked chain
// of enabled models.
package fallback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// Manager walks the fallback chain. It holds no per-request state: every
// Complete call snapshots the configuration and starts from rank 1.
type Manager struct {
	Config  ports.ConfigProvider
	Clients ports.ClientFactory
	Logger  ports.Logger
}

// NewManager wires a manager.
func NewManager(cfg ports.ConfigProvider, clients ports.ClientFactory, logger ports.Logger) *Manager {
	return &Manager{Config: cfg, Clients: clients, Logger: logger}
}

// Chain returns the current ordered list of enabled models.
func (m *Manager) Chain(ctx context.Context) ([]domain.Route, error) {
	cfg, err := m.Config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg.FallbackChain(), nil
}

// Complete asks each model of the chain in rank order until one returns an
// acceptable payload. If every model fails the error is a
// *domain.FallbackExhaustedError carrying one attempt per model.
func (m *Manager) Complete(ctx context.Context, req domain.ModelRequest) (domain.ModelResponse, error) {
	if m.Config == nil || m.Clients == nil {
		return domain.ModelResponse{}, errors.New("fallback.Manager dependencies not satisfied")
	}
	cfg, err := m.Config.Load(ctx)
	if err != nil {
		return domain.ModelResponse{}, fmt.Errorf("load config: %w", err)
	}
	chain := cfg.FallbackChain()
	timeout := time.Duration(cfg.Preferences.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = cfg.Preferences.MaxTokens
	}

	attempts := make([]domain.ModelAttempt, 0, len(chain))
	for _, route := range chain {
		if err := ctx.Err(); err != nil {
			return domain.ModelResponse{Attempts: attempts}, err
		}

		ref := route.Model.Key()
		text, attempt := m.try(ctx, route, req, timeout)
		attempts = append(attempts, attempt)
		if attempt.Failure == domain.FailureNone {
			m.debug("model call succeeded", ref, attempt)
			return domain.ModelResponse{Text: text, Model: ref, Attempts: attempts}, nil
		}
		if attempt.Failure == domain.FailureCancelled && ctx.Err() != nil {
			return domain.ModelResponse{Attempts: attempts}, ctx.Err()
		}
		m.warn(ref, attempt)
	}
	return domain.ModelResponse{Attempts: attempts}, &domain.FallbackExhaustedError{Attempts: attempts}
}

func (m *Manager) try(ctx context.Context, route domain.Route, req domain.ModelRequest, timeout time.Duration) (string, domain.ModelAttempt) {
	attempt := domain.ModelAttempt{Model: route.Model.Key()}
	start := time.Now()

	client, err := m.Clients.ForRoute(ctx, route)
	if err != nil {
		attempt.Failure, attempt.Err = classify(ctx, err), err
		attempt.Duration = time.Since(start)
		return "", attempt
	}

	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	text, err := client.Complete(callCtx, req)
	if err == nil {
		err = validatePayload(text, req.Accept)
	}
	attempt.Duration = time.Since(start)
	if err != nil {
		attempt.Failure, attempt.Err = classify(ctx, err), err
		return "", attempt
	}
	return text, attempt
}

func validatePayload(text string, accept func(string) error) error {
	if strings.TrimSpace(text) == "" {
		return &domain.ModelCallError{Kind: domain.FailureInvalid, Message: "empty response"}
	}
	if accept != nil {
		if err := accept(text); err != nil {
			return &domain.ModelCallError{Kind: domain.FailureInvalid, Message: err.Error(), Err: err}
		}
	}
	return nil
}

// classify maps err onto a failure kind. Cancellation counts only when the
// caller's own context is done; a per-call timeout is an ordinary failure.
func classify(parent context.Context, err error) domain.FailureKind {
	if parent.Err() != nil {
		return domain.FailureCancelled
	}
	var callErr *domain.ModelCallError
	if errors.As(err, &callErr) {
		switch callErr.Kind {
		case domain.FailureCancelled:
			return domain.FailureTimeout
		case domain.FailureNone:
			return domain.FailureOther
		}
		return callErr.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return domain.FailureTimeout
	}
	return domain.FailureOther
}

func (m *Manager) debug(msg string, ref domain.ModelRef, attempt domain.ModelAttempt) {
	if m.Logger == nil {
		return
	}
	m.Logger.Debug(msg, map[string]interface{}{
		"model":       ref.String(),
		"duration_ms": attempt.Duration.Milliseconds(),
	})
}

func (m *Manager) warn(ref domain.ModelRef, attempt domain.ModelAttempt) {
	if m.Logger == nil {
		return
	}
	m.Logger.Warn("model call failed, trying next model", map[string]interface{}{
		"model":   ref.String(),
		"failure": string(attempt.Failure),
		"error":   fmt.Sprint(attempt.Err),
	})
}

var _ ports.Completer = (*Manager)(nil)
