// Package router maps a natural language request to a plugin and its parameters.
package router

import (
	"context"
	"errors"
	"fmt"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// Router asks the fallback chain for a structured decision and parses it tolerantly.
type Router struct {
	Completer ports.Completer
	Config    ports.ConfigProvider
	Logger    ports.Logger
}

// NewRouter wires a router.
func NewRouter(completer ports.Completer, cfg ports.ConfigProvider, logger ports.Logger) *Router {
	return &Router{Completer: completer, Config: cfg, Logger: logger}
}

// Route returns the decision for rc. The error is non-nil only when no model
// could be asked (for example the fallback chain was exhausted); malformed model
// output never produces an error.
func (r *Router) Route(ctx context.Context, rc domain.RoutingContext) (domain.RoutingDecision, domain.ModelResponse, error) {
	if r.Completer == nil {
		return domain.RoutingDecision{}, domain.ModelResponse{}, errors.New("router.Router dependencies not satisfied")
	}
	system, user, err := BuildPrompt(rc)
	if err != nil {
		return domain.RoutingDecision{}, domain.ModelResponse{}, fmt.Errorf("render prompt: %w", err)
	}

	resp, err := r.Completer.Complete(ctx, domain.ModelRequest{
		System: system,
		User:   user,
		Accept: AcceptDecision,
	})
	if err != nil {
		return domain.RoutingDecision{}, resp, err
	}

	decision := ParseDecision(resp.Text, rc)
	decision = applyConfidence(decision, r.minConfidence(ctx), rc)
	r.log(decision, resp)
	return decision, resp, nil
}

func (r *Router) minConfidence(ctx context.Context) float64 {
	if r.Config == nil {
		return domain.DefaultRouterMinConfidence
	}
	cfg, err := r.Config.Load(ctx)
	if err != nil {
		return domain.DefaultRouterMinConfidence
	}
	return cfg.Preferences.RouterMinConfidence
}

// applyConfidence turns a Route the model was unsure about into a Clarify that
// asks the user to confirm the plugin.
func applyConfidence(decision domain.RoutingDecision, threshold float64, rc domain.RoutingContext) domain.RoutingDecision {
	if !decision.IsRoute() || !decision.HasConfidence || decision.Confidence >= threshold {
		return decision
	}
	summary := decision.PluginID
	for _, capability := range rc.Plugins() {
		if capability.ID == decision.PluginID {
			summary = capability.Summary
		}
	}
	clarify := domain.ClarifyWith(
		fmt.Sprintf("Not sure I understood. Should I use %s (%s)? If not, describe what you want.", decision.PluginID, summary),
		[]string{"yes", "no"},
		decision.Parameters,
	)
	clarify.PluginID = decision.PluginID
	clarify.Confidence = decision.Confidence
	clarify.HasConfidence = true
	clarify.Reasoning = decision.Reasoning
	return clarify
}

func (r *Router) log(decision domain.RoutingDecision, resp domain.ModelResponse) {
	if r.Logger == nil {
		return
	}
	fields := map[string]interface{}{
		"decision": decision.Kind.String(),
		"model":    resp.Model.String(),
		"attempts": len(resp.Attempts),
	}
	if decision.PluginID != "" {
		fields["plugin"] = decision.PluginID
	}
	if decision.HasConfidence {
		fields["confidence"] = decision.Confidence
	}
	if decision.IsUnresolved() {
		fields["reason"] = decision.Reason
	}
	r.Logger.Debug("routing decision", fields)
}

var _ ports.Router = (*Router)(nil)
