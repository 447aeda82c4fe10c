package query

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/doeshing/dexter/internal/application/execution"
	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// Service orchestrates the request lifecycle end-to-end: route, build, check,
// confirm, run. The stages are strictly sequential.
type Service struct {
	ConfigProvider   ports.ConfigProvider
	ContextCollector ports.ContextCollector
	Router           ports.Router
	Plugins          ports.PluginRegistry
	Safety           ports.SafetyChecker
	Engine           *execution.Engine
	Clarifier        ports.Clarifier
	Logger           ports.Logger
}

// Run processes a single natural-language request. The response carries
// whatever stages were reached, also when an error is returned.
func (s *Service) Run(ctx context.Context, req domain.QueryRequest) (domain.QueryResponse, error) {
	if s.ConfigProvider == nil || s.ContextCollector == nil || s.Router == nil ||
		s.Plugins == nil || s.Safety == nil || s.Engine == nil || s.Logger == nil {
		return domain.QueryResponse{}, errors.New("query.Service dependencies not satisfied")
	}

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("load config: %w", err)
	}

	dir := req.WorkingDir
	if dir == "" {
		if dir, err = os.Getwd(); err != nil {
			return domain.QueryResponse{}, fmt.Errorf("resolve working directory: %w", err)
		}
	}

	listing, err := s.ContextCollector.Collect(ctx, cfg, dir)
	if err != nil {
		return domain.QueryResponse{}, fmt.Errorf("collect context: %w", err)
	}
	rc := domain.NewRoutingContext(req.Utterance, listing, s.Plugins.Capabilities())

	var resp domain.QueryResponse
	decision, err := s.resolve(ctx, cfg, rc, &resp)
	resp.Decision = decision
	if err != nil {
		return resp, err
	}
	if decision.IsUnresolved() {
		return resp, fmt.Errorf("%w: %s", domain.ErrRoutingUnresolved, decision.Reason)
	}

	plugin, ok := s.Plugins.Lookup(decision.PluginID)
	if !ok {
		return resp, fmt.Errorf("%w: %s", domain.ErrUnknownPlugin, decision.PluginID)
	}
	cmd, err := plugin.Build(decision.Parameters)
	if err != nil {
		return resp, err
	}
	resp.Command = cmd

	verdict := s.Safety.Check(cmd.Text())
	resp.Verdict = verdict
	s.Logger.Info("command proposed", map[string]interface{}{
		"plugin":  cmd.PluginID(),
		"command": cmd.Text(),
		"allowed": verdict.Allowed(),
	})
	if !verdict.Allowed() {
		return resp, &domain.SafetyDeniedError{Verdict: verdict}
	}
	if req.DryRun {
		return resp, nil
	}

	x, err := s.Engine.Propose(cmd, verdict, dir, req.Utterance)
	if err != nil {
		return resp, err
	}
	record, err := s.Engine.Run(ctx, x)
	resp.Record = &record
	return resp, err
}

// resolve routes rc, asking the user follow-up questions for at most
// MaxClarifyRounds. When the rounds run out, a clarification that already
// names a plugin is routed with the fields gathered so far.
func (s *Service) resolve(ctx context.Context, cfg domain.Config, rc domain.RoutingContext, resp *domain.QueryResponse) (domain.RoutingDecision, error) {
	rounds := cfg.Preferences.MaxClarifyRounds
	if rounds < 0 {
		rounds = 0
	}
	for round := 0; ; round++ {
		decision, modelResp, err := s.Router.Route(ctx, rc)
		resp.Attempts = append(resp.Attempts, modelResp.Attempts...)
		if err != nil {
			return domain.RoutingDecision{}, err
		}
		resp.ModelUsed = modelResp.Model
		if !decision.IsClarify() {
			return decision, nil
		}

		if round >= rounds || s.Clarifier == nil {
			if decision.PluginID == "" {
				return domain.Unresolved("still unclear after asking: " + decision.Question), nil
			}
			s.Logger.Debug("clarification rounds exhausted, routing partial fields", map[string]interface{}{
				"plugin": decision.PluginID,
				"rounds": round,
			})
			return domain.RouteTo(decision.PluginID, decision.PartialFields), nil
		}

		answer, err := s.Clarifier.Clarify(ctx, decision.Question, decision.Options)
		if err != nil {
			return decision, fmt.Errorf("clarify: %w", err)
		}
		rc = rc.WithClarification(decision.Question, answer)
	}
}
