package doctor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	appconfig "github.com/doeshing/dexter/internal/application/config"
	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	Plugins        ports.PluginRegistry
	Safety         ports.SafetyChecker
	Credentials    ports.CredentialStore
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	checks = append(checks, ok("Config file", fmt.Sprintf("format %s", cfg.ConfigFormatVersion)))
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config schema", err.Error()))
	} else {
		checks = append(checks, ok("Config schema", "valid"))
	}

	checks = append(checks, s.safetyCheck())
	checks = append(checks, chainCheck(cfg))
	checks = append(checks, s.credentialChecks(cfg)...)
	checks = append(checks, s.pluginChecks(ctx)...)

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) safetyCheck() domain.HealthCheck {
	if s.Safety == nil {
		return warn("Safety validator", "not initialized")
	}
	if s.Safety.Check("rm -rf /").Allowed() {
		return fail("Safety validator", "self-test: rm -rf / was allowed")
	}
	if !s.Safety.Check("ls -la").Allowed() {
		return fail("Safety validator", "self-test: ls -la was denied")
	}
	return ok("Safety validator", "self-test passed")
}

func chainCheck(cfg domain.Config) domain.HealthCheck {
	chain := cfg.FallbackChain()
	if len(chain) == 0 {
		return fail("Fallback chain", "no enabled models, run `dexter setup`")
	}
	names := make([]string, 0, len(chain))
	for _, route := range chain {
		names = append(names, route.Model.Key().String())
	}
	return ok("Fallback chain", strings.Join(names, " -> "))
}

func (s *Service) credentialChecks(cfg domain.Config) []domain.HealthCheck {
	var checks []domain.HealthCheck
	for _, provider := range cfg.Providers {
		if !provider.Enabled || !provider.ResolvedPreset().RequiresCredential() {
			continue
		}
		name := "Credential " + provider.ID
		switch {
		case provider.CredentialRef == "":
			checks = append(checks, fail(name, "no credential configured"))
		case s.Credentials == nil:
			checks = append(checks, warn(name, "credential store not initialized"))
		default:
			if _, err := s.Credentials.Resolve(provider.CredentialRef); err != nil {
				checks = append(checks, fail(name, err.Error()))
			} else {
				checks = append(checks, ok(name, provider.CredentialRef))
			}
		}
	}
	return checks
}

// pluginChecks probes every plugin's binaries in parallel. Results keep
// registry order.
func (s *Service) pluginChecks(ctx context.Context) []domain.HealthCheck {
	if s.Plugins == nil {
		return nil
	}
	lookPath := s.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	capabilities := s.Plugins.Capabilities()
	checks := make([]domain.HealthCheck, len(capabilities))

	g, gctx := errgroup.WithContext(ctx)
	for i, capability := range capabilities {
		g.Go(func() error {
			probeCtx, cancel := context.WithTimeout(gctx, domain.DefaultProbeTimeout)
			defer cancel()
			var missing []string
			for _, bin := range capability.Binaries {
				if err := probe(probeCtx, lookPath, bin); err != nil {
					missing = append(missing, bin)
				}
			}
			name := "Plugin " + capability.ID
			if len(missing) == 0 {
				checks[i] = ok(name, strings.Join(capability.Binaries, ", ")+" found")
				return nil
			}
			details := "missing " + strings.Join(missing, ", ")
			if capability.InstallHint != "" {
				details += " (" + capability.InstallHint + ")"
			}
			checks[i] = warn(name, details)
			return nil
		})
	}
	_ = g.Wait()
	return checks
}

func probe(ctx context.Context, lookPath func(string) (string, error), bin string) error {
	done := make(chan error, 1)
	go func() {
		_, err := lookPath(bin)
		done <- err
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
