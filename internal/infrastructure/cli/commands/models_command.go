package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/dexter/internal/app"
	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

const pingPrompt = `Reply with the JSON object {"ok": true} and nothing else.`

// NewModelsCommand creates the models command with all subcommands
func NewModelsCommand(container *app.Container) *cobra.Command {
	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "Show the model fallback chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModels(cmd.Context(), cmd.OutOrStdout(), container.ConfigStore)
		},
	}

	modelsCmd.AddCommand(
		newModelsListCommand(container),
		newModelsTestCommand(container),
	)

	return modelsCmd
}

// newModelsListCommand creates the 'models list' subcommand
func newModelsListCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured models in fallback order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listModels(cmd.Context(), cmd.OutOrStdout(), container.ConfigStore)
		},
	}
}

// newModelsTestCommand creates the 'models test' subcommand
func newModelsTestCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "test [provider/model]",
		Short: "Send a short request to one model, or to every model in the chain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			return testModels(cmd.Context(), cmd.OutOrStdout(), container.ConfigStore, container.Clients, target)
		},
	}
}

// listModels prints the enabled chain by rank, then the disabled models
func listModels(ctx context.Context, out io.Writer, cfgProvider ports.ConfigProvider) error {
	cfg, err := cfgProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	chain := cfg.FallbackChain()
	if len(chain) == 0 {
		fmt.Fprintln(out, MsgNoModelsEnabled)
	} else {
		fmt.Fprintf(out, "RANK\tMODEL\tPROVIDER\n")
		for _, route := range chain {
			fmt.Fprintf(out, "%d\t%s\t%s\n",
				route.Model.Rank,
				route.Model.Name,
				route.Provider.DisplayName())
		}
	}

	var disabled []string
	for _, model := range cfg.Models {
		if !model.Enabled {
			disabled = append(disabled, model.Key().String())
		}
	}
	if len(disabled) > 0 {
		fmt.Fprintf(out, "Disabled: %s\n", strings.Join(disabled, ", "))
	}

	return nil
}

// testModels pings each selected route directly, without falling back
func testModels(ctx context.Context, out io.Writer, cfgProvider ports.ConfigProvider, clients ports.ClientFactory, target string) error {
	cfg, err := cfgProvider.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	routes, err := selectRoutes(cfg, target)
	if err != nil {
		return err
	}

	timeout := time.Duration(cfg.Preferences.RequestTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = domain.DefaultRequestTimeout
	}

	for _, route := range routes {
		start := time.Now()
		err := pingRoute(ctx, clients, route, timeout)
		elapsed := time.Since(start).Round(time.Millisecond)
		if err != nil {
			fmt.Fprintf(out, "[FAIL] %s - %v\n", route.Model.Key(), err)
			continue
		}
		fmt.Fprintf(out, "[OK] %s - %s\n", route.Model.Key(), elapsed)
	}

	return nil
}

func selectRoutes(cfg domain.Config, target string) ([]domain.Route, error) {
	chain := cfg.FallbackChain()
	if target == "" {
		if len(chain) == 0 {
			return nil, domain.ErrNoModelsConfigured
		}
		return chain, nil
	}

	for _, route := range chain {
		if route.Model.Key().String() == target {
			return []domain.Route{route}, nil
		}
	}

	providerID, name, found := strings.Cut(target, "/")
	if !found {
		return nil, fmt.Errorf("model must be given as provider/name, got %q", target)
	}
	provider, ok := cfg.ProviderByID(providerID)
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", providerID)
	}
	return []domain.Route{{Provider: provider, Model: domain.Model{Provider: providerID, Name: name}}}, nil
}

func pingRoute(ctx context.Context, clients ports.ClientFactory, route domain.Route, timeout time.Duration) error {
	client, err := clients.ForRoute(ctx, route)
	if err != nil {
		return err
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err = client.Complete(callCtx, domain.ModelRequest{
		User:      pingPrompt,
		MaxTokens: 16,
	})
	return err
}
