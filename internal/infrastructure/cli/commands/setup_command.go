package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/doeshing/dexter/internal/app"
	"github.com/doeshing/dexter/internal/infrastructure/cli/setupui"
)

// NewSetupCommand creates the setup command
func NewSetupCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:     "setup",
		Aliases: []string{"settings"},
		Short:   "Choose providers and the model fallback order",
		RunE: func(cmd *cobra.Command, args []string) error {
			wizard, err := container.NewWizard(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to start setup: %w", err)
			}
			result, err := setupui.Run(cmd.Context(), wizard)
			if err != nil {
				return fmt.Errorf("setup failed: %w", err)
			}
			displaySetupResult(cmd.OutOrStdout(), result, container.ConfigStore.Path())
			return nil
		},
	}
}

// displaySetupResult prints the saved chain
func displaySetupResult(out io.Writer, result setupui.Result, path string) {
	if !result.Saved {
		fmt.Fprintln(out, MsgSetupAborted)
		return
	}
	fmt.Fprintf(out, "Saved %s\n", path)
	fmt.Fprintln(out, "Fallback chain:")
	for _, model := range result.Chain {
		fmt.Fprintf(out, "  %d. %s\n", model.Rank, model.Key())
	}
}
