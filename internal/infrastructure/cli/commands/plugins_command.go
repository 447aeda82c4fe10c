package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/dexter/internal/app"
	"github.com/doeshing/dexter/internal/ports"
)

// NewPluginsCommand creates the plugins command
func NewPluginsCommand(container *app.Container) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "List the tools dexter can drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listPlugins(cmd.OutOrStdout(), container.Plugins, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "params", "p", false, "Show each plugin's parameters")
	return cmd
}

// listPlugins prints every registered plugin in registry order
func listPlugins(out io.Writer, registry ports.PluginRegistry, withParams bool) error {
	for _, capability := range registry.Capabilities() {
		fmt.Fprintf(out, "%-9s %s\n", capability.ID, capability.Summary)
		if !withParams {
			continue
		}
		fmt.Fprintf(out, "          binaries: %s\n", strings.Join(capability.Binaries, ", "))
		for _, param := range capability.Params {
			marker := " "
			if param.Required {
				marker = "*"
			}
			fmt.Fprintf(out, "          %s %s: %s\n", marker, param.Name, param.Description)
		}
		if capability.InstallHint != "" {
			fmt.Fprintf(out, "          install: %s\n", capability.InstallHint)
		}
	}
	return nil
}
