package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/dexter/internal/app"
	"github.com/doeshing/dexter/internal/ports"
)

// NewCheckCommand creates the check command. It never executes anything.
func NewCheckCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "check <command line>",
		Short: "Run the safety validator on a command line without executing it",
		Example: `  dexter check 'rm -rf /'
  dexter check -- ffmpeg -i in.mov out.mp4`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkCommandLine(cmd.OutOrStdout(), container.Safety, strings.Join(args, " "))
		},
	}
}

// checkCommandLine prints the verdict for text
func checkCommandLine(out io.Writer, checker ports.SafetyChecker, text string) error {
	verdict := checker.Check(text)
	if verdict.Allowed() {
		fmt.Fprintf(out, "ALLOW  %s\n", text)
		return nil
	}
	fmt.Fprintf(out, "DENY   %s\n", text)
	fmt.Fprintf(out, "       %s: %s\n", verdict.Category().Description(), verdict.Reason())
	return nil
}
