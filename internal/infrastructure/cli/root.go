package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/doeshing/dexter/internal/app"
	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/infrastructure/cli/commands"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

type askOptions struct {
	dryRun bool
	dir    string
}

// NewRootCmd wires the cobra root command. The returned container must be
// closed by the caller.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, *app.Container, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, nil, err
	}
	prompter := NewPrompter(nil, nil)
	container.Engine.Confirmer = prompter
	container.QueryService.Clarifier = prompter
	container.QueryService.Router = spinningRouter{next: container.Router, spinner: NewSpinner(os.Stderr)}

	var rootOpts askOptions
	root := &cobra.Command{
		Use:   "dexter [request]",
		Short: "dexter - a terminal copilot that asks before it runs anything",
		Long: `dexter turns a plain-language request into a command for one of its
plugins, checks it against the safety policy and runs it only after you confirm.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runAsk(cmd, container, rootOpts, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	bindAskFlags(root, &rootOpts)
	// read by main before parsing, since logging is wired first
	root.PersistentFlags().BoolP("verbose", "v", opts.Verbose, "Write debug logs to stderr")

	root.AddCommand(
		newAskCommand(container),
		commands.NewSetupCommand(container),
		commands.NewModelsCommand(container),
		commands.NewPluginsCommand(container),
		commands.NewHistoryCommand(container),
		commands.NewDoctorCommand(container),
		commands.NewCheckCommand(container),
		commands.NewConfigCommand(container),
		commands.NewVersionCommand(),
	)
	return root, container, nil
}

func newAskCommand(container *app.Container) *cobra.Command {
	var opts askOptions

	cmd := &cobra.Command{
		Use:   "ask [request]",
		Short: "Turn a request into a command and run it after confirmation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd, container, opts, args)
		},
	}
	bindAskFlags(cmd, &opts)
	return cmd
}

func bindAskFlags(cmd *cobra.Command, opts *askOptions) {
	cmd.Flags().BoolVarP(&opts.dryRun, "dry-run", "n", false, "Show the checked command without running it")
	cmd.Flags().StringVarP(&opts.dir, "dir", "C", "", "Working directory for the request (default: current)")
}

// runAsk handles one request. Recoverable failures are printed and the
// command still exits zero.
func runAsk(cmd *cobra.Command, container *app.Container, opts askOptions, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	resp, err := container.QueryService.Run(ctx, domain.QueryRequest{
		Utterance:  strings.Join(args, " "),
		WorkingDir: opts.dir,
		DryRun:     opts.dryRun,
	})
	RenderResponse(cmd.OutOrStdout(), resp)
	if err == nil {
		return nil
	}

	message, fatal := DescribeError(err)
	if fatal {
		return err
	}
	fmt.Fprintln(cmd.ErrOrStderr(), message)
	return nil
}
