package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/doeshing/dexter/internal/domain"
)

// RenderResponse prints the response in a friendly, ASCII-only format.
func RenderResponse(out io.Writer, resp domain.QueryResponse) {
	if resp.ModelUsed.Name != "" {
		fmt.Fprintf(out, "Model: %s\n", resp.ModelUsed)
	}
	for _, attempt := range resp.Attempts {
		if attempt.Err != nil {
			fmt.Fprintf(out, "  fell back from %s (%s)\n", attempt.Model, attempt.Failure)
		}
	}
	if resp.Command.IsZero() {
		return
	}

	fmt.Fprintf(out, "Plugin: %s\n", resp.Command.PluginID())
	if summary := resp.Command.Summary(); summary != "" {
		fmt.Fprintf(out, "Plan: %s\n", summary)
	}
	fmt.Fprintf(out, "\nCommand:\n  %s\n", resp.Command.Text())

	if !resp.Verdict.Allowed() {
		return
	}
	if resp.Record == nil {
		fmt.Fprintln(out, "\nCommand was not executed (dry run).")
		return
	}
	renderRecord(out, *resp.Record)
}

func renderRecord(out io.Writer, rec domain.ExecutionRecord) {
	switch rec.State {
	case domain.StateSucceeded:
		fmt.Fprintf(out, "\nDone in %s.\n", rec.Duration().Round(time.Millisecond))
	case domain.StateFailed:
		fmt.Fprintf(out, "\nExited with code %d after %s.\n", rec.ExitCode, rec.Duration().Round(time.Millisecond))
	case domain.StateCancelled:
		fmt.Fprintln(out, "\nCancelled, nothing was run.")
		return
	}
	if rec.Stdout != "" {
		fmt.Fprintln(out, "\nstdout:")
		fmt.Fprintln(out, strings.TrimRight(rec.Stdout, "\n"))
	}
	if rec.Stderr != "" {
		fmt.Fprintln(out, "\nstderr:")
		fmt.Fprintln(out, strings.TrimRight(rec.Stderr, "\n"))
	}
	if rec.OutputTruncated {
		fmt.Fprintln(out, "(output truncated)")
	}
	if rec.CancelRequested {
		fmt.Fprintln(out, "Cancel was requested after the process had started; it ran to completion.")
	}
}

// DescribeError turns a query failure into the message shown to the user.
// fatal reports whether the process should exit non-zero.
func DescribeError(err error) (message string, fatal bool) {
	var (
		denied    *domain.SafetyDeniedError
		exhausted *domain.FallbackExhaustedError
		invalid   *domain.ValidationError
		failed    *domain.ExecutionFailedError
	)
	switch {
	case errors.As(err, &denied):
		return fmt.Sprintf("Refused: %s (%s). Nothing was run.", denied.Verdict.Reason(), denied.Verdict.Category().Description()), false
	case errors.As(err, &exhausted):
		if len(exhausted.Attempts) == 0 {
			return "No models are enabled. Run `dexter setup` to choose one.", false
		}
		lines := []string{"Every enabled model failed:"}
		for _, attempt := range exhausted.Attempts {
			lines = append(lines, fmt.Sprintf("  %s: %v", attempt.Model, attempt.Err))
		}
		return strings.Join(lines, "\n"), false
	case errors.As(err, &invalid):
		return fmt.Sprintf("Cannot build a %s command: %s", invalid.Plugin, invalid.Reason), false
	case errors.As(err, &failed):
		return fmt.Sprintf("The command exited with code %d.", failed.ExitCode), false
	case errors.Is(err, domain.ErrRoutingUnresolved):
		return "Sorry, " + err.Error() + ".", false
	case errors.Is(err, domain.ErrUnknownPlugin):
		return "The model picked a tool that does not exist: " + err.Error(), false
	case errors.Is(err, context.Canceled), errors.Is(err, ErrNoAnswer):
		return "Cancelled.", false
	case errors.Is(err, domain.ErrConfigPersist):
		return err.Error() + ". The previous configuration is still in effect.", false
	case errors.Is(err, domain.ErrSpawn):
		return err.Error(), true
	default:
		return err.Error(), true
	}
}
