package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/infrastructure/cli/helpers"
	"github.com/doeshing/dexter/internal/ports"
)

// ErrNoAnswer is returned when a clarification question is left blank.
var ErrNoAnswer = errors.New("no answer given")

// Prompter implements the confirmation gate and clarification questions on stdin/stdout.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm shows the literal command and waits for an explicit yes. Anything
// else, including end of input, declines.
func (p *Prompter) Confirm(ctx context.Context, record domain.ExecutionRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	fmt.Fprintln(p.out)
	if record.Summary != "" {
		fmt.Fprintf(p.out, "%s\n", record.Summary)
	}
	fmt.Fprintf(p.out, "Command:\n  %s\n", record.Command)
	fmt.Fprintf(p.out, "Directory: %s\n", record.WorkingDir)
	return helpers.PromptForConfirmation(p.out, p.in, "Run this command?"), nil
}

// Clarify asks question. With options, a number picks that option; any other
// text is passed through as a free-form answer.
func (p *Prompter) Clarify(ctx context.Context, question string, options []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintf(p.out, "\n%s\n", question)
	for i, option := range options {
		fmt.Fprintf(p.out, "  %d) %s\n", i+1, option)
	}
	answer := helpers.PromptForString(p.out, p.in, ">", "")
	if answer == "" {
		return "", ErrNoAnswer
	}
	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return options[n-1], nil
	}
	return answer, nil
}

var (
	_ ports.Confirmer = (*Prompter)(nil)
	_ ports.Clarifier = (*Prompter)(nil)
)
