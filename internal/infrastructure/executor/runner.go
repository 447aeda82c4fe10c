package executor

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// ProcessRunner runs argv directly, without a shell, in the requested directory.
type ProcessRunner struct {
	maxOutput int
}

// NewProcessRunner builds a runner; maxOutput caps each of stdout and stderr.
func NewProcessRunner(maxOutput int) *ProcessRunner {
	if maxOutput <= 0 {
		maxOutput = domain.DefaultMaxOutputBytes
	}
	return &ProcessRunner{maxOutput: maxOutput}
}

// Run implements ports.ProcessRunner. A started process is never killed: the
// context only matters until spawn, and Run waits for the natural exit.
func (r *ProcessRunner) Run(ctx context.Context, spec domain.ProcessSpec) (domain.ProcessResult, error) {
	if len(spec.Argv) == 0 {
		return domain.ProcessResult{}, fmt.Errorf("%w: empty argv", domain.ErrSpawn)
	}
	if err := ctx.Err(); err != nil {
		return domain.ProcessResult{}, fmt.Errorf("%w: %v", domain.ErrSpawn, err)
	}

	limit := spec.MaxOutput
	if limit <= 0 {
		limit = r.maxOutput
	}
	stdout := newBoundedBuffer(limit)
	stderr := newBoundedBuffer(limit)

	cmd := exec.Command(spec.Argv[0], spec.Argv[1:]...)
	cmd.Dir = spec.WorkingDir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	detach(cmd)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return domain.ProcessResult{}, fmt.Errorf("%w: %s: %v", domain.ErrSpawn, spec.Argv[0], err)
	}
	waitErr := cmd.Wait()

	result := domain.ProcessResult{
		StartedAt: start,
		EndedAt:   time.Now(),
	}

	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		result.ExitCode = 0
	case errors.As(waitErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		result.ExitCode = -1
		_, _ = fmt.Fprintf(stderr, "\n%v", waitErr)
	}

	result.Stdout = stdout.String()
	result.Stderr = stderr.String()
	result.OutputTruncated = stdout.Truncated() || stderr.Truncated()
	return result, nil
}

var _ ports.ProcessRunner = (*ProcessRunner)(nil)
