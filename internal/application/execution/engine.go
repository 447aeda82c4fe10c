// Package execution implements the confirmation gate in front of every process spawn.
//
// An Execution moves through
//
//	Proposed -> AwaitingConfirmation -> Running -> Succeeded | Failed
//	Proposed | AwaitingConfirmation -> Cancelled
//
// and every transition is appended to its event log. Only commands carrying an
// Allow verdict computed for their exact text can be proposed.
package execution

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/ports"
)

// transitions lists every legal edge.
var transitions = map[domain.ExecutionState][]domain.ExecutionState{
	domain.StateProposed:             {domain.StateAwaitingConfirmation, domain.StateCancelled},
	domain.StateAwaitingConfirmation: {domain.StateRunning, domain.StateCancelled},
	domain.StateRunning:              {domain.StateSucceeded, domain.StateFailed},
}

func allowed(from, to domain.ExecutionState) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Engine creates executions and drives them through the gate.
type Engine struct {
	Runner    ports.ProcessRunner
	Confirmer ports.Confirmer
	History   ports.HistoryRepository
	Logger    ports.Logger
	MaxOutput int
}

// NewEngine wires an engine. history may be nil when persistence is disabled.
func NewEngine(runner ports.ProcessRunner, confirmer ports.Confirmer, history ports.HistoryRepository, logger ports.Logger, maxOutput int) *Engine {
	return &Engine{Runner: runner, Confirmer: confirmer, History: history, Logger: logger, MaxOutput: maxOutput}
}

// Propose enters the machine. A Deny verdict, or a verdict computed for other
// text, is refused before any state exists.
func (e *Engine) Propose(cmd domain.CandidateCommand, verdict domain.SafetyVerdict, workingDir, utterance string) (*Execution, error) {
	if !verdict.Allowed() {
		return nil, &domain.SafetyDeniedError{Verdict: verdict}
	}
	if !verdict.Covers(cmd) {
		return nil, fmt.Errorf("%w: verdict was not computed for this command", domain.ErrSafetyDenied)
	}
	x := &Execution{
		engine: e,
		argv:   cmd.Argv(),
		record: domain.ExecutionRecord{
			ID:         uuid.NewString(),
			PluginID:   cmd.PluginID(),
			Utterance:  utterance,
			Command:    cmd.Text(),
			Summary:    cmd.Summary(),
			WorkingDir: workingDir,
			State:      domain.StateProposed,
			ProposedAt: time.Now(),
		},
	}
	x.events = append(x.events, domain.ExecutionEvent{
		RecordID: x.record.ID,
		To:       domain.StateProposed,
		At:       x.record.ProposedAt,
	})
	return x, nil
}

// Run drives x through confirmation and, if approved, the process. The returned
// record is always the final one; the error is non-nil for a refusal to start,
// a cancelled gate (context.Canceled) or a non-zero exit (*domain.ExecutionFailedError).
func (e *Engine) Run(ctx context.Context, x *Execution) (domain.ExecutionRecord, error) {
	if err := x.RequestConfirmation(); err != nil {
		return x.Record(), err
	}
	if e.Confirmer == nil {
		_ = x.Cancel("no confirmation prompt available")
		return x.Record(), context.Canceled
	}
	ok, err := e.Confirmer.Confirm(ctx, x.Record())
	if err != nil {
		_ = x.Cancel("confirmation failed: " + err.Error())
		return x.Record(), err
	}
	if !ok {
		_ = x.Cancel("declined by user")
		return x.Record(), context.Canceled
	}
	return x.Approve(ctx)
}

// Execution is one pass through the machine.
type Execution struct {
	engine *Engine
	argv   []string

	mu     sync.Mutex
	record domain.ExecutionRecord
	events []domain.ExecutionEvent
}

// Record returns a snapshot of the current record.
func (x *Execution) Record() domain.ExecutionRecord {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.record
}

// Events returns the append-only transition log.
func (x *Execution) Events() []domain.ExecutionEvent {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]domain.ExecutionEvent(nil), x.events...)
}

// State is the current node.
func (x *Execution) State() domain.ExecutionState {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.record.State
}

// RequestConfirmation moves Proposed to AwaitingConfirmation.
func (x *Execution) RequestConfirmation() error {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.transitionLocked(domain.StateAwaitingConfirmation, "")
}

// Cancel ends the execution before spawn. Once the process runs, the request
// is recorded but the process is left to exit on its own.
func (x *Execution) Cancel(note string) error {
	x.mu.Lock()
	if x.record.State == domain.StateRunning {
		x.record.CancelRequested = true
		x.events = append(x.events, domain.ExecutionEvent{
			RecordID: x.record.ID,
			From:     domain.StateRunning,
			To:       domain.StateRunning,
			At:       time.Now(),
			Note:     "cancel requested: " + note,
		})
		id := x.record.ID
		x.mu.Unlock()
		x.engine.warn("cancel requested while running; waiting for process to exit", id)
		return nil
	}
	if err := x.transitionLocked(domain.StateCancelled, note); err != nil {
		x.mu.Unlock()
		return err
	}
	x.record.EndedAt = time.Now()
	final := x.record
	x.mu.Unlock()
	x.engine.persist(final)
	return nil
}

// Approve moves AwaitingConfirmation to Running, spawns the process and waits
// for it to exit.
func (x *Execution) Approve(ctx context.Context) (domain.ExecutionRecord, error) {
	x.mu.Lock()
	if x.record.State == domain.StateAwaitingConfirmation && ctx.Err() != nil {
		x.mu.Unlock()
		_ = x.Cancel("context done before spawn")
		return x.Record(), ctx.Err()
	}
	if err := x.transitionLocked(domain.StateRunning, ""); err != nil {
		x.mu.Unlock()
		return x.Record(), err
	}
	x.record.StartedAt = time.Now()
	spec := domain.ProcessSpec{Argv: x.argv, WorkingDir: x.record.WorkingDir, MaxOutput: x.engine.MaxOutput}
	x.mu.Unlock()

	result, runErr := x.runNoting(ctx, spec)

	x.mu.Lock()
	if runErr != nil {
		x.record.ExitCode = -1
		x.record.Stderr = runErr.Error()
		x.record.EndedAt = time.Now()
		_ = x.transitionLocked(domain.StateFailed, "spawn failed")
		final := x.record
		x.mu.Unlock()
		x.engine.persist(final)
		return final, runErr
	}

	if !result.StartedAt.IsZero() {
		x.record.StartedAt = result.StartedAt
	}
	x.record.EndedAt = result.EndedAt
	if x.record.EndedAt.IsZero() {
		x.record.EndedAt = time.Now()
	}
	x.record.ExitCode = result.ExitCode
	x.record.Stdout = result.Stdout
	x.record.Stderr = result.Stderr
	x.record.OutputTruncated = result.OutputTruncated

	var err error
	if result.ExitCode == 0 {
		_ = x.transitionLocked(domain.StateSucceeded, "exit 0")
	} else {
		_ = x.transitionLocked(domain.StateFailed, fmt.Sprintf("exit %d", result.ExitCode))
		err = &domain.ExecutionFailedError{ExitCode: result.ExitCode}
	}
	final := x.record
	x.mu.Unlock()
	x.engine.persist(final)
	return final, err
}

// runNoting runs the process and records a context cancellation that arrives
// while it is running. The process itself is left alone.
func (x *Execution) runNoting(ctx context.Context, spec domain.ProcessSpec) (domain.ProcessResult, error) {
	exited := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-ctx.Done():
			_ = x.Cancel("interrupted")
		case <-exited:
		}
	}()

	result, err := x.engine.Runner.Run(ctx, spec)
	close(exited)
	wg.Wait()
	return result, err
}

func (x *Execution) transitionLocked(to domain.ExecutionState, note string) error {
	from := x.record.State
	if !allowed(from, to) {
		return &domain.TransitionError{From: from, To: to}
	}
	x.record.State = to
	x.events = append(x.events, domain.ExecutionEvent{
		RecordID: x.record.ID,
		From:     from,
		To:       to,
		At:       time.Now(),
		Note:     note,
	})
	return nil
}

func (e *Engine) persist(record domain.ExecutionRecord) {
	if e.History == nil {
		return
	}
	if err := e.History.Save(record); err != nil && e.Logger != nil {
		e.Logger.Warn("failed to save history", map[string]interface{}{
			"id":    record.ID,
			"error": err.Error(),
		})
	}
}

func (e *Engine) warn(msg, id string) {
	if e.Logger == nil {
		return
	}
	e.Logger.Warn(msg, map[string]interface{}{"id": id})
}
