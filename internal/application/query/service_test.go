package query

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/dexter/internal/application/execution"
	"github.com/doeshing/dexter/internal/domain"
	"github.com/doeshing/dexter/internal/infrastructure/plugins"
	"github.com/doeshing/dexter/internal/infrastructure/security"
)

type nopLogger struct{}

func (nopLogger) Debug(string, map[string]interface{})        {}
func (nopLogger) Info(string, map[string]interface{})         {}
func (nopLogger) Warn(string, map[string]interface{})         {}
func (nopLogger) Error(string, error, map[string]interface{}) {}

type stubConfig struct{ rounds int }

func (s stubConfig) Load(context.Context) (domain.Config, error) {
	return domain.Config{Preferences: domain.Preferences{MaxClarifyRounds: s.rounds}}, nil
}

type stubCollector struct{}

func (stubCollector) Collect(_ context.Context, _ domain.Config, dir string) (domain.DirectoryListing, error) {
	return domain.DirectoryListing{
		WorkingDir: dir,
		Files:      []domain.FileInfo{{Path: "photo1.jpeg", Type: domain.FileTypeFile}},
	}, nil
}

// scriptedRouter replays decisions in order and records each context it saw.
type scriptedRouter struct {
	decisions []domain.RoutingDecision
	err       error
	seen      []domain.RoutingContext
}

func (r *scriptedRouter) Route(_ context.Context, rc domain.RoutingContext) (domain.RoutingDecision, domain.ModelResponse, error) {
	r.seen = append(r.seen, rc)
	resp := domain.ModelResponse{
		Model:    domain.ModelRef{Provider: "ollama", Name: "llama3.2"},
		Attempts: []domain.ModelAttempt{{Model: domain.ModelRef{Provider: "ollama", Name: "llama3.2"}}},
	}
	if r.err != nil {
		return domain.RoutingDecision{}, domain.ModelResponse{}, r.err
	}
	i := len(r.seen) - 1
	if i >= len(r.decisions) {
		i = len(r.decisions) - 1
	}
	return r.decisions[i], resp, nil
}

type stubClarifier struct {
	answers   []string
	questions []string
}

func (c *stubClarifier) Clarify(_ context.Context, question string, _ []string) (string, error) {
	c.questions = append(c.questions, question)
	return c.answers[len(c.questions)-1], nil
}

type stubRunner struct {
	mu     sync.Mutex
	specs  []domain.ProcessSpec
	result domain.ProcessResult
}

func (r *stubRunner) Run(_ context.Context, spec domain.ProcessSpec) (domain.ProcessResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs = append(r.specs, spec)
	return r.result, nil
}

type stubConfirmer struct {
	answer bool
	calls  int
}

func (c *stubConfirmer) Confirm(context.Context, domain.ExecutionRecord) (bool, error) {
	c.calls++
	return c.answer, nil
}

type fixture struct {
	service   *Service
	router    *scriptedRouter
	runner    *stubRunner
	confirmer *stubConfirmer
	clarifier *stubClarifier
}

func newFixture(t *testing.T, rounds int, decisions ...domain.RoutingDecision) *fixture {
	t.Helper()
	validator, err := security.NewValidator("")
	require.NoError(t, err)

	f := &fixture{
		router:    &scriptedRouter{decisions: decisions},
		runner:    &stubRunner{result: domain.ProcessResult{ExitCode: 0, Stdout: "renamed"}},
		confirmer: &stubConfirmer{answer: true},
		clarifier: &stubClarifier{},
	}
	f.service = &Service{
		ConfigProvider:   stubConfig{rounds: rounds},
		ContextCollector: stubCollector{},
		Router:           f.router,
		Plugins:          plugins.Default(),
		Safety:           validator,
		Engine:           execution.NewEngine(f.runner, f.confirmer, nil, nopLogger{}, 0),
		Clarifier:        f.clarifier,
		Logger:           nopLogger{},
	}
	return f
}

func TestRenameRequestRunsAfterConfirmation(t *testing.T) {
	f := newFixture(t, 2, domain.RouteTo("f2", domain.Parameters{"find": "photo1.jpeg", "replace": "photo1.jpg"}))

	resp, err := f.service.Run(context.Background(), domain.QueryRequest{
		Utterance:  "rename photo1.jpeg to photo1.jpg",
		WorkingDir: "/home/me/pics",
	})
	require.NoError(t, err)

	assert.Equal(t, "f2", resp.Decision.PluginID)
	assert.Equal(t, "f2 -f photo1.jpeg -r photo1.jpg -s -x", resp.Command.Text())
	assert.True(t, resp.Verdict.Allowed())
	assert.Equal(t, "llama3.2", resp.ModelUsed.Name)
	assert.Len(t, resp.Attempts, 1)
	assert.Equal(t, 1, f.confirmer.calls)

	require.NotNil(t, resp.Record)
	assert.Equal(t, domain.StateSucceeded, resp.Record.State)
	assert.Equal(t, 0, resp.Record.ExitCode)
	assert.Equal(t, "rename photo1.jpeg to photo1.jpg", resp.Record.Utterance)

	require.Len(t, f.runner.specs, 1)
	assert.Equal(t, []string{"f2", "-f", "photo1.jpeg", "-r", "photo1.jpg", "-s", "-x"}, f.runner.specs[0].Argv)
	assert.Equal(t, "/home/me/pics", f.runner.specs[0].WorkingDir)
}

func TestDeleteEverythingIsDeniedBeforeConfirmation(t *testing.T) {
	f := newFixture(t, 2, domain.RouteTo("fileops", domain.Parameters{
		"operation": "remove",
		"paths":     []any{"/"},
		"recursive": true,
	}))

	resp, err := f.service.Run(context.Background(), domain.QueryRequest{Utterance: "delete everything in /", WorkingDir: "/"})

	var denied *domain.SafetyDeniedError
	require.ErrorAs(t, err, &denied)
	assert.ErrorIs(t, err, domain.ErrSafetyDenied)
	assert.Equal(t, domain.RiskRecursiveDelete, denied.Verdict.Category())
	assert.NotEmpty(t, denied.Verdict.Reason())

	assert.Equal(t, "rm -r -f -- /", resp.Command.Text())
	assert.False(t, resp.Verdict.Allowed())
	assert.Nil(t, resp.Record)
	assert.Zero(t, f.confirmer.calls)
	assert.Empty(t, f.runner.specs)
}

func TestClarificationAnswerIsFedBack(t *testing.T) {
	f := newFixture(t, 2,
		domain.ClarifyWith("Which extension should they get?", []string{"jpg", "png"}, domain.Parameters{"find": "photo1.jpeg"}),
		domain.RouteTo("f2", domain.Parameters{"find": "photo1.jpeg", "replace": "photo1.jpg"}),
	)
	f.clarifier.answers = []string{"jpg"}

	resp, err := f.service.Run(context.Background(), domain.QueryRequest{Utterance: "fix the photo name", WorkingDir: "/tmp", DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"Which extension should they get?"}, f.clarifier.questions)
	require.Len(t, f.router.seen, 2)
	assert.True(t, strings.Contains(f.router.seen[1].Utterance(), "User answered: jpg"))
	assert.Equal(t, "f2", resp.Decision.PluginID)
	assert.Len(t, resp.Attempts, 2)
	assert.Nil(t, resp.Record, "dry run stops after the verdict")
	assert.Zero(t, f.confirmer.calls)
}

func TestClarifyRoundsExhaustedRoutesPartialFields(t *testing.T) {
	clarify := domain.ClarifyWith("Are you sure?", nil, domain.Parameters{"find": "a", "replace": "b"})
	clarify.PluginID = "f2"
	f := newFixture(t, 1, clarify)
	f.clarifier.answers = []string{"maybe"}

	resp, err := f.service.Run(context.Background(), domain.QueryRequest{Utterance: "swap a for b", WorkingDir: "/tmp", DryRun: true})
	require.NoError(t, err)
	assert.Len(t, f.clarifier.questions, 1)
	assert.Len(t, f.router.seen, 2)
	assert.True(t, resp.Decision.IsRoute())
	assert.Equal(t, "f2 -f a -r b -s -x", resp.Command.Text())
}

func TestClarifyWithoutPluginEndsUnresolved(t *testing.T) {
	f := newFixture(t, 1, domain.ClarifyWith("What do you mean?", nil, nil))
	f.clarifier.answers = []string{"dunno"}

	_, err := f.service.Run(context.Background(), domain.QueryRequest{Utterance: "do it", WorkingDir: "/tmp"})
	require.ErrorIs(t, err, domain.ErrRoutingUnresolved)
	assert.Zero(t, f.confirmer.calls)
}

func TestUnresolvedAndInvalidParameters(t *testing.T) {
	f := newFixture(t, 2, domain.Unresolved("no plugin sends email"))
	_, err := f.service.Run(context.Background(), domain.QueryRequest{Utterance: "email my boss", WorkingDir: "/tmp"})
	require.ErrorIs(t, err, domain.ErrRoutingUnresolved)
	assert.Contains(t, err.Error(), "no plugin sends email")

	f = newFixture(t, 2, domain.RouteTo("f2", domain.Parameters{}))
	resp, err := f.service.Run(context.Background(), domain.QueryRequest{Utterance: "rename", WorkingDir: "/tmp"})
	require.ErrorIs(t, err, domain.ErrParameterValidation)
	assert.True(t, resp.Command.IsZero())
	assert.Empty(t, f.runner.specs)
}

func TestRouterFailureIsSurfaced(t *testing.T) {
	f := newFixture(t, 2)
	f.router.err = &domain.FallbackExhaustedError{}

	_, err := f.service.Run(context.Background(), domain.QueryRequest{Utterance: "rename", WorkingDir: "/tmp"})
	require.ErrorIs(t, err, domain.ErrFallbackExhausted)
}

func TestDeclinedCommandIsCancelled(t *testing.T) {
	f := newFixture(t, 2, domain.RouteTo("f2", domain.Parameters{"find": "a", "replace": "b"}))
	f.confirmer.answer = false

	resp, err := f.service.Run(context.Background(), domain.QueryRequest{Utterance: "swap", WorkingDir: "/tmp"})
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, resp.Record)
	assert.Equal(t, domain.StateCancelled, resp.Record.State)
	assert.Empty(t, f.runner.specs)
}

func TestServiceRequiresDependencies(t *testing.T) {
	_, err := (&Service{}).Run(context.Background(), domain.QueryRequest{Utterance: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependencies not satisfied")
}
