package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/dexter/internal/domain"
)

func renameResponse() domain.QueryResponse {
	text := "f2 -f photo1.jpeg -r photo1.jpg -s -x"
	return domain.QueryResponse{
		Command:   domain.NewCandidateCommand("f2", []string{"f2", "-f", "photo1.jpeg", "-r", "photo1.jpg", "-s", "-x"}, text, "Rename photo1.jpeg to photo1.jpg"),
		Verdict:   domain.Allow(text),
		ModelUsed: domain.ModelRef{Provider: "openai", Name: "gpt-4o-mini"},
		Attempts: []domain.ModelAttempt{
			{Model: domain.ModelRef{Provider: "ollama", Name: "llama3.2"}, Failure: domain.FailureTransport, Err: errors.New("connection refused")},
			{Model: domain.ModelRef{Provider: "openai", Name: "gpt-4o-mini"}},
		},
	}
}

func TestRenderResponseDryRun(t *testing.T) {
	var out bytes.Buffer
	RenderResponse(&out, renameResponse())

	text := out.String()
	assert.Contains(t, text, "Model: openai/gpt-4o-mini")
	assert.Contains(t, text, "fell back from ollama/llama3.2 (transport)")
	assert.Contains(t, text, "f2 -f photo1.jpeg -r photo1.jpg -s -x")
	assert.Contains(t, text, "dry run")
}

func TestRenderResponseExecuted(t *testing.T) {
	resp := renameResponse()
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	resp.Record = &domain.ExecutionRecord{
		State:           domain.StateFailed,
		ExitCode:        2,
		StartedAt:       start,
		EndedAt:         start.Add(1500 * time.Millisecond),
		Stderr:          "no such file\n",
		OutputTruncated: true,
	}

	var out bytes.Buffer
	RenderResponse(&out, resp)
	text := out.String()
	assert.Contains(t, text, "Exited with code 2 after 1.5s")
	assert.Contains(t, text, "stderr:\nno such file\n")
	assert.Contains(t, text, "(output truncated)")
	assert.NotContains(t, text, "dry run")
}

func TestDescribeError(t *testing.T) {
	denied := &domain.SafetyDeniedError{Verdict: domain.Deny("rm -r -f -- /", domain.RiskRecursiveDelete, "rm -rf on /")}
	cases := []struct {
		name  string
		err   error
		want  string
		fatal bool
	}{
		{"denied", denied, "Refused: rm -rf on / (recursive or forced deletion)", false},
		{"no models", &domain.FallbackExhaustedError{}, "dexter setup", false},
		{"exhausted", &domain.FallbackExhaustedError{Attempts: []domain.ModelAttempt{
			{Model: domain.ModelRef{Provider: "groq", Name: "llama3-8b-8192"}, Err: errors.New("rate limited")},
		}}, "groq/llama3-8b-8192: rate limited", false},
		{"invalid", domain.Invalidf("pandoc", "output is required"), "Cannot build a pandoc command: output is required", false},
		{"exit code", &domain.ExecutionFailedError{ExitCode: 3}, "exited with code 3", false},
		{"unresolved", fmt.Errorf("%w: no plugin fits", domain.ErrRoutingUnresolved), "could not understand request", false},
		{"declined", context.Canceled, "Cancelled.", false},
		{"persist", fmt.Errorf("%w: disk full", domain.ErrConfigPersist), "previous configuration is still in effect", false},
		{"spawn", fmt.Errorf("%w: f2: not found", domain.ErrSpawn), "could not start process", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			message, fatal := DescribeError(tc.err)
			assert.Contains(t, message, tc.want)
			assert.Equal(t, tc.fatal, fatal)
		})
	}
}

func TestSpinnerRestarts(t *testing.T) {
	var out bytes.Buffer
	s := NewSpinner(&out)
	s.interval = time.Millisecond

	s.Start("thinking")
	s.Start("ignored")
	time.Sleep(5 * time.Millisecond)
	s.Stop()
	s.Stop()

	s.Start("saving")
	time.Sleep(5 * time.Millisecond)
	s.Stop()

	assert.Contains(t, out.String(), "thinking")
	assert.Contains(t, out.String(), "saving")
	assert.NotContains(t, out.String(), "ignored")
}
