package domain

import "time"

// QueryRequest captures one natural language request from the CLI.
type QueryRequest struct {
	Utterance  string
	WorkingDir string
	DryRun     bool
}

// QueryResponse is the canonical response propagated back to the CLI.
// Only the parts reached by the request are populated.
type QueryResponse struct {
	Decision  RoutingDecision
	Command   CandidateCommand
	Verdict   SafetyVerdict
	Record    *ExecutionRecord
	ModelUsed ModelRef
	Attempts  []ModelAttempt
}

// ProcessSpec is what the execution boundary receives.
type ProcessSpec struct {
	Argv       []string
	WorkingDir string
	MaxOutput  int
}

// ProcessResult is what the execution boundary reports once the process exits.
type ProcessResult struct {
	ExitCode        int
	Stdout          string
	Stderr          string
	OutputTruncated bool
	StartedAt       time.Time
	EndedAt         time.Time
}

// ModelRequest is a single logical "ask the model" call.
type ModelRequest struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float64
	// Accept classifies a non-empty payload; a non-nil error makes the attempt fail over.
	Accept func(text string) error
}

// ModelResponse is the payload returned by the first model that succeeded.
type ModelResponse struct {
	Text     string
	Model    ModelRef
	Attempts []ModelAttempt
}

// ModelAttempt records one step of a fallback walk.
type ModelAttempt struct {
	Model    ModelRef
	Failure  FailureKind
	Err      error
	Duration time.Duration
}
