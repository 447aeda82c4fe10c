// Package ports defines the interfaces (ports) for the hexagonal architecture.
//
// This package establishes the contract between the application core and external
// adapters (infrastructure). The core (router, fallback manager, execution engine,
// setup wizard) depends only on these interfaces, so model backends, the process
// layer, persistence and the terminal can be swapped or stubbed in tests.
//
// Key architectural concepts:
//   - Ports: Interfaces defined here (e.g., ModelClient, Plugin, ProcessRunner)
//   - Adapters: Concrete implementations in the infrastructure layer
//   - Dependency inversion: Application depends on abstractions, not implementations
package ports

import (
	"context"

	"github.com/doeshing/dexter/internal/domain"
)

// ConfigProvider returns the current configuration. Each call yields an
// independent snapshot that later reloads do not mutate.
type ConfigProvider interface {
	Load(context.Context) (domain.Config, error)
}

// ConfigStore persists configuration. Save is all-or-nothing.
type ConfigStore interface {
	ConfigProvider
	Save(context.Context, domain.Config) error
	Path() string
}

// ContextCollector scans the working directory for the routing prompt.
type ContextCollector interface {
	Collect(ctx context.Context, cfg domain.Config, dir string) (domain.DirectoryListing, error)
}

// ModelClient performs one call against one model of one provider.
type ModelClient interface {
	Complete(ctx context.Context, req domain.ModelRequest) (string, error)
}

// ModelLister enumerates the models a provider offers.
type ModelLister interface {
	ListModels(ctx context.Context) ([]string, error)
}

// ClientFactory builds clients for a route of the fallback chain.
type ClientFactory interface {
	ForRoute(ctx context.Context, route domain.Route) (ModelClient, error)
	ListerFor(ctx context.Context, provider domain.Provider, secret string) (ModelLister, error)
}

// Completer is a single logical "ask the model" call with internal failover.
type Completer interface {
	Complete(ctx context.Context, req domain.ModelRequest) (domain.ModelResponse, error)
}

// Plugin maps structured parameters to a literal command for one external tool.
type Plugin interface {
	Capability() domain.PluginCapability
	Build(params domain.Parameters) (domain.CandidateCommand, error)
}

// PluginRegistry is the static, read-only list of plugins.
type PluginRegistry interface {
	Lookup(id string) (Plugin, bool)
	Capabilities() []domain.PluginCapability
}

// Router maps an utterance plus context to a routing decision.
type Router interface {
	Route(ctx context.Context, rc domain.RoutingContext) (domain.RoutingDecision, domain.ModelResponse, error)
}

// SafetyChecker classifies a literal command line. Implementations must be pure.
type SafetyChecker interface {
	Check(command string) domain.SafetyVerdict
}

// ProcessRunner spawns argv in a directory and waits for it to exit.
// The returned error is reserved for failures to start the process.
type ProcessRunner interface {
	Run(ctx context.Context, spec domain.ProcessSpec) (domain.ProcessResult, error)
}

// Confirmer blocks until the user approves or cancels a command.
type Confirmer interface {
	Confirm(ctx context.Context, record domain.ExecutionRecord) (bool, error)
}

// Clarifier asks the user a routing follow-up question.
type Clarifier interface {
	Clarify(ctx context.Context, question string, options []string) (string, error)
}

// HistoryRepository persists finalized execution records.
type HistoryRepository interface {
	Save(record domain.ExecutionRecord) error
	Records(limit int, search string) ([]domain.ExecutionRecord, error)
	Clear() error
	// SetPinned pins or unpins the record with the given id. Pinned records
	// list first, most recently pinned on top.
	SetPinned(id string, pinned bool) error
	ExportJSON(dest string) error
	Path() string
}

// CredentialStore holds provider secrets by reference.
type CredentialStore interface {
	// Ref is the reference Put will return for providerID.
	Ref(providerID string) string
	Resolve(ref string) (string, error)
	Put(providerID, secret string) (ref string, err error)
	Restore(ref, previous string, existed bool) error
	Lookup(ref string) (secret string, existed bool, err error)
}

// Logger provides structured logging abstraction for the application layer.
// Implementations can route to different backends (stdout, files, external services).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, err error, fields map[string]interface{})
}
