package app

import (
	"context"

	"github.com/doeshing/dexter/internal/application/doctor"
	"github.com/doeshing/dexter/internal/application/execution"
	"github.com/doeshing/dexter/internal/application/fallback"
	"github.com/doeshing/dexter/internal/application/query"
	"github.com/doeshing/dexter/internal/application/router"
	"github.com/doeshing/dexter/internal/application/setup"
	"github.com/doeshing/dexter/internal/infrastructure/ai"
	"github.com/doeshing/dexter/internal/infrastructure/config"
	contextcollector "github.com/doeshing/dexter/internal/infrastructure/context"
	"github.com/doeshing/dexter/internal/infrastructure/credentials"
	"github.com/doeshing/dexter/internal/infrastructure/executor"
	"github.com/doeshing/dexter/internal/infrastructure/history"
	"github.com/doeshing/dexter/internal/infrastructure/plugins"
	"github.com/doeshing/dexter/internal/infrastructure/security"
	"github.com/doeshing/dexter/internal/pkg/logger"
	"github.com/doeshing/dexter/internal/ports"
)

// Container wires up application services with infrastructure adapters.
type Container struct {
	QueryService  *query.Service
	DoctorService *doctor.Service
	Engine        *execution.Engine
	Router        ports.Router
	ConfigStore   ports.ConfigStore
	ConfigWatcher *config.Watcher
	Credentials   ports.CredentialStore
	Clients       ports.ClientFactory
	Plugins       ports.PluginRegistry
	Safety        ports.SafetyChecker
	HistoryStore  ports.HistoryRepository
	Logger        ports.Logger

	history *history.SQLiteStore
}

// BuildContainer constructs the dependency graph.
func BuildContainer(ctx context.Context, verbose bool) (*Container, error) {
	log := logger.New(verbose)

	fileStore := config.NewFileStore("")
	watcher := config.NewWatcher(fileStore, log)
	if err := watcher.Start(ctx); err != nil {
		return nil, err
	}
	cfg, err := watcher.Load(ctx)
	if err != nil {
		watcher.Stop()
		return nil, err
	}

	validator, err := security.NewValidator(cfg.Safety.RulesFile)
	if err != nil {
		log.Warn("safety rules file ignored", map[string]interface{}{
			"path":  cfg.Safety.RulesFile,
			"error": err.Error(),
		})
		validator, err = security.NewValidator("")
		if err != nil {
			watcher.Stop()
			return nil, err
		}
	}

	creds := credentials.NewStore()
	clients := ai.NewFactory(creds)
	manager := fallback.NewManager(watcher, clients, log)
	rt := router.NewRouter(manager, watcher, log)
	registry := plugins.Default()

	historyStore := history.NewSQLiteStore(cfg.History.Path)
	var recorder ports.HistoryRepository
	if cfg.History.Enabled {
		recorder = historyStore
	}

	engine := execution.NewEngine(
		executor.NewProcessRunner(cfg.Preferences.MaxOutputBytes),
		nil,
		recorder,
		log,
		cfg.Preferences.MaxOutputBytes,
	)

	queryService := &query.Service{
		ConfigProvider:   watcher,
		ContextCollector: contextcollector.NewBasicCollector(),
		Router:           rt,
		Plugins:          registry,
		Safety:           validator,
		Engine:           engine,
		Logger:           log,
	}

	doctorService := &doctor.Service{
		ConfigProvider: watcher,
		Plugins:        registry,
		Safety:         validator,
		Credentials:    creds,
	}

	return &Container{
		QueryService:  queryService,
		DoctorService: doctorService,
		Engine:        engine,
		Router:        rt,
		ConfigStore:   watcher,
		ConfigWatcher: watcher,
		Credentials:   creds,
		Clients:       clients,
		Plugins:       registry,
		Safety:        validator,
		HistoryStore:  historyStore,
		Logger:        log,
		history:       historyStore,
	}, nil
}

// NewWizard starts a setup session over the current configuration.
func (c *Container) NewWizard(ctx context.Context) (*setup.Wizard, error) {
	return setup.NewWizard(ctx, c.ConfigStore, c.Credentials, c.Clients, c.Logger)
}

// Close stops the config watcher and releases the history database.
func (c *Container) Close() error {
	if c.ConfigWatcher != nil {
		c.ConfigWatcher.Stop()
	}
	if c.history != nil {
		return c.history.Close()
	}
	return nil
}
