package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/raysh454/hdrscan/internal/analyzer"
	"github.com/raysh454/hdrscan/internal/checks"
	"github.com/raysh454/hdrscan/internal/enumerator"
	"github.com/raysh454/hdrscan/internal/exclusion"
	"github.com/raysh454/hdrscan/internal/logging"
	"github.com/raysh454/hdrscan/internal/results"
	"github.com/raysh454/hdrscan/internal/webclient"
)

// Application is the runtime state container. It owns the shared services
// and is handed to the CLI and the API server instead of package globals.
type Application struct {
	Config *Config
	Logger logging.Logger

	Registry   *checks.Registry
	Exclusions *exclusion.Store
	Results    results.Store
	Analyzer   *analyzer.Analyzer
	WebClient  webclient.WebClient
	Spider     enumerator.Enumerator
	Jobs       *Orchestrator
}

// Option overrides a service before the application is assembled.
type Option func(*Application)

// WithWebClient replaces the net/http client, mostly for tests.
func WithWebClient(wc webclient.WebClient) Option {
	return func(a *Application) { a.WebClient = wc }
}

// WithResultsStore replaces the store selected by Config.Store.
func WithResultsStore(s results.Store) Option {
	return func(a *Application) { a.Results = s }
}

// New wires the services described by cfg. A nil cfg uses DefaultConfig.
func New(cfg *Config, logger logging.Logger, opts ...Option) (*Application, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NopLogger{}
	}

	a := &Application{
		Config:     cfg,
		Logger:     logger,
		Registry:   checks.DefaultRegistry(),
		Exclusions: exclusion.NewStore(logger),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.Exclusions.Load(cfg.Exclusions); err != nil {
		return nil, fmt.Errorf("load exclusions: %w", err)
	}

	if a.Results == nil {
		store, err := openStore(cfg, logger)
		if err != nil {
			return nil, err
		}
		a.Results = store
	}

	if a.WebClient == nil {
		wc, err := webclient.NewNetHTTPClient(cfg.WebClient, logger, nil)
		if err != nil {
			_ = a.Results.Close()
			return nil, fmt.Errorf("new webclient: %w", err)
		}
		a.WebClient = wc
	}

	an, err := analyzer.New(cfg.Analyzer, a.Registry, a.Results, a.Exclusions, logger)
	if err != nil {
		_ = a.close()
		return nil, fmt.Errorf("new analyzer: %w", err)
	}
	a.Analyzer = an
	a.Spider = enumerator.NewSpider(cfg.Spider, a.WebClient, logger)
	a.Jobs = NewOrchestrator(cfg, a, logger)

	logger.Info("application ready",
		logging.Field{Key: "store", Value: cfg.Store.Kind},
		logging.Field{Key: "exclusions", Value: a.Exclusions.Len()})
	return a, nil
}

func openStore(cfg *Config, logger logging.Logger) (results.Store, error) {
	switch strings.ToLower(cfg.Store.Kind) {
	case StoreSQLite:
		path, err := cfg.SQLitePath()
		if err != nil {
			return nil, fmt.Errorf("resolve sqlite path: %w", err)
		}
		store, err := results.OpenSQLiteStore(path, logger)
		if err != nil {
			return nil, fmt.Errorf("open results store: %w", err)
		}
		return store, nil
	default:
		return results.NewMemoryStore(), nil
	}
}

// Close stops running jobs and releases the web client and results store.
func (a *Application) Close() error {
	if a == nil {
		return errors.New("application is nil")
	}
	if a.Jobs != nil {
		a.Jobs.Close()
	}
	a.Logger.Info("application shutdown")
	return a.close()
}

func (a *Application) close() error {
	var firstErr error
	if a.WebClient != nil {
		if err := a.WebClient.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close webclient: %w", err)
		}
	}
	if a.Results != nil {
		if err := a.Results.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close results store: %w", err)
		}
	}
	return firstErr
}

// ClearResults empties the results store.
func (a *Application) ClearResults(ctx context.Context) error {
	return a.Results.Clear(ctx)
}
