// Package app provides the application context and dependency management
// for the enginelink CLI. It centralizes configuration, logging and the
// lazily created client.
package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/enginelink"
	"github.com/agentstation/enginelink/internal/appcontext"
	"github.com/agentstation/enginelink/internal/backend"
	"github.com/agentstation/enginelink/internal/defaults"
	"github.com/agentstation/enginelink/internal/localindex"
	"github.com/agentstation/enginelink/pkg/errors"
)

// App represents the enginelink application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger

	// client is created on first use
	mu     sync.Mutex
	client *enginelink.Client
	extra  []enginelink.Option
}

// Ensure App implements appcontext.Interface at compile time.
var _ appcontext.Interface = (*App)(nil)

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
	}

	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Commit returns the git commit hash.
func (a *App) Commit() string {
	return a.commit
}

// Date returns the build date.
func (a *App) Date() string {
	return a.date
}

// BuiltBy returns the build system identifier.
func (a *App) BuiltBy() string {
	return a.builtBy
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// BaseURI returns the configured backend address.
func (a *App) BaseURI() string {
	return a.config.BaseURI
}

// Client returns the client, creating it on first use.
func (a *App) Client(ctx context.Context) (*enginelink.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client != nil {
		return a.client, nil
	}

	opts, err := a.clientOptions()
	if err != nil {
		return nil, err
	}
	client, err := enginelink.New(opts...)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}

// Shutdown disconnects and closes the client if one was created.
func (a *App) Shutdown(ctx context.Context) error {
	a.mu.Lock()
	client := a.client
	a.client = nil
	a.mu.Unlock()

	if client == nil {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- client.Close() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return errors.NewCanceledError("shutdown", ctx.Err())
	}
}

// clientOptions constructs client options from the app configuration.
func (a *App) clientOptions() ([]enginelink.Option, error) {
	kind, err := backend.ParseKind(a.config.Backend)
	if err != nil {
		return nil, err
	}
	headers, err := a.config.ResolveHeaders()
	if err != nil {
		return nil, err
	}

	opts := []enginelink.Option{
		enginelink.WithBackend(kind),
		enginelink.WithHeaders(headers),
		enginelink.WithLoginDomain(a.config.LoginDomain),
		enginelink.WithTimeout(a.config.Timeout),
		enginelink.WithLogger(a.logger),
		enginelink.WithWatch(a.config.Watch),
	}

	if a.config.ModelsDir != "" {
		index := localindex.NewFSIndex(a.config.ModelsDir)
		if _, err := index.Scan(); err != nil {
			return nil, err
		}
		opts = append(opts, enginelink.WithIndex(index))
	}

	if a.config.DefaultsFile != "" {
		catalog, err := defaults.LoadFile(a.config.DefaultsFile)
		if err != nil {
			return nil, err
		}
		opts = append(opts, enginelink.WithDefaults(catalog))
	}

	return append(opts, a.extra...), nil
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClientOptions appends options used when the client is created
// (useful for testing).
func WithClientOptions(opts ...enginelink.Option) Option {
	return func(a *App) error {
		a.extra = append(a.extra, opts...)
		return nil
	}
}
