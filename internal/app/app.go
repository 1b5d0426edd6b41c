// Package app assembles the application state shared by every command.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"tasksync/internal/backend/restapi"
	"tasksync/internal/config"
	"tasksync/internal/filter"
	"tasksync/internal/service"
	"tasksync/internal/session"
	"tasksync/internal/store"
)

// App owns the session, the task store and the current filter.
// Components get what they need from here rather than from globals.
type App struct {
	Config  *config.Config
	Session *session.Holder
	Tasks   *store.Store
	Service service.Service
	Filter  filter.Predicates
	Logger  *slog.Logger
	Metrics *prometheus.Registry

	closers []io.Closer
}

// New wires the production components for cfg.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = NewLogger(io.Discard, false)
	}

	var (
		storage session.Storage
		closers []io.Closer
	)
	switch cfg.SessionStore {
	case config.SessionStoreSQLite:
		// Opened on first use; help, version and config never touch it.
		db := session.NewLazySQLiteStorage(cfg.SessionDBPath())
		storage = db
		closers = append(closers, db)
	case config.SessionStoreFile, "":
		storage = session.NewFileStorage(cfg.TokenPath())
	default:
		return nil, fmt.Errorf("unknown session store: %s", cfg.SessionStore)
	}

	holder := session.NewHolder(storage, logger)
	client, err := restapi.New(cfg, holder, logger)
	if err != nil {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	a := assemble(cfg, client, holder, logger)
	a.closers = closers
	return a, nil
}

// NewWithService wires an App around svc and storage (for testing).
func NewWithService(cfg *config.Config, svc service.Service, storage session.Storage, logger *slog.Logger) *App {
	if logger == nil {
		logger = NewLogger(io.Discard, false)
	}
	return assemble(cfg, svc, session.NewHolder(storage, logger), logger)
}

func assemble(cfg *config.Config, svc service.Service, holder *session.Holder, logger *slog.Logger) *App {
	reg := prometheus.NewRegistry()
	tasks := store.New(svc,
		store.WithLogger(logger),
		store.WithMetrics(store.NewMetrics(reg)),
	)
	holder.Subscribe(tasks)

	return &App{
		Config:  cfg,
		Session: holder,
		Tasks:   tasks,
		Service: svc,
		Filter:  filter.Default(),
		Logger:  logger,
		Metrics: reg,
	}
}

// NewLogger returns a text logger on w at debug level, or a logger that
// discards everything when debug is false.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	if !debug {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Start restores a persisted credential. When one is found the task store
// loads the user's tasks.
func (a *App) Start(ctx context.Context) error {
	return a.Session.Restore(ctx)
}

// LoggedIn reports whether a credential is held.
func (a *App) LoggedIn() bool {
	return a.Session.Get() != ""
}

// Login authenticates and stores the credential. The task store loads as a
// consequence; a load failure is returned but the credential stays stored.
func (a *App) Login(ctx context.Context, username, password string) error {
	token, err := a.Service.Login(ctx, username, password)
	if err != nil {
		return err
	}
	return a.Session.Set(ctx, token)
}

// Register creates an account and returns the service's message.
func (a *App) Register(ctx context.Context, username, password string) (string, error) {
	return a.Service.Register(ctx, username, password)
}

// Logout forgets the credential and empties the task store.
func (a *App) Logout(ctx context.Context) error {
	return a.Session.Clear(ctx)
}

// Visible returns the tasks matching the current filter, each with its
// position in the full collection.
func (a *App) Visible() []filter.Row {
	return filter.VisibleRows(a.Tasks.Tasks(), a.Filter)
}

// Close releases storage and, when configured, writes the metrics textfile.
func (a *App) Close() error {
	var errs []error
	if a.Config != nil && a.Config.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(a.Config.MetricsFile, a.Metrics); err != nil {
			errs = append(errs, fmt.Errorf("failed to write metrics: %w", err))
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
