package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/matsen/bankbal/internal/config"
	"github.com/matsen/bankbal/internal/dispatch"
	"github.com/matsen/bankbal/internal/gocardless"
	"github.com/matsen/bankbal/internal/history"
	"github.com/matsen/bankbal/internal/metrics"
	"github.com/matsen/bankbal/internal/secrets"
	"github.com/matsen/bankbal/internal/spreadsheet"
	"github.com/matsen/bankbal/internal/tokencache"
)

const programName = "bankbal"

// app carries what the action handlers share for one process lifetime.
type app struct {
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger

	cfg    *config.Config
	cfgErr error

	metrics    *metrics.Recorder
	dispatcher *dispatch.Dispatcher

	// newUpdater builds the sheet writer from a service-account file.
	newUpdater func(ctx context.Context, credentialsFile string) (spreadsheet.Updater, error)
}

func newApp(stdout, stderr io.Writer, logger *slog.Logger) *app {
	return &app{
		stdout:  stdout,
		stderr:  stderr,
		logger:  logger,
		metrics: metrics.New(),
		newUpdater: func(ctx context.Context, credentialsFile string) (spreadsheet.Updater, error) {
			return spreadsheet.NewWriter(ctx, credentialsFile)
		},
	}
}

// registry lists every action. Built once per process.
func (a *app) registry() *dispatch.Registry {
	return dispatch.NewRegistry(
		dispatch.Action{Name: "run", Description: "Write the current balance to the spreadsheet (default)", Handler: a.command(a.newRunCmd)},
		dispatch.Action{Name: "institutions", Description: "List banks available in a country", Handler: a.command(a.newInstitutionsCmd)},
		dispatch.Action{Name: "create-requisition", Description: "Start linking a bank account", Handler: a.command(a.newCreateRequisitionCmd)},
		dispatch.Action{Name: "requisition", Description: "Show a requisition and its linked accounts", Handler: a.command(a.newRequisitionCmd)},
		dispatch.Action{Name: "balance", Description: "Print the preferred balance of an account", Handler: a.command(a.newBalanceCmd)},
		dispatch.Action{Name: "history", Description: "List balances previously written to the spreadsheet", Handler: a.command(a.newHistoryCmd)},
		dispatch.Action{Name: "help", Description: "Show this help", Handler: a.help},
		dispatch.Action{Name: "version", Description: "Print the version", Handler: a.version},
	)
}

// run dispatches one invocation and flushes metrics.
func (a *app) run(ctx context.Context, args []string) int {
	a.dispatcher = dispatch.New(a.registry(),
		dispatch.WithStderr(a.stderr),
		dispatch.WithLogger(a.logger),
		dispatch.WithObserver(a.observe),
	)
	status := a.dispatcher.Dispatch(ctx, args)
	a.flushMetrics()
	return status
}

func (a *app) observe(o dispatch.Outcome) {
	action := o.Action
	if o.Phase == dispatch.PhaseUnknownAction {
		action = "unknown"
	}
	a.metrics.ObserveAction(action, o.Status, o.Duration)
}

func (a *app) flushMetrics() {
	if a.cfg == nil || a.cfg.MetricsTextfile == "" {
		return
	}
	if err := a.metrics.WriteTextfile(a.cfg.MetricsTextfile); err != nil {
		a.logger.Warn("metrics not written", "error", err)
	}
}

// config returns the loaded configuration or the error that prevented loading it.
func (a *app) config() (*config.Config, error) {
	if a.cfgErr != nil {
		return nil, fmt.Errorf("loading config: %w", a.cfgErr)
	}
	if a.cfg == nil {
		return config.Default(), nil
	}
	return a.cfg, nil
}

// client builds a GoCardless client with the configured token cache.
// The returned cleanup must be called when the client is no longer needed.
func (a *app) client(cfg *config.Config) (*gocardless.Client, func(), error) {
	var backend tokencache.Backend
	cleanup := func() {}
	if cfg.RedisURL != "" {
		rb, err := tokencache.NewRedisBackend(cfg.RedisURL)
		if err != nil {
			return nil, cleanup, err
		}
		backend = rb
		cleanup = func() { _ = rb.Close() }
	} else {
		fb := tokencache.NewFileBackend(cfg.TokenCachePath())
		a.logger.Debug("token cache", "path", fb.Path())
		backend = fb
	}

	var cacheOpts []tokencache.Option
	key, err := cfg.CacheKey()
	if err != nil {
		cleanup()
		return nil, func() {}, err
	}
	if key != nil {
		sealer, err := tokencache.NewSealer(key)
		if err != nil {
			cleanup()
			return nil, func() {}, err
		}
		cacheOpts = append(cacheOpts, tokencache.WithSealer(sealer))
	}

	opts := []gocardless.ClientOption{
		gocardless.WithTokenStore(tokencache.New(backend, cacheOpts...)),
		gocardless.WithCredentials(func() (secrets.UserSecrets, error) {
			return secrets.LoadUserSecrets(cfg.GCBADSecretsDir)
		}),
		gocardless.WithLogger(a.logger),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, gocardless.WithBaseURL(cfg.BaseURL))
	}
	return gocardless.NewClient(opts...), cleanup, nil
}

// openHistory opens the history database, creating the data dir if needed.
func (a *app) openHistory(cfg *config.Config) (*history.DB, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}
	return history.Open(cfg.HistoryPath())
}

func (a *app) help(_ context.Context, _ []string) error {
	a.dispatcher.PrintUsage(a.stdout, programName)
	return nil
}

func (a *app) version(_ context.Context, _ []string) error {
	fmt.Fprintf(a.stdout, "%s %s\n", programName, Version)
	return nil
}
