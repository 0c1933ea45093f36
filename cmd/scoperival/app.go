package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/scoperival/internal/apiclient"
	"github.com/nao1215/scoperival/internal/config"
	"github.com/nao1215/scoperival/internal/dashboard"
	"github.com/nao1215/scoperival/internal/database"
	"github.com/nao1215/scoperival/internal/feed"
	"github.com/nao1215/scoperival/internal/log"
	"github.com/nao1215/scoperival/internal/onboarding"
	"github.com/nao1215/scoperival/internal/registry"
	"github.com/nao1215/scoperival/internal/session"
)

// errNotLoggedIn is returned by commands that need an account.
var errNotLoggedIn = errors.New("not logged in (run `scoperival login` first)")

// app wires the client components for one command invocation.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *database.LocalDB

	client    *apiclient.Client
	session   *session.Store
	registry  *registry.Registry
	onboard   *onboarding.Controller
	feed      *feed.Feed
	dashboard *dashboard.Loader
}

// appOption customises newApp.
type appOption func(*appSettings)

type appSettings struct {
	confirm registry.ConfirmFunc
}

func withConfirm(fn registry.ConfirmFunc) appOption {
	return func(s *appSettings) { s.confirm = fn }
}

// newApp builds the configuration from cmd and opens the local database.
// The caller must call close.
func newApp(cmd *cobra.Command, opts ...appOption) (*app, error) {
	var settings appSettings
	for _, opt := range opts {
		opt(&settings)
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(cmd.ErrOrStderr(), log.Options{Verbose: cfg.Verbose, JSON: cfg.JSONLogs})
	slog.SetDefault(logger)

	db, err := database.Open(cfg.DataDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open local database: %w", err)
	}

	clientOpts := []apiclient.Option{
		apiclient.WithTimeout(cfg.Timeout),
		apiclient.WithUserAgent(cfg.UserAgent),
		apiclient.WithLogger(logger),
	}
	if cfg.ProxyAddress != "" {
		clientOpts = append(clientOpts, apiclient.WithProxy(cfg.ProxyAddress))
	}
	client, err := apiclient.New(cfg.BaseURL(), clientOpts...)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}

	regOpts := []registry.Option{
		registry.WithJournal(db),
		registry.WithLogger(logger),
	}
	if settings.confirm != nil {
		regOpts = append(regOpts, registry.WithConfirm(settings.confirm))
	}
	reg := registry.New(client, regOpts...)
	changeFeed := feed.New(client, reg, feed.WithLogger(logger))

	logger.Debug("configuration loaded",
		"api", cfg.BaseURL(),
		"config_file", cfg.ConfigFilePath,
		"database", db.Path(),
	)

	return &app{
		cfg:    cfg,
		logger: logger,
		db:     db,
		client: client,
		// The CLI is short-lived: fetch the profile before login returns.
		session:   session.NewStore(client, db, session.WithScheduler(session.Inline), session.WithLogger(logger)),
		registry:  reg,
		onboard:   onboarding.New(client, onboarding.WithRefresher(reg), onboarding.WithLogger(logger)),
		feed:      changeFeed,
		dashboard: dashboard.New(client, reg, changeFeed, dashboard.WithLogger(logger)),
	}, nil
}

func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close local database", "error", err)
	}
}

// requireSession restores the persisted session and fails when there is
// none.
func (a *app) requireSession(ctx context.Context) error {
	state, err := a.session.Restore(ctx)
	if err != nil {
		if kind, ok := apiclient.KindOf(err); ok && kind == apiclient.KindAuth {
			return fmt.Errorf("session expired, please log in again: %w", err)
		}
		return err
	}
	if state == session.Anonymous {
		return errNotLoggedIn
	}
	return nil
}

// buildConfig layers defaults, the YAML file, .env/environment and flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	path := config.FindConfigFile(configPath)
	switch {
	case path != "":
		f, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.ApplyFile(f)
		cfg.ConfigFilePath = path
	case configPath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, configPath)
	}

	env, err := config.LoadEnv(config.DefaultDotEnvFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(env)

	apiURL, err := cmd.Flags().GetString("api-url")
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	cfg.Verbose, err = cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	cfg.JSONLogs, err = cmd.Flags().GetBool("log-json")
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// describeError turns backend errors into a single readable line.
func describeError(err error) string {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return err.Error()
	}
	switch apiErr.Kind {
	case apiclient.KindAuth:
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
		return "authentication failed"
	case apiclient.KindValidation:
		if apiErr.Detail != "" {
			return apiErr.Detail
		}
	case apiclient.KindTransport:
		return "cannot reach the Scoperival backend: " + err.Error()
	}
	return err.Error()
}
