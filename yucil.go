package yucil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"yucil/auth"
	"yucil/config"
	"yucil/dispatch"
	httpx "yucil/http"
	"yucil/storage"
	"yucil/youtube"
)

// App is the wired backend: HTTP client, authenticator, fetcher, snapshot
// history and the command dispatcher.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	HTTPClient *http.Client
	Tokens     *storage.FileTokenStore
	Auth       *auth.Authenticator
	Fetcher    *youtube.Fetcher
	Dispatcher *dispatch.Dispatcher

	// Snapshots is nil when the snapshot database is disabled.
	Snapshots *storage.SQLiteSnapshotStore
}

// Option adjusts how Open builds the App.
type Option func(*openOptions)

type openOptions struct {
	authOpts  []auth.Option
	fetchOpts []youtube.Option
}

// WithAuthOptions appends options for the authenticator.
func WithAuthOptions(opts ...auth.Option) Option {
	return func(o *openOptions) {
		o.authOpts = append(o.authOpts, opts...)
	}
}

// WithFetcherOptions appends options for the playlist fetcher.
func WithFetcherOptions(opts ...youtube.Option) Option {
	return func(o *openOptions) {
		o.fetchOpts = append(o.fetchOpts, opts...)
	}
}

// Open builds an App from cfg. No network traffic happens until a command
// runs; authorization is deferred to the first API call.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	var o openOptions
	for _, opt := range opts {
		opt(&o)
	}

	httpCfg := httpx.DefaultConfig()
	httpCfg.Timeout = cfg.RequestTimeout()
	client, err := httpx.New(httpCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	tokens := storage.NewFileTokenStore(cfg.TokenPath)

	var browser auth.BrowserFunc
	if cfg.OpenBrowser {
		browser = auth.OpenBrowser
	}
	authOpts := append([]auth.Option{
		auth.WithHTTPClient(client),
		auth.WithTokenStore(tokens),
		auth.WithBrowser(browser),
		auth.WithLogger(logger),
	}, o.authOpts...)
	authCfg := auth.Config{
		ClientSecretPath: cfg.ClientSecretPath,
		Scopes:           []string{auth.ReadOnlyScope},
		RedirectAddr:     cfg.RedirectAddr,
		AuthTimeout:      cfg.AuthTimeout(),
		RevokeURL:        cfg.RevokeURL,
	}
	if cfg.AllowEdit {
		authCfg.Scopes = []string{auth.EditScope}
	}
	authenticator := auth.New(authCfg, authOpts...)

	fetchOpts := append([]youtube.Option{
		youtube.WithTitlePrefix(cfg.TitlePrefix),
		youtube.WithPagination(cfg.Paginate, cfg.MaxPages),
		youtube.WithLogger(logger),
	}, o.fetchOpts...)
	fetcher := youtube.NewFetcher(authenticator, fetchOpts...)

	app := &App{
		Config:     cfg,
		Logger:     logger,
		HTTPClient: client,
		Tokens:     tokens,
		Auth:       authenticator,
		Fetcher:    fetcher,
		Dispatcher: dispatch.New(logger),
	}

	services := dispatch.Services{Playlists: fetcher, Auth: authenticator, Logger: logger}
	if cfg.AllowEdit {
		services.Editor = fetcher
	}
	if cfg.SnapshotDBPath != "" {
		snapshots, err := storage.OpenSnapshotStore(ctx, cfg.SnapshotDBPath)
		if err != nil {
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		app.Snapshots = snapshots
		services.Snapshots = snapshots
	}

	if err := dispatch.RegisterCommands(app.Dispatcher, services); err != nil {
		app.Close()
		return nil, fmt.Errorf("register commands: %w", err)
	}
	return app, nil
}

// FetchMusicPlaylists returns the IDs of the user's music playlists, ordered
// by title, and records them in the snapshot history when enabled.
func (a *App) FetchMusicPlaylists(ctx context.Context) ([]string, error) {
	resp := a.Dispatcher.Invoke(ctx, dispatch.Request{Command: dispatch.CmdGetPlaylists})
	if !resp.OK {
		return nil, resp.Err
	}
	ids, _ := resp.Data.([]string)
	return ids, nil
}

// Close releases the snapshot database and idle connections.
func (a *App) Close() error {
	var errs []error
	if a.Snapshots != nil {
		if err := a.Snapshots.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.HTTPClient != nil {
		a.HTTPClient.CloseIdleConnections()
	}
	return errors.Join(errs...)
}
