// Package auth obtains and caches the OAuth2 credential used to call the
// YouTube Data API on behalf of the desktop user.
//
// The Authenticator runs the installed-application flow: it listens on a
// loopback address, opens the consent page in the user's browser and waits
// (bounded by Config.AuthTimeout) for the provider to redirect back with an
// authorization code. The resulting token is kept in memory, persisted through
// a storage.TokenStore and refreshed on expiry, so the browser step only
// happens when no reusable credential exists.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"yucil/internal/logging"
	"yucil/storage"
)

// Sentinel errors for authentication.
var (
	// ErrConfigMissing indicates the client secret file is absent, unreadable
	// or not a valid OAuth client descriptor.
	ErrConfigMissing = errors.New("auth: client secret missing or unreadable")
	// ErrAuthorizationFailed indicates the user or provider did not grant a
	// credential (declined consent, bad callback, timeout, rejected refresh).
	ErrAuthorizationFailed = errors.New("auth: authorization failed")
)

// DefaultRevokeURL is Google's token revocation endpoint.
const DefaultRevokeURL = "https://oauth2.googleapis.com/revoke"

// OAuth scopes. EditScope also covers everything ReadOnlyScope grants.
const (
	ReadOnlyScope = youtube.YoutubeReadonlyScope
	EditScope     = youtube.YoutubeScope
)

// Config controls the authorization flow.
type Config struct {
	// ClientSecretPath locates the installed-app client descriptor.
	ClientSecretPath string
	// Scopes requested during authorization. Defaults to youtube.readonly.
	Scopes []string
	// RedirectAddr is the loopback listen address for the redirect.
	RedirectAddr string
	// AuthTimeout bounds the wait for the browser redirect.
	AuthTimeout time.Duration
	// RevokeURL is the token revocation endpoint.
	RevokeURL string
}

// BrowserFunc presents the consent URL to the user.
type BrowserFunc func(ctx context.Context, authURL string) error

// Option customises Authenticator construction.
type Option func(*Authenticator)

// WithHTTPClient sets the client used for token exchange, refresh and
// revocation, and as the base transport for authorized clients.
func WithHTTPClient(client *http.Client) Option {
	return func(a *Authenticator) {
		a.httpClient = client
	}
}

// WithTokenStore injects the persistence layer for the token.
func WithTokenStore(store storage.TokenStore) Option {
	return func(a *Authenticator) {
		a.store = store
	}
}

// WithBrowser overrides how the consent URL is opened. Nil only logs it.
func WithBrowser(fn BrowserFunc) Option {
	return func(a *Authenticator) {
		a.browser = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Authenticator) {
		a.logger = logger
	}
}

// Authenticator owns the OAuth credential for the lifetime of the process.
// It is safe for concurrent use; concurrent callers share a single
// authorization flow.
type Authenticator struct {
	cfg        Config
	httpClient *http.Client
	store      storage.TokenStore
	browser    BrowserFunc
	logger     *slog.Logger

	mu      sync.Mutex
	source  *persistingSource
	pending *pendingAuth
}

// pendingAuth is an acquisition in progress that later callers wait on.
type pendingAuth struct {
	done   chan struct{}
	source *persistingSource
	err    error
}

// New builds an Authenticator. By default the consent page is opened with
// OpenBrowser and tokens are not persisted.
func New(cfg Config, opts ...Option) *Authenticator {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{ReadOnlyScope}
	}
	if cfg.RedirectAddr == "" {
		cfg.RedirectAddr = "127.0.0.1:0"
	}
	if cfg.AuthTimeout <= 0 {
		cfg.AuthTimeout = 5 * time.Minute
	}
	if cfg.RevokeURL == "" {
		cfg.RevokeURL = DefaultRevokeURL
	}

	a := &Authenticator{
		cfg:        cfg,
		httpClient: http.DefaultClient,
		browser:    OpenBrowser,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.httpClient == nil {
		a.httpClient = http.DefaultClient
	}
	a.logger = logging.WithComponent(a.logger, "auth")
	return a
}

// Client returns an HTTP client that attaches the bearer credential to every
// request, acquiring the credential first if needed.
func (a *Authenticator) Client(ctx context.Context) (*http.Client, error) {
	ts, err := a.TokenSource(ctx)
	if err != nil {
		return nil, err
	}

	base := a.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   a.httpClient.Timeout,
		Transport: &oauth2.Transport{Source: ts, Base: base},
	}, nil
}

// TokenSource returns the cached token source, acquiring a credential when
// none is cached: a persisted token is reused when valid or refreshable,
// otherwise the interactive flow runs.
//
// Concurrent callers share one acquisition. Each of them stops waiting when
// its own ctx is done; if the caller running the flow gives up, a waiting
// caller takes over.
func (a *Authenticator) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		a.mu.Lock()
		if a.source != nil {
			source := a.source
			a.mu.Unlock()
			return source, nil
		}
		if p := a.pending; p != nil {
			a.mu.Unlock()
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-p.done:
			}
			if p.err == nil {
				return p.source, nil
			}
			if abandoned(p.err) {
				continue
			}
			return nil, p.err
		}

		p := &pendingAuth{done: make(chan struct{})}
		a.pending = p
		a.mu.Unlock()

		p.source, p.err = a.acquire(ctx)

		a.mu.Lock()
		a.pending = nil
		if p.err == nil {
			a.source = p.source
		}
		a.mu.Unlock()
		close(p.done)

		if p.err != nil {
			return nil, p.err
		}
		return p.source, nil
	}
}

// abandoned reports whether err only means the acquiring caller stopped
// waiting, as opposed to the acquisition itself failing.
func abandoned(err error) bool {
	if errors.Is(err, ErrAuthorizationFailed) || errors.Is(err, ErrConfigMissing) {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// acquire loads or authorizes a credential and wraps it in a persistingSource.
func (a *Authenticator) acquire(ctx context.Context) (*persistingSource, error) {
	conf, err := a.oauthConfig()
	if err != nil {
		return nil, err
	}

	token := a.loadStoredToken(ctx)
	if token == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		token, err = a.authorize(ctx, conf)
		if err != nil {
			return nil, err
		}
		a.saveToken(ctx, token)
	}

	return &persistingSource{
		auth: a,
		base: conf.TokenSource(a.httpContext(context.Background()), token),
		last: token,
	}, nil
}

// Login makes sure a credential is available, running the browser flow if needed.
func (a *Authenticator) Login(ctx context.Context) error {
	_, err := a.TokenSource(ctx)
	return err
}

// Revoke invalidates the credential at the provider and forgets it locally.
// The local copy is dropped even when the revocation request fails.
func (a *Authenticator) Revoke(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var token *oauth2.Token
	if a.source != nil {
		token = a.source.latest()
	} else {
		token = a.loadStoredToken(ctx)
	}

	a.source = nil
	if a.store != nil {
		if err := a.store.DeleteToken(ctx); err != nil {
			return fmt.Errorf("delete stored token: %w", err)
		}
	}

	if token == nil {
		a.logger.Info("no credential to revoke")
		return nil
	}

	value := token.RefreshToken
	if value == "" {
		value = token.AccessToken
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.RevokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke token: provider returned status %d", resp.StatusCode)
	}
	a.logger.Info("credential revoked")
	return nil
}

// oauthConfig reads and parses the client secret.
func (a *Authenticator) oauthConfig() (*oauth2.Config, error) {
	path := a.cfg.ClientSecretPath
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s not found", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrConfigMissing, path, err)
	}

	conf, err := google.ConfigFromJSON(data, a.cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrConfigMissing, path, err)
	}
	return conf, nil
}

// loadStoredToken returns a reusable persisted token or nil.
func (a *Authenticator) loadStoredToken(ctx context.Context) *oauth2.Token {
	if a.store == nil {
		return nil
	}

	token, err := a.store.LoadToken(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn("stored token unusable, authorization required", slog.Any("error", err))
		}
		return nil
	}
	if !token.Valid() && token.RefreshToken == "" {
		a.logger.Info("stored token expired without refresh token")
		return nil
	}
	return token
}

func (a *Authenticator) saveToken(ctx context.Context, token *oauth2.Token) {
	if a.store == nil {
		return
	}
	if err := a.store.SaveToken(ctx, token); err != nil {
		a.logger.Warn("failed to persist token", slog.Any("error", err))
	}
}

// Invalidate forgets the cached and persisted credential so the next call
// authorizes again. It is used when the API rejects a token the provider
// still considers fresh, for example after access was revoked elsewhere.
func (a *Authenticator) Invalidate() {
	a.mu.Lock()
	source := a.source
	a.mu.Unlock()
	if source != nil {
		a.logger.Warn("credential rejected by the API, dropped")
		a.invalidate(source)
	}
}

// invalidate drops source if it is still the cached one, along with the
// persisted token.
func (a *Authenticator) invalidate(source *persistingSource) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.source != source {
		return
	}
	a.source = nil
	if a.store != nil {
		if err := a.store.DeleteToken(context.Background()); err != nil {
			a.logger.Warn("failed to delete rejected token", slog.Any("error", err))
		}
	}
}

func (a *Authenticator) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
}

// persistingSource persists refreshed tokens and forgets credentials the
// provider refuses to refresh.
type persistingSource struct {
	auth *Authenticator
	base oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	token, err := p.base.Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			p.auth.logger.Warn("token refresh rejected, credential dropped", slog.Any("error", err))
			p.auth.invalidate(p)
			return nil, fmt.Errorf("%w: refresh rejected: %w", ErrAuthorizationFailed, err)
		}
		return nil, err
	}

	p.mu.Lock()
	changed := p.last == nil || p.last.AccessToken != token.AccessToken
	p.last = token
	p.mu.Unlock()

	if changed {
		p.auth.logger.Debug("token refreshed", slog.Time("expiry", token.Expiry))
		p.auth.saveToken(context.Background(), token)
	}
	return token, nil
}

func (p *persistingSource) latest() *oauth2.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}
