package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

var (
	errStateMismatch = errors.New("callback state does not match")
	errMissingCode   = errors.New("callback carried no authorization code")
	errAuthTimeout   = errors.New("authorization wait timed out")
)

type callbackResult struct {
	code string
	err  error
}

// callbackHandler receives the provider redirect on the loopback listener.
// Only the first callback is delivered.
type callbackHandler struct {
	state   string
	results chan<- callbackResult
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	var result callbackResult
	switch {
	case query.Get("error") != "":
		result.err = fmt.Errorf("provider returned %q", query.Get("error"))
		if desc := query.Get("error_description"); desc != "" {
			result.err = fmt.Errorf("provider returned %q: %s", query.Get("error"), desc)
		}
	case query.Get("state") != h.state:
		result.err = errStateMismatch
	case query.Get("code") == "":
		result.err = errMissingCode
	default:
		result.code = query.Get("code")
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if result.err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Authorization failed: %v\n", result.err)
	} else {
		fmt.Fprintln(w, "Authorization complete. You can close this window.")
	}

	select {
	case h.results <- result:
	default:
	}
}

// authorize runs the interactive installed-app flow and exchanges the code
// for a token. The wait for the redirect is bounded by AuthTimeout.
func (a *Authenticator) authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, a.cfg.AuthTimeout, errAuthTimeout)
	defer cancel()

	listener, err := net.Listen("tcp", a.cfg.RedirectAddr)
	if err != nil {
		return nil, fmt.Errorf("%w: listen for redirect on %s: %w", ErrAuthorizationFailed, a.cfg.RedirectAddr, err)
	}

	flow := *conf
	flow.RedirectURL = "http://" + listener.Addr().String() + "/"

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	authURL := flow.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))

	results := make(chan callbackResult, 1)
	server := &http.Server{
		Handler:           &callbackHandler{state: state, results: results},
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			a.logger.Warn("redirect listener stopped", slog.Any("error", serveErr))
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	a.logger.Info("authorization required, open this URL to continue",
		slog.String("url", authURL),
		slog.String("redirect", flow.RedirectURL),
		slog.Duration("timeout", a.cfg.AuthTimeout),
	)
	if a.browser != nil {
		if err := a.browser(ctx, authURL); err != nil {
			a.logger.Warn("could not open browser", slog.Any("error", err))
		}
	}

	var code string
	select {
	case result := <-results:
		if result.err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthorizationFailed, result.err)
		}
		code = result.code
	case <-ctx.Done():
		if errors.Is(context.Cause(ctx), errAuthTimeout) {
			return nil, fmt.Errorf("%w: no redirect within %s: %w", ErrAuthorizationFailed, a.cfg.AuthTimeout, ctx.Err())
		}
		return nil, ctx.Err()
	}

	token, err := flow.Exchange(a.httpContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			return nil, fmt.Errorf("%w: exchange code: %w", ErrAuthorizationFailed, err)
		}
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	a.logger.Info("authorization granted", slog.Time("expiry", token.Expiry))
	return token, nil
}
