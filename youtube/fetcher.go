package youtube

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"

	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"yucil/internal/logging"
)

const (
	// DefaultMaxPages caps how many result pages one listing follows.
	DefaultMaxPages = 20

	// pageSize is the largest page the API serves; its default is 5.
	pageSize = 50

	itemsConcurrency = 4
)

// ClientProvider supplies an HTTP client that authorizes requests.
// *auth.Authenticator implements it.
type ClientProvider interface {
	Client(ctx context.Context) (*http.Client, error)
}

// credentialInvalidator is implemented by providers that can forget a
// credential the API refused.
type credentialInvalidator interface {
	Invalidate()
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTitlePrefix sets the prefix that marks music playlists.
func WithTitlePrefix(prefix string) Option {
	return func(f *Fetcher) {
		f.prefix = prefix
	}
}

// WithPagination controls whether listings follow nextPageToken and how many
// pages they read at most. Disabled pagination issues exactly one request.
func WithPagination(enabled bool, maxPages int) Option {
	return func(f *Fetcher) {
		f.paginate = enabled
		if maxPages > 0 {
			f.maxPages = maxPages
		}
	}
}

// WithEndpoint overrides the API base URL (tests, proxies).
func WithEndpoint(endpoint string) Option {
	return func(f *Fetcher) {
		f.endpoint = endpoint
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// Fetcher lists the authenticated user's playlists. It holds no state between
// calls and is safe for concurrent use.
type Fetcher struct {
	clients  ClientProvider
	prefix   string
	paginate bool
	maxPages int
	endpoint string
	logger   *slog.Logger
}

// NewFetcher creates a Fetcher that authorizes requests through clients.
func NewFetcher(clients ClientProvider, opts ...Option) *Fetcher {
	f := &Fetcher{
		clients:  clients,
		prefix:   DefaultTitlePrefix,
		paginate: true,
		maxPages: DefaultMaxPages,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.logger = logging.WithComponent(f.logger, "youtube")
	return f
}

// Prefix returns the title prefix used to select music playlists.
func (f *Fetcher) Prefix() string { return f.prefix }

// FetchMusicPlaylists returns the IDs of the user's music playlists ordered
// by title. No matching playlist yields an empty, non-nil slice.
func (f *Fetcher) FetchMusicPlaylists(ctx context.Context) ([]string, error) {
	const op = "fetch music playlists"

	svc, err := f.service(ctx, op)
	if err != nil {
		return nil, err
	}
	playlists, err := f.listPlaylists(ctx, svc, op)
	if err != nil {
		return nil, err
	}

	ids := SelectMusic(playlists, f.prefix)
	f.logger.Info("music playlists fetched",
		slog.Int("playlists", len(playlists)),
		slog.Int("matched", len(ids)),
		slog.String("prefix", f.prefix),
	)
	return ids, nil
}

// ListPlaylists returns all of the user's playlists ordered by title.
func (f *Fetcher) ListPlaylists(ctx context.Context) ([]Playlist, error) {
	const op = "list playlists"

	svc, err := f.service(ctx, op)
	if err != nil {
		return nil, err
	}
	playlists, err := f.listPlaylists(ctx, svc, op)
	if err != nil {
		return nil, err
	}
	SortByTitle(playlists)
	return playlists, nil
}

// FetchPlaylistItems returns the entries of one playlist ordered by position.
func (f *Fetcher) FetchPlaylistItems(ctx context.Context, playlistID string) ([]PlaylistItem, error) {
	const op = "fetch playlist items"

	if playlistID == "" {
		return nil, &FetchError{Op: op, Kind: KindInvalidArgument, Err: ErrInvalidPlaylistID}
	}
	svc, err := f.service(ctx, op)
	if err != nil {
		return nil, err
	}
	return f.listItems(ctx, svc, op, playlistID)
}

// FetchMusicPlaylistsWithItems returns the music playlists, ordered by title,
// together with their entries. Items are loaded concurrently; the first
// failure cancels the remaining loads.
func (f *Fetcher) FetchMusicPlaylistsWithItems(ctx context.Context) ([]PlaylistWithItems, error) {
	const op = "fetch music playlists with items"

	svc, err := f.service(ctx, op)
	if err != nil {
		return nil, err
	}
	playlists, err := f.listPlaylists(ctx, svc, op)
	if err != nil {
		return nil, err
	}

	music := FilterByPrefix(playlists, f.prefix)
	results := make([]PlaylistWithItems, len(music))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(itemsConcurrency)
	for i, p := range music {
		g.Go(func() error {
			items, err := f.listItems(gctx, svc, op, p.ID)
			if err != nil {
				return err
			}
			results[i] = PlaylistWithItems{Playlist: p, Items: items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (f *Fetcher) service(ctx context.Context, op string) (*youtube.Service, error) {
	client, err := f.clients.Client(ctx)
	if err != nil {
		return nil, f.fail(op, err)
	}

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if f.endpoint != "" {
		opts = append(opts, option.WithEndpoint(f.endpoint))
	}
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, f.fail(op, fmt.Errorf("create youtube service: %w", err))
	}
	return svc, nil
}

func (f *Fetcher) listPlaylists(ctx context.Context, svc *youtube.Service, op string) ([]Playlist, error) {
	var playlists []Playlist
	err := f.eachPage(op, func(pageToken string) (string, error) {
		call := svc.Playlists.List([]string{"snippet"}).
			Mine(true).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return "", err
		}
		if resp.Items == nil {
			return "", fmt.Errorf("%w: playlists response has no items field", ErrMalformedResponse)
		}

		for _, item := range resp.Items {
			if item == nil {
				continue
			}
			playlists = append(playlists, playlistFromAPI(item))
		}
		return resp.NextPageToken, nil
	})
	if err != nil {
		return nil, f.fail(op, err)
	}
	if playlists == nil {
		playlists = []Playlist{}
	}
	return playlists, nil
}

func (f *Fetcher) listItems(ctx context.Context, svc *youtube.Service, op, playlistID string) ([]PlaylistItem, error) {
	items := []PlaylistItem{}
	err := f.eachPage(op, func(pageToken string) (string, error) {
		call := svc.PlaylistItems.List([]string{"snippet"}).
			PlaylistId(playlistID).
			MaxResults(pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return "", err
		}
		if resp.Items == nil {
			return "", fmt.Errorf("%w: playlist items response has no items field", ErrMalformedResponse)
		}

		for _, item := range resp.Items {
			if item == nil {
				continue
			}
			entry := playlistItemFromAPI(item)
			if entry.PlaylistID == "" {
				entry.PlaylistID = playlistID
			}
			items = append(items, entry)
		}
		return resp.NextPageToken, nil
	})
	if err != nil {
		return nil, f.fail(op, err)
	}

	slices.SortStableFunc(items, func(a, b PlaylistItem) int {
		return cmp.Compare(a.Position, b.Position)
	})
	return items, nil
}

// eachPage calls fetch with successive page tokens until the listing is
// exhausted, pagination is off or the page limit is reached.
func (f *Fetcher) eachPage(op string, fetch func(pageToken string) (string, error)) error {
	pageToken := ""
	for page := 1; ; page++ {
		next, err := fetch(pageToken)
		if err != nil {
			return err
		}
		if next == "" || !f.paginate {
			return nil
		}
		if page >= f.maxPages {
			f.logger.Warn("page limit reached, remaining results ignored",
				slog.String("op", op),
				slog.Int("max_pages", f.maxPages),
			)
			return nil
		}
		pageToken = next
	}
}

// fail classifies err and drops the credential when the API refused it, so
// the next call authorizes again instead of reusing a dead token.
func (f *Fetcher) fail(op string, err error) error {
	err = classify(op, err)
	var remote *RemoteAPIError
	if errors.As(err, &remote) && remote.CredentialRejected() {
		if inv, ok := f.clients.(credentialInvalidator); ok {
			f.logger.Warn("credential refused by the API",
				slog.String("op", op),
				slog.Int("status", remote.StatusCode),
				slog.String("reason", remote.Reason),
			)
			inv.Invalidate()
		}
	}
	return err
}
