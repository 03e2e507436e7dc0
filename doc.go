// Package yucil fetches a YouTube user's "music" playlists.
//
// It authorizes against the YouTube Data API with the installed-application
// OAuth flow, lists the playlists owned by the user, keeps those whose title
// starts with "music-" and returns their IDs ordered by title.
//
// Overview
//
// An App wires the whole stack from a config.Config:
//
//   - auth.Authenticator: browser-based authorization, cached and persisted token
//   - youtube.Fetcher: playlist listing, selection and error classification
//   - dispatch.Dispatcher: typed command boundary for front-ends
//   - storage: token file and SQLite history of fetched results
//
// Quick Start
//
//	cfg, _, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	app, err := yucil.Open(ctx, cfg, slog.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//
//	ids, err := app.FetchMusicPlaylists(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Println(ids)
//
// The first call opens the consent page in the browser and waits (five
// minutes by default) for the redirect. Later calls reuse the stored token.
//
// Configuration
//
// Settings come from, in increasing priority: defaults, yucil.toml (working
// directory or the user config directory) and YUCIL_* environment variables:
//
//   - YUCIL_CLIENT_SECRET: path to client_secret.json
//   - YUCIL_TOKEN_PATH: where the OAuth token is stored
//   - YUCIL_SNAPSHOT_DB: SQLite history database, empty to disable
//   - YUCIL_TITLE_PREFIX: playlist title prefix, "music-" by default
//   - YUCIL_PAGINATE / YUCIL_MAX_PAGES: listing pagination
//   - YUCIL_AUTH_TIMEOUT / YUCIL_REQUEST_TIMEOUT: durations such as "90s"
//   - YUCIL_OPEN_BROWSER: launch the browser for authorization
//   - YUCIL_LOG_LEVEL / YUCIL_LOG_FORMAT: logging
//
// Error Handling
//
// Failures carry a kind that tells the caller what went wrong:
//
//	var fetchErr *yucil.FetchError
//	if errors.As(err, &fetchErr) {
//		switch fetchErr.Kind {
//		case youtube.KindConfigMissing:
//			fmt.Println("client_secret.json is missing")
//		case youtube.KindAuthorizationFailed:
//			fmt.Println("access was not granted")
//		}
//	}
//
// Use yucil.IsTransient to decide whether retrying later may help.
package yucil
