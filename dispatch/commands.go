package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"yucil/storage"
	"yucil/youtube"
)

// Command names.
const (
	CmdGetPlaylists          = "get_playlists"
	CmdListPlaylists         = "list_playlists"
	CmdGetPlaylistItems      = "get_playlist_items"
	CmdGetPlaylistsWithItems = "get_playlists_with_items"
	CmdLastPlaylists         = "last_playlists"
	CmdHistory               = "history"
	CmdRevoke                = "revoke"
)

// PlaylistService is the playlist backend. *youtube.Fetcher implements it.
type PlaylistService interface {
	FetchMusicPlaylists(ctx context.Context) ([]string, error)
	ListPlaylists(ctx context.Context) ([]youtube.Playlist, error)
	FetchPlaylistItems(ctx context.Context, playlistID string) ([]youtube.PlaylistItem, error)
	FetchMusicPlaylistsWithItems(ctx context.Context) ([]youtube.PlaylistWithItems, error)
	Prefix() string
}

// Revoker forgets the user's credential. *auth.Authenticator implements it.
type Revoker interface {
	Revoke(ctx context.Context) error
}

// Services are the collaborators behind the built-in commands. Snapshots,
// Auth and Editor are optional; their commands are only registered when set.
type Services struct {
	Playlists PlaylistService
	Auth      Revoker
	Snapshots storage.SnapshotStore
	Editor    PlaylistEditor
	Logger    *slog.Logger
}

type playlistItemsArgs struct {
	PlaylistID string `json:"playlist_id"`
}

type historyArgs struct {
	Limit int `json:"limit"`
}

// RegisterCommands wires the built-in commands into d.
func RegisterCommands(d *Dispatcher, s Services) error {
	if s.Playlists == nil {
		return fmt.Errorf("%w: playlist service is required", ErrInvalidArgs)
	}
	c := &commands{Services: s}
	if c.Logger == nil {
		c.Logger = d.logger
	}

	handlers := map[string]Handler{
		CmdGetPlaylists:          c.getPlaylists,
		CmdListPlaylists:         c.listPlaylists,
		CmdGetPlaylistItems:      c.getPlaylistItems,
		CmdGetPlaylistsWithItems: c.getPlaylistsWithItems,
	}
	if s.Snapshots != nil {
		handlers[CmdLastPlaylists] = c.lastPlaylists
		handlers[CmdHistory] = c.history
	}
	if s.Auth != nil {
		handlers[CmdRevoke] = c.revoke
	}
	if s.Editor != nil {
		handlers[CmdDeletePlaylistItem] = c.deletePlaylistItem
		handlers[CmdMovePlaylistItem] = c.movePlaylistItem
		handlers[CmdInsertPlaylistItem] = c.insertPlaylistItem
		handlers[CmdTransferPlaylistItem] = c.transferPlaylistItem
	}

	for name, h := range handlers {
		if err := d.Register(name, h); err != nil {
			return err
		}
	}
	return nil
}

type commands struct {
	Services
}

// getPlaylists returns the music playlist IDs and records the result.
func (c *commands) getPlaylists(ctx context.Context, _ json.RawMessage) (any, error) {
	ids, err := c.Playlists.FetchMusicPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	if c.Snapshots != nil {
		snap := &storage.Snapshot{
			Prefix:      c.Playlists.Prefix(),
			PlaylistIDs: ids,
			FetchedAt:   time.Now().UTC(),
		}
		if err := c.Snapshots.SaveSnapshot(ctx, snap); err != nil {
			c.Logger.Warn("failed to record playlist snapshot", slog.Any("error", err))
		}
	}
	return ids, nil
}

func (c *commands) listPlaylists(ctx context.Context, _ json.RawMessage) (any, error) {
	return c.Playlists.ListPlaylists(ctx)
}

func (c *commands) getPlaylistItems(ctx context.Context, raw json.RawMessage) (any, error) {
	var args playlistItemsArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.PlaylistID == "" {
		return nil, fmt.Errorf("%w: playlist_id is required", ErrInvalidArgs)
	}
	return c.Playlists.FetchPlaylistItems(ctx, args.PlaylistID)
}

func (c *commands) getPlaylistsWithItems(ctx context.Context, _ json.RawMessage) (any, error) {
	return c.Playlists.FetchMusicPlaylistsWithItems(ctx)
}

func (c *commands) lastPlaylists(ctx context.Context, _ json.RawMessage) (any, error) {
	return c.Snapshots.LatestSnapshot(ctx)
}

func (c *commands) history(ctx context.Context, raw json.RawMessage) (any, error) {
	var args historyArgs
	if err := decodeArgs(raw, &args); err != nil {
		return nil, err
	}
	if args.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidArgs)
	}
	snapshots, err := c.Snapshots.ListSnapshots(ctx, args.Limit)
	if err != nil {
		return nil, err
	}
	if snapshots == nil {
		snapshots = []*storage.Snapshot{}
	}
	return snapshots, nil
}

func (c *commands) revoke(ctx context.Context, _ json.RawMessage) (any, error) {
	if err := c.Auth.Revoke(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("revoke credential: %w", err)
	}
	return map[string]bool{"revoked": true}, nil
}
