package dispatch

import (
	"context"
	"encoding/json"
	"fmt"

	"yucil/youtube"
)

// Playlist item editing commands. They are only registered when
// Services.Editor is set.
const (
	CmdDeletePlaylistItem   = "delete_playlist_item"
	CmdMovePlaylistItem     = "move_playlist_item"
	CmdInsertPlaylistItem   = "insert_playlist_item"
	CmdTransferPlaylistItem = "transfer_playlist_item"
)

// PlaylistEditor changes playlist contents. *youtube.Fetcher implements it.
type PlaylistEditor interface {
	DeletePlaylistItem(ctx context.Context, itemID string) error
	MovePlaylistItem(ctx context.Context, item youtube.PlaylistItem, position int64) (youtube.PlaylistItem, error)
	InsertPlaylistItem(ctx context.Context, playlistID, videoID string, position int64) (youtube.PlaylistItem, error)
	TransferPlaylistItem(ctx context.Context, item youtube.PlaylistItem, toPlaylistID string, position int64) (youtube.PlaylistItem, error)
}

// itemArgs identifies an existing playlist entry. Position is optional for
// insert and transfer, where a missing value appends.
type itemArgs struct {
	PlaylistID   string `json:"playlist_id"`
	ItemID       string `json:"item_id"`
	VideoID      string `json:"video_id"`
	ToPlaylistID string `json:"to_playlist_id"`
	Position     *int64 `json:"position"`
}

func (a itemArgs) item() youtube.PlaylistItem {
	return youtube.PlaylistItem{ID: a.ItemID, PlaylistID: a.PlaylistID, VideoID: a.VideoID}
}

// position returns the requested position, or -1 (append) when absent.
func (a itemArgs) position() int64 {
	if a.Position == nil {
		return -1
	}
	return *a.Position
}

// decodeItemArgs decodes raw and checks that every named field is set.
func decodeItemArgs(raw json.RawMessage, required ...string) (itemArgs, error) {
	var args itemArgs
	if err := decodeArgs(raw, &args); err != nil {
		return args, err
	}
	fields := map[string]string{
		"playlist_id":    args.PlaylistID,
		"item_id":        args.ItemID,
		"video_id":       args.VideoID,
		"to_playlist_id": args.ToPlaylistID,
	}
	for _, name := range required {
		if name == "position" {
			if args.Position == nil || *args.Position < 0 {
				return args, fmt.Errorf("%w: position must be zero or more", ErrInvalidArgs)
			}
			continue
		}
		if fields[name] == "" {
			return args, fmt.Errorf("%w: %s is required", ErrInvalidArgs, name)
		}
	}
	return args, nil
}

func (c *commands) deletePlaylistItem(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeItemArgs(raw, "item_id")
	if err != nil {
		return nil, err
	}
	if err := c.Editor.DeletePlaylistItem(ctx, args.ItemID); err != nil {
		return nil, err
	}
	return map[string]string{"deleted": args.ItemID}, nil
}

func (c *commands) movePlaylistItem(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeItemArgs(raw, "playlist_id", "item_id", "video_id", "position")
	if err != nil {
		return nil, err
	}
	return c.Editor.MovePlaylistItem(ctx, args.item(), *args.Position)
}

func (c *commands) insertPlaylistItem(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeItemArgs(raw, "playlist_id", "video_id")
	if err != nil {
		return nil, err
	}
	return c.Editor.InsertPlaylistItem(ctx, args.PlaylistID, args.VideoID, args.position())
}

func (c *commands) transferPlaylistItem(ctx context.Context, raw json.RawMessage) (any, error) {
	args, err := decodeItemArgs(raw, "playlist_id", "item_id", "video_id", "to_playlist_id")
	if err != nil {
		return nil, err
	}
	return c.Editor.TransferPlaylistItem(ctx, args.item(), args.ToPlaylistID, args.position())
}
