package youtube

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/youtube/v3"
)

// videoKind is the resource kind of a video entry.
const videoKind = "youtube#video"

// DeletePlaylistItem removes one entry from its playlist.
//
// Editing calls need a credential with the youtube scope. A read-only
// credential is refused with insufficientPermissions and dropped, so the next
// call authorizes again.
func (f *Fetcher) DeletePlaylistItem(ctx context.Context, itemID string) error {
	const op = "delete playlist item"

	if itemID == "" {
		return &FetchError{Op: op, Kind: KindInvalidArgument, Err: fmt.Errorf("%w: item id is empty", ErrInvalidItem)}
	}
	svc, err := f.service(ctx, op)
	if err != nil {
		return err
	}
	if err := svc.PlaylistItems.Delete(itemID).Context(ctx).Do(); err != nil {
		return f.fail(op, err)
	}

	f.logger.Info("playlist item deleted", slog.String("item_id", itemID))
	return nil
}

// MovePlaylistItem moves item to position within its own playlist. item must
// carry its ID, PlaylistID and VideoID as returned by FetchPlaylistItems.
func (f *Fetcher) MovePlaylistItem(ctx context.Context, item PlaylistItem, position int64) (PlaylistItem, error) {
	const op = "move playlist item"

	switch {
	case item.ID == "" || item.PlaylistID == "" || item.VideoID == "":
		return PlaylistItem{}, &FetchError{Op: op, Kind: KindInvalidArgument,
			Err: fmt.Errorf("%w: id, playlist id and video id are required", ErrInvalidItem)}
	case position < 0:
		return PlaylistItem{}, &FetchError{Op: op, Kind: KindInvalidArgument,
			Err: fmt.Errorf("%w: position %d is negative", ErrInvalidItem, position)}
	}

	svc, err := f.service(ctx, op)
	if err != nil {
		return PlaylistItem{}, err
	}
	resp, err := svc.PlaylistItems.Update([]string{"snippet"},
		apiPlaylistItem(item.ID, item.PlaylistID, item.ResourceKind, item.VideoID, position)).
		Context(ctx).
		Do()
	if err != nil {
		return PlaylistItem{}, f.fail(op, err)
	}

	moved, err := editedItem(op, resp, item.PlaylistID)
	if err != nil {
		return PlaylistItem{}, err
	}
	f.logger.Info("playlist item moved",
		slog.String("item_id", item.ID),
		slog.Int64("from", item.Position),
		slog.Int64("to", moved.Position),
	)
	return moved, nil
}

// InsertPlaylistItem adds videoID to playlistID at position. A negative
// position appends to the end.
func (f *Fetcher) InsertPlaylistItem(ctx context.Context, playlistID, videoID string, position int64) (PlaylistItem, error) {
	const op = "insert playlist item"

	if playlistID == "" || videoID == "" {
		return PlaylistItem{}, &FetchError{Op: op, Kind: KindInvalidArgument,
			Err: fmt.Errorf("%w: playlist id and video id are required", ErrInvalidItem)}
	}
	svc, err := f.service(ctx, op)
	if err != nil {
		return PlaylistItem{}, err
	}
	resp, err := svc.PlaylistItems.Insert([]string{"snippet"},
		apiPlaylistItem("", playlistID, videoKind, videoID, position)).
		Context(ctx).
		Do()
	if err != nil {
		return PlaylistItem{}, f.fail(op, err)
	}

	inserted, err := editedItem(op, resp, playlistID)
	if err != nil {
		return PlaylistItem{}, err
	}
	f.logger.Info("playlist item inserted",
		slog.String("playlist_id", playlistID),
		slog.String("video_id", videoID),
		slog.Int64("position", inserted.Position),
	)
	return inserted, nil
}

// TransferPlaylistItem moves item into the playlist toPlaylistID at position
// (negative appends). The copy is inserted before the original is deleted;
// if the delete fails the inserted entry is returned with the error and the
// video is left in both playlists.
func (f *Fetcher) TransferPlaylistItem(ctx context.Context, item PlaylistItem, toPlaylistID string, position int64) (PlaylistItem, error) {
	const op = "transfer playlist item"

	if item.ID == "" || item.VideoID == "" || toPlaylistID == "" {
		return PlaylistItem{}, &FetchError{Op: op, Kind: KindInvalidArgument,
			Err: fmt.Errorf("%w: id, video id and target playlist are required", ErrInvalidItem)}
	}
	if item.PlaylistID == toPlaylistID {
		return f.MovePlaylistItem(ctx, item, max(position, 0))
	}

	inserted, err := f.InsertPlaylistItem(ctx, toPlaylistID, item.VideoID, position)
	if err != nil {
		return PlaylistItem{}, err
	}
	if err := f.DeletePlaylistItem(ctx, item.ID); err != nil {
		return inserted, err
	}
	return inserted, nil
}

func apiPlaylistItem(id, playlistID, kind, videoID string, position int64) *youtube.PlaylistItem {
	if kind == "" {
		kind = videoKind
	}
	snippet := &youtube.PlaylistItemSnippet{
		PlaylistId: playlistID,
		ResourceId: &youtube.ResourceId{Kind: kind, VideoId: videoID},
	}
	if position >= 0 {
		snippet.Position = position
		// Position 0 would otherwise be dropped by omitempty.
		snippet.ForceSendFields = []string{"Position"}
	}
	return &youtube.PlaylistItem{Id: id, Snippet: snippet}
}

func editedItem(op string, resp *youtube.PlaylistItem, playlistID string) (PlaylistItem, error) {
	if resp == nil || resp.Id == "" {
		return PlaylistItem{}, &FetchError{Op: op, Kind: KindMalformedResponse,
			Err: fmt.Errorf("%w: playlist item response has no id", ErrMalformedResponse)}
	}
	item := playlistItemFromAPI(resp)
	if item.PlaylistID == "" {
		item.PlaylistID = playlistID
	}
	return item, nil
}
