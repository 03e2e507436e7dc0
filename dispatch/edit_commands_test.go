package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"yucil/youtube"
)

type editCall struct {
	op       string
	item     youtube.PlaylistItem
	target   string
	position int64
}

type fakeEditor struct {
	mu    sync.Mutex
	calls []editCall
	err   error
}

func (e *fakeEditor) record(c editCall) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c)
	return e.err
}

func (e *fakeEditor) DeletePlaylistItem(_ context.Context, itemID string) error {
	return e.record(editCall{op: "delete", item: youtube.PlaylistItem{ID: itemID}})
}

func (e *fakeEditor) MovePlaylistItem(_ context.Context, item youtube.PlaylistItem, position int64) (youtube.PlaylistItem, error) {
	if err := e.record(editCall{op: "move", item: item, position: position}); err != nil {
		return youtube.PlaylistItem{}, err
	}
	item.Position = position
	return item, nil
}

func (e *fakeEditor) InsertPlaylistItem(_ context.Context, playlistID, videoID string, position int64) (youtube.PlaylistItem, error) {
	call := editCall{op: "insert", item: youtube.PlaylistItem{VideoID: videoID}, target: playlistID, position: position}
	if err := e.record(call); err != nil {
		return youtube.PlaylistItem{}, err
	}
	return youtube.PlaylistItem{ID: "new", PlaylistID: playlistID, VideoID: videoID, Position: max(position, 0)}, nil
}

func (e *fakeEditor) TransferPlaylistItem(_ context.Context, item youtube.PlaylistItem, to string, position int64) (youtube.PlaylistItem, error) {
	if err := e.record(editCall{op: "transfer", item: item, target: to, position: position}); err != nil {
		return youtube.PlaylistItem{}, err
	}
	return youtube.PlaylistItem{ID: "moved", PlaylistID: to, VideoID: item.VideoID}, nil
}

func (e *fakeEditor) recorded() []editCall {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]editCall(nil), e.calls...)
}

func TestEditCommandsNeedEditor(t *testing.T) {
	d := newTestDispatcher(t, Services{Playlists: &fakePlaylists{}})

	resp := d.Invoke(context.Background(), Request{Command: CmdDeletePlaylistItem, Args: json.RawMessage(`{"item_id":"i1"}`)})
	if resp.OK || resp.Error.Kind != KindUnknownCommand {
		t.Errorf("response = %+v, want unknown_command without an editor", resp)
	}
}

func TestEditCommands(t *testing.T) {
	tests := []struct {
		name    string
		command string
		args    string
		want    editCall
	}{
		{
			name:    "delete",
			command: CmdDeletePlaylistItem,
			args:    `{"item_id":"i1"}`,
			want:    editCall{op: "delete", item: youtube.PlaylistItem{ID: "i1"}},
		},
		{
			name:    "move to top",
			command: CmdMovePlaylistItem,
			args:    `{"playlist_id":"PL1","item_id":"i1","video_id":"v1","position":0}`,
			want:    editCall{op: "move", item: youtube.PlaylistItem{ID: "i1", PlaylistID: "PL1", VideoID: "v1"}},
		},
		{
			name:    "insert appends by default",
			command: CmdInsertPlaylistItem,
			args:    `{"playlist_id":"PL2","video_id":"v2"}`,
			want:    editCall{op: "insert", item: youtube.PlaylistItem{VideoID: "v2"}, target: "PL2", position: -1},
		},
		{
			name:    "insert at position",
			command: CmdInsertPlaylistItem,
			args:    `{"playlist_id":"PL2","video_id":"v2","position":3}`,
			want:    editCall{op: "insert", item: youtube.PlaylistItem{VideoID: "v2"}, target: "PL2", position: 3},
		},
		{
			name:    "transfer",
			command: CmdTransferPlaylistItem,
			args:    `{"playlist_id":"PL1","item_id":"i1","video_id":"v1","to_playlist_id":"PL2"}`,
			want:    editCall{op: "transfer", item: youtube.PlaylistItem{ID: "i1", PlaylistID: "PL1", VideoID: "v1"}, target: "PL2", position: -1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			editor := &fakeEditor{}
			d := newTestDispatcher(t, Services{Playlists: &fakePlaylists{}, Editor: editor})

			resp := d.Invoke(context.Background(), Request{Command: tt.command, Args: json.RawMessage(tt.args)})
			if !resp.OK {
				t.Fatalf("Invoke() failed: %+v", resp.Error)
			}
			calls := editor.recorded()
			if len(calls) != 1 || calls[0] != tt.want {
				t.Errorf("editor calls = %+v, want [%+v]", calls, tt.want)
			}
		})
	}
}

func TestEditCommandsRejectIncompleteArgs(t *testing.T) {
	editor := &fakeEditor{}
	d := newTestDispatcher(t, Services{Playlists: &fakePlaylists{}, Editor: editor})

	bad := map[string][]string{
		CmdDeletePlaylistItem: {``, `{}`, `{"item_id":1}`},
		CmdMovePlaylistItem: {
			`{"playlist_id":"PL1","item_id":"i1","video_id":"v1"}`,
			`{"playlist_id":"PL1","item_id":"i1","video_id":"v1","position":-2}`,
			`{"item_id":"i1","video_id":"v1","position":1}`,
		},
		CmdInsertPlaylistItem:   {`{"video_id":"v1"}`, `{"playlist_id":"PL1"}`},
		CmdTransferPlaylistItem: {`{"playlist_id":"PL1","item_id":"i1","video_id":"v1"}`},
	}
	for command, cases := range bad {
		for _, args := range cases {
			resp := d.Invoke(context.Background(), Request{Command: command, Args: json.RawMessage(args)})
			if resp.OK || resp.Error.Kind != KindInvalidArgument {
				t.Errorf("%s %s: response = %+v, want invalid_argument", command, args, resp)
			}
		}
	}
	if calls := editor.recorded(); len(calls) != 0 {
		t.Errorf("editor called for invalid args: %+v", calls)
	}
}

func TestEditCommandFailureKind(t *testing.T) {
	editor := &fakeEditor{err: &youtube.FetchError{
		Op:   "delete playlist item",
		Kind: youtube.KindAuthorizationFailed,
		Err:  &youtube.RemoteAPIError{StatusCode: 403, Reason: "insufficientPermissions", Message: "Insufficient Permission"},
	}}
	d := newTestDispatcher(t, Services{Playlists: &fakePlaylists{}, Editor: editor})

	resp := d.Invoke(context.Background(), Request{Command: CmdDeletePlaylistItem, Args: json.RawMessage(`{"item_id":"i1"}`)})
	if resp.OK {
		t.Fatal("Invoke() succeeded, want failure")
	}
	got := fmt.Sprintf("%s/%d/%s", resp.Error.Kind, resp.Error.Status, resp.Error.Reason)
	if want := "authorization_failed/403/insufficientPermissions"; got != want {
		t.Errorf("failure = %s, want %s", got, want)
	}
}
