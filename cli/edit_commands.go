package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"yucil"
	"yucil/dispatch"
	"yucil/youtube"
)

var errEditDisabled = errors.New("playlist editing is disabled (set allow_edit = true or YUCIL_ALLOW_EDIT=1)")

func newEditCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit",
		Short: "Delete, insert and reorder playlist items",
		Long: `Change playlist contents. Editing needs allow_edit = true in the
configuration; the first edit asks for write access in the browser.`,
	}

	cmd.AddCommand(newEditDeleteCommand(ctx))
	cmd.AddCommand(newEditInsertCommand(ctx))
	cmd.AddCommand(newEditMoveCommand(ctx))
	cmd.AddCommand(newEditTransferCommand(ctx))
	return cmd
}

func newEditDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <item-id>",
		Short: "Remove an item from its playlist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEditor(cmd, func(c context.Context, app *yucil.App) error {
				itemID := strings.TrimSpace(args[0])
				if _, err := invokeWith(c, app, dispatch.CmdDeletePlaylistItem, map[string]any{"item_id": itemID}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted item %s\n", itemID)
				return nil
			})
		},
	}
}

func newEditInsertCommand(ctx *commandContext) *cobra.Command {
	var position int64

	cmd := &cobra.Command{
		Use:   "insert <playlist-id> <video-id>",
		Short: "Add a video to a playlist (appended unless --position is set)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"playlist_id": strings.TrimSpace(args[0]),
				"video_id":    strings.TrimSpace(args[1]),
			}
			if cmd.Flags().Changed("position") {
				req["position"] = position
			}
			return ctx.withEditor(cmd, func(c context.Context, app *yucil.App) error {
				data, err := invokeWith(c, app, dispatch.CmdInsertPlaylistItem, req)
				if err != nil {
					return err
				}
				return ctx.emitItem(cmd, data)
			})
		},
	}

	cmd.Flags().Int64Var(&position, "position", 0, "Zero-based position in the playlist")
	return cmd
}

func newEditMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "move <playlist-id> <item-id> <position>",
		Short: "Move an item to a zero-based position within its playlist",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			position, err := strconv.ParseInt(args[2], 10, 64)
			if err != nil || position < 0 {
				return fmt.Errorf("invalid position %q", args[2])
			}
			return ctx.withEditor(cmd, func(c context.Context, app *yucil.App) error {
				item, err := findItem(c, app, strings.TrimSpace(args[0]), strings.TrimSpace(args[1]))
				if err != nil {
					return err
				}
				data, err := invokeWith(c, app, dispatch.CmdMovePlaylistItem, map[string]any{
					"playlist_id": item.PlaylistID,
					"item_id":     item.ID,
					"video_id":    item.VideoID,
					"position":    position,
				})
				if err != nil {
					return err
				}
				return ctx.emitItem(cmd, data)
			})
		},
	}
}

func newEditTransferCommand(ctx *commandContext) *cobra.Command {
	var position int64

	cmd := &cobra.Command{
		Use:   "transfer <playlist-id> <item-id> <to-playlist-id>",
		Short: "Move an item into another playlist",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEditor(cmd, func(c context.Context, app *yucil.App) error {
				item, err := findItem(c, app, strings.TrimSpace(args[0]), strings.TrimSpace(args[1]))
				if err != nil {
					return err
				}
				req := map[string]any{
					"playlist_id":    item.PlaylistID,
					"item_id":        item.ID,
					"video_id":       item.VideoID,
					"to_playlist_id": strings.TrimSpace(args[2]),
				}
				if cmd.Flags().Changed("position") {
					req["position"] = position
				}
				data, err := invokeWith(c, app, dispatch.CmdTransferPlaylistItem, req)
				if err != nil {
					return err
				}
				return ctx.emitItem(cmd, data)
			})
		},
	}

	cmd.Flags().Int64Var(&position, "position", 0, "Zero-based position in the target playlist (default: append)")
	return cmd
}

// withEditor is withApp for commands that change playlists.
func (c *commandContext) withEditor(cmd *cobra.Command, fn func(context.Context, *yucil.App) error) error {
	return c.withApp(cmd, func(ctx context.Context, app *yucil.App) error {
		if !app.Config.AllowEdit {
			return errEditDisabled
		}
		return fn(ctx, app)
	})
}

func (c *commandContext) emitItem(cmd *cobra.Command, data any) error {
	item, _ := data.(youtube.PlaylistItem)
	return c.emit(cmd, item, itemColumns, func() [][]string {
		return itemRows([]youtube.PlaylistItem{item})
	})
}

// findItem looks up itemID in playlistID to learn its video.
func findItem(ctx context.Context, app *yucil.App, playlistID, itemID string) (youtube.PlaylistItem, error) {
	data, err := invokeWith(ctx, app, dispatch.CmdGetPlaylistItems, map[string]any{"playlist_id": playlistID})
	if err != nil {
		return youtube.PlaylistItem{}, err
	}
	items, _ := data.([]youtube.PlaylistItem)
	for _, item := range items {
		if item.ID == itemID {
			return item, nil
		}
	}
	return youtube.PlaylistItem{}, fmt.Errorf("item %s is not in playlist %s", itemID, playlistID)
}

func invokeWith(ctx context.Context, app *yucil.App, name string, args map[string]any) (any, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	return invoke(ctx, app, name, raw)
}
