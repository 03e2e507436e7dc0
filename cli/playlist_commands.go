package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"yucil"
	"yucil/dispatch"
	"yucil/storage"
	"yucil/youtube"
)

func newPlaylistsCommand(ctx *commandContext) *cobra.Command {
	var all bool
	var withItems bool

	cmd := &cobra.Command{
		Use:   "playlists",
		Short: "Print the IDs of your music playlists, ordered by title",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if all && withItems {
				return errors.New("--all and --with-items cannot be combined")
			}
			return ctx.withApp(cmd, func(c context.Context, app *yucil.App) error {
				switch {
				case all:
					return runListPlaylists(c, cmd, ctx, app)
				case withItems:
					return runPlaylistsWithItems(c, cmd, ctx, app)
				default:
					return runMusicPlaylists(c, cmd, ctx, app)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "List every playlist instead of the music ones")
	cmd.Flags().BoolVar(&withItems, "with-items", false, "Include the items of each music playlist")
	return cmd
}

func runMusicPlaylists(c context.Context, cmd *cobra.Command, ctx *commandContext, app *yucil.App) error {
	ids, err := app.FetchMusicPlaylists(c)
	if err != nil {
		return err
	}
	if len(ids) == 0 && !ctx.wantJSON(cmd) {
		fmt.Fprintf(cmd.OutOrStdout(), "No playlists titled %q*\n", app.Fetcher.Prefix())
		return nil
	}
	return ctx.emit(cmd, ids, []column{numCol("#"), col("Playlist ID")}, func() [][]string {
		rows := make([][]string, 0, len(ids))
		for i, id := range ids {
			rows = append(rows, []string{strconv.Itoa(i + 1), id})
		}
		return rows
	})
}

func runListPlaylists(c context.Context, cmd *cobra.Command, ctx *commandContext, app *yucil.App) error {
	data, err := invoke(c, app, dispatch.CmdListPlaylists, nil)
	if err != nil {
		return err
	}
	playlists, _ := data.([]youtube.Playlist)
	return ctx.emit(cmd, playlists, []column{col("ID"), col("Title"), col("Channel")}, func() [][]string {
		rows := make([][]string, 0, len(playlists))
		for _, p := range playlists {
			rows = append(rows, []string{p.ID, p.Title, p.ChannelTitle})
		}
		return rows
	})
}

func runPlaylistsWithItems(c context.Context, cmd *cobra.Command, ctx *commandContext, app *yucil.App) error {
	data, err := invoke(c, app, dispatch.CmdGetPlaylistsWithItems, nil)
	if err != nil {
		return err
	}
	playlists, _ := data.([]youtube.PlaylistWithItems)
	return ctx.emit(cmd, playlists, []column{col("ID"), col("Title"), numCol("Items")}, func() [][]string {
		rows := make([][]string, 0, len(playlists))
		for _, p := range playlists {
			rows = append(rows, []string{p.ID, p.Title, strconv.Itoa(len(p.Items))})
		}
		return rows
	})
}

func newItemsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "items <playlist-id>",
		Short: "List the items of a playlist in position order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := json.Marshal(map[string]string{"playlist_id": strings.TrimSpace(args[0])})
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, app *yucil.App) error {
				data, err := invoke(c, app, dispatch.CmdGetPlaylistItems, raw)
				if err != nil {
					return err
				}
				items, _ := data.([]youtube.PlaylistItem)
				return ctx.emit(cmd, items, itemColumns, func() [][]string { return itemRows(items) })
			})
		},
	}
}

var itemColumns = []column{numCol("Pos"), col("Item"), col("Video"), col("Title")}

func itemRows(items []youtube.PlaylistItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, item := range items {
		rows = append(rows, []string{strconv.FormatInt(item.Position, 10), item.ID, item.VideoID, item.Title})
	}
	return rows
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previously fetched music playlist results",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := json.Marshal(map[string]int{"limit": limit})
			if err != nil {
				return err
			}
			return ctx.withApp(cmd, func(c context.Context, app *yucil.App) error {
				if app.Snapshots == nil {
					return errors.New("snapshot history is disabled (snapshot_db_path is empty)")
				}
				data, err := invoke(c, app, dispatch.CmdHistory, raw)
				if err != nil {
					return err
				}
				snapshots, _ := data.([]*storage.Snapshot)
				cols := []column{col("Fetched"), col("Prefix"), numCol("Count"), col("Playlists")}
				return ctx.emit(cmd, snapshots, cols, func() [][]string {
					rows := make([][]string, 0, len(snapshots))
					for _, s := range snapshots {
						rows = append(rows, []string{
							s.FetchedAt.Local().Format(time.DateTime),
							s.Prefix,
							strconv.Itoa(len(s.PlaylistIDs)),
							strings.Join(s.PlaylistIDs, ", "),
						})
					}
					return rows
				})
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of entries (0 for all)")
	return cmd
}
