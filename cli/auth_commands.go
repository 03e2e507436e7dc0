package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"yucil"
	"yucil/dispatch"
)

func newLoginCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Authorize read access to your YouTube account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, app *yucil.App) error {
				if err := app.Auth.Login(c); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Authorized; token stored at %s\n", app.Config.TokenPath)
				return nil
			})
		},
	}
}

func newRevokeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "revoke",
		Short: "Revoke and forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, app *yucil.App) error {
				if _, err := invoke(c, app, dispatch.CmdRevoke, nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Credential revoked")
				return nil
			})
		},
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Answer line-delimited JSON commands on stdin",
		Long: `Read one JSON request per line from stdin, such as
  {"id":"1","command":"get_playlists"}
and write one JSON response per line to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, app *yucil.App) error {
				return app.Dispatcher.Serve(c, cmd.InOrStdin(), cmd.OutOrStdout())
			})
		},
	}
}
