package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podwatch/internal/ipc"
	"podwatch/internal/session"
)

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			err = ctx.withClient(func(client *ipc.Client) error {
				_, err := client.SignOut()
				return err
			})
			if err != nil {
				// No watcher running; clear the stored session directly.
				store, openErr := session.OpenStore(cfg.SessionDBPath())
				if openErr != nil {
					return fmt.Errorf("clear session: %w", openErr)
				}
				defer store.Close()
				if clearErr := store.Clear(cmd.Context()); clearErr != nil {
					return fmt.Errorf("clear session: %w", clearErr)
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}
