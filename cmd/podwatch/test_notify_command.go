package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podwatch/internal/ipc"
)

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Publish a test notification to the configured ntfy topic",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TestNotification()
				if err != nil {
					if resp != nil && resp.Message != "" {
						fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
					}
					return err
				}
				if resp == nil || (!resp.Sent && resp.Message == "") {
					return fmt.Errorf("watcher returned no notification result")
				}
				if resp.Message != "" {
					fmt.Fprintln(cmd.OutOrStdout(), resp.Message)
				}
				if !resp.Sent {
					fmt.Fprintln(cmd.OutOrStdout(), "Set notifications.ntfy_topic in the config file to enable push notifications")
				}
				return nil
			})
		},
	}
}
