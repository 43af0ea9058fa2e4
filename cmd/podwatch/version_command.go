package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podwatch/internal/ipc"
	"podwatch/internal/watcher"
)

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show CLI and watcher versions",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "podwatch %s\n", watcher.Version)

			err := ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Ping()
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "watcher %s (pid %d)\n", resp.Version, resp.PID)
				return nil
			})
			if err != nil {
				fmt.Fprintln(stdout, "watcher not running")
			}
			return nil
		},
	}
}
