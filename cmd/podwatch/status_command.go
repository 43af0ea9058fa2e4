package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"podwatch/internal/ipc"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show watcher and sync channel status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Status()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				colorize := shouldColorize(stdout)

				for _, line := range renderSectionHeader("Session", colorize) {
					fmt.Fprintln(stdout, line)
				}
				if resp.SignedIn {
					fmt.Fprintln(stdout, renderStatusLine("Signed in", statusOK, resp.Email, colorize))
				} else {
					fmt.Fprintln(stdout, renderStatusLine("Signed in", statusWarn, "no session; run `podwatch login`", colorize))
				}
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Channel", colorize) {
					fmt.Fprintln(stdout, line)
				}
				channelKind := statusWarn
				if resp.Connected {
					channelKind = statusOK
				}
				fmt.Fprintln(stdout, renderStatusLine("Connection", channelKind, resp.ChannelState, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Watcher PID", statusInfo, fmt.Sprintf("%d", resp.PID), colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Paths", colorize) {
					fmt.Fprintln(stdout, line)
				}
				fmt.Fprintln(stdout, renderStatusLine("Session DB", statusInfo, resp.SessionDBPath, colorize))
				fmt.Fprintln(stdout, renderStatusLine("Lock file", statusInfo, resp.LockPath, colorize))
				fmt.Fprintln(stdout)

				for _, line := range renderSectionHeader("Cached Jobs", colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := buildJobCountRows(resp)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "No cached job statuses")
					return nil
				}
				table := renderTable([]string{"Kind", "Status", "Count"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight})
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

func buildJobCountRows(resp *ipc.StatusResponse) [][]string {
	rows := make([][]string, 0, len(resp.Conversions)+len(resp.Podcasts))
	rows = append(rows, countRows("conversion", resp.Conversions)...)
	rows = append(rows, countRows("podcast", resp.Podcasts)...)
	return rows
}

func countRows(kind string, counts map[string]int) [][]string {
	statuses := make([]string, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Strings(statuses)
	rows := make([][]string, 0, len(statuses))
	for _, status := range statuses {
		rows = append(rows, []string{displayLabel(kind), displayLabel(status), fmt.Sprintf("%d", counts[status])})
	}
	return rows
}
