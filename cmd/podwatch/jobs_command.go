package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podwatch/internal/ipc"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var kindFilter string
	var jsonOutput bool

	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "List cached job statuses",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				var kinds []string
				if kindFilter != "" {
					kinds = []string{kindFilter}
				}
				resp, err := client.Jobs(kinds)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				stdout := cmd.OutOrStdout()
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(stdout, "No cached job statuses")
					return nil
				}
				table := renderTable(
					[]string{"Kind", "ID", "Status", "Title", "Received", "Detail"},
					buildJobRows(resp.Jobs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
				)
				fmt.Fprintln(stdout, table)
				return nil
			})
		},
	}

	jobsCmd.Flags().StringVarP(&kindFilter, "kind", "k", "", "Limit to one job kind (conversion or podcast)")
	jobsCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")

	jobsCmd.AddCommand(newJobShowCommand(ctx))
	jobsCmd.AddCommand(newJobClearCommand(ctx))
	return jobsCmd
}

func newJobShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <kind> <id>",
		Short: "Show the cached status of a single job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Job(args[0], args[1])
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}

				job := resp.Job
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "%s %s\n", displayLabel(job.Kind), job.ID)
				fmt.Fprintf(stdout, "  Status:   %s\n", displayLabel(job.Status))
				if job.Title != "" {
					fmt.Fprintf(stdout, "  Title:    %s\n", job.Title)
				}
				if job.Error != "" {
					fmt.Fprintf(stdout, "  Error:    %s\n", job.Error)
				}
				if job.ArtifactURL != "" {
					fmt.Fprintf(stdout, "  Artifact: %s\n", job.ArtifactURL)
				}
				fmt.Fprintf(stdout, "  Received: %s\n", job.ReceivedAt.Local().Format("2006-01-02 15:04:05"))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit machine-readable output")
	return cmd
}

func newJobClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <kind> <id>",
		Short: "Drop the cached status of a single job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ClearJob(args[0], args[1])
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				if resp.Removed {
					fmt.Fprintf(stdout, "Cleared %s job %s\n", args[0], args[1])
				} else {
					fmt.Fprintf(stdout, "No cached status for %s job %s\n", args[0], args[1])
				}
				return nil
			})
		},
	}
}
