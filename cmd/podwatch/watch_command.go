package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"podwatch/internal/watcher"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the watcher in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return watcher.Run(cmd.Context(), cfg, watcher.Options{
				LogLevel:    logLevel,
				Development: development,
			})
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured log level")
	cmd.Flags().BoolVar(&development, "development", false, "Enable human-readable console logging")
	return cmd
}
