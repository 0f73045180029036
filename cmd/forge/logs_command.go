package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"forge/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logPath := filepath.Join(cfg.Paths.LogDir, "forge.log")
			stdout := cmd.OutOrStdout()

			chunk, err := logs.Read(cmd.Context(), logPath, logs.Options{Offset: -1, Limit: lines})
			if err != nil {
				return err
			}
			for _, line := range chunk.Lines {
				fmt.Fprintln(stdout, line)
			}
			if !follow {
				if len(chunk.Lines) == 0 {
					fmt.Fprintf(stdout, "No log output yet at %s\n", logPath)
				}
				return nil
			}

			offset := chunk.Offset
			for {
				chunk, err := logs.Read(cmd.Context(), logPath, logs.Options{
					Offset: offset,
					Follow: true,
					Wait:   2 * time.Second,
				})
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				}
				for _, line := range chunk.Lines {
					fmt.Fprintln(stdout, line)
				}
				offset = chunk.Offset
			}
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep reading as new lines arrive")
	return cmd
}
