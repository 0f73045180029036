package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"forge/internal/api"
	"forge/internal/ipc"
	"forge/internal/jobs"
	"forge/internal/store"
)

// statusSnapshot merges daemon runtime info with the pipeline overview. When
// the daemon is unreachable the overview is computed directly from the
// database so `forge status` still works offline.
type statusSnapshot struct {
	DaemonReachable bool             `json:"daemon_reachable"`
	Running         bool             `json:"running"`
	PID             int              `json:"pid,omitempty"`
	Workers         int              `json:"workers,omitempty"`
	LogPath         string           `json:"log_path,omitempty"`
	DatabasePath    string           `json:"database_path,omitempty"`
	Overview        api.OverviewView `json:"overview"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and pipeline status",
		RunE: func(cmd *cobra.Command, args []string) error {
			snapshot, err := buildStatusSnapshot(ctx)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, snapshot)
			}

			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			for _, line := range renderSectionHeader("Daemon", colorize) {
				fmt.Fprintln(stdout, line)
			}
			switch {
			case !snapshot.DaemonReachable:
				fmt.Fprintln(stdout, renderStatusLine("Forge", healthWarn, "Not running (run `forge start`)", colorize))
			case snapshot.Running:
				fmt.Fprintln(stdout, renderStatusLine("Forge", healthOK, fmt.Sprintf("Running (pid %d, %d workers)", snapshot.PID, snapshot.Workers), colorize))
			default:
				fmt.Fprintln(stdout, renderStatusLine("Forge", healthWarn, "Process alive but workers stopped", colorize))
			}
			if snapshot.DatabasePath != "" {
				fmt.Fprintln(stdout, renderStatusLine("Database", healthInfo, snapshot.DatabasePath, colorize))
			}
			if snapshot.LogPath != "" {
				fmt.Fprintln(stdout, renderStatusLine("Log", healthInfo, snapshot.LogPath, colorize))
			}
			fmt.Fprintln(stdout)

			sections := []struct {
				title  string
				counts map[string]int
			}{
				{"Topics", snapshot.Overview.Topics},
				{"Ideas", snapshot.Overview.Ideas},
				{"Research", snapshot.Overview.Research},
				{"Blog Posts", snapshot.Overview.BlogPosts},
				{"Jobs", snapshot.Overview.Jobs},
			}
			for _, section := range sections {
				for _, line := range renderSectionHeader(section.title, colorize) {
					fmt.Fprintln(stdout, line)
				}
				rows := sortedCountRows(section.counts)
				if len(rows) == 0 {
					fmt.Fprintln(stdout, "  (none)")
				} else {
					fmt.Fprintln(stdout, renderTable([]string{"Status", "Count"}, rows, []columnAlignment{alignLeft, alignRight}))
				}
				fmt.Fprintln(stdout)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output status as JSON")
	return cmd
}

func buildStatusSnapshot(ctx *commandContext) (*statusSnapshot, error) {
	client, err := ctx.dialClient()
	if err == nil {
		defer client.Close()
		return snapshotFromDaemon(client)
	}
	return snapshotFromDatabase(ctx)
}

func snapshotFromDaemon(client *ipc.Client) (*statusSnapshot, error) {
	status, err := client.Status()
	if err != nil {
		return nil, err
	}
	overview, err := client.Overview()
	if err != nil {
		return nil, err
	}
	return &statusSnapshot{
		DaemonReachable: true,
		Running:         status.Running,
		PID:             status.PID,
		Workers:         status.Workers,
		LogPath:         status.LogPath,
		DatabasePath:    status.DatabasePath,
		Overview:        overview.Overview,
	}, nil
}

func snapshotFromDatabase(ctx *commandContext) (*statusSnapshot, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open database for offline status: %w", err)
	}
	defer st.Close()

	overview, err := st.GetOverview(context.Background())
	if err != nil {
		return nil, err
	}
	stats, err := jobs.NewQueue(st.DB()).Stats(context.Background())
	if err != nil {
		return nil, err
	}
	return &statusSnapshot{
		DaemonReachable: false,
		DatabasePath:    cfg.DatabasePath(),
		Overview:        api.FromOverview(overview, stats),
	}, nil
}
