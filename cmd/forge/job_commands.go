package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"forge/internal/api"
	"forge/internal/ipc"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect background jobs",
	}

	jobCmd.AddCommand(newJobStatusCommand(ctx))
	jobCmd.AddCommand(newJobListCommand(ctx))

	return jobCmd
}

func newJobStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var wait bool

	cmd := &cobra.Command{
		Use:   "status <handle>",
		Short: "Show the state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := strings.TrimSpace(args[0])
			if handle == "" {
				return fmt.Errorf("job handle is required")
			}
			return ctx.withClient(func(client *ipc.Client) error {
				for {
					resp, err := client.JobStatus(handle)
					if err != nil {
						return err
					}
					if !wait || resp.Job.State == "succeeded" || resp.Job.State == "failed" {
						if jsonOutput {
							return writeJSON(cmd, resp.Job)
						}
						printJobDetail(cmd, resp.Job)
						return nil
					}
					time.Sleep(time.Second)
				}
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the job as JSON")
	cmd.Flags().BoolVar(&wait, "wait", false, "Poll until the job reaches a terminal state")
	return cmd
}

func newJobListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var states []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.JobList(states...)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Jobs)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Jobs) == 0 {
					fmt.Fprintln(stdout, "No jobs recorded")
					return nil
				}
				rows := make([][]string, 0, len(resp.Jobs))
				for _, job := range resp.Jobs {
					rows = append(rows, []string{
						job.Handle,
						humanizeStatus(job.Stage),
						humanizeStatus(job.State),
						progressText(job.CurrentStep, job.TotalSteps, job.StatusText),
						formatTimestamp(job.CreatedAt),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"Handle", "Stage", "State", "Progress", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output jobs as JSON")
	cmd.Flags().StringSliceVar(&states, "state", nil, "Filter by job state (pending, in_progress, succeeded, failed)")
	return cmd
}

func printJobDetail(cmd *cobra.Command, job api.JobView) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "Job %s\n", job.Handle)
	if job.Stage != "" {
		fmt.Fprintf(stdout, "  Stage:    %s\n", humanizeStatus(job.Stage))
	}
	fmt.Fprintf(stdout, "  State:    %s\n", humanizeStatus(job.State))
	if progress := progressText(job.CurrentStep, job.TotalSteps, job.StatusText); progress != "" {
		fmt.Fprintf(stdout, "  Progress: %s\n", progress)
	}
	if job.SuppressedFailures > 0 {
		fmt.Fprintf(stdout, "  Suppressed failures: %d\n", job.SuppressedFailures)
	}
	if job.Error != "" {
		fmt.Fprintf(stdout, "  Error:    %s\n", job.Error)
	}
	if job.Caveat != "" {
		fmt.Fprintf(stdout, "  Note:     %s\n", job.Caveat)
	}
	if len(job.Result) > 0 {
		fmt.Fprintln(stdout, "  Result:")
		for key, value := range job.Result {
			fmt.Fprintf(stdout, "    %s: %v\n", key, value)
		}
	}
}
