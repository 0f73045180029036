package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forge/internal/ipc"
)

func newResearchCommand(ctx *commandContext) *cobra.Command {
	researchCmd := &cobra.Command{
		Use:   "research",
		Short: "Research approved ideas",
	}

	researchCmd.AddCommand(newResearchStartCommand(ctx))
	researchCmd.AddCommand(newResearchShowCommand(ctx))

	return researchCmd
}

func newResearchStartCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "start <idea-id>",
		Short: "Submit a research job for an approved idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ideaID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ResearchStart(ideaID)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Research queued (job %s)\n", resp.Handle)
				fmt.Fprintf(stdout, "Track progress with `forge job status %s`\n", resp.Handle)
				return nil
			})
		},
	}
}

func newResearchShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <idea-id>",
		Short: "Show the research record for an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ideaID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ResearchShow(ideaID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Research)
				}

				record := resp.Research
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Research %d (idea %d)\n", record.ID, record.IdeaID)
				fmt.Fprintf(stdout, "  Status:   %s\n", humanizeStatus(record.Status))
				if record.Model != "" {
					fmt.Fprintf(stdout, "  Model:    %s\n", record.Model)
				}
				if record.TokensUsed > 0 {
					fmt.Fprintf(stdout, "  Tokens:   %d\n", record.TokensUsed)
				}
				if record.DurationSeconds > 0 {
					fmt.Fprintf(stdout, "  Duration: %.1fs\n", record.DurationSeconds)
				}
				fmt.Fprintf(stdout, "  Sources:  %d\n", record.SourceCount)
				if record.ErrorMessage != "" {
					fmt.Fprintf(stdout, "  Error:    %s\n", record.ErrorMessage)
				}

				if len(record.KeyFindings) > 0 {
					fmt.Fprintln(stdout, "Key findings:")
					for _, finding := range record.KeyFindings {
						fmt.Fprintf(stdout, "  - %s\n", finding)
					}
				}
				if len(record.Sources) > 0 {
					rows := make([][]string, 0, len(record.Sources))
					for _, source := range record.Sources {
						rows = append(rows, []string{
							truncate(source.Title, 40),
							source.Publication,
							truncate(source.URL, 56),
						})
					}
					fmt.Fprintln(stdout, renderTable(
						[]string{"Title", "Publication", "URL"},
						rows,
						[]columnAlignment{alignLeft, alignLeft, alignLeft},
					))
				}
				if record.ResearchPrompt != "" {
					fmt.Fprintln(stdout, "Research prompt:")
					fmt.Fprintln(stdout, record.ResearchPrompt)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the research record as JSON")
	return cmd
}
