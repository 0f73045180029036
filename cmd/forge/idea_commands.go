package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"forge/internal/ipc"
)

func newIdeasCommand(ctx *commandContext) *cobra.Command {
	ideasCmd := &cobra.Command{
		Use:   "ideas",
		Short: "Generate and review content ideas",
	}

	ideasCmd.AddCommand(newIdeasGenerateCommand(ctx))
	ideasCmd.AddCommand(newIdeasListCommand(ctx))
	ideasCmd.AddCommand(newIdeasApproveCommand(ctx))
	ideasCmd.AddCommand(newIdeasRejectCommand(ctx))

	return ideasCmd
}

func newIdeasGenerateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generate <topic-id>",
		Short: "Submit an idea-generation job for a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.GenerateIdeas(topicID)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Idea generation queued (job %s)\n", resp.Handle)
				fmt.Fprintf(stdout, "Track progress with `forge job status %s`\n", resp.Handle)
				return nil
			})
		},
	}
}

func newIdeasListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list <topic-id>",
		Short: "List the ideas under a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topicID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.IdeaList(topicID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Ideas)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Ideas) == 0 {
					fmt.Fprintln(stdout, "No ideas yet. Generate some with `forge ideas generate`.")
					return nil
				}
				fmt.Fprintln(stdout, renderIdeasTable(resp.Ideas))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output ideas as JSON")
	return cmd
}

func newIdeasApproveCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "approve <idea-id>",
		Short: "Approve an idea for research",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ideaID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.IdeaApprove(ideaID, notes); err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Idea %d approved\n", ideaID)
				fmt.Fprintf(stdout, "Start research with `forge research start %d`\n", ideaID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Reviewer notes to store with the decision")
	return cmd
}

func newIdeasRejectCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "reject <idea-id>",
		Short: "Reject an idea",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ideaID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.IdeaReject(ideaID, notes); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Idea %d rejected\n", ideaID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&notes, "notes", "", "Reviewer notes to store with the decision")
	return cmd
}
