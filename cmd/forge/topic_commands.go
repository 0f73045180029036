package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"forge/internal/api"
	"forge/internal/ipc"
)

func newTopicCommand(ctx *commandContext) *cobra.Command {
	topicCmd := &cobra.Command{
		Use:   "topic",
		Short: "Manage content topics",
	}

	topicCmd.AddCommand(newTopicAddCommand(ctx))
	topicCmd.AddCommand(newTopicListCommand(ctx))
	topicCmd.AddCommand(newTopicShowCommand(ctx))
	topicCmd.AddCommand(newTopicDeleteCommand(ctx))

	return topicCmd
}

func newTopicAddCommand(ctx *commandContext) *cobra.Command {
	var description string
	var category string
	var keywords []string
	var ideaCount int
	var wordCount int
	var persona string
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a new topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TopicAdd(ipc.TopicAddRequest{
					Title:           args[0],
					Description:     description,
					Category:        category,
					Keywords:        keywords,
					IdeaCount:       ideaCount,
					TargetWordCount: wordCount,
					Persona:         persona,
				})
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Topic)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Topic %d created: %s\n", resp.Topic.ID, resp.Topic.Title)
				fmt.Fprintf(cmd.OutOrStdout(), "Run `forge ideas generate %d` to generate ideas\n", resp.Topic.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Topic description")
	cmd.Flags().StringVar(&category, "category", "", "Topic category")
	cmd.Flags().StringSliceVar(&keywords, "keyword", nil, "Keyword to associate (repeatable)")
	cmd.Flags().IntVar(&ideaCount, "ideas", 0, "Number of ideas to generate (default from config)")
	cmd.Flags().IntVar(&wordCount, "words", 0, "Target word count for posts (default from config)")
	cmd.Flags().StringVar(&persona, "persona", "", "Writing persona for generated posts")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the created topic as JSON")
	return cmd
}

func newTopicListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all topics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TopicList()
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Topics)
				}
				stdout := cmd.OutOrStdout()
				if len(resp.Topics) == 0 {
					fmt.Fprintln(stdout, "No topics yet. Create one with `forge topic add`.")
					return nil
				}
				rows := make([][]string, 0, len(resp.Topics))
				for _, topic := range resp.Topics {
					rows = append(rows, []string{
						strconv.FormatInt(topic.ID, 10),
						truncate(topic.Title, 48),
						humanizeStatus(topic.Status),
						strconv.Itoa(topic.IdeaCount),
						formatTimestamp(topic.CreatedAt),
					})
				}
				fmt.Fprintln(stdout, renderTable(
					[]string{"ID", "Title", "Status", "Ideas", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output topics as JSON")
	return cmd
}

func newTopicShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a topic and its ideas",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.TopicShow(id)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp)
				}
				printTopicDetail(cmd, resp.Topic, resp.Ideas)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the topic as JSON")
	return cmd
}

func newTopicDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a topic and everything under it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.TopicDelete(id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Topic %d deleted\n", id)
				return nil
			})
		},
	}
}

func printTopicDetail(cmd *cobra.Command, topic api.TopicView, ideas []api.IdeaView) {
	stdout := cmd.OutOrStdout()
	fmt.Fprintf(stdout, "Topic %d: %s\n", topic.ID, topic.Title)
	fmt.Fprintf(stdout, "  Status:      %s\n", humanizeStatus(topic.Status))
	if topic.Description != "" {
		fmt.Fprintf(stdout, "  Description: %s\n", topic.Description)
	}
	if topic.Category != "" {
		fmt.Fprintf(stdout, "  Category:    %s\n", topic.Category)
	}
	if len(topic.Keywords) > 0 {
		fmt.Fprintf(stdout, "  Keywords:    %v\n", topic.Keywords)
	}
	if topic.Persona != "" {
		fmt.Fprintf(stdout, "  Persona:     %s\n", topic.Persona)
	}
	fmt.Fprintf(stdout, "  Ideas:       %d requested, %d words per post\n", topic.IdeaCount, topic.TargetWordCount)
	if topic.ErrorMessage != "" {
		fmt.Fprintf(stdout, "  Error:       %s\n", topic.ErrorMessage)
	}

	if len(ideas) == 0 {
		fmt.Fprintln(stdout, "No ideas generated yet")
		return
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, renderIdeasTable(ideas))
}

func renderIdeasTable(ideas []api.IdeaView) string {
	rows := make([][]string, 0, len(ideas))
	for _, idea := range ideas {
		review := "-"
		switch {
		case idea.IsApproved:
			review = "approved"
		case idea.IsRejected:
			review = "rejected"
		}
		rows = append(rows, []string{
			strconv.FormatInt(idea.ID, 10),
			truncate(idea.Title, 44),
			humanizeStatus(idea.Status),
			review,
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Status", "Review"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
	)
}
