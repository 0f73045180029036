package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"forge/internal/api"
	"forge/internal/config"
	"forge/internal/fileutil"
	"forge/internal/ipc"
	"forge/internal/textutil"
)

func newPostCommand(ctx *commandContext) *cobra.Command {
	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Manage drafted blog posts",
	}

	writeCmd := &cobra.Command{
		Use:   "write <idea-id>",
		Short: "Submit a writing job for an idea with completed research",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ideaID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.WritingStart(ideaID)
				if err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Writing queued (job %s)\n", resp.Handle)
				fmt.Fprintf(stdout, "Track progress with `forge job status %s`\n", resp.Handle)
				return nil
			})
		},
	}

	approveCmd := &cobra.Command{
		Use:   "approve <post-id>",
		Short: "Approve a draft blog post for downstream generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.PostApprove(postID); err != nil {
					return err
				}
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Blog post %d approved\n", postID)
				fmt.Fprintf(stdout, "Generate assets with `forge assets start %d` or social posts with `forge social start %d`\n", postID, postID)
				return nil
			})
		},
	}

	postCmd.AddCommand(writeCmd)
	postCmd.AddCommand(newPostShowCommand(ctx))
	postCmd.AddCommand(approveCmd)
	postCmd.AddCommand(newPostExportCommand(ctx))
	return postCmd
}

func newPostShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <post-id>",
		Short: "Show a blog post draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PostShow(postID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, resp.Post)
				}
				post := resp.Post
				stdout := cmd.OutOrStdout()
				fmt.Fprintf(stdout, "Blog post %d (idea %d)\n", post.ID, post.IdeaID)
				fmt.Fprintf(stdout, "  Title:    %s\n", post.Title)
				fmt.Fprintf(stdout, "  Status:   %s\n", humanizeStatus(post.Status))
				fmt.Fprintf(stdout, "  Approved: %s\n", yesNo(post.IsApproved))
				if post.WordCount > 0 {
					fmt.Fprintf(stdout, "  Words:    %d\n", post.WordCount)
				}
				if len(post.Tags) > 0 {
					fmt.Fprintf(stdout, "  Tags:     %s\n", strings.Join(post.Tags, ", "))
				}
				if post.Content != "" {
					fmt.Fprintln(stdout)
					fmt.Fprintln(stdout, post.Content)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the post as JSON")
	return cmd
}

func newPostExportCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export <post-id>",
		Short: "Export a blog post to a markdown file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.PostShow(postID)
				if err != nil {
					return err
				}
				path, err := exportPostMarkdown(resp.Post, dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported blog post %d to %s\n", postID, path)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the markdown file into")
	return cmd
}

func exportPostMarkdown(post api.BlogPostView, dir string) (string, error) {
	expanded, err := config.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("resolve export directory: %w", err)
	}
	if err := fileutil.EnsureDir(expanded); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "title: %q\n", post.Title)
	if len(post.Tags) > 0 {
		fmt.Fprintf(&b, "tags: [%s]\n", strings.Join(post.Tags, ", "))
	}
	if post.Persona != "" {
		fmt.Fprintf(&b, "persona: %q\n", post.Persona)
	}
	fmt.Fprintf(&b, "status: %s\n", post.Status)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "# %s\n\n", post.Title)
	if post.Content != "" {
		b.WriteString(post.Content)
		if !strings.HasSuffix(post.Content, "\n") {
			b.WriteByte('\n')
		}
	}

	name := fmt.Sprintf("%d-%s.md", post.ID, textutil.Slug(post.Title))
	path := filepath.Join(expanded, textutil.SanitizeFileName(name))
	if err := fileutil.WriteFileAtomic(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func newAssetsCommand(ctx *commandContext) *cobra.Command {
	assetsCmd := &cobra.Command{
		Use:   "assets",
		Short: "Generate visual assets for approved posts",
	}

	assetsCmd.AddCommand(&cobra.Command{
		Use:   "start <post-id>",
		Short: "Submit an asset-generation job for an approved post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.AssetsStart(postID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Asset generation queued (job %s)\n", resp.Handle)
				return nil
			})
		},
	})
	return assetsCmd
}

func newSocialCommand(ctx *commandContext) *cobra.Command {
	socialCmd := &cobra.Command{
		Use:   "social",
		Short: "Generate social posts for approved posts",
	}

	socialCmd.AddCommand(&cobra.Command{
		Use:   "start <post-id>",
		Short: "Submit a social-generation job for an approved post",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID, err := parsePositiveID(args[0])
			if err != nil {
				return err
			}
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.SocialStart(postID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Social generation queued (job %s)\n", resp.Handle)
				return nil
			})
		},
	})
	return socialCmd
}
