package cmd

import (
	"fmt"
	"strings"

	"github.com/agora-social/agora/cli/pkg/api"
	"github.com/agora-social/agora/cli/pkg/output"
	"github.com/agora-social/agora/cli/pkg/prompter"
	"github.com/spf13/cobra"
)

var postCmd = &cobra.Command{
	Use:   "post",
	Short: "Create, show and delete posts",
}

var postCreateCmd = &cobra.Command{
	Use:   "create [text...]",
	Short: "Publish a post",
	Long: `Publish a post. Without arguments the body is read from a prompt.

Examples:
  agora post create "first post!"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}

		body := strings.TrimSpace(strings.Join(args, " "))
		if body == "" {
			var err error
			if body, err = prompter.PromptRequired("What's on your mind? "); err != nil {
				return err
			}
		}

		post, err := api.CreatePost(body)
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(post)
		}
		output.PrintSuccess("✓ Posted %s", post.ID)
		return nil
	},
}

var postShowCmd = &cobra.Command{
	Use:   "show <post-id>",
	Short: "Show a post and its comments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		post, err := api.GetPost(args[0])
		if err != nil {
			return err
		}
		comments, err := api.GetComments(post.ID, 50, 0)
		if err != nil {
			return err
		}

		if output.IsJSON() {
			return output.PrintJSON(map[string]interface{}{"post": post, "comments": comments})
		}

		output.Bold.Fprintf(output.Writer, "%s", authorName(*post))
		output.Faint.Fprintf(output.Writer, "  %s  ♥ %d\n", ago(post.CreatedAt), post.LikesCount)
		fmt.Fprintln(output.Writer, post.Body)
		if len(comments) > 0 {
			fmt.Fprintln(output.Writer)
			printComments(comments)
		}
		return nil
	},
}

var postDeleteCmd = &cobra.Command{
	Use:   "delete <post-id>",
	Short: "Delete one of your posts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			ok, err := prompter.PromptConfirm("Delete post " + args[0] + "?")
			if err != nil || !ok {
				return err
			}
		}
		if err := api.DeletePost(args[0]); err != nil {
			return err
		}
		output.PrintSuccess("Deleted %s", args[0])
		return nil
	},
}

func init() {
	postDeleteCmd.Flags().BoolP("yes", "y", false, "Do not ask for confirmation")

	postCmd.AddCommand(postCreateCmd)
	postCmd.AddCommand(postShowCmd)
	postCmd.AddCommand(postDeleteCmd)
}
