package cmd

import (
	"strings"

	"github.com/agora-social/agora/cli/pkg/api"
	"github.com/agora-social/agora/cli/pkg/output"
	"github.com/spf13/cobra"
)

var likeCmd = &cobra.Command{
	Use:   "like <post-id>",
	Short: "Like a post, or unlike it if you already do",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		res, err := api.ToggleLike(args[0])
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(res)
		}
		if res.Liked {
			output.PrintSuccess("♥ Liked (%d likes)", res.LikesCount)
		} else {
			output.PrintInfo("Unliked (%d likes)", res.LikesCount)
		}
		return nil
	},
}

var followCmd = &cobra.Command{
	Use:   "follow <user-id|@username>",
	Short: "Follow a user, or unfollow if you already do",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		userID, err := api.ResolveUser(args[0])
		if err != nil {
			return err
		}
		res, err := api.ToggleFollow(userID)
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(res)
		}
		if res.Following {
			output.PrintSuccess("✓ Following %s (%d followers)", args[0], res.FollowersCount)
		} else {
			output.PrintInfo("Unfollowed %s (%d followers)", args[0], res.FollowersCount)
		}
		return nil
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment <post-id> <text...>",
	Short: "Comment on a post",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		c, err := api.AddComment(args[0], strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(c)
		}
		output.PrintSuccess("✓ Commented on %s", c.PostID)
		return nil
	},
}

var commentsCmd = &cobra.Command{
	Use:   "comments <post-id>",
	Short: "List a post's comments, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		comments, err := api.GetComments(args[0], limit, offset)
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(comments)
		}
		if len(comments) == 0 {
			output.PrintInfo("No comments yet")
			return nil
		}
		printComments(comments)
		return nil
	},
}

func printComments(comments []api.Comment) {
	rows := make([][]string, 0, len(comments))
	for _, c := range comments {
		rows = append(rows, []string{c.AuthorName, ago(c.CreatedAt), output.Truncate(c.Body, 70)})
	}
	output.PrintTable([]string{"AUTHOR", "WHEN", "COMMENT"}, rows)
}

func init() {
	commentsCmd.Flags().IntP("limit", "l", 50, "Maximum number of comments")
	commentsCmd.Flags().Int("offset", 0, "Comments to skip")
}
