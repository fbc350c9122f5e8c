package cmd

import (
	"strconv"
	"strings"
	"time"

	"github.com/agora-social/agora/cli/pkg/api"
	"github.com/agora-social/agora/cli/pkg/output"
	"github.com/spf13/cobra"
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Show the newest posts",
	Long: `Show the global feed, newest first.

Examples:
  agora feed
  agora feed --timeline        # only you and the people you follow
  agora feed --limit 50 --offset 50`,
	RunE: func(cmd *cobra.Command, args []string) error {
		timeline, _ := cmd.Flags().GetBool("timeline")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		var posts []api.Post
		var err error
		if timeline {
			if err := requireLogin(); err != nil {
				return err
			}
			posts, err = api.GetTimeline(limit, offset)
		} else {
			posts, err = api.GetFeed(limit, offset)
		}
		if err != nil {
			return err
		}

		if output.IsJSON() {
			return output.PrintJSON(posts)
		}
		if len(posts) == 0 {
			output.PrintInfo("Nothing here yet")
			return nil
		}
		printPosts(posts)
		return nil
	},
}

func printPosts(posts []api.Post) {
	rows := make([][]string, 0, len(posts))
	for _, p := range posts {
		heart := " "
		if p.LikedByMe {
			heart = "♥"
		}
		rows = append(rows, []string{
			p.ID,
			authorName(p),
			heart + strconv.FormatInt(p.LikesCount, 10),
			strconv.FormatInt(p.CommentsCount, 10),
			ago(p.CreatedAt),
			output.Truncate(strings.ReplaceAll(p.Body, "\n", " "), 60),
		})
	}
	output.PrintTable([]string{"ID", "AUTHOR", "LIKES", "COMMENTS", "WHEN", "BODY"}, rows)
}

func authorName(p api.Post) string {
	if p.Author == nil {
		return p.UserID
	}
	return "@" + p.Author.Username
}

// ago renders a timestamp relative to now, coarsely
func ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return strconv.Itoa(int(d.Minutes())) + "m"
	case d < 24*time.Hour:
		return strconv.Itoa(int(d.Hours())) + "h"
	case d < 30*24*time.Hour:
		return strconv.Itoa(int(d.Hours()/24)) + "d"
	default:
		return t.Format("2006-01-02")
	}
}

func init() {
	feedCmd.Flags().Bool("timeline", false, "Only posts by you and the users you follow")
	feedCmd.Flags().IntP("limit", "l", 20, "Maximum number of posts")
	feedCmd.Flags().Int("offset", 0, "Posts to skip")
}
