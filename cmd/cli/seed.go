package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/agora-social/agora/backend/internal/chat"
	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/agora-social/agora/backend/internal/seed"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Fill the database with fake users, posts and engagement",
	Long: `Create fake users (password "` + seed.DefaultPassword + `", emails @` + seed.EmailDomain + `)
plus posts, follows, likes, comments and direct messages between them.

Examples:
  agora-admin seed
  agora-admin seed --users 10 --posts 40
  agora-admin seed --clean`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}

		if clean, _ := cmd.Flags().GetBool("clean"); clean {
			if err := seed.NewSeeder(db, ledger.New(db), chat.NewService(db, nil)).Clean(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "🧹 Seed data removed")
			return nil
		}

		opts := seed.DefaultOptions()
		opts.Users, _ = cmd.Flags().GetInt("users")
		opts.Posts, _ = cmd.Flags().GetInt("posts")
		opts.Likes, _ = cmd.Flags().GetInt("likes")
		opts.Follows, _ = cmd.Flags().GetInt("follows")
		opts.Comments, _ = cmd.Flags().GetInt("comments")
		opts.Messages, _ = cmd.Flags().GetInt("messages")
		opts.Seed, _ = cmd.Flags().GetUint64("seed")

		_, err = runSeed(cmd.Context(), db, opts, output, cmd.OutOrStdout())
		return err
	},
}

func init() {
	defaults := seed.DefaultOptions()
	seedCmd.Flags().Int("users", defaults.Users, "Number of users")
	seedCmd.Flags().Int("posts", defaults.Posts, "Number of posts")
	seedCmd.Flags().Int("likes", defaults.Likes, "Number of likes")
	seedCmd.Flags().Int("follows", defaults.Follows, "Number of follows")
	seedCmd.Flags().Int("comments", defaults.Comments, "Number of comments")
	seedCmd.Flags().Int("messages", defaults.Messages, "Number of direct messages")
	seedCmd.Flags().Uint64("seed", defaults.Seed, "Random seed (0 picks one)")
	seedCmd.Flags().Bool("clean", false, "Remove seed data instead of adding it")
}

func runSeed(ctx context.Context, db *gorm.DB, opts seed.Options, format string, w io.Writer) (*seed.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	seeder := seed.NewSeeder(db, ledger.New(db), chat.NewService(db, nil))
	result, err := seeder.Seed(ctx, opts)
	if err != nil {
		return nil, err
	}

	if format == "json" {
		return result, json.NewEncoder(w).Encode(result)
	}
	fmt.Fprintf(w, "🌱 Seeded %d users, %d posts, %d follows, %d likes, %d comments, %d messages\n",
		result.Users, result.Posts, result.Follows, result.Likes, result.Comments, result.Messages)
	return result, nil
}
