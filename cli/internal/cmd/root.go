package cmd

import (
	"fmt"
	"os"

	"github.com/agora-social/agora/cli/pkg/client"
	"github.com/agora-social/agora/cli/pkg/config"
	"github.com/agora-social/agora/cli/pkg/credentials"
	"github.com/agora-social/agora/cli/pkg/logger"
	"github.com/agora-social/agora/cli/pkg/output"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	outputFmt  string

	// session is the saved login, nil when logged out
	session *credentials.Credentials
)

var rootCmd = &cobra.Command{
	Use:   "agora",
	Short: "Agora CLI - a small social network from the terminal",
	Long: `agora talks to an Agora server: read the feed, post, like, follow,
comment and message other users.

Configuration lives in ~/.config/agora/cli/config.toml; any key can be
overridden with an AGORA_ environment variable (AGORA_API_BASE_URL, ...).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(configPath); err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		logger.Init(verbose)

		if cmd.Flags().Changed("output") {
			if !output.ValidateOutputFormat(outputFmt) {
				return fmt.Errorf("unknown output format %q (want text, json or table)", outputFmt)
			}
			config.Set("output.format", outputFmt)
		}

		client.Init()

		creds, err := credentials.Load()
		if err != nil {
			logger.Warn("Ignoring unreadable credentials", "err", err)
			creds = nil
		}
		session = nil
		if creds != nil && creds.IsValid() {
			session = creds
			client.SetAuthToken(creds.Token)
		}
		return nil
	},
}

// requireLogin fails commands that need a session
func requireLogin() error {
	if session == nil {
		return fmt.Errorf("not logged in (run `agora login` first)")
	}
	return nil
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		output.PrintError("%v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to the log file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/agora/cli/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text, json, table")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(meCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(likeCmd)
	rootCmd.AddCommand(followCmd)
	rootCmd.AddCommand(commentCmd)
	rootCmd.AddCommand(commentsCmd)
	rootCmd.AddCommand(chatCmd)
}
