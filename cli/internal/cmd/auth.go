package cmd

import (
	"fmt"

	"github.com/agora-social/agora/cli/pkg/api"
	"github.com/agora-social/agora/cli/pkg/credentials"
	"github.com/agora-social/agora/cli/pkg/output"
	"github.com/agora-social/agora/cli/pkg/prompter"
	"github.com/spf13/cobra"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new Agora account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		username, _ := cmd.Flags().GetString("username")
		displayName, _ := cmd.Flags().GetString("display-name")

		var err error
		if email == "" {
			if email, err = prompter.PromptRequired("Email: "); err != nil {
				return err
			}
		}
		if username == "" {
			if username, err = prompter.PromptRequired("Username: "); err != nil {
				return err
			}
		}
		password, err := prompter.PromptPassword("Password: ")
		if err != nil {
			return err
		}

		resp, err := api.Register(api.RegisterRequest{
			Email:       email,
			Username:    username,
			Password:    password,
			DisplayName: displayName,
		})
		if err != nil {
			return err
		}
		if err := saveSession(resp); err != nil {
			return err
		}

		output.PrintSuccess("✓ Welcome to Agora, @%s!", resp.User.Username)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")

		var err error
		if email == "" {
			if email, err = prompter.PromptRequired("Email: "); err != nil {
				return err
			}
		}
		password, err := prompter.PromptPassword("Password: ")
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("password cannot be empty")
		}

		resp, err := api.Login(email, password)
		if err != nil {
			if api.IsUnauthorized(err) {
				return fmt.Errorf("invalid email or password")
			}
			return err
		}
		if err := saveSession(resp); err != nil {
			return err
		}

		output.PrintSuccess("✓ Logged in as @%s", resp.User.Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := credentials.Delete(); err != nil {
			return err
		}
		session = nil
		output.PrintSuccess("Logged out")
		return nil
	},
}

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		user, err := api.GetCurrentUser()
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(user)
		}
		printUser(user)
		return nil
	},
}

func saveSession(resp *api.AuthResponse) error {
	session = &credentials.Credentials{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		UserID:    resp.User.ID,
		Username:  resp.User.Username,
		Email:     resp.User.Email,
	}
	if err := credentials.Save(session); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	return nil
}

func printUser(u *api.User) {
	output.PrintKeyValue([]output.Field{
		{Key: "Username", Value: "@" + u.Username},
		{Key: "Name", Value: u.DisplayName},
		{Key: "Bio", Value: u.Bio},
		{Key: "Followers", Value: u.FollowersCount},
		{Key: "Following", Value: u.FollowingCount},
		{Key: "ID", Value: u.ID},
	})
}

func init() {
	registerCmd.Flags().String("email", "", "Account email")
	registerCmd.Flags().String("username", "", "Username (3-30 letters, digits, _ or .)")
	registerCmd.Flags().String("display-name", "", "Display name")

	loginCmd.Flags().String("email", "", "Account email")
}
