package cmd

import (
	"fmt"
	"strings"

	"github.com/agora-social/agora/cli/pkg/api"
	"github.com/agora-social/agora/cli/pkg/output"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Direct messages",
}

var chatSendCmd = &cobra.Command{
	Use:   "send <user-id|@username> <text...>",
	Short: "Send a direct message",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		recipientID, err := api.ResolveUser(args[0])
		if err != nil {
			return err
		}
		msg, err := api.SendMessage(recipientID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(msg)
		}
		output.PrintSuccess("✓ Sent to %s", args[0])
		return nil
	},
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chats, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		chats, err := api.ListChats(50, 0)
		if err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(chats)
		}
		if len(chats) == 0 {
			output.PrintInfo("No chats yet")
			return nil
		}

		rows := make([][]string, 0, len(chats))
		for _, c := range chats {
			when := ""
			if c.LastMessageAt != nil {
				when = ago(*c.LastMessageAt)
			}
			last := c.LastMessageText
			if c.LastSenderID == session.UserID {
				last = "you: " + last
			}
			rows = append(rows, []string{c.ID, c.Peer(session.UserID), when, output.Truncate(last, 50)})
		}
		output.PrintTable([]string{"CHAT", "WITH", "WHEN", "LAST MESSAGE"}, rows)
		return nil
	},
}

var chatShowCmd = &cobra.Command{
	Use:   "show <chat-id>",
	Short: "Show a chat's messages and mark them read",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireLogin(); err != nil {
			return err
		}
		messages, err := api.GetMessages(args[0], 100, 0)
		if err != nil {
			return err
		}
		if _, err := api.MarkRead(args[0]); err != nil {
			return err
		}
		if output.IsJSON() {
			return output.PrintJSON(messages)
		}

		for _, m := range messages {
			who := "them"
			if m.SenderID == session.UserID {
				who = "you"
			}
			output.Faint.Fprintf(output.Writer, "%-4s %8s  ", who, ago(m.CreatedAt))
			fmt.Fprintln(output.Writer, m.Text)
		}
		return nil
	},
}

func init() {
	chatCmd.AddCommand(chatSendCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatShowCmd)
}
