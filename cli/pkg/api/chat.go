package api

import (
	"github.com/agora-social/agora/cli/pkg/client"
)

// ListChats returns the caller's chats, most recent first
func ListChats(limit, offset int) ([]Chat, error) {
	resp, err := client.GetClient().R().
		SetQueryParams(page(limit, offset)).
		Get("/api/v1/chats")

	var out chatList
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return out.Chats, nil
}

// SendMessage messages a user, opening the chat on first contact
func SendMessage(recipientID, text string) (*Message, error) {
	resp, err := client.GetClient().R().
		SetBody(map[string]string{"recipient_id": recipientID, "text": text}).
		Post("/api/v1/chats")

	var out Message
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMessages lists a chat's messages, oldest first
func GetMessages(chatID string, limit, offset int) ([]Message, error) {
	resp, err := client.GetClient().R().
		SetPathParam("id", chatID).
		SetQueryParams(page(limit, offset)).
		Get("/api/v1/chats/{id}/messages")

	var out messageList
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// MarkRead marks the other participant's messages as read
func MarkRead(chatID string) (int64, error) {
	resp, err := client.GetClient().R().
		SetPathParam("id", chatID).
		Post("/api/v1/chats/{id}/read")

	var out struct {
		Marked int64 `json:"marked"`
	}
	if err := decode(resp, err, &out); err != nil {
		return 0, err
	}
	return out.Marked, nil
}
