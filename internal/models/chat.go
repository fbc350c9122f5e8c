package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Chat is the metadata row of a one-to-one conversation. User1ID is always
// the lexically smaller participant id.
type Chat struct {
	ID        string `gorm:"primaryKey;type:varchar(80)" json:"id"`
	User1ID   string `gorm:"type:varchar(36);not null;index" json:"user1_id"`
	User2ID   string `gorm:"type:varchar(36);not null;index" json:"user2_id"`
	User1Name string `json:"user1_name"`
	User2Name string `json:"user2_name"`

	LastMessageText string     `gorm:"type:text" json:"last_message_text"`
	LastSenderID    string     `gorm:"type:varchar(36)" json:"last_sender_id"`
	LastMessageAt   *time.Time `gorm:"index" json:"last_message_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Participants returns both user ids in sorted order.
func (c *Chat) Participants() []string {
	return []string{c.User1ID, c.User2ID}
}

// HasParticipant reports whether userID is one of the two chat members.
func (c *Chat) HasParticipant(userID string) bool {
	return userID != "" && (c.User1ID == userID || c.User2ID == userID)
}

// Other returns the id of the participant that is not userID.
func (c *Chat) Other(userID string) string {
	if c.User1ID == userID {
		return c.User2ID
	}
	return c.User1ID
}

// Message is a single chat message, ordered by CreatedAt ascending.
type Message struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ChatID    string    `gorm:"type:varchar(80);not null;index:idx_messages_chat_created,priority:1" json:"chat_id"`
	SenderID  string    `gorm:"type:varchar(36);not null" json:"sender_id"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `gorm:"index:idx_messages_chat_created,priority:2" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = generateUUID()
	}
	return nil
}

// ChatID derives the conversation id for two users. The order of the
// arguments does not matter.
func ChatID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return ids[0] + "_" + ids[1]
}

// SplitChatID is the inverse of ChatID. ok is false when id is malformed.
func SplitChatID(id string) (a, b string, ok bool) {
	a, b, ok = strings.Cut(id, "_")
	if !ok || a == "" || b == "" || a > b {
		return "", "", false
	}
	return a, b, true
}
