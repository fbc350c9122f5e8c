// Package chat implements one-to-one direct messaging.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrInvalidArgument = errors.New("chat: invalid argument")
	ErrNotFound        = errors.New("chat: not found")
	ErrForbidden       = errors.New("chat: not a participant")
)

// MaxMessageLength is the longest accepted message, in runes.
const MaxMessageLength = 2000

// Notifier is told about every committed message.
type Notifier interface {
	PublishMessage(msg *models.Message, recipients []string)
}

// Service stores chats and their messages.
type Service struct {
	db       *gorm.DB
	notifier Notifier
}

// NewService creates a chat service. notifier may be nil.
func NewService(db *gorm.DB, notifier Notifier) *Service {
	return &Service{db: db, notifier: notifier}
}

// SendMessage appends a message from senderID to recipientID, creating the
// chat on first contact. The chat's last-message fields and the message
// are written in one transaction.
func (s *Service) SendMessage(ctx context.Context, senderID, recipientID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	switch {
	case senderID == "" || recipientID == "":
		return nil, fmt.Errorf("%w: sender and recipient are required", ErrInvalidArgument)
	case senderID == recipientID:
		return nil, fmt.Errorf("%w: cannot message yourself", ErrInvalidArgument)
	case text == "":
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidArgument)
	case utf8.RuneCountInString(text) > MaxMessageLength:
		return nil, fmt.Errorf("%w: message exceeds %d characters", ErrInvalidArgument, MaxMessageLength)
	}

	chatID := models.ChatID(senderID, recipientID)
	var msg *models.Message

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var users []models.User
		if err := tx.Select("id", "username", "display_name").
			Where("id IN ?", []string{senderID, recipientID}).
			Order("id").
			Find(&users).Error; err != nil {
			return err
		}
		if len(users) != 2 {
			return fmt.Errorf("%w: user", ErrNotFound)
		}

		now := time.Now().UTC()
		chat := models.Chat{
			ID:              chatID,
			User1ID:         users[0].ID,
			User2ID:         users[1].ID,
			User1Name:       users[0].Name(),
			User2Name:       users[1].Name(),
			LastMessageText: text,
			LastSenderID:    senderID,
			LastMessageAt:   &now,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"user1_name", "user2_name",
				"last_message_text", "last_sender_id", "last_message_at",
				"updated_at",
			}),
		}).Create(&chat).Error
		if err != nil {
			return err
		}

		msg = &models.Message{
			ChatID:    chatID,
			SenderID:  senderID,
			Text:      text,
			CreatedAt: now,
		}
		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Debug("Message sent",
		logger.WithChatID(chatID),
		logger.WithUserID(senderID))

	if s.notifier != nil {
		s.notifier.PublishMessage(msg, []string{recipientID, senderID})
	}
	return msg, nil
}

// SendToChat sends text into an existing conversation id on behalf of
// senderID, who must be one of its participants.
func (s *Service) SendToChat(ctx context.Context, chatID, senderID, text string) (*models.Message, error) {
	a, b, err := participants(chatID, senderID)
	if err != nil {
		return nil, err
	}
	recipient := a
	if a == senderID {
		recipient = b
	}
	return s.SendMessage(ctx, senderID, recipient, text)
}

// ListChats returns userID's chats, most recent message first.
func (s *Service) ListChats(ctx context.Context, userID string, limit, offset int) ([]*models.Chat, error) {
	var chats []*models.Chat

	err := s.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("last_message_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&chats).Error

	return chats, err
}

// Messages returns the messages of chatID, oldest first. userID must be a
// participant.
func (s *Service) Messages(ctx context.Context, chatID, userID string, limit, offset int) ([]*models.Message, error) {
	if _, _, err := participants(chatID, userID); err != nil {
		return nil, err
	}

	var messages []*models.Message
	err := s.db.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error

	return messages, err
}

// MarkRead marks every message userID received in chatID as read and
// returns how many changed.
func (s *Service) MarkRead(ctx context.Context, chatID, userID string) (int64, error) {
	if _, _, err := participants(chatID, userID); err != nil {
		return 0, err
	}

	res := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND read = ?", chatID, userID, false).
		UpdateColumn("read", true)

	return res.RowsAffected, res.Error
}

// participants validates chatID and checks userID belongs to it.
func participants(chatID, userID string) (string, string, error) {
	a, b, ok := models.SplitChatID(chatID)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrNotFound, chatID)
	}
	if userID != a && userID != b {
		return "", "", ErrForbidden
	}
	return a, b, nil
}
