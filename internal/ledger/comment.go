package ledger

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// MaxCommentLength is the longest accepted comment body, in runes.
const MaxCommentLength = 2000

// AddComment appends a comment to postID and increments its comments_count
// in the same transaction. An empty displayName is filled from the
// caller's profile. Comments have no delete path.
func (l *Ledger) AddComment(ctx context.Context, postID, callerID, displayName, body string) (comment *models.Comment, err error) {
	ctx, done := l.begin(ctx, OpAddComment,
		attribute.String("post_id", postID),
		attribute.String("user_id", callerID))
	defer func() { done(err) }()

	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: comment body is empty", ErrInvalidArgument)
	}
	if utf8.RuneCountInString(body) > MaxCommentLength {
		return nil, fmt.Errorf("%w: comment exceeds %d characters", ErrInvalidArgument, MaxCommentLength)
	}
	if postID == "" {
		return nil, fmt.Errorf("%w: post id is empty", ErrNotFound)
	}
	displayName = strings.TrimSpace(displayName)

	var authorID string
	var count int64
	err = l.transact(ctx, OpAddComment, func(tx *gorm.DB) error {
		comment = nil

		var post models.Post
		if err := forUpdate(tx).Select("id", "user_id").First(&post, "id = ?", postID).Error; err != nil {
			return fmt.Errorf("post %s: %w", postID, err)
		}
		authorID = post.UserID

		name := displayName
		if name == "" {
			var caller models.User
			if err := tx.Select("id", "username", "display_name").First(&caller, "id = ?", callerID).Error; err != nil {
				return fmt.Errorf("user %s: %w", callerID, err)
			}
			name = caller.Name()
		}

		c := &models.Comment{
			PostID:     postID,
			UserID:     callerID,
			AuthorName: name,
			Body:       body,
		}
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		n, err := bump(tx, &models.Post{}, postID, "comments_count", 1)
		if err != nil {
			return err
		}
		comment, count = c, n
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.Debug("Comment added",
		logger.WithPostID(postID),
		logger.WithUserID(callerID))

	l.publish(Event{
		Type:       EventComment,
		ActorID:    callerID,
		PostID:     postID,
		Active:     true,
		Count:      count,
		Comment:    comment,
		Recipients: recipients(callerID, authorID),
	})
	return comment, nil
}
