package ledger

import (
	"context"
	"fmt"

	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// LikeResult is the state after a like toggle.
type LikeResult struct {
	Liked    bool  `json:"liked"`
	NewCount int64 `json:"likes_count"`
}

// ToggleLike flips the like edge for (postID, callerID) and moves the
// post's likes_count by one in the same transaction.
func (l *Ledger) ToggleLike(ctx context.Context, postID, callerID string) (res LikeResult, err error) {
	ctx, done := l.begin(ctx, OpToggleLike,
		attribute.String("post_id", postID),
		attribute.String("user_id", callerID))
	defer func() { done(err) }()

	if callerID == "" {
		return LikeResult{}, ErrUnauthenticated
	}
	if postID == "" {
		return LikeResult{}, fmt.Errorf("%w: post id is empty", ErrNotFound)
	}

	var authorID string
	err = l.transact(ctx, OpToggleLike, func(tx *gorm.DB) error {
		res = LikeResult{}

		var post models.Post
		if err := forUpdate(tx).Select("id", "user_id").First(&post, "id = ?", postID).Error; err != nil {
			return fmt.Errorf("post %s: %w", postID, err)
		}
		authorID = post.UserID

		var edges int64
		if err := tx.Model(&models.PostLike{}).
			Where("post_id = ? AND user_id = ?", postID, callerID).
			Count(&edges).Error; err != nil {
			return err
		}

		delta := 1
		if edges == 0 {
			if err := tx.Create(&models.PostLike{PostID: postID, UserID: callerID}).Error; err != nil {
				return err
			}
		} else {
			del := tx.Where("post_id = ? AND user_id = ?", postID, callerID).Delete(&models.PostLike{})
			if del.Error != nil {
				return del.Error
			}
			if del.RowsAffected == 0 {
				// Another transaction removed the edge after our read.
				return ErrTransientConflict
			}
			delta = -1
		}

		count, err := bump(tx, &models.Post{}, postID, "likes_count", delta)
		if err != nil {
			return err
		}
		res = LikeResult{Liked: delta > 0, NewCount: count}
		return nil
	})
	if err != nil {
		return LikeResult{}, err
	}

	logger.Log.Debug("Like toggled",
		logger.WithPostID(postID),
		logger.WithUserID(callerID))

	l.publish(Event{
		Type:       EventLike,
		ActorID:    callerID,
		PostID:     postID,
		Active:     res.Liked,
		Count:      res.NewCount,
		Recipients: recipients(callerID, authorID),
	})
	return res, nil
}

// CheckLiked reports whether callerID currently likes postID. A missing
// post reads as not liked.
func (l *Ledger) CheckLiked(ctx context.Context, postID, callerID string) (liked bool, err error) {
	ctx, done := l.begin(ctx, OpCheckLiked, attribute.String("post_id", postID))
	defer func() { done(err) }()

	if callerID == "" {
		return false, ErrUnauthenticated
	}

	var edges int64
	err = l.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, callerID).
		Count(&edges).Error
	if err != nil {
		return false, classify(err)
	}
	return edges > 0, nil
}
