package ledger

import (
	"context"
	"fmt"
	"sort"

	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FollowResult is the state after a follow toggle. FollowersCount belongs
// to the followee, FollowingCount to the follower.
type FollowResult struct {
	Following      bool  `json:"following"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

// ToggleFollow flips the follow edge followerID -> followeeID and moves
// the followee's followers_count and the follower's following_count by one,
// all in one transaction.
func (l *Ledger) ToggleFollow(ctx context.Context, followerID, followeeID string) (res FollowResult, err error) {
	ctx, done := l.begin(ctx, OpToggleFollow,
		attribute.String("follower_id", followerID),
		attribute.String("followee_id", followeeID))
	defer func() { done(err) }()

	if followerID == "" {
		return FollowResult{}, ErrUnauthenticated
	}
	if followeeID == "" {
		return FollowResult{}, fmt.Errorf("%w: user id is empty", ErrNotFound)
	}
	if followerID == followeeID {
		return FollowResult{}, fmt.Errorf("%w: cannot follow yourself", ErrInvalidArgument)
	}

	err = l.transact(ctx, OpToggleFollow, func(tx *gorm.DB) error {
		res = FollowResult{}

		// Lock both users in id order so opposing toggles cannot deadlock.
		ids := []string{followerID, followeeID}
		sort.Strings(ids)
		var users []models.User
		if err := forUpdate(tx).Select("id").Where("id IN ?", ids).Order("id").Find(&users).Error; err != nil {
			return err
		}
		if len(users) != 2 {
			return fmt.Errorf("%w: user", ErrNotFound)
		}

		var edges int64
		if err := tx.Model(&models.Follow{}).
			Where("follower_id = ? AND following_id = ?", followerID, followeeID).
			Count(&edges).Error; err != nil {
			return err
		}

		delta := 1
		if edges == 0 {
			if err := tx.Create(&models.Follow{FollowerID: followerID, FollowingID: followeeID}).Error; err != nil {
				return err
			}
		} else {
			del := tx.Where("follower_id = ? AND following_id = ?", followerID, followeeID).Delete(&models.Follow{})
			if del.Error != nil {
				return del.Error
			}
			if del.RowsAffected == 0 {
				return ErrTransientConflict
			}
			delta = -1
		}

		followers, err := bump(tx, &models.User{}, followeeID, "followers_count", delta)
		if err != nil {
			return err
		}
		following, err := bump(tx, &models.User{}, followerID, "following_count", delta)
		if err != nil {
			return err
		}

		res = FollowResult{Following: delta > 0, FollowersCount: followers, FollowingCount: following}
		return nil
	})
	if err != nil {
		return FollowResult{}, err
	}

	logger.Log.Debug("Follow toggled",
		logger.WithUserID(followerID),
		zap.String("followee_id", followeeID),
		zap.Bool("following", res.Following))

	l.publish(Event{
		Type:         EventFollow,
		ActorID:      followerID,
		TargetUserID: followeeID,
		Active:       res.Following,
		Count:        res.FollowersCount,
		Recipients:   recipients(followerID, followeeID),
	})
	return res, nil
}

// CheckFollowing reports whether followerID currently follows followeeID.
func (l *Ledger) CheckFollowing(ctx context.Context, followerID, followeeID string) (following bool, err error) {
	ctx, done := l.begin(ctx, OpCheckFollowing)
	defer func() { done(err) }()

	if followerID == "" {
		return false, ErrUnauthenticated
	}

	var edges int64
	err = l.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followeeID).
		Count(&edges).Error
	if err != nil {
		return false, classify(err)
	}
	return edges > 0, nil
}
