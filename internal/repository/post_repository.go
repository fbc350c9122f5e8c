package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/agora-social/agora/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrForbidden    = errors.New("not allowed")
)

// MaxPostLength is the longest accepted post body, in runes.
const MaxPostLength = 5000

// PostRepository handles reads of posts, likes and comments plus post
// creation and deletion. Likes and comments are written by the ledger.
type PostRepository interface {
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, postID string) (*models.Post, error)
	DeletePost(ctx context.Context, postID, callerID string) error

	GetFeed(ctx context.Context, limit, offset int) ([]*models.Post, error)
	GetUserPosts(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error)
	GetTimeline(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error)

	GetLikers(ctx context.Context, postID string, limit, offset int) ([]*models.User, error)
	LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error)
	GetComments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

// CreatePost validates and stores a new post with zeroed counters.
func (r *postRepository) CreatePost(ctx context.Context, post *models.Post) error {
	if post == nil || post.UserID == "" {
		return ErrInvalidInput
	}
	post.Body = strings.TrimSpace(post.Body)
	if post.Body == "" {
		return fmt.Errorf("%w: post body is empty", ErrInvalidInput)
	}
	if utf8.RuneCountInString(post.Body) > MaxPostLength {
		return fmt.Errorf("%w: post exceeds %d characters", ErrInvalidInput, MaxPostLength)
	}
	post.LikesCount = 0
	post.CommentsCount = 0

	return r.db.WithContext(ctx).Create(post).Error
}

// GetPost gets a post with its author
func (r *postRepository) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("id = ?", postID).
		First(&post).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrPostNotFound
	}

	return &post, err
}

// DeletePost removes a post with its likes and comments. Only the author
// may delete it.
func (r *postRepository) DeletePost(ctx context.Context, postID, callerID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		// Same row lock the ledger takes, so no like or comment can commit
		// between the cascade and the post delete.
		err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Select("id", "user_id").Where("id = ?", postID).First(&post).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPostNotFound
		}
		if err != nil {
			return err
		}
		if post.UserID != callerID {
			return ErrForbidden
		}

		if err := tx.Where("post_id = ?", postID).Delete(&models.PostLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, "id = ?", postID).Error
	})
}

// GetFeed gets all posts, newest first
func (r *postRepository) GetFeed(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post

	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error

	return posts, err
}

// GetUserPosts gets posts by one author, newest first
func (r *postRepository) GetUserPosts(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post

	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error

	return posts, err
}

// GetTimeline gets posts by userID and everyone userID follows, newest first
func (r *postRepository) GetTimeline(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error) {
	var posts []*models.Post

	following := r.db.Model(&models.Follow{}).Select("following_id").Where("follower_id = ?", userID)

	err := r.db.WithContext(ctx).
		Preload("User").
		Where("user_id = ? OR user_id IN (?)", userID, following).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error

	return posts, err
}

// GetLikers gets users who like a post, most recent like first
func (r *postRepository) GetLikers(ctx context.Context, postID string, limit, offset int) ([]*models.User, error) {
	var users []*models.User

	err := r.db.WithContext(ctx).
		Joins("JOIN post_likes ON post_likes.user_id = users.id").
		Where("post_likes.post_id = ?", postID).
		Order("post_likes.created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error

	return users, err
}

// LikedPostIDs reports which of postIDs userID currently likes.
func (r *postRepository) LikedPostIDs(ctx context.Context, userID string, postIDs []string) (map[string]bool, error) {
	liked := make(map[string]bool, len(postIDs))
	if userID == "" || len(postIDs) == 0 {
		return liked, nil
	}

	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", userID, postIDs).
		Pluck("post_id", &ids).Error
	if err != nil {
		return nil, err
	}

	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// GetComments gets the comments of a post, oldest first
func (r *postRepository) GetComments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment

	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error

	return comments, err
}
