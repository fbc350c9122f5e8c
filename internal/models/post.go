package models

import (
	"time"

	"gorm.io/gorm"
)

// Post is a text post on the feed. LikesCount and CommentsCount are derived
// from the post_likes and comments tables by the engagement ledger.
type Post struct {
	ID     string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID string `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User   *User  `gorm:"foreignKey:UserID" json:"author,omitempty"`

	Body string `gorm:"type:text;not null" json:"body"`

	LikesCount    int64 `gorm:"not null;default:0" json:"likes_count"`
	CommentsCount int64 `gorm:"not null;default:0" json:"comments_count"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PostLike is the edge "UserID likes PostID".
type PostLike struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36)" json:"post_id"`
	UserID    string    `gorm:"primaryKey;type:varchar(36);index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (PostLike) TableName() string {
	return "post_likes"
}

// Comment is append-only. AuthorName is the commenter's display name at the
// time of writing.
type Comment struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	PostID     string    `gorm:"type:varchar(36);not null;index:idx_comments_post_created,priority:1" json:"post_id"`
	UserID     string    `gorm:"type:varchar(36);not null;index" json:"user_id"`
	AuthorName string    `gorm:"not null" json:"author_name"`
	Body       string    `gorm:"type:text;not null" json:"body"`
	CreatedAt  time.Time `gorm:"index:idx_comments_post_created,priority:2" json:"created_at"`
}

func (p *Post) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = generateUUID()
	}
	return nil
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}
