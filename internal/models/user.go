package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is an Agora account. FollowersCount and FollowingCount are derived
// counters owned by the engagement ledger; nothing else writes them.
type User struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Username    string `gorm:"uniqueIndex;not null" json:"username"`
	DisplayName string `gorm:"not null" json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`
	AvatarURL   string `json:"avatar_url"`

	PasswordHash *string `gorm:"type:text" json:"-"`

	FollowersCount int64 `gorm:"not null;default:0" json:"followers_count"`
	FollowingCount int64 `gorm:"not null;default:0" json:"following_count"`

	LastActiveAt *time.Time `json:"last_active_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}

// Follow is the edge "FollowerID follows FollowingID". The composite primary
// key makes a duplicate edge impossible.
type Follow struct {
	FollowerID  string    `gorm:"primaryKey;type:varchar(36)" json:"follower_id"`
	FollowingID string    `gorm:"primaryKey;type:varchar(36);index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Follow) TableName() string {
	return "follows"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = generateUUID()
	}
	return nil
}

// AfterFind applies the defaulting rule for rows written before avatars
// were mandatory.
func (u *User) AfterFind(tx *gorm.DB) error {
	if u.AvatarURL == "" {
		u.AvatarURL = DefaultAvatar
	}
	return nil
}

func generateUUID() string {
	return uuid.New().String()
}
