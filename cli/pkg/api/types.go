package api

import "time"

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name,omitempty"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at"`
}

type User struct {
	ID             string    `json:"id"`
	Email          string    `json:"email,omitempty"`
	Username       string    `json:"username"`
	DisplayName    string    `json:"display_name"`
	Bio            string    `json:"bio"`
	AvatarURL      string    `json:"avatar_url"`
	FollowersCount int64     `json:"followers_count"`
	FollowingCount int64     `json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
}

// Profile is a user as seen by the caller
type Profile struct {
	User
	IsFollowing bool `json:"is_following"`
	IsSelf      bool `json:"is_self"`
}

type Post struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Author        *User     `json:"author,omitempty"`
	Body          string    `json:"body"`
	LikesCount    int64     `json:"likes_count"`
	CommentsCount int64     `json:"comments_count"`
	LikedByMe     bool      `json:"liked_by_me"`
	CreatedAt     time.Time `json:"created_at"`
}

type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"post_id"`
	UserID     string    `json:"user_id"`
	AuthorName string    `json:"author_name"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// LikeResult is the state after a like toggle
type LikeResult struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

// FollowResult is the state after a follow toggle
type FollowResult struct {
	Following      bool  `json:"following"`
	FollowersCount int64 `json:"followers_count"`
	FollowingCount int64 `json:"following_count"`
}

type Chat struct {
	ID              string     `json:"id"`
	User1ID         string     `json:"user1_id"`
	User2ID         string     `json:"user2_id"`
	User1Name       string     `json:"user1_name"`
	User2Name       string     `json:"user2_name"`
	LastMessageText string     `json:"last_message_text"`
	LastSenderID    string     `json:"last_sender_id"`
	LastMessageAt   *time.Time `json:"last_message_at"`
}

// Peer returns the name of the participant who is not userID
func (c Chat) Peer(userID string) string {
	if c.User1ID == userID {
		return c.User2Name
	}
	return c.User1Name
}

type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

type postList struct {
	Posts []Post `json:"posts"`
}

type commentList struct {
	Comments []Comment `json:"comments"`
}

type userList struct {
	Users []User `json:"users"`
}

type chatList struct {
	Chats []Chat `json:"chats"`
}

type messageList struct {
	Messages []Message `json:"messages"`
}
