package api

import (
	"github.com/agora-social/agora/cli/pkg/client"
	"github.com/agora-social/agora/cli/pkg/logger"
	"github.com/google/uuid"
)

// newKey returns a fresh idempotency key. One key is used for every
// automatic retry of a single command, so a resent toggle cannot flip
// twice.
func newKey() string {
	return uuid.New().String()
}

// ToggleLike likes the post, or unlikes it if the caller already does
func ToggleLike(postID string) (*LikeResult, error) {
	key := newKey()
	logger.Debug("Toggling like", "post_id", postID, "key", key)

	resp, err := client.GetClient().R().
		SetPathParam("id", postID).
		SetHeader(client.IdempotencyKeyHeader, key).
		Post("/api/v1/posts/{id}/like")

	var out LikeResult
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ToggleFollow follows the user, or unfollows if already following
func ToggleFollow(userID string) (*FollowResult, error) {
	key := newKey()
	logger.Debug("Toggling follow", "user_id", userID, "key", key)

	resp, err := client.GetClient().R().
		SetPathParam("id", userID).
		SetHeader(client.IdempotencyKeyHeader, key).
		Post("/api/v1/users/{id}/follow")

	var out FollowResult
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment comments on a post
func AddComment(postID, body string) (*Comment, error) {
	key := newKey()
	logger.Debug("Adding comment", "post_id", postID, "key", key)

	resp, err := client.GetClient().R().
		SetPathParam("id", postID).
		SetHeader(client.IdempotencyKeyHeader, key).
		SetBody(map[string]string{"body": body}).
		Post("/api/v1/posts/{id}/comments")

	var out Comment
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
