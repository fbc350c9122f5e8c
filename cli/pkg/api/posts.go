package api

import (
	"strconv"

	"github.com/agora-social/agora/cli/pkg/client"
	"github.com/agora-social/agora/cli/pkg/logger"
)

func page(limit, offset int) map[string]string {
	return map[string]string{
		"limit":  strconv.Itoa(limit),
		"offset": strconv.Itoa(offset),
	}
}

// GetFeed returns all posts, newest first
func GetFeed(limit, offset int) ([]Post, error) {
	resp, err := client.GetClient().R().
		SetQueryParams(page(limit, offset)).
		Get("/api/v1/feed")

	var out postList
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// GetTimeline returns posts by the caller and the users they follow
func GetTimeline(limit, offset int) ([]Post, error) {
	resp, err := client.GetClient().R().
		SetQueryParams(page(limit, offset)).
		Get("/api/v1/feed/timeline")

	var out postList
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return out.Posts, nil
}

// CreatePost publishes a post. It is never retried automatically.
func CreatePost(body string) (*Post, error) {
	logger.Debug("Creating post", "length", len(body))

	resp, err := client.GetClient().R().
		SetBody(map[string]string{"body": body}).
		Post("/api/v1/posts")

	var post Post
	if err := decode(resp, err, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// GetPost fetches one post
func GetPost(postID string) (*Post, error) {
	resp, err := client.GetClient().R().
		SetPathParam("id", postID).
		Get("/api/v1/posts/{id}")

	var post Post
	if err := decode(resp, err, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// DeletePost deletes one of the caller's posts
func DeletePost(postID string) error {
	resp, err := client.GetClient().R().
		SetPathParam("id", postID).
		Delete("/api/v1/posts/{id}")
	return CheckResponse(resp, err)
}

// GetComments lists a post's comments, oldest first
func GetComments(postID string, limit, offset int) ([]Comment, error) {
	resp, err := client.GetClient().R().
		SetPathParam("id", postID).
		SetQueryParams(page(limit, offset)).
		Get("/api/v1/posts/{id}/comments")

	var out commentList
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return out.Comments, nil
}
