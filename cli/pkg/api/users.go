package api

import (
	"fmt"
	"strings"

	"github.com/agora-social/agora/cli/pkg/client"
)

// GetProfile fetches a user's profile
func GetProfile(userID string) (*Profile, error) {
	resp, err := client.GetClient().R().
		SetPathParam("id", userID).
		Get("/api/v1/users/{id}")

	var out Profile
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchUsers finds users by username prefix
func SearchUsers(query string) ([]User, error) {
	resp, err := client.GetClient().R().
		SetQueryParam("q", query).
		Get("/api/v1/users/search")

	var out userList
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return out.Users, nil
}

// ResolveUser turns "@name" into a user id through search. Anything
// else is taken to be an id already.
func ResolveUser(ref string) (string, error) {
	name, ok := strings.CutPrefix(ref, "@")
	if !ok {
		return ref, nil
	}

	users, err := SearchUsers(name)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, name) {
			return u.ID, nil
		}
	}
	return "", fmt.Errorf("no user named @%s", name)
}
