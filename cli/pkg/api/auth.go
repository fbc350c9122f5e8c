package api

import (
	"github.com/agora-social/agora/cli/pkg/client"
	"github.com/agora-social/agora/cli/pkg/logger"
)

// Login authenticates user with email and password
func Login(email, password string) (*AuthResponse, error) {
	logger.Debug("Attempting login", "email", email)

	resp, err := client.GetClient().R().
		SetBody(LoginRequest{Email: email, Password: password}).
		Post("/api/v1/auth/login")

	var out AuthResponse
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}

	logger.Debug("Login successful", "username", out.User.Username)
	return &out, nil
}

// Register creates an account and returns its first token
func Register(req RegisterRequest) (*AuthResponse, error) {
	logger.Debug("Registering", "email", req.Email, "username", req.Username)

	resp, err := client.GetClient().R().
		SetBody(req).
		Post("/api/v1/auth/register")

	var out AuthResponse
	if err := decode(resp, err, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCurrentUser gets the current authenticated user
func GetCurrentUser() (*User, error) {
	resp, err := client.GetClient().R().Get("/api/v1/auth/me")

	var user User
	if err := decode(resp, err, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
