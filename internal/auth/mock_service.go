package auth

import (
	"context"
	"sync"

	"github.com/agora-social/agora/backend/internal/models"
)

// MockCall records a method call for assertion
type MockCall struct {
	Method string
	Args   []interface{}
}

// MockAuthService is a mock implementation of AuthServiceInterface for testing.
// Tokens are looked up in Tokens unless a Func override is set.
type MockAuthService struct {
	mu sync.Mutex

	Calls []MockCall

	RegisterFunc      func(req RegisterRequest) (*AuthResponse, error)
	LoginFunc         func(req LoginRequest) (*AuthResponse, error)
	ValidateTokenFunc func(tokenString string) (*models.User, error)

	// Tokens maps a token string to the user it authenticates.
	Tokens map[string]*models.User
}

// NewMockAuthService creates a mock with no known tokens
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{Tokens: make(map[string]*models.User)}
}

var _ AuthServiceInterface = (*MockAuthService)(nil)

func (m *MockAuthService) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, MockCall{Method: method, Args: args})
}

// Register calls RegisterFunc or fails with ErrUserExists
func (m *MockAuthService) Register(_ context.Context, req RegisterRequest) (*AuthResponse, error) {
	m.record("Register", req)
	if m.RegisterFunc != nil {
		return m.RegisterFunc(req)
	}
	return nil, ErrUserExists
}

// Login calls LoginFunc or fails with ErrInvalidCredentials
func (m *MockAuthService) Login(_ context.Context, req LoginRequest) (*AuthResponse, error) {
	m.record("Login", req)
	if m.LoginFunc != nil {
		return m.LoginFunc(req)
	}
	return nil, ErrInvalidCredentials
}

// ValidateToken calls ValidateTokenFunc or looks the token up in Tokens
func (m *MockAuthService) ValidateToken(_ context.Context, tokenString string) (*models.User, error) {
	m.record("ValidateToken", tokenString)
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(tokenString)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.Tokens[tokenString]; ok {
		return u, nil
	}
	return nil, ErrInvalidToken
}

// CallCount returns how many times method was called
func (m *MockAuthService) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c.Method == method {
			n++
		}
	}
	return n
}
