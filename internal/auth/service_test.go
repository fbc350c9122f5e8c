package auth

import (
	"context"
	"testing"
	"time"

	"github.com/agora-social/agora/backend/internal/database"
	"github.com/agora-social/agora/backend/internal/models"
	"github.com/agora-social/agora/backend/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	ctx         context.Context
	db          *gorm.DB
	authService *Service
}

func (suite *AuthServiceTestSuite) SetupTest() {
	db, err := database.OpenMemory()
	require.NoError(suite.T(), err)

	suite.ctx = context.Background()
	suite.db = db
	suite.authService = NewService(repository.NewUserRepository(db), []byte("test_jwt_secret_key"), time.Hour)
}

func (suite *AuthServiceTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *AuthServiceTestSuite) TestRegister() {
	t := suite.T()

	req := RegisterRequest{
		Email:       "test@agora.dev",
		Username:    "tester",
		Password:    "password123",
		DisplayName: "Test <b>User</b>",
	}

	authResp, err := suite.authService.Register(suite.ctx, req)
	require.NoError(t, err)
	require.NotNil(t, authResp)

	assert.NotEmpty(t, authResp.Token)
	assert.Equal(t, req.Email, authResp.User.Email)
	assert.Equal(t, req.Username, authResp.User.Username)
	assert.Equal(t, "Test User", authResp.User.DisplayName)
	assert.Equal(t, DefaultBio, authResp.User.Bio)
	assert.True(t, models.IsAvailableAvatar(authResp.User.AvatarURL))
	assert.Zero(t, authResp.User.FollowersCount)
	require.NotNil(t, authResp.User.PasswordHash)
	assert.NotEqual(t, req.Password, *authResp.User.PasswordHash)

	_, err = suite.authService.Register(suite.ctx, req)
	assert.ErrorIs(t, err, ErrUserExists)

	req2 := RegisterRequest{
		Email:    "different@agora.dev",
		Username: "TESTER",
		Password: "password456",
	}
	_, err = suite.authService.Register(suite.ctx, req2)
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func (suite *AuthServiceTestSuite) TestRegisterDefaultsDisplayName() {
	authResp, err := suite.authService.Register(suite.ctx, RegisterRequest{
		Email:    "nameless@agora.dev",
		Username: "nameless",
		Password: "password123",
	})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "nameless", authResp.User.DisplayName)
}

func (suite *AuthServiceTestSuite) TestLogin() {
	t := suite.T()

	_, err := suite.authService.Register(suite.ctx, RegisterRequest{
		Email:    "login@agora.dev",
		Username: "logintest",
		Password: "testpass123",
	})
	require.NoError(t, err)

	loginReq := LoginRequest{Email: "login@agora.dev", Password: "testpass123"}
	authResp, err := suite.authService.Login(suite.ctx, loginReq)
	require.NoError(t, err)
	assert.NotEmpty(t, authResp.Token)
	assert.Equal(t, loginReq.Email, authResp.User.Email)

	var stored models.User
	require.NoError(t, suite.db.First(&stored, "id = ?", authResp.User.ID).Error)
	assert.NotNil(t, stored.LastActiveAt)

	loginReq.Email = "nonexistent@agora.dev"
	_, err = suite.authService.Login(suite.ctx, loginReq)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loginReq.Email = "login@agora.dev"
	loginReq.Password = "wrongpassword"
	_, err = suite.authService.Login(suite.ctx, loginReq)
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	loginReq.Email = "LOGIN@AGORA.DEV"
	loginReq.Password = "testpass123"
	_, err = suite.authService.Login(suite.ctx, loginReq)
	assert.NoError(t, err)
}

func (suite *AuthServiceTestSuite) TestValidateToken() {
	t := suite.T()

	user := models.User{Email: "jwt@agora.dev", Username: "jwttest", DisplayName: "JWT Test"}
	require.NoError(t, suite.db.Create(&user).Error)

	authResp, err := suite.authService.GenerateTokenForUser(&user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), authResp.ExpiresAt, time.Minute)

	validated, err := suite.authService.ValidateToken(suite.ctx, authResp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, validated.ID)
	assert.Equal(t, user.Username, validated.Username)

	_, err = suite.authService.ValidateToken(suite.ctx, "invalid.jwt.token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongService := NewService(repository.NewUserRepository(suite.db), []byte("wrong_secret"), 0)
	_, err = wrongService.ValidateToken(suite.ctx, authResp.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func (suite *AuthServiceTestSuite) TestValidateTokenRejectsExpiredAndUnknown() {
	t := suite.T()

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "someone",
		"exp":     time.Now().Add(-time.Minute).Unix(),
	})
	signed, err := expired.SignedString([]byte("test_jwt_secret_key"))
	require.NoError(t, err)
	_, err = suite.authService.ValidateToken(suite.ctx, signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	ghost := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": "ghost",
		"exp":     time.Now().Add(time.Minute).Unix(),
	})
	signed, err = ghost.SignedString([]byte("test_jwt_secret_key"))
	require.NoError(t, err)
	_, err = suite.authService.ValidateToken(suite.ctx, signed)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}

func TestMockAuthService(t *testing.T) {
	m := NewMockAuthService()
	u := &models.User{ID: "u1"}
	m.Tokens["tok"] = u

	got, err := m.ValidateToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Same(t, u, got)

	_, err = m.ValidateToken(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Equal(t, 2, m.CallCount("ValidateToken"))
}
