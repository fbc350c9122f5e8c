package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/agora-social/agora/backend/internal/auth"
	"github.com/agora-social/agora/backend/internal/cache"
	"github.com/agora-social/agora/backend/internal/chat"
	"github.com/agora-social/agora/backend/internal/database"
	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/agora-social/agora/backend/internal/metrics"
	"github.com/agora-social/agora/backend/internal/models"
	"github.com/agora-social/agora/backend/internal/repository"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// HandlersTestSuite drives the real router against an in-memory database.
// Callers are identified by the X-User-ID header.
type HandlersTestSuite struct {
	suite.Suite
	db       *gorm.DB
	router   *gin.Engine
	handlers *Handlers
	alice    *models.User
	bob      *models.User
	carol    *models.User
	post     *models.Post
}

func (suite *HandlersTestSuite) SetupTest() {
	db, err := database.OpenMemory()
	require.NoError(suite.T(), err)
	suite.db = db

	users := repository.NewUserRepository(db)
	posts := repository.NewPostRepository(db)
	authService := auth.NewService(users, []byte("test-secret"), time.Hour)

	suite.handlers = NewHandlers(ledger.New(db), users, posts, chat.NewService(db, nil), authService)
	store, err := cache.NewIdempotencyStore(nil, time.Minute)
	require.NoError(suite.T(), err)
	suite.handlers.SetIdempotencyStore(store)

	gin.SetMode(gin.TestMode)
	suite.router = gin.New()
	suite.handlers.RegisterRoutes(suite.router.Group("/api/v1"), RouteMiddleware{
		Auth:         suite.stubAuth(true),
		OptionalAuth: suite.stubAuth(false),
	})

	suite.alice = suite.createUser("alice")
	suite.bob = suite.createUser("bob")
	suite.carol = suite.createUser("carol")
	suite.post = suite.createPost(suite.bob, "hello **world**")
}

func (suite *HandlersTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

// stubAuth loads the user named by X-User-ID. With required set, a
// missing or unknown id is rejected.
func (suite *HandlersTestSuite) stubAuth(required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		var user models.User
		if userID == "" || suite.db.First(&user, "id = ?", userID).Error != nil {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED"})
				return
			}
			c.Next()
			return
		}
		c.Set("user", &user)
		c.Set("user_id", user.ID)
		c.Next()
	}
}

func (suite *HandlersTestSuite) createUser(username string) *models.User {
	u := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: strings.ToUpper(username[:1]) + username[1:],
	}
	require.NoError(suite.T(), suite.db.Create(u).Error)
	return u
}

func (suite *HandlersTestSuite) createPost(author *models.User, body string) *models.Post {
	p := &models.Post{UserID: author.ID, Body: body, CreatedAt: time.Now().UTC().Add(-time.Minute)}
	require.NoError(suite.T(), suite.db.Create(p).Error)
	return p
}

func (suite *HandlersTestSuite) request(method, path string, as *models.User, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(suite.T(), err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("X-User-ID", as.ID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

type errorBody struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field"`
	Retryable bool   `json:"retryable"`
}

type likeBody struct {
	Liked      bool  `json:"liked"`
	LikesCount int64 `json:"likes_count"`
}

type postBody struct {
	ID            string `json:"id"`
	Body          string `json:"body"`
	BodyHTML      string `json:"body_html"`
	LikesCount    int64  `json:"likes_count"`
	CommentsCount int64  `json:"comments_count"`
	LikedByMe     bool   `json:"liked_by_me"`
	Author        *struct {
		Username string `json:"username"`
	} `json:"author"`
}

func (suite *HandlersTestSuite) likePath() string {
	return "/api/v1/posts/" + suite.post.ID + "/like"
}

func (suite *HandlersTestSuite) TestRegisterLoginMe() {
	t := suite.T()

	w := suite.request("POST", "/api/v1/auth/register", nil, gin.H{
		"email": "dave@example.com", "username": "dave", "password": "secret123",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[auth.AuthResponse](t, w)
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "dave", reg.User.DisplayName)
	assert.Equal(t, auth.DefaultBio, reg.User.Bio)

	w = suite.request("POST", "/api/v1/auth/register", nil, gin.H{
		"email": "other@example.com", "username": "DAVE", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_EXISTS", decode[errorBody](t, w).Code)

	w = suite.request("POST", "/api/v1/auth/login", nil, gin.H{"email": "dave@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, w.Code)

	w = suite.request("POST", "/api/v1/auth/login", nil, gin.H{"email": "dave@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = suite.request("POST", "/api/v1/auth/register", nil, gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = suite.request("GET", "/api/v1/auth/me", suite.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, suite.alice.ID, decode[models.User](t, w).ID)
}

func (suite *HandlersTestSuite) TestToggleLikeRoundTrip() {
	t := suite.T()

	w := suite.request("POST", suite.likePath(), suite.alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, likeBody{Liked: true, LikesCount: 1}, decode[likeBody](t, w))

	w = suite.request("GET", suite.likePath(), suite.alice, nil)
	assert.Equal(t, map[string]bool{"liked": true}, decode[map[string]bool](t, w))

	w = suite.request("GET", "/api/v1/posts/"+suite.post.ID, suite.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	post := decode[postBody](t, w)
	assert.Equal(t, int64(1), post.LikesCount)
	assert.True(t, post.LikedByMe)
	assert.Contains(t, post.BodyHTML, "<strong>world</strong>")
	require.NotNil(t, post.Author)
	assert.Equal(t, "bob", post.Author.Username)

	w = suite.request("GET", "/api/v1/posts/"+suite.post.ID+"/likes", nil, nil)
	likers := decode[struct {
		Users []models.User `json:"users"`
	}](t, w)
	require.Len(t, likers.Users, 1)
	assert.Equal(t, suite.alice.ID, likers.Users[0].ID)

	w = suite.request("POST", suite.likePath(), suite.alice, nil)
	assert.Equal(t, likeBody{Liked: false, LikesCount: 0}, decode[likeBody](t, w))

	w = suite.request("GET", "/api/v1/posts/"+suite.post.ID, nil, nil)
	assert.False(t, decode[postBody](t, w).LikedByMe)
}

func (suite *HandlersTestSuite) TestToggleLikeErrors() {
	t := suite.T()

	w := suite.request("POST", suite.likePath(), nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = suite.request("POST", "/api/v1/posts/missing/like", suite.alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode[errorBody](t, w).Code)
}

func (suite *HandlersTestSuite) TestIdempotencyKeyReplaysResult() {
	t := suite.T()

	first := suite.request("POST", suite.likePath(), suite.alice, nil, IdempotencyKeyHeader, "k1")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, likeBody{Liked: true, LikesCount: 1}, decode[likeBody](t, first))

	replay := suite.request("POST", suite.likePath(), suite.alice, nil, IdempotencyKeyHeader, "k1")
	require.Equal(t, http.StatusOK, replay.Code)
	assert.Equal(t, "true", replay.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, likeBody{Liked: true, LikesCount: 1}, decode[likeBody](t, replay), "resubmission must not flip back")

	var stored models.Post
	require.NoError(t, suite.db.First(&stored, "id = ?", suite.post.ID).Error)
	assert.Equal(t, int64(1), stored.LikesCount)

	// Keys are scoped to the caller
	other := suite.request("POST", suite.likePath(), suite.carol, nil, IdempotencyKeyHeader, "k1")
	assert.Equal(t, likeBody{Liked: true, LikesCount: 2}, decode[likeBody](t, other))

	fresh := suite.request("POST", suite.likePath(), suite.alice, nil, IdempotencyKeyHeader, "k2")
	assert.Equal(t, likeBody{Liked: false, LikesCount: 1}, decode[likeBody](t, fresh))

	long := suite.request("POST", suite.likePath(), suite.alice, nil, IdempotencyKeyHeader, strings.Repeat("x", 200))
	assert.Equal(t, http.StatusUnprocessableEntity, long.Code)
}

func (suite *HandlersTestSuite) TestFailedRequestReleasesIdempotencyKey() {
	t := suite.T()

	w := suite.request("POST", "/api/v1/posts/"+suite.post.ID+"/comments", suite.alice, gin.H{"body": "  "}, IdempotencyKeyHeader, "c1")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = suite.request("POST", "/api/v1/posts/"+suite.post.ID+"/comments", suite.alice, gin.H{"body": "nice"}, IdempotencyKeyHeader, "c1")
	assert.Equal(t, http.StatusCreated, w.Code)
}

func (suite *HandlersTestSuite) TestFollowAndProfile() {
	t := suite.T()
	followPath := "/api/v1/users/" + suite.bob.ID + "/follow"

	w := suite.request("POST", followPath, suite.alice, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[ledger.FollowResult](t, w)
	assert.True(t, res.Following)
	assert.Equal(t, int64(1), res.FollowersCount)
	assert.Equal(t, int64(1), res.FollowingCount)

	w = suite.request("GET", followPath, suite.alice, nil)
	assert.Equal(t, map[string]bool{"following": true}, decode[map[string]bool](t, w))

	w = suite.request("GET", "/api/v1/users/"+suite.bob.ID, suite.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode[map[string]interface{}](t, w)
	assert.Equal(t, true, profile["is_following"])
	assert.Equal(t, float64(1), profile["followers_count"])
	assert.Empty(t, profile["email"], "other users' email stays private")

	w = suite.request("GET", "/api/v1/users/"+suite.bob.ID, suite.bob, nil)
	profile = decode[map[string]interface{}](t, w)
	assert.Equal(t, true, profile["is_self"])
	assert.Equal(t, "bob@example.com", profile["email"])

	w = suite.request("GET", "/api/v1/users/"+suite.bob.ID+"/followers", nil, nil)
	followers := decode[struct {
		Users []models.User `json:"users"`
	}](t, w)
	require.Len(t, followers.Users, 1)
	assert.Equal(t, suite.alice.ID, followers.Users[0].ID)

	w = suite.request("POST", "/api/v1/users/"+suite.alice.ID+"/follow", suite.alice, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = suite.request("POST", "/api/v1/users/nobody/follow", suite.alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = suite.request("GET", "/api/v1/users/nobody/following", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestComments() {
	t := suite.T()
	path := "/api/v1/posts/" + suite.post.ID + "/comments"

	w := suite.request("POST", path, suite.alice, gin.H{"body": "  first!  "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode[models.Comment](t, w)
	assert.Equal(t, "first!", comment.Body)
	assert.Equal(t, "Alice", comment.AuthorName)

	w = suite.request("POST", path, suite.alice, gin.H{"body": strings.Repeat("a", ledger.MaxCommentLength+1)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, decode[errorBody](t, w).Message, "exceeds")

	suite.request("POST", path, suite.carol, gin.H{"body": "second"})

	w = suite.request("GET", path, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Comments []struct {
			Body     string `json:"body"`
			BodyHTML string `json:"body_html"`
		} `json:"comments"`
	}](t, w)
	require.Len(t, list.Comments, 2)
	assert.Equal(t, "first!", list.Comments[0].Body)
	assert.Equal(t, "second", list.Comments[1].Body)

	w = suite.request("GET", "/api/v1/posts/"+suite.post.ID, nil, nil)
	assert.Equal(t, int64(2), decode[postBody](t, w).CommentsCount)

	w = suite.request("GET", "/api/v1/posts/missing/comments", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func (suite *HandlersTestSuite) TestCreateAndDeletePost() {
	t := suite.T()

	w := suite.request("POST", "/api/v1/posts", suite.alice, gin.H{"body": "<script>x</script>hi"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	post := decode[postBody](t, w)
	assert.NotContains(t, post.BodyHTML, "<script>")
	assert.Equal(t, int64(0), post.LikesCount)

	w = suite.request("POST", "/api/v1/posts", suite.alice, gin.H{"body": "   "})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	suite.request("POST", "/api/v1/posts/"+post.ID+"/like", suite.bob, nil)
	suite.request("POST", "/api/v1/posts/"+post.ID+"/comments", suite.bob, gin.H{"body": "hey"})

	w = suite.request("DELETE", "/api/v1/posts/"+post.ID, suite.bob, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.request("DELETE", "/api/v1/posts/"+post.ID, suite.alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = suite.request("GET", "/api/v1/posts/"+post.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var likes, comments int64
	suite.db.Model(&models.PostLike{}).Where("post_id = ?", post.ID).Count(&likes)
	suite.db.Model(&models.Comment{}).Where("post_id = ?", post.ID).Count(&comments)
	assert.Zero(t, likes)
	assert.Zero(t, comments)
}

func (suite *HandlersTestSuite) TestFeedAndTimeline() {
	t := suite.T()
	suite.createPost(suite.carol, "carol's post")

	w := suite.request("GET", "/api/v1/feed?limit=10", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	feed := decode[struct {
		Posts []postBody `json:"posts"`
		Limit int        `json:"limit"`
	}](t, w)
	assert.Len(t, feed.Posts, 2)
	assert.Equal(t, 10, feed.Limit)

	w = suite.request("GET", "/api/v1/feed/timeline", suite.alice, nil)
	timeline := decode[struct {
		Posts []postBody `json:"posts"`
	}](t, w)
	assert.Empty(t, timeline.Posts)

	suite.request("POST", "/api/v1/users/"+suite.bob.ID+"/follow", suite.alice, nil)
	w = suite.request("GET", "/api/v1/feed/timeline", suite.alice, nil)
	timeline = decode[struct {
		Posts []postBody `json:"posts"`
	}](t, w)
	require.Len(t, timeline.Posts, 1)
	assert.Equal(t, suite.post.ID, timeline.Posts[0].ID)

	w = suite.request("GET", "/api/v1/users/"+suite.carol.ID+"/posts", nil, nil)
	userPosts := decode[struct {
		Posts []postBody `json:"posts"`
	}](t, w)
	assert.Len(t, userPosts.Posts, 1)

	w = suite.request("GET", "/api/v1/feed/timeline", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestUpdateMe() {
	t := suite.T()

	w := suite.request("PUT", "/api/v1/users/me", suite.alice, gin.H{"avatar_url": "https://evil.example/x.png"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "avatar_url", decode[errorBody](t, w).Field)

	w = suite.request("PUT", "/api/v1/users/me", suite.alice, gin.H{"username": "bad name"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = suite.request("PUT", "/api/v1/users/me", suite.alice, gin.H{"username": "BOB"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = suite.request("PUT", "/api/v1/users/me", suite.alice, gin.H{
		"display_name": "<b>Alice A.</b>",
		"bio":          "hello",
		"avatar_url":   models.AvailableAvatars[2],
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := decode[models.User](t, w)
	assert.Equal(t, "Alice A.", user.DisplayName)
	assert.Equal(t, "hello", user.Bio)
	assert.Equal(t, models.AvailableAvatars[2], user.AvatarURL)
	assert.Equal(t, "alice", user.Username)
}

func (suite *HandlersTestSuite) TestSearchUsers() {
	t := suite.T()
	suite.createUser("alina")

	w := suite.request("GET", "/api/v1/users/search?q=al", suite.bob, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = suite.request("GET", "/api/v1/users/search?q=ali", suite.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	found := decode[struct {
		Users []models.User `json:"users"`
	}](t, w)
	require.Len(t, found.Users, 1)
	assert.Equal(t, "alina", found.Users[0].Username)
}

func (suite *HandlersTestSuite) TestChats() {
	t := suite.T()

	w := suite.request("POST", "/api/v1/chats", suite.alice, gin.H{"recipient_id": suite.bob.ID, "text": "hi bob"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	msg := decode[models.Message](t, w)
	chatID := models.ChatID(suite.alice.ID, suite.bob.ID)
	assert.Equal(t, chatID, msg.ChatID)

	w = suite.request("POST", "/api/v1/chats", suite.alice, gin.H{"recipient_id": suite.alice.ID, "text": "me"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = suite.request("POST", "/api/v1/chats/"+chatID+"/messages", suite.bob, gin.H{"text": "hey alice"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = suite.request("GET", "/api/v1/chats", suite.bob, nil)
	chats := decode[struct {
		Chats []models.Chat `json:"chats"`
	}](t, w)
	require.Len(t, chats.Chats, 1)
	assert.Equal(t, "hey alice", chats.Chats[0].LastMessageText)

	w = suite.request("GET", "/api/v1/chats/"+chatID+"/messages", suite.alice, nil)
	messages := decode[struct {
		Messages []models.Message `json:"messages"`
	}](t, w)
	require.Len(t, messages.Messages, 2)
	assert.Equal(t, "hi bob", messages.Messages[0].Text)

	w = suite.request("GET", "/api/v1/chats/"+chatID+"/messages", suite.carol, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = suite.request("POST", "/api/v1/chats/"+chatID+"/read", suite.alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]int64{"marked": 1}, decode[map[string]int64](t, w))

	w = suite.request("GET", "/api/v1/chats", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func (suite *HandlersTestSuite) TestUnavailableStoreMapsTo503() {
	sqlDB, _ := suite.db.DB()
	require.NoError(suite.T(), sqlDB.Close())

	// The stub auth reads the closed database too, so set the caller
	// directly.
	router := gin.New()
	router.GET("/like/:id", func(c *gin.Context) {
		c.Set("user_id", suite.alice.ID)
		suite.handlers.CheckLiked(c)
	})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/like/"+suite.post.ID, nil))

	assert.Equal(suite.T(), http.StatusServiceUnavailable, w.Code)
	body := decode[errorBody](suite.T(), w)
	assert.Equal(suite.T(), "SERVICE_UNAVAILABLE", body.Code)
	assert.True(suite.T(), body.Retryable)
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

func TestValidationMessage(t *testing.T) {
	assert.Equal(t, "comment body is empty", validationMessage(
		errorString("ledger: invalid argument: comment body is empty")))
	assert.Equal(t, "plain", validationMessage(errorString("plain")))
}

type errorString string

func (e errorString) Error() string { return string(e) }

// settleRecorder is an idempotency store that remembers whether the
// context it was settled with was already cancelled.
type settleRecorder struct {
	completeErr error
	abortErr    error
	completed   bool
	aborted     bool
}

func (s *settleRecorder) Begin(ctx context.Context, key string) ([]byte, error) {
	return nil, nil
}

func (s *settleRecorder) Complete(ctx context.Context, key string, result []byte) error {
	s.completed = true
	s.completeErr = ctx.Err()
	return nil
}

func (s *settleRecorder) Abort(ctx context.Context, key string) error {
	s.aborted = true
	s.abortErr = ctx.Err()
	return nil
}

func TestIdempotencyKeySettledAfterClientDisconnects(t *testing.T) {
	gin.SetMode(gin.TestMode)

	for _, fail := range []bool{false, true} {
		store := &settleRecorder{}
		h := &Handlers{idempotency: store, metrics: metrics.Get()}

		ctx, cancel := context.WithCancel(context.Background())
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/api/v1/posts/p1/like", nil).WithContext(ctx)
		c.Request.Header.Set(IdempotencyKeyHeader, "k1")

		h.idempotent(c, ledger.OpToggleLike, "u1", "post", http.StatusOK, func() (interface{}, error) {
			cancel()
			if fail {
				return nil, ledger.ErrTransientConflict
			}
			return gin.H{"liked": true}, nil
		})

		if fail {
			assert.True(t, store.aborted)
			assert.NoError(t, store.abortErr, "abort must not inherit the cancelled request context")
		} else {
			assert.True(t, store.completed)
			assert.NoError(t, store.completeErr, "complete must not inherit the cancelled request context")
		}
	}
}
