package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/agora-social/agora/cli/pkg/client"
	"github.com/agora-social/agora/cli/pkg/config"
)

type recorded struct {
	Method string
	Path   string
	Query  string
	Key    string
	Auth   string
	Body   map[string]interface{}
}

// fakeServer answers every request with the handler registered for
// "METHOD /path" and records what it saw.
type fakeServer struct {
	mu       sync.Mutex
	requests []recorded
	routes   map[string]http.HandlerFunc
}

func newFakeServer(t *testing.T, routes map[string]http.HandlerFunc) *fakeServer {
	t.Helper()
	fs := &fakeServer{routes: routes}
	srv := httptest.NewServer(http.HandlerFunc(fs.serve))
	t.Cleanup(srv.Close)

	if err := config.Init(filepath.Join(t.TempDir(), "config.toml")); err != nil {
		t.Fatalf("config.Init: %v", err)
	}
	config.Set("api.base_url", srv.URL)
	config.Set("api.retries", 2)
	client.Init()
	client.SetAuthToken("test-token")
	return fs
}

func (fs *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	rec := recorded{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Key:    r.Header.Get(client.IdempotencyKeyHeader),
		Auth:   r.Header.Get("Authorization"),
	}
	if data, _ := io.ReadAll(r.Body); len(data) > 0 {
		_ = json.Unmarshal(data, &rec.Body)
	}

	fs.mu.Lock()
	fs.requests = append(fs.requests, rec)
	h, ok := fs.routes[r.Method+" "+r.URL.Path]
	fs.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"code":"NOT_FOUND","message":"route not found"}`))
		return
	}
	h(w, r)
}

func (fs *fakeServer) last(t *testing.T) recorded {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.requests) == 0 {
		t.Fatal("no requests recorded")
	}
	return fs.requests[len(fs.requests)-1]
}

func jsonReply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

func TestLogin(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/auth/login": jsonReply(200, `{"token":"jwt","expires_at":"2030-01-01T00:00:00Z","user":{"id":"u1","username":"ada"}}`),
	})

	resp, err := Login("ada@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Token != "jwt" || resp.User.Username != "ada" {
		t.Errorf("unexpected response %+v", resp)
	}
	if got := fs.last(t).Body["email"]; got != "ada@example.com" {
		t.Errorf("email sent = %v", got)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/auth/login": jsonReply(401, `{"code":"UNAUTHORIZED","message":"invalid email or password"}`),
	})

	_, err := Login("ada@example.com", "wrong")
	if !IsUnauthorized(err) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err.Error() != "[401] UNAUTHORIZED: invalid email or password" {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestRegisterValidationError(t *testing.T) {
	newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/auth/register": jsonReply(422, `{"code":"VALIDATION_ERROR","message":"username is taken","field":"username"}`),
	})

	_, err := Register(RegisterRequest{Email: "a@b.c", Username: "ada", Password: "secret1"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.StatusCode != 422 || apiErr.Field != "username" {
		t.Errorf("unexpected error %+v", apiErr)
	}
}

func TestGetFeedSendsPagination(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/feed": jsonReply(200, `{"posts":[{"id":"p1","body":"hi","likes_count":2,"author":{"username":"ada"}}]}`),
	})

	posts, err := GetFeed(5, 10)
	if err != nil {
		t.Fatalf("GetFeed: %v", err)
	}
	if len(posts) != 1 || posts[0].Author.Username != "ada" || posts[0].LikesCount != 2 {
		t.Errorf("unexpected posts %+v", posts)
	}
	if q := fs.last(t).Query; q != "limit=5&offset=10" {
		t.Errorf("query = %q", q)
	}
	if auth := fs.last(t).Auth; auth != "Bearer test-token" {
		t.Errorf("Authorization = %q", auth)
	}
}

func TestToggleLikeSendsIdempotencyKey(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/posts/p1/like": jsonReply(200, `{"liked":true,"likes_count":3}`),
	})

	res, err := ToggleLike("p1")
	if err != nil {
		t.Fatalf("ToggleLike: %v", err)
	}
	if !res.Liked || res.LikesCount != 3 {
		t.Errorf("unexpected result %+v", res)
	}
	first := fs.last(t).Key
	if len(first) != 36 {
		t.Errorf("idempotency key = %q", first)
	}

	if _, err := ToggleLike("p1"); err != nil {
		t.Fatal(err)
	}
	if fs.last(t).Key == first {
		t.Error("separate commands must use separate keys")
	}
}

func TestToggleFollowRetriesWithSameKey(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/users/u2/follow": func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				jsonReply(409, `{"code":"CONFLICT","message":"toggle_follow conflicted, retry","retryable":true}`)(w, r)
				return
			}
			jsonReply(200, `{"following":true,"followers_count":1,"following_count":4}`)(w, r)
		},
	})

	res, err := ToggleFollow("u2")
	if err != nil {
		t.Fatalf("ToggleFollow: %v", err)
	}
	if !res.Following || res.FollowersCount != 1 {
		t.Errorf("unexpected result %+v", res)
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.requests) != 2 {
		t.Fatalf("requests = %d, want 2", len(fs.requests))
	}
	if fs.requests[0].Key == "" || fs.requests[0].Key != fs.requests[1].Key {
		t.Errorf("retry changed key: %q vs %q", fs.requests[0].Key, fs.requests[1].Key)
	}
}

func TestAddCommentAndList(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/posts/p1/comments": jsonReply(201, `{"id":"c1","post_id":"p1","author_name":"Ada","body":"nice"}`),
		"GET /api/v1/posts/p1/comments":  jsonReply(200, `{"comments":[{"id":"c1","body":"nice"},{"id":"c2","body":"agreed"}]}`),
	})

	c, err := AddComment("p1", "nice")
	if err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	if c.ID != "c1" || fs.last(t).Body["body"] != "nice" || fs.last(t).Key == "" {
		t.Errorf("unexpected comment %+v / request %+v", c, fs.last(t))
	}

	comments, err := GetComments("p1", 20, 0)
	if err != nil {
		t.Fatalf("GetComments: %v", err)
	}
	if len(comments) != 2 || comments[1].Body != "agreed" {
		t.Errorf("unexpected comments %+v", comments)
	}
}

func TestCreatePostIsNotRetried(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/posts": jsonReply(503, `{"code":"SERVICE_UNAVAILABLE","message":"database unavailable"}`),
	})

	if _, err := CreatePost("hello"); err == nil {
		t.Fatal("expected an error")
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.requests) != 1 {
		t.Errorf("requests = %d, want 1", len(fs.requests))
	}
	if fs.requests[0].Key != "" {
		t.Error("posts must not carry an idempotency key")
	}
}

func TestResolveUser(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/users/search": jsonReply(200, `{"users":[{"id":"u9","username":"adalovelace"},{"id":"u2","username":"Ada"}]}`),
	})

	id, err := ResolveUser("@ada")
	if err != nil {
		t.Fatalf("ResolveUser: %v", err)
	}
	if id != "u2" {
		t.Errorf("id = %q, want u2", id)
	}
	if q := fs.last(t).Query; q != "q=ada" {
		t.Errorf("query = %q", q)
	}

	if id, _ := ResolveUser("raw-id"); id != "raw-id" {
		t.Errorf("plain ids should pass through, got %q", id)
	}
	if _, err := ResolveUser("@nobody"); err == nil {
		t.Error("expected an error for an unknown username")
	}
}

func TestChats(t *testing.T) {
	fs := newFakeServer(t, map[string]http.HandlerFunc{
		"POST /api/v1/chats":            jsonReply(201, `{"id":"m1","chat_id":"u1_u2","sender_id":"u1","text":"hey"}`),
		"GET /api/v1/chats":             jsonReply(200, `{"chats":[{"id":"u1_u2","user1_id":"u1","user2_id":"u2","user1_name":"Ada","user2_name":"Bob","last_message_text":"hey"}]}`),
		"POST /api/v1/chats/u1_u2/read": jsonReply(200, `{"marked":2}`),
	})

	msg, err := SendMessage("u2", "hey")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.ChatID != "u1_u2" || fs.last(t).Body["recipient_id"] != "u2" {
		t.Errorf("unexpected message %+v", msg)
	}

	chats, err := ListChats(20, 0)
	if err != nil {
		t.Fatalf("ListChats: %v", err)
	}
	if len(chats) != 1 || chats[0].Peer("u1") != "Bob" || chats[0].Peer("u2") != "Ada" {
		t.Errorf("unexpected chats %+v", chats)
	}

	n, err := MarkRead("u1_u2")
	if err != nil || n != 2 {
		t.Errorf("MarkRead = %d, %v", n, err)
	}
}

func TestNonJSONErrorBody(t *testing.T) {
	newFakeServer(t, map[string]http.HandlerFunc{
		"GET /api/v1/posts/p1": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		},
	})

	_, err := GetPost("p1")
	apiErr, ok := err.(*APIError)
	if !ok {
		t.Fatalf("expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Errorf("unexpected error %+v", apiErr)
	}
	if IsNotFound(err) || IsConflict(err) {
		t.Error("status helpers misclassified a 502")
	}
}
