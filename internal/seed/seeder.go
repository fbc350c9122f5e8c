// Package seed fills a development database with fake users, posts and
// engagement. Engagement goes through the ledger so counters match edges.
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agora-social/agora/backend/internal/chat"
	"github.com/agora-social/agora/backend/internal/ledger"
	"github.com/agora-social/agora/backend/internal/logger"
	"github.com/agora-social/agora/backend/internal/models"
	"github.com/agora-social/agora/backend/internal/repository"
	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// EmailDomain marks seeded accounts so Clean can find them.
const EmailDomain = "seed.agora.local"

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Options controls how much data Seed creates
type Options struct {
	Users    int
	Posts    int
	Likes    int
	Follows  int
	Comments int
	Messages int
	// Seed makes runs reproducible; 0 picks a random seed
	Seed uint64
}

// DefaultOptions is a small but lively dataset
func DefaultOptions() Options {
	return Options{Users: 50, Posts: 200, Likes: 800, Follows: 300, Comments: 400, Messages: 100}
}

// Result counts what Seed created
type Result struct {
	Users    int `json:"users"`
	Posts    int `json:"posts"`
	Likes    int `json:"likes"`
	Follows  int `json:"follows"`
	Comments int `json:"comments"`
	Messages int `json:"messages"`
}

// Seeder handles database seeding operations
type Seeder struct {
	db     *gorm.DB
	ledger *ledger.Ledger
	users  repository.UserRepository
	posts  repository.PostRepository
	chats  *chat.Service
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, l *ledger.Ledger, chats *chat.Service) *Seeder {
	return &Seeder{
		db:     db,
		ledger: l,
		users:  repository.NewUserRepository(db),
		posts:  repository.NewPostRepository(db),
		chats:  chats,
	}
}

// Seed creates opts worth of fake data. Likes and follows pick distinct
// pairs, so every toggle adds an edge.
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	faker := gofakeit.New(opts.Seed)
	res := &Result{}

	logger.Log.Info("Creating users...", zap.Int("count", opts.Users))
	users, err := s.seedUsers(ctx, faker, opts.Users)
	if err != nil {
		return res, fmt.Errorf("failed to seed users: %w", err)
	}
	res.Users = len(users)
	if len(users) < 2 {
		return res, nil
	}

	logger.Log.Info("Creating posts...", zap.Int("count", opts.Posts))
	posts, err := s.seedPosts(ctx, faker, users, opts.Posts)
	if err != nil {
		return res, fmt.Errorf("failed to seed posts: %w", err)
	}
	res.Posts = len(posts)

	logger.Log.Info("Creating follows...", zap.Int("count", opts.Follows))
	if res.Follows, err = s.seedFollows(ctx, faker, users, opts.Follows); err != nil {
		return res, fmt.Errorf("failed to seed follows: %w", err)
	}

	if len(posts) > 0 {
		logger.Log.Info("Creating likes...", zap.Int("count", opts.Likes))
		if res.Likes, err = s.seedLikes(ctx, faker, users, posts, opts.Likes); err != nil {
			return res, fmt.Errorf("failed to seed likes: %w", err)
		}

		logger.Log.Info("Creating comments...", zap.Int("count", opts.Comments))
		if res.Comments, err = s.seedComments(ctx, faker, users, posts, opts.Comments); err != nil {
			return res, fmt.Errorf("failed to seed comments: %w", err)
		}
	}

	if s.chats != nil {
		logger.Log.Info("Creating messages...", zap.Int("count", opts.Messages))
		if res.Messages, err = s.seedMessages(ctx, faker, users, opts.Messages); err != nil {
			return res, fmt.Errorf("failed to seed messages: %w", err)
		}
	}

	return res, nil
}

func (s *Seeder) seedUsers(ctx context.Context, faker *gofakeit.Faker, count int) ([]*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	hash := string(hashed)

	users := make([]*models.User, 0, count)
	for len(users) < count {
		username := seedUsername(faker.Username(), faker.Number(10, 9999))
		if _, err := s.users.GetUserByUsername(ctx, username); err == nil {
			continue
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}

		lastActive := faker.DateRange(time.Now().AddDate(0, 0, -30), time.Now()).UTC()
		user := &models.User{
			Email:        username + "@" + EmailDomain,
			Username:     username,
			DisplayName:  faker.Name(),
			Bio:          faker.HipsterSentence(),
			AvatarURL:    models.AvailableAvatars[faker.Number(0, len(models.AvailableAvatars)-1)],
			PasswordHash: &hash,
			LastActiveAt: &lastActive,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			if errors.Is(err, repository.ErrUsernameTaken) {
				continue
			}
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// seedUsername keeps the characters profile updates accept and appends a
// number to make collisions rare.
func seedUsername(raw string, n int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(raw) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > 24 {
		name = name[:24]
	}
	if len(name) < 3 {
		name = "user" + name
	}
	return fmt.Sprintf("%s%d", name, n)
}

func (s *Seeder) seedPosts(ctx context.Context, faker *gofakeit.Faker, users []*models.User, count int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		body := faker.HipsterSentence()
		if faker.Number(0, 3) == 0 {
			body += "\n\n**" + faker.Word() + "** " + faker.HipsterSentence()
		}

		post := &models.Post{
			UserID:    users[faker.Number(0, len(users)-1)].ID,
			Body:      body,
			CreatedAt: faker.DateRange(time.Now().AddDate(0, 0, -30), time.Now()).UTC(),
		}
		if err := s.posts.CreatePost(ctx, post); err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// pairs draws up to want distinct (a, b) index pairs with a != b when
// distinct is set. It gives up after a bounded number of misses.
func pairs(faker *gofakeit.Faker, na, nb, want int, distinct bool) [][2]int {
	seen := make(map[[2]int]bool, want)
	out := make([][2]int, 0, want)
	for misses := 0; len(out) < want && misses < want*10+100; {
		p := [2]int{faker.Number(0, na-1), faker.Number(0, nb-1)}
		if seen[p] || (distinct && p[0] == p[1]) {
			misses++
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (s *Seeder) seedFollows(ctx context.Context, faker *gofakeit.Faker, users []*models.User, count int) (int, error) {
	n := 0
	for _, p := range pairs(faker, len(users), len(users), count, true) {
		res, err := s.ledger.ToggleFollow(ctx, users[p[0]].ID, users[p[1]].ID)
		if err != nil {
			return n, err
		}
		if res.Following {
			n++
		}
	}
	return n, nil
}

func (s *Seeder) seedLikes(ctx context.Context, faker *gofakeit.Faker, users []*models.User, posts []*models.Post, count int) (int, error) {
	n := 0
	for _, p := range pairs(faker, len(users), len(posts), count, false) {
		res, err := s.ledger.ToggleLike(ctx, posts[p[1]].ID, users[p[0]].ID)
		if err != nil {
			return n, err
		}
		if res.Liked {
			n++
		}
	}
	return n, nil
}

func (s *Seeder) seedComments(ctx context.Context, faker *gofakeit.Faker, users []*models.User, posts []*models.Post, count int) (int, error) {
	for i := 0; i < count; i++ {
		user := users[faker.Number(0, len(users)-1)]
		post := posts[faker.Number(0, len(posts)-1)]
		if _, err := s.ledger.AddComment(ctx, post.ID, user.ID, user.Name(), faker.HipsterSentence()); err != nil {
			return i, err
		}
	}
	return count, nil
}

func (s *Seeder) seedMessages(ctx context.Context, faker *gofakeit.Faker, users []*models.User, count int) (int, error) {
	n := 0
	for _, p := range pairs(faker, len(users), len(users), count, true) {
		if _, err := s.chats.SendMessage(ctx, users[p[0]].ID, users[p[1]].ID, faker.HipsterSentence()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Clean removes seeded accounts and everything they touched, then repairs
// the counters of the rows that remain.
func (s *Seeder) Clean(ctx context.Context) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seedUsers := tx.Model(&models.User{}).Select("id").Where("email LIKE ?", "%@"+EmailDomain)
		seedPosts := tx.Model(&models.Post{}).Select("id").Where("user_id IN (?)", seedUsers)
		seedChats := tx.Model(&models.Chat{}).Select("id").Where("user1_id IN (?) OR user2_id IN (?)", seedUsers, seedUsers)

		steps := []struct {
			name  string
			model interface{}
			where string
			args  []interface{}
		}{
			{"messages", &models.Message{}, "chat_id IN (?)", []interface{}{seedChats}},
			{"chats", &models.Chat{}, "user1_id IN (?) OR user2_id IN (?)", []interface{}{seedUsers, seedUsers}},
			{"comments", &models.Comment{}, "user_id IN (?) OR post_id IN (?)", []interface{}{seedUsers, seedPosts}},
			{"post_likes", &models.PostLike{}, "user_id IN (?) OR post_id IN (?)", []interface{}{seedUsers, seedPosts}},
			{"follows", &models.Follow{}, "follower_id IN (?) OR following_id IN (?)", []interface{}{seedUsers, seedUsers}},
			{"posts", &models.Post{}, "user_id IN (?)", []interface{}{seedUsers}},
			{"users", &models.User{}, "email LIKE ?", []interface{}{"%@" + EmailDomain}},
		}
		for _, step := range steps {
			if err := tx.Where(step.where, step.args...).Delete(step.model).Error; err != nil {
				return fmt.Errorf("failed to clean %s: %w", step.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	report, err := s.ledger.Reconcile(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to reconcile counters: %w", err)
	}
	logger.Log.Info("Seed data cleaned", zap.Int("counters_repaired", len(report.Drifts)))
	return nil
}
