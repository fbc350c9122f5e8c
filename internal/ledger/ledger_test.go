package ledger

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agora-social/agora/backend/internal/database"
	"github.com/agora-social/agora/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
}

func (n *recordingNotifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Event(nil), n.events...)
}

// LedgerTestSuite runs every test against a fresh in-memory database.
type LedgerTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	ledger   *Ledger
	notifier *recordingNotifier
	alice    *models.User
	bob      *models.User
	carol    *models.User
	post     *models.Post
}

func (suite *LedgerTestSuite) SetupTest() {
	db, err := database.OpenMemory()
	require.NoError(suite.T(), err)

	suite.ctx = context.Background()
	suite.db = db
	suite.notifier = &recordingNotifier{}
	suite.ledger = New(db, WithNotifier(suite.notifier))

	suite.alice = suite.createUser("alice")
	suite.bob = suite.createUser("bob")
	suite.carol = suite.createUser("carol")
	suite.post = suite.createPost(suite.alice)
}

func (suite *LedgerTestSuite) TearDownTest() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

func (suite *LedgerTestSuite) createUser(username string) *models.User {
	u := &models.User{
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: strings.ToUpper(username[:1]) + username[1:],
	}
	require.NoError(suite.T(), suite.db.Create(u).Error)
	return u
}

func (suite *LedgerTestSuite) createPost(author *models.User) *models.Post {
	p := &models.Post{
		UserID:    author.ID,
		Body:      "hello from " + author.Username,
		CreatedAt: time.Now().UTC().Add(-time.Minute),
	}
	require.NoError(suite.T(), suite.db.Create(p).Error)
	return p
}

func (suite *LedgerTestSuite) reloadPost(id string) models.Post {
	var p models.Post
	require.NoError(suite.T(), suite.db.First(&p, "id = ?", id).Error)
	return p
}

func (suite *LedgerTestSuite) reloadUser(id string) models.User {
	var u models.User
	require.NoError(suite.T(), suite.db.First(&u, "id = ?", id).Error)
	return u
}

// assertCountersMatchEdges checks every stored counter against its edges.
func (suite *LedgerTestSuite) assertCountersMatchEdges() {
	report, err := suite.ledger.Reconcile(suite.ctx, false)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), report.Drifts)
}

// injectConflicts makes the next n inserts into table fail the way a
// racing duplicate insert would.
func (suite *LedgerTestSuite) injectConflicts(table string, n int) {
	remaining := n
	err := suite.db.Callback().Create().Before("gorm:create").Register("test:inject_conflict", func(tx *gorm.DB) {
		if tx.Statement.Table == table && remaining > 0 {
			remaining--
			tx.AddError(gorm.ErrDuplicatedKey)
		}
	})
	require.NoError(suite.T(), err)
}

func (suite *LedgerTestSuite) TestToggleLikeParity() {
	for n := 1; n <= 5; n++ {
		res, err := suite.ledger.ToggleLike(suite.ctx, suite.post.ID, suite.bob.ID)
		require.NoError(suite.T(), err)

		liked, err := suite.ledger.CheckLiked(suite.ctx, suite.post.ID, suite.bob.ID)
		require.NoError(suite.T(), err)

		assert.Equal(suite.T(), n%2 == 1, res.Liked, "call %d", n)
		assert.Equal(suite.T(), res.Liked, liked)
		assert.Equal(suite.T(), int64(n%2), res.NewCount)
	}
	assert.Equal(suite.T(), int64(1), suite.reloadPost(suite.post.ID).LikesCount)
	suite.assertCountersMatchEdges()
}

func (suite *LedgerTestSuite) TestToggleLikeCountsDistinctUsers() {
	var wg sync.WaitGroup
	results := make([]LikeResult, 2)
	errs := make([]error, 2)
	for i, u := range []*models.User{suite.alice, suite.bob} {
		wg.Add(1)
		go func(i int, userID string) {
			defer wg.Done()
			results[i], errs[i] = suite.ledger.ToggleLike(suite.ctx, suite.post.ID, userID)
		}(i, u.ID)
	}
	wg.Wait()

	require.NoError(suite.T(), errs[0])
	require.NoError(suite.T(), errs[1])
	assert.True(suite.T(), results[0].Liked)
	assert.True(suite.T(), results[1].Liked)
	assert.ElementsMatch(suite.T(), []int64{1, 2}, []int64{results[0].NewCount, results[1].NewCount})

	res, err := suite.ledger.ToggleLike(suite.ctx, suite.post.ID, suite.alice.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), LikeResult{Liked: false, NewCount: 1}, res)
	suite.assertCountersMatchEdges()
}

func (suite *LedgerTestSuite) TestToggleLikeUnauthenticated() {
	_, err := suite.ledger.ToggleLike(suite.ctx, suite.post.ID, "")
	assert.ErrorIs(suite.T(), err, ErrUnauthenticated)
	assert.Zero(suite.T(), suite.reloadPost(suite.post.ID).LikesCount)
}

func (suite *LedgerTestSuite) TestToggleLikeMissingPost() {
	_, err := suite.ledger.ToggleLike(suite.ctx, "no-such-post", suite.bob.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	_, err = suite.ledger.ToggleLike(suite.ctx, "", suite.bob.ID)
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	var edges int64
	suite.db.Model(&models.PostLike{}).Count(&edges)
	assert.Zero(suite.T(), edges)
}

func (suite *LedgerTestSuite) TestToggleLikeRetriesConflictWithoutDoubleFlip() {
	suite.injectConflicts("post_likes", 1)

	res, err := suite.ledger.ToggleLike(suite.ctx, suite.post.ID, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), LikeResult{Liked: true, NewCount: 1}, res)

	var edges int64
	suite.db.Model(&models.PostLike{}).Where("post_id = ?", suite.post.ID).Count(&edges)
	assert.Equal(suite.T(), int64(1), edges)
	suite.assertCountersMatchEdges()
}

func (suite *LedgerTestSuite) TestToggleLikeConflictSurfacesWhenRetriesExhausted() {
	l := New(suite.db, WithConflictRetries(0), WithNotifier(suite.notifier))
	suite.injectConflicts("post_likes", 1)

	_, err := l.ToggleLike(suite.ctx, suite.post.ID, suite.bob.ID)
	require.ErrorIs(suite.T(), err, ErrTransientConflict)

	// The rolled back attempt left nothing behind.
	assert.Zero(suite.T(), suite.reloadPost(suite.post.ID).LikesCount)
	liked, err := l.CheckLiked(suite.ctx, suite.post.ID, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), liked)
	assert.Empty(suite.T(), suite.notifier.all())

	// Re-running the operation applies exactly one toggle.
	res, err := l.ToggleLike(suite.ctx, suite.post.ID, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), LikeResult{Liked: true, NewCount: 1}, res)
}

func (suite *LedgerTestSuite) TestToggleFollowRoundTrip() {
	res, err := suite.ledger.ToggleFollow(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), FollowResult{Following: true, FollowersCount: 1, FollowingCount: 1}, res)
	assert.Equal(suite.T(), int64(1), suite.reloadUser(suite.bob.ID).FollowersCount)
	assert.Equal(suite.T(), int64(1), suite.reloadUser(suite.alice.ID).FollowingCount)

	following, err := suite.ledger.CheckFollowing(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), following)

	// The edge is directional.
	following, err = suite.ledger.CheckFollowing(suite.ctx, suite.bob.ID, suite.alice.ID)
	require.NoError(suite.T(), err)
	assert.False(suite.T(), following)

	res, err = suite.ledger.ToggleFollow(suite.ctx, suite.alice.ID, suite.bob.ID)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), FollowResult{}, res)

	bob := suite.reloadUser(suite.bob.ID)
	alice := suite.reloadUser(suite.alice.ID)
	assert.Zero(suite.T(), bob.FollowersCount)
	assert.Zero(suite.T(), bob.FollowingCount)
	assert.Zero(suite.T(), alice.FollowersCount)
	assert.Zero(suite.T(), alice.FollowingCount)
}

func (suite *LedgerTestSuite) TestSelfFollowRejected() {
	_, err := suite.ledger.ToggleFollow(suite.ctx, suite.alice.ID, suite.alice.ID)
	assert.ErrorIs(suite.T(), err, ErrInvalidArgument)

	alice := suite.reloadUser(suite.alice.ID)
	assert.Zero(suite.T(), alice.FollowersCount)
	assert.Zero(suite.T(), alice.FollowingCount)
	var edges int64
	suite.db.Model(&models.Follow{}).Count(&edges)
	assert.Zero(suite.T(), edges)
}

func (suite *LedgerTestSuite) TestToggleFollowErrors() {
	_, err := suite.ledger.ToggleFollow(suite.ctx, "", suite.bob.ID)
	assert.ErrorIs(suite.T(), err, ErrUnauthenticated)

	_, err = suite.ledger.ToggleFollow(suite.ctx, suite.alice.ID, "ghost")
	assert.ErrorIs(suite.T(), err, ErrNotFound)
	assert.Zero(suite.T(), suite.reloadUser(suite.alice.ID).FollowingCount)

	_, err = suite.ledger.CheckFollowing(suite.ctx, "", suite.bob.ID)
	assert.ErrorIs(suite.T(), err, ErrUnauthenticated)
}

func (suite *LedgerTestSuite) TestToggleFollowRetriesConflict() {
	suite.injectConflicts("follows", 1)

	res, err := suite.ledger.ToggleFollow(suite.ctx, suite.bob.ID, suite.carol.ID)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), res.Following)
	assert.Equal(suite.T(), int64(1), res.FollowersCount)
	suite.assertCountersMatchEdges()
}

func (suite *LedgerTestSuite) TestAddComment() {
	c, err := suite.ledger.AddComment(suite.ctx, suite.post.ID, suite.bob.ID, "alice", "hello")
	require.NoError(suite.T(), err)

	assert.NotEmpty(suite.T(), c.ID)
	assert.Equal(suite.T(), "alice", c.AuthorName)
	assert.Equal(suite.T(), "hello", c.Body)
	assert.True(suite.T(), c.CreatedAt.After(suite.post.CreatedAt))
	assert.Equal(suite.T(), int64(1), suite.reloadPost(suite.post.ID).CommentsCount)
	suite.assertCountersMatchEdges()
}

func (suite *LedgerTestSuite) TestAddCommentFillsDisplayName() {
	c, err := suite.ledger.AddComment(suite.ctx, suite.post.ID, suite.carol.ID, "  ", "  nice post  ")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Carol", c.AuthorName)
	assert.Equal(suite.T(), "nice post", c.Body)
}

func (suite *LedgerTestSuite) TestAddCommentRejectsBadInput() {
	_, err := suite.ledger.AddComment(suite.ctx, suite.post.ID, suite.bob.ID, "bob", "   ")
	assert.ErrorIs(suite.T(), err, ErrInvalidArgument)

	_, err = suite.ledger.AddComment(suite.ctx, suite.post.ID, suite.bob.ID, "bob", strings.Repeat("x", MaxCommentLength+1))
	assert.ErrorIs(suite.T(), err, ErrInvalidArgument)

	_, err = suite.ledger.AddComment(suite.ctx, suite.post.ID, "", "bob", "hi")
	assert.ErrorIs(suite.T(), err, ErrUnauthenticated)

	_, err = suite.ledger.AddComment(suite.ctx, "missing", suite.bob.ID, "bob", "hi")
	assert.ErrorIs(suite.T(), err, ErrNotFound)

	assert.Zero(suite.T(), suite.reloadPost(suite.post.ID).CommentsCount)
}

func (suite *LedgerTestSuite) TestEventsPublishedAfterCommit() {
	_, err := suite.ledger.ToggleLike(suite.ctx, suite.post.ID, suite.bob.ID)
	require.NoError(suite.T(), err)
	_, err = suite.ledger.ToggleFollow(suite.ctx, suite.bob.ID, suite.alice.ID)
	require.NoError(suite.T(), err)
	_, err = suite.ledger.AddComment(suite.ctx, suite.post.ID, suite.bob.ID, "", "first")
	require.NoError(suite.T(), err)
	_, err = suite.ledger.ToggleFollow(suite.ctx, suite.bob.ID, suite.bob.ID)
	require.Error(suite.T(), err)

	events := suite.notifier.all()
	require.Len(suite.T(), events, 3)

	assert.Equal(suite.T(), EventLike, events[0].Type)
	assert.True(suite.T(), events[0].Active)
	assert.Equal(suite.T(), int64(1), events[0].Count)
	assert.Equal(suite.T(), []string{suite.alice.ID, suite.bob.ID}, events[0].Recipients)

	assert.Equal(suite.T(), EventFollow, events[1].Type)
	assert.Equal(suite.T(), suite.alice.ID, events[1].TargetUserID)

	assert.Equal(suite.T(), EventComment, events[2].Type)
	require.NotNil(suite.T(), events[2].Comment)
	assert.Equal(suite.T(), "first", events[2].Comment.Body)
	assert.Equal(suite.T(), int64(1), events[2].Count)
}

func (suite *LedgerTestSuite) TestReconcileRepairsDrift() {
	_, err := suite.ledger.ToggleLike(suite.ctx, suite.post.ID, suite.bob.ID)
	require.NoError(suite.T(), err)
	_, err = suite.ledger.ToggleFollow(suite.ctx, suite.bob.ID, suite.carol.ID)
	require.NoError(suite.T(), err)

	// Corrupt two counters behind the ledger's back.
	require.NoError(suite.T(), suite.db.Model(&models.Post{}).Where("id = ?", suite.post.ID).UpdateColumn("likes_count", 7).Error)
	require.NoError(suite.T(), suite.db.Model(&models.User{}).Where("id = ?", suite.carol.ID).UpdateColumn("followers_count", 0).Error)

	report, err := suite.ledger.Reconcile(suite.ctx, false)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), report.Drifts, 2)
	assert.False(suite.T(), report.Fixed)

	byCounter := map[string]Drift{}
	for _, d := range report.Drifts {
		byCounter[d.Counter] = d
	}
	likes := byCounter["likes_count"]
	require.NotNil(suite.T(), likes.Stored)
	assert.Equal(suite.T(), int64(7), *likes.Stored)
	assert.Equal(suite.T(), int64(1), likes.Actual)
	assert.Equal(suite.T(), suite.carol.ID, byCounter["followers_count"].ID)

	// A dry run changes nothing.
	assert.Equal(suite.T(), int64(7), suite.reloadPost(suite.post.ID).LikesCount)

	report, err = suite.ledger.Reconcile(suite.ctx, true)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), report.Fixed)
	assert.Len(suite.T(), report.Drifts, 2)

	assert.Equal(suite.T(), int64(1), suite.reloadPost(suite.post.ID).LikesCount)
	assert.Equal(suite.T(), int64(1), suite.reloadUser(suite.carol.ID).FollowersCount)
	suite.assertCountersMatchEdges()
}

// TestRandomSequenceKeepsCountersExact drives a long mixed sequence and
// checks both the per-pair parity and the global counter invariant.
func (suite *LedgerTestSuite) TestRandomSequenceKeepsCountersExact() {
	users := []*models.User{suite.alice, suite.bob, suite.carol}
	posts := []*models.Post{suite.post, suite.createPost(suite.bob)}
	rng := rand.New(rand.NewPCG(1, 2))

	likeCalls := map[string]int{}
	followCalls := map[string]int{}

	for i := 0; i < 150; i++ {
		u := users[rng.IntN(len(users))]
		switch rng.IntN(3) {
		case 0:
			p := posts[rng.IntN(len(posts))]
			_, err := suite.ledger.ToggleLike(suite.ctx, p.ID, u.ID)
			require.NoError(suite.T(), err)
			likeCalls[p.ID+"/"+u.ID]++
		case 1:
			v := users[rng.IntN(len(users))]
			_, err := suite.ledger.ToggleFollow(suite.ctx, u.ID, v.ID)
			if u.ID == v.ID {
				require.ErrorIs(suite.T(), err, ErrInvalidArgument)
				continue
			}
			require.NoError(suite.T(), err)
			followCalls[u.ID+"/"+v.ID]++
		case 2:
			p := posts[rng.IntN(len(posts))]
			_, err := suite.ledger.AddComment(suite.ctx, p.ID, u.ID, "", fmt.Sprintf("comment %d", i))
			require.NoError(suite.T(), err)
		}
	}

	for key, n := range likeCalls {
		postID, userID, _ := strings.Cut(key, "/")
		liked, err := suite.ledger.CheckLiked(suite.ctx, postID, userID)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), n%2 == 1, liked, key)
	}
	for key, n := range followCalls {
		a, b, _ := strings.Cut(key, "/")
		following, err := suite.ledger.CheckFollowing(suite.ctx, a, b)
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), n%2 == 1, following, key)
	}
	suite.assertCountersMatchEdges()
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func TestCheckOnClosedDatabaseIsUnavailable(t *testing.T) {
	db, err := database.OpenMemory()
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = New(db).CheckLiked(context.Background(), "p", "u")
	assert.ErrorIs(t, err, ErrUnavailable)
}
