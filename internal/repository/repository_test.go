package repository_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/suite"
	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/pkg/cache"
)

type kvSuite struct {
	suite.Suite

	ctx      context.Context
	mr       *miniredis.Miniredis
	client   *cache.RedisClient
	sessions *repository.SessionRepository
	users    *repository.UserRepository
	follows  *repository.FollowRepository
	tweets   *repository.TweetRepository
}

func TestKVSuite(t *testing.T) {
	suite.Run(t, new(kvSuite))
}

func (s *kvSuite) SetupSuite() {
	s.ctx = context.Background()
	s.mr = miniredis.RunT(s.T())
	s.client = cache.NewRedisClient(s.mr.Addr(), "", 0, 10, 0)

	s.sessions = repository.NewSessionRepository(s.client)
	s.users = repository.NewUserRepository(s.client)
	s.follows = repository.NewFollowRepository(s.client)
	s.tweets = repository.NewTweetRepository(s.client)
}

func (s *kvSuite) SetupTest() {
	// Reset test db.
	s.NoError(s.client.FlushAll(s.ctx))
}

func (s *kvSuite) TearDownSuite() {
	s.client.Close()
}

func (s *kvSuite) createUser(email string) *models.Profile {
	profile, err := s.users.Create(s.ctx, &models.Identity{Email: email, Name: email, Locale: "en"})
	s.Require().NoError(err)
	return profile
}

func (s *kvSuite) TestCreateUser() {
	first := s.createUser("a@example.com")
	second := s.createUser("b@example.com")
	s.Equal(int64(1), first.UID)
	s.Equal(int64(2), second.UID)

	registered, err := s.users.EmailRegistered(s.ctx, "a@example.com")
	s.NoError(err)
	s.True(registered)

	uid, ok, err := s.users.GetIDByEmail(s.ctx, "b@example.com")
	s.NoError(err)
	s.True(ok)
	s.Equal(second.UID, uid)

	_, ok, err = s.users.GetIDByEmail(s.ctx, "nobody@example.com")
	s.NoError(err)
	s.False(ok)

	profile, err := s.users.GetByID(s.ctx, first.UID)
	s.NoError(err)
	s.Require().NotNil(profile)
	s.Equal("a@example.com", profile.Email)
	s.Equal("en", profile.Locale)

	ids, err := s.users.ListIDs(s.ctx)
	s.NoError(err)
	s.ElementsMatch([]int64{1, 2}, ids)
}

func (s *kvSuite) TestGetByIDUnknownUser() {
	// 有资料哈希但不在uids中，依旧视为不存在
	s.NoError(s.client.HSet(s.ctx, "users:42", "email", "ghost@example.com"))

	profile, err := s.users.GetByID(s.ctx, 42)
	s.NoError(err)
	s.Nil(profile)
}

func (s *kvSuite) TestFollowEdges() {
	a := s.createUser("a@example.com")
	b := s.createUser("b@example.com")

	s.NoError(s.follows.Create(s.ctx, a.UID, b.UID))
	s.NoError(s.follows.Create(s.ctx, a.UID, b.UID))

	following, err := s.users.GetFollowing(s.ctx, a.UID)
	s.NoError(err)
	s.Equal([]int64{b.UID}, following)

	followers, err := s.users.GetFollowers(s.ctx, b.UID)
	s.NoError(err)
	s.Equal([]int64{a.UID}, followers)

	ok, err := s.users.IsFollowing(s.ctx, a.UID, b.UID)
	s.NoError(err)
	s.True(ok)

	s.NoError(s.follows.Delete(s.ctx, a.UID, b.UID))
	following, err = s.users.GetFollowing(s.ctx, a.UID)
	s.NoError(err)
	s.Empty(following)
	followers, err = s.users.GetFollowers(s.ctx, b.UID)
	s.NoError(err)
	s.Empty(followers)
}

func (s *kvSuite) TestTweetLifecycle() {
	author := s.createUser("a@example.com")

	tid, err := s.tweets.NextID(s.ctx)
	s.NoError(err)
	s.NoError(s.tweets.Register(s.ctx, tid, author.UID))

	// 已注册但哈希未写入，按不存在处理
	tweet, err := s.tweets.GetByID(s.ctx, tid)
	s.NoError(err)
	s.Nil(tweet)

	s.NoError(s.tweets.Save(s.ctx, tid, map[string]interface{}{
		"tid":        tid,
		"uid":        author.UID,
		"tweet_text": "Hello World",
		"timestamp":  1700000000.5,
		"image":      "1_cat.png",
	}))

	tweet, err = s.tweets.GetByID(s.ctx, tid)
	s.NoError(err)
	s.Require().NotNil(tweet)
	s.Equal(author.UID, tweet.UID)
	s.Equal("Hello World", tweet.TweetText)
	s.Equal(1700000000.5, tweet.Timestamp)

	image, err := s.tweets.GetImageKey(s.ctx, tid)
	s.NoError(err)
	s.Equal("1_cat.png", image)

	s.NoError(s.tweets.RemoveImage(s.ctx, tid))
	image, err = s.tweets.GetImageKey(s.ctx, tid)
	s.NoError(err)
	s.Empty(image)

	owned, err := s.tweets.IsAuthoredBy(s.ctx, author.UID, tid)
	s.NoError(err)
	s.True(owned)

	s.NoError(s.tweets.Unregister(s.ctx, tid, author.UID))
	s.NoError(s.tweets.Erase(s.ctx, tid))

	n, err := s.client.Exists(s.ctx, "tweets:1")
	s.NoError(err)
	s.Equal(int64(0), n)

	ids, err := s.tweets.ListIDs(s.ctx)
	s.NoError(err)
	s.Empty(ids)
}

func (s *kvSuite) TestGetByIDsSkipsIncomplete() {
	s.NoError(s.tweets.Save(s.ctx, 1, map[string]interface{}{"uid": 1, "tweet_text": "a", "timestamp": 1.0}))
	s.NoError(s.tweets.Save(s.ctx, 2, map[string]interface{}{"tweet_text": "no uid"}))

	tweets, err := s.tweets.GetByIDs(s.ctx, []int64{1, 2, 3})
	s.NoError(err)
	s.Require().Len(tweets, 1)
	s.Equal(int64(1), tweets[0].TID)
}

func (s *kvSuite) TestSessionClear() {
	s.NoError(s.sessions.Create(s.ctx, "sid-1", &models.Session{Email: "a@example.com", Token: "tok"}))

	email, err := s.sessions.GetEmail(s.ctx, "sid-1")
	s.NoError(err)
	s.Equal("a@example.com", email)

	s.NoError(s.sessions.Clear(s.ctx, "sid-1"))
	session, err := s.sessions.Get(s.ctx, "sid-1")
	s.NoError(err)
	s.Empty(session.Email)
	s.Empty(session.Token)

	email, err = s.sessions.GetEmail(s.ctx, "unknown")
	s.NoError(err)
	s.Empty(email)
}
