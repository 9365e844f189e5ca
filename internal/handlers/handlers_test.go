package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"github.com/twitterlite/twitterlite/internal/handlers"
	"github.com/twitterlite/twitterlite/internal/middleware"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/pkg/cache"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/metrics"
	"github.com/twitterlite/twitterlite/pkg/queue"
	"github.com/twitterlite/twitterlite/pkg/storage"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)

type nopRevoker struct{}

func (nopRevoker) Revoke(ctx context.Context, token string) error { return nil }

type handlerSuite struct {
	suite.Suite

	ctx      context.Context
	client   *cache.RedisClient
	store    *storage.MemoryStore
	verifier *services.IdentityVerifier
	router   *gin.Engine
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(handlerSuite))
}

func (s *handlerSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	s.ctx = context.Background()
	mr := miniredis.RunT(s.T())
	s.client = cache.NewRedisClient(mr.Addr(), "", 0, 10, 0)
}

func (s *handlerSuite) TearDownSuite() {
	s.client.Close()
}

func (s *handlerSuite) SetupTest() {
	s.Require().NoError(s.client.FlushAll(s.ctx))

	log := logger.NewNopLogger()
	m := metrics.NewMetrics()
	s.store = storage.NewMemoryStore("http://objects.local")
	s.verifier = services.NewIdentityVerifier("test-secret", "", "")

	sessionRepo := repository.NewSessionRepository(s.client)
	userRepo := repository.NewUserRepository(s.client)
	followRepo := repository.NewFollowRepository(s.client)
	tweetRepo := repository.NewTweetRepository(s.client)

	sessionService := services.NewSessionService(sessionRepo, userRepo)
	authService := services.NewAuthService(userRepo, sessionRepo, nopRevoker{}, queue.NopPublisher{}, log)
	userService := services.NewUserService(userRepo, followRepo, queue.NopPublisher{}, log)
	tweetService := services.NewTweetService(tweetRepo, s.store, queue.NopPublisher{}, log, time.Hour)
	timelineService := services.NewTimelineService(tweetRepo, userRepo, tweetService)

	sessions := middleware.NewSessionStore("twitter", []byte("0123456789abcdef0123456789abcdef"), 3600, false)

	s.router = handlers.NewRouter(&handlers.RouterDeps{
		MaxContentLength: 1 << 20,
		Sessions:         sessions,
		SessionService:   sessionService,
		Auth:             handlers.NewAuthHandler(authService, s.verifier, sessions, m, log),
		Users:            handlers.NewUserHandler(userService, sessionService, timelineService, nil, m, log),
		Tweets:           handlers.NewTweetHandler(tweetService, userService, 1<<20, m, log),
		Metrics:          m,
		Logger:           log,
	})
}

func (s *handlerSuite) do(method, path string, body io.Reader, contentType string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *handlerSuite) login(email string) []*http.Cookie {
	assertion, err := s.verifier.Sign(&services.IdentityClaims{Email: email, Name: email, AccessToken: "tok"})
	s.Require().NoError(err)

	payload, _ := json.Marshal(map[string]string{"id_token": assertion})
	rec := s.do(http.MethodPost, "/auth/login", bytes.NewReader(payload), "application/json", nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	cookies := rec.Result().Cookies()
	s.Require().NotEmpty(cookies)
	return cookies
}

func (s *handlerSuite) tweetForm(text, filename string, data []byte) (io.Reader, string) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	s.Require().NoError(w.WriteField("tweet_text", text))
	if filename != "" {
		part, err := w.CreateFormFile("tweet_image", filename)
		s.Require().NoError(err)
		_, err = part.Write(data)
		s.Require().NoError(err)
	}
	s.Require().NoError(w.Close())
	return &buf, w.FormDataContentType()
}

func (s *handlerSuite) postTweet(cookies []*http.Cookie, text, filename string, data []byte) *httptest.ResponseRecorder {
	body, contentType := s.tweetForm(text, filename, data)
	return s.do(http.MethodPost, "/api/v1/tweets", body, contentType, cookies)
}

func decode(rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &out)
	return out
}

func (s *handlerSuite) TestHealth() {
	rec := s.do(http.MethodGet, "/health", nil, "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.NotEmpty(rec.Header().Get(middleware.RequestIDHeader))
}

func (s *handlerSuite) TestLoginRejectsBadAssertion() {
	rec := s.do(http.MethodPost, "/auth/login", strings.NewReader(`{"id_token":"forged"}`), "application/json", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", strings.NewReader(`{}`), "application/json", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *handlerSuite) TestSessionRequired() {
	rec := s.do(http.MethodGet, "/api/v1/home", nil, "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	cookies := s.login("a@example.com")
	rec = s.do(http.MethodGet, "/api/v1/home", nil, "", cookies)
	s.Equal(http.StatusOK, rec.Code)
	body := decode(rec)
	s.Contains(body, "tweets")
	s.Contains(body, "discover")
}

func (s *handlerSuite) TestLogoutInvalidatesCookie() {
	cookies := s.login("a@example.com")

	rec := s.do(http.MethodPost, "/auth/logout", nil, "", cookies)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, decode(rec)["logged_out"])

	// 旧cookie中的sid已失效，cookie被清除
	rec = s.do(http.MethodGet, "/api/v1/profile", nil, "", cookies)
	s.Equal(http.StatusUnauthorized, rec.Code)
	cleared := rec.Result().Cookies()
	s.Require().NotEmpty(cleared)
	s.True(cleared[0].MaxAge < 0)
}

func (s *handlerSuite) TestTweetLifecycle() {
	alice := s.login("a@example.com")
	bob := s.login("b@example.com")

	rec := s.postTweet(alice, "Hello World", "cat.png", pngBytes)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	tid := int64(decode(rec)["tid"].(float64))
	path := fmt.Sprintf("/api/v1/tweets/%d", tid)

	rec = s.do(http.MethodGet, path, nil, "", bob)
	s.Equal(http.StatusOK, rec.Code)
	body := decode(rec)
	s.Equal(false, body["is_owner"])
	tweet := body["tweet"].(map[string]interface{})
	s.Equal("Hello World", tweet["tweet_text"])
	s.Contains(tweet["image"], "1_cat.png")
	s.Equal("a@example.com", tweet["user"].(map[string]interface{})["email"])

	form, contentType := s.tweetForm("hijack", "", nil)
	rec = s.do(http.MethodPut, path, form, contentType, bob)
	s.Equal(http.StatusForbidden, rec.Code)

	form, contentType = s.tweetForm("edited", "", nil)
	rec = s.do(http.MethodPut, path, form, contentType, alice)
	s.Equal(http.StatusOK, rec.Code)
	s.Zero(s.store.Len())

	rec = s.do(http.MethodDelete, path, nil, "", bob)
	s.Equal(http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodDelete, path, nil, "", alice)
	s.Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, path, nil, "", alice)
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodDelete, path, nil, "", alice)
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodGet, "/api/v1/tweets/abc", nil, "", alice)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *handlerSuite) TestTweetValidation() {
	alice := s.login("a@example.com")

	rec := s.postTweet(alice, "fake", "fake.png", []byte("definitely not a png"))
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), ".jpeg")

	rec = s.postTweet(alice, strings.Repeat("x", services.MaxTweetLength+1), "", nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.postTweet(alice, "huge", "big.png", append(pngBytes, make([]byte, 2<<20)...))
	s.Equal(http.StatusRequestEntityTooLarge, rec.Code)

	rec = s.do(http.MethodGet, "/api/v1/gallery", nil, "", alice)
	s.Equal(http.StatusOK, rec.Code)
	s.Empty(decode(rec)["tweets"])
}

func (s *handlerSuite) TestFollowing() {
	alice := s.login("a@example.com")
	s.login("b@example.com")

	follow := func(uid, method string) *httptest.ResponseRecorder {
		form := url.Values{"_method": {method}}
		return s.do(http.MethodPost, "/api/v1/users/"+uid+"/following",
			strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", alice)
	}

	s.Equal(http.StatusOK, follow("2", "follow").Code)
	s.Equal(http.StatusBadRequest, follow("1", "follow").Code)
	s.Equal(http.StatusBadRequest, follow("abc", "follow").Code)
	s.Equal(http.StatusBadRequest, follow("99", "follow").Code)
	s.Equal(http.StatusBadRequest, follow("2", "poke").Code)

	rec := s.do(http.MethodGet, "/api/v1/users/2/profile", nil, "", alice)
	s.Equal(http.StatusOK, rec.Code)
	s.Equal(true, decode(rec)["is_following"])

	rec = s.do(http.MethodGet, "/api/v1/following", nil, "", alice)
	s.Equal(http.StatusOK, rec.Code)
	s.Len(decode(rec)["following"], 1)

	s.Equal(http.StatusOK, follow("2", "unfollow").Code)
	rec = s.do(http.MethodGet, "/api/v1/people", nil, "", alice)
	s.Equal(http.StatusOK, rec.Code)
	people := decode(rec)["people"].([]interface{})
	s.Require().Len(people, 1)
	s.Equal(false, people[0].(map[string]interface{})["following"])

	rec = s.do(http.MethodGet, "/api/v1/users/99/profile", nil, "", alice)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *handlerSuite) TestMetricsEndpoint() {
	alice := s.login("a@example.com")
	s.Equal(http.StatusCreated, s.postTweet(alice, "counted", "", nil).Code)

	rec := s.do(http.MethodGet, "/metrics", nil, "", nil)
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "twitterlite_tweets_posted_total 1")
	s.Contains(rec.Body.String(), `twitterlite_logins_total{signed_up="true"} 1`)
}

func (s *handlerSuite) TestActivityDisabled() {
	alice := s.login("a@example.com")
	rec := s.do(http.MethodGet, "/api/v1/activity", nil, "", alice)
	s.Equal(http.StatusNotFound, rec.Code)
}
