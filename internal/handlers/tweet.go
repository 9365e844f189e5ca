package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/twitterlite/twitterlite/internal/middleware"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/metrics"
)

type TweetHandler struct {
	tweetService *services.TweetService
	userService  *services.UserService
	maxUpload    int64
	metrics      *metrics.Metrics
	logger       *logger.Logger
}

func NewTweetHandler(
	tweetService *services.TweetService,
	userService *services.UserService,
	maxUpload int64,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *TweetHandler {
	return &TweetHandler{
		tweetService: tweetService,
		userService:  userService,
		maxUpload:    maxUpload,
		metrics:      metrics,
		logger:       logger,
	}
}

func (h *TweetHandler) CreateTweet(c *gin.Context) {
	text, image, ok := h.readTweetForm(c)
	if !ok {
		return
	}

	tid, err := h.tweetService.PostTweet(c.Request.Context(), middleware.GetActor(c), text, image)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.metrics.TweetsPosted.Inc()

	c.JSON(http.StatusCreated, gin.H{
		"message": "Tweet posted successfully",
		"tid":     tid,
	})
}

func (h *TweetHandler) GetTweet(c *gin.Context) {
	ctx := c.Request.Context()

	tid, ok := parseID(c, "tid")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tweet not found"})
		return
	}

	tweet, err := h.tweetService.GetTweet(ctx, tid)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	author, err := h.userService.GetProfile(ctx, tweet.UID)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		respondError(c, h.logger, err)
		return
	}
	tweet.User = author

	c.JSON(http.StatusOK, gin.H{
		"tweet":    tweet,
		"is_owner": tweet.UID == middleware.GetActor(c).UID(),
	})
}

func (h *TweetHandler) UpdateTweet(c *gin.Context) {
	tid, ok := h.existingTweet(c)
	if !ok {
		return
	}

	text, image, ok := h.readTweetForm(c)
	if !ok {
		return
	}

	if err := h.tweetService.UpdateTweet(c.Request.Context(), middleware.GetActor(c), tid, text, image); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.metrics.TweetsUpdated.Inc()

	c.JSON(http.StatusOK, gin.H{
		"message": "Tweet updated successfully",
		"tid":     tid,
	})
}

func (h *TweetHandler) DeleteTweet(c *gin.Context) {
	tid, ok := h.existingTweet(c)
	if !ok {
		return
	}

	if err := h.tweetService.DeleteTweet(c.Request.Context(), middleware.GetActor(c), tid); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.metrics.TweetsDeleted.Inc()

	c.JSON(http.StatusOK, gin.H{"message": "Tweet deleted successfully"})
}

// existingTweet 不存在的推文返回404，而不是403
func (h *TweetHandler) existingTweet(c *gin.Context) (int64, bool) {
	tid, ok := parseID(c, "tid")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tweet not found"})
		return 0, false
	}
	exists, err := h.tweetService.TweetExists(c.Request.Context(), tid)
	if err != nil {
		respondError(c, h.logger, err)
		return 0, false
	}
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "Tweet not found"})
		return 0, false
	}
	return tid, true
}

// readTweetForm 读取 tweet_text 和可选的 tweet_image
func (h *TweetHandler) readTweetForm(c *gin.Context) (string, *services.ImageUpload, bool) {
	if err := c.Request.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		h.rejectBody(c, err)
		return "", nil, false
	}

	text := c.PostForm("tweet_text")

	header, err := c.FormFile("tweet_image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return text, nil, true
		}
		h.rejectBody(c, err)
		return "", nil, false
	}

	file, err := header.Open()
	if err != nil {
		h.rejectBody(c, err)
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxUpload+1))
	if err != nil {
		h.rejectBody(c, err)
		return "", nil, false
	}
	if int64(len(data)) > h.maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Uploaded file is too large"})
		return "", nil, false
	}

	return text, &services.ImageUpload{Filename: header.Filename, Data: data}, true
}

func (h *TweetHandler) rejectBody(c *gin.Context, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body is too large"})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "Malformed form data"})
}
