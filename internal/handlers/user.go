package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/twitterlite/twitterlite/internal/middleware"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/metrics"
)

type UserHandler struct {
	userService     *services.UserService
	sessionService  *services.SessionService
	timelineService *services.TimelineService
	activityService *services.ActivityService
	metrics         *metrics.Metrics
	logger          *logger.Logger
}

func NewUserHandler(
	userService *services.UserService,
	sessionService *services.SessionService,
	timelineService *services.TimelineService,
	activityService *services.ActivityService,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *UserHandler {
	return &UserHandler{
		userService:     userService,
		sessionService:  sessionService,
		timelineService: timelineService,
		activityService: activityService,
		metrics:         metrics,
		logger:          logger,
	}
}

// Home 全站时间线和可关注的用户
func (h *UserHandler) Home(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	summary, err := h.userService.Summary(ctx, actor.UID())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	tweets, err := h.timelineService.HomeTimeline(ctx, actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	discover, err := h.timelineService.DiscoverableUsers(ctx, actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":     summary,
		"tweets":   tweets,
		"discover": discover,
	})
}

// Profile 自己和关注对象的推文
func (h *UserHandler) Profile(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	summary, err := h.userService.Summary(ctx, actor.UID())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	tweets, err := h.timelineService.ProfileTimeline(ctx, actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   summary,
		"tweets": tweets,
	})
}

func (h *UserHandler) GuestProfile(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	uid, ok := parseID(c, "uid")
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	summary, err := h.userService.Summary(ctx, uid)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	tweets, err := h.timelineService.UserTimeline(ctx, uid)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	following, err := h.userService.IsFollowing(ctx, actor.UID(), uid)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":         summary,
		"tweets":       tweets,
		"is_following": following,
		"is_self":      uid == actor.UID(),
	})
}

func (h *UserHandler) Gallery(c *gin.Context) {
	tweets, err := h.timelineService.Gallery(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tweets": tweets})
}

func (h *UserHandler) People(c *gin.Context) {
	people, err := h.userService.People(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"people": people})
}

// Following 关注列表和粉丝列表
func (h *UserHandler) Following(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	following, err := h.userService.Following(ctx, actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	followers, err := h.userService.Followers(ctx, actor)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"following": following,
		"followers": followers,
	})
}

type followRequest struct {
	Method string `json:"_method" form:"_method" binding:"required,oneof=follow unfollow"`
}

// UpdateFollowing 关注或取消关注 :uid
func (h *UserHandler) UpdateFollowing(c *gin.Context) {
	ctx := c.Request.Context()
	actor := middleware.GetActor(c)

	uid, ok := parseID(c, "uid")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}
	valid, err := h.sessionService.IsValidUser(ctx, uid)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user id"})
		return
	}

	var req followRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var changed bool
	if req.Method == "follow" {
		changed, err = h.userService.Follow(ctx, actor, uid)
	} else {
		changed, err = h.userService.Unfollow(ctx, actor, uid)
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !changed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Cannot follow or unfollow yourself"})
		return
	}

	if req.Method == "follow" {
		h.metrics.FollowRequests.Inc()
	} else {
		h.metrics.UnfollowRequests.Inc()
	}

	c.JSON(http.StatusOK, gin.H{
		"uid":       uid,
		"following": req.Method == "follow",
	})
}

// Activity 当前用户的归档动态
func (h *UserHandler) Activity(c *gin.Context) {
	if h.activityService == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Activity archive is disabled"})
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		if parsedLimit, err := strconv.Atoi(l); err == nil && parsedLimit > 0 {
			limit = parsedLimit
		}
	}

	records, err := h.activityService.ListActivity(c.Request.Context(), middleware.GetActor(c).UID(), limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activity": records})
}
