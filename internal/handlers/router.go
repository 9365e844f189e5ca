package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/twitterlite/twitterlite/internal/middleware"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/metrics"
)

type RouterDeps struct {
	MaxContentLength int64
	Sessions         *middleware.SessionStore
	SessionService   *services.SessionService
	Auth             *AuthHandler
	Users            *UserHandler
	Tweets           *TweetHandler
	Metrics          *metrics.Metrics
	Logger           *logger.Logger
}

func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = deps.MaxContentLength
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.Metrics(deps.Metrics))
	router.Use(middleware.BodyLimit(deps.MaxContentLength))

	// 添加CORS中间件
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	auth := router.Group("/auth")
	{
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/logout", deps.Auth.Logout)
	}

	// 需要登录的路由
	api := router.Group("/api/v1")
	api.Use(middleware.RequireSession(deps.Sessions, deps.SessionService, deps.Logger))
	{
		api.GET("/home", deps.Users.Home)
		api.GET("/profile", deps.Users.Profile)
		api.GET("/gallery", deps.Users.Gallery)
		api.GET("/people", deps.Users.People)
		api.GET("/following", deps.Users.Following)
		api.GET("/activity", deps.Users.Activity)
		api.GET("/users/:uid/profile", deps.Users.GuestProfile)
		api.POST("/users/:uid/following", deps.Users.UpdateFollowing)

		api.POST("/tweets", deps.Tweets.CreateTweet)
		api.GET("/tweets/:tid", deps.Tweets.GetTweet)
		api.PUT("/tweets/:tid", deps.Tweets.UpdateTweet)
		api.DELETE("/tweets/:tid", deps.Tweets.DeleteTweet)
	}

	return router
}
