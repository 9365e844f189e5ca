package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/twitterlite/twitterlite/internal/middleware"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/metrics"
)

type AuthHandler struct {
	authService *services.AuthService
	verifier    *services.IdentityVerifier
	store       *middleware.SessionStore
	metrics     *metrics.Metrics
	logger      *logger.Logger
}

func NewAuthHandler(
	authService *services.AuthService,
	verifier *services.IdentityVerifier,
	store *middleware.SessionStore,
	metrics *metrics.Metrics,
	logger *logger.Logger,
) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		verifier:    verifier,
		store:       store,
		metrics:     metrics,
		logger:      logger,
	}
}

type loginRequest struct {
	IDToken string `json:"id_token" form:"id_token"`
}

// Login 用上游签发的身份断言换取会话cookie
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	_ = c.ShouldBind(&req)

	assertion := req.IDToken
	if assertion == "" {
		if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			assertion = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if assertion == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id_token is required"})
		return
	}

	identity, err := h.verifier.Verify(assertion)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid identity assertion"})
		return
	}

	result, err := h.authService.Login(c.Request.Context(), identity)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if err := h.store.SetSID(c.Writer, c.Request, result.SID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.metrics.Logins.WithLabelValues(strconv.FormatBool(result.SignedUp)).Inc()

	c.JSON(http.StatusOK, gin.H{
		"message":   "Login successful",
		"uid":       result.UID,
		"signed_up": result.SignedUp,
	})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	sid := h.store.SID(c.Request)

	loggedOut, err := h.authService.Logout(c.Request.Context(), sid)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if err := h.store.Clear(c.Writer, c.Request); err != nil {
		h.logger.WithError(err).Error("Failed to clear session cookie")
	}

	c.JSON(http.StatusOK, gin.H{"logged_out": loggedOut})
}
