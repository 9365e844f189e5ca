package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/sessions"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/pkg/logger"
)

const (
	sidKey   = "sid"
	actorKey = "actor"
)

// SessionStore 签名cookie中保存sid
type SessionStore struct {
	store *sessions.CookieStore
	name  string
}

func NewSessionStore(name string, secret []byte, maxAge int, secure bool) *SessionStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionStore{store: store, name: name}
}

// SID cookie缺失或签名无效时返回空串
func (s *SessionStore) SID(r *http.Request) string {
	session, err := s.store.Get(r, s.name)
	if err != nil {
		return ""
	}
	sid, _ := session.Values[sidKey].(string)
	return sid
}

func (s *SessionStore) SetSID(w http.ResponseWriter, r *http.Request, sid string) error {
	session, _ := s.store.Get(r, s.name)
	session.Values[sidKey] = sid
	return session.Save(r, w)
}

func (s *SessionStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := s.store.Get(r, s.name)
	delete(session.Values, sidKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}

// RequireSession 解析会话并把 Actor 放入上下文；
// 没有sid返回401，sid无效时先清除cookie再返回401
func RequireSession(store *SessionStore, sessionService *services.SessionService, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := store.SID(c.Request)
		if sid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Login required"})
			return
		}

		actor, err := sessionService.ResolveUser(c.Request.Context(), sid)
		if err != nil {
			if errors.Is(err, services.ErrUnauthorized) {
				if err := store.Clear(c.Writer, c.Request); err != nil {
					log.WithError(err).Error("Failed to clear session cookie")
				}
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired"})
				return
			}
			log.WithError(err).Error("Failed to resolve session")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		c.Set(sidKey, sid)
		c.Set(actorKey, actor)
		c.Next()
	}
}

// GetActor 仅在 RequireSession 之后可用
func GetActor(c *gin.Context) *services.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(*services.Actor); ok {
			return actor
		}
	}
	return nil
}

func GetSID(c *gin.Context) string {
	return c.GetString(sidKey)
}
