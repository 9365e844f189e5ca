package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/queue"
)

const sessionIDBytes = 64

// TokenRevoker 在身份提供方吊销访问令牌
type TokenRevoker interface {
	Revoke(ctx context.Context, token string) error
}

type AuthService struct {
	userRepo    *repository.UserRepository
	sessionRepo *repository.SessionRepository
	revoker     TokenRevoker
	producer    queue.Publisher
	logger      *logger.Logger
}

func NewAuthService(
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	revoker TokenRevoker,
	producer queue.Publisher,
	logger *logger.Logger,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		revoker:     revoker,
		producer:    producer,
		logger:      logger,
	}
}

type LoginResult struct {
	SID      string
	UID      int64
	SignedUp bool
}

// Login 邮箱首次出现时注册，随后为该邮箱创建新会话
func (s *AuthService) Login(ctx context.Context, identity *models.Identity) (*LoginResult, error) {
	if identity.Email == "" {
		return nil, &ValidationError{Field: "email", Reason: "identity assertion has no email"}
	}

	registered, err := s.userRepo.EmailRegistered(ctx, identity.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	result := &LoginResult{}
	if !registered {
		profile, err := s.userRepo.Create(ctx, identity)
		if err != nil {
			return nil, fmt.Errorf("failed to sign up: %w", err)
		}
		result.UID = profile.UID
		result.SignedUp = true

		publish(ctx, s.producer, s.logger, fmt.Sprint(profile.UID), queue.EventUserCreated, queue.UserEventData{
			UID:   profile.UID,
			Email: profile.Email,
		})
		s.logger.WithField("uid", profile.UID).Info("User signed up successfully")
	} else {
		uid, ok, err := s.userRepo.GetIDByEmail(ctx, identity.Email)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		// 注册中途失败会留下没有索引的邮箱，此时签发的sid无法解析
		if !ok {
			s.logger.WithField("email", identity.Email).Error("Registered email has no user index")
			return nil, fmt.Errorf("%w: email is registered without a user record", ErrUnauthorized)
		}
		result.UID = uid
	}

	sid, err := newSessionID()
	if err != nil {
		return nil, err
	}
	if err := s.sessionRepo.Create(ctx, sid, &models.Session{Email: identity.Email, Token: identity.Token}); err != nil {
		return nil, err
	}
	result.SID = sid

	s.logger.WithField("uid", result.UID).Info("User logged in successfully")
	return result, nil
}

// Logout 吊销令牌并清空会话；会话没有token时返回false
func (s *AuthService) Logout(ctx context.Context, sid string) (bool, error) {
	if sid == "" {
		return false, nil
	}

	session, err := s.sessionRepo.Get(ctx, sid)
	if err != nil {
		return false, err
	}
	if session.Token == "" {
		return false, nil
	}

	if s.revoker != nil {
		if err := s.revoker.Revoke(ctx, session.Token); err != nil {
			s.logger.WithError(err).Error("Failed to revoke access token")
		}
	}

	if err := s.sessionRepo.Clear(ctx, sid); err != nil {
		return false, err
	}
	return true, nil
}

func newSessionID() (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HTTPRevoker 通过OAuth吊销端点吊销令牌
type HTTPRevoker struct {
	endpoint string
	client   *http.Client
}

func NewHTTPRevoker(endpoint string, timeout time.Duration) *HTTPRevoker {
	return &HTTPRevoker{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *HTTPRevoker) Revoke(ctx context.Context, token string) error {
	u, err := url.Parse(r.endpoint)
	if err != nil {
		return fmt.Errorf("invalid revoke endpoint: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to build revoke request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("revoke endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
