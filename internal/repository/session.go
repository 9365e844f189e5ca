package repository

import (
	"context"
	"fmt"

	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/pkg/cache"
)

type SessionRepository struct {
	cache *cache.RedisClient
}

func NewSessionRepository(cache *cache.RedisClient) *SessionRepository {
	return &SessionRepository{cache: cache}
}

// Create sid本身就是键
func (r *SessionRepository) Create(ctx context.Context, sid string, session *models.Session) error {
	if err := r.cache.HSet(ctx, sid, map[string]interface{}{
		"email": session.Email,
		"token": session.Token,
	}); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get 会话不存在时返回零值
func (r *SessionRepository) Get(ctx context.Context, sid string) (*models.Session, error) {
	var session models.Session
	if err := r.cache.HScan(ctx, sid, &session); err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) GetEmail(ctx context.Context, sid string) (string, error) {
	email, err := r.cache.HGet(ctx, sid, "email")
	if err != nil {
		if cache.IsNil(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get session email: %w", err)
	}
	return email, nil
}

// Clear 清空token和email，保留key使旧sid失效
func (r *SessionRepository) Clear(ctx context.Context, sid string) error {
	if err := r.cache.HDel(ctx, sid, "token", "email"); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
