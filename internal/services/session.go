package services

import (
	"context"
	"fmt"

	"github.com/twitterlite/twitterlite/internal/repository"
)

// Actor 通过会话认证的用户，只能由 SessionService.ResolveUser 产生
type Actor struct {
	uid int64
}

func (a *Actor) UID() int64 {
	return a.uid
}

type SessionService struct {
	sessionRepo *repository.SessionRepository
	userRepo    *repository.UserRepository
}

func NewSessionService(sessionRepo *repository.SessionRepository, userRepo *repository.UserRepository) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
	}
}

// ResolveUser sid -> email -> uid，任一环节缺失都返回 ErrUnauthorized
func (s *SessionService) ResolveUser(ctx context.Context, sid string) (*Actor, error) {
	if sid == "" {
		return nil, ErrUnauthorized
	}

	email, err := s.sessionRepo.GetEmail(ctx, sid)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if email == "" {
		return nil, ErrUnauthorized
	}

	uid, ok, err := s.userRepo.GetIDByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !ok {
		return nil, ErrUnauthorized
	}

	valid, err := s.userRepo.Exists(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if !valid {
		return nil, ErrUnauthorized
	}

	return &Actor{uid: uid}, nil
}

func (s *SessionService) IsValidSession(ctx context.Context, sid string) (bool, error) {
	if sid == "" {
		return false, nil
	}
	email, err := s.sessionRepo.GetEmail(ctx, sid)
	if err != nil {
		return false, fmt.Errorf("failed to validate session: %w", err)
	}
	return email != "", nil
}

func (s *SessionService) IsValidUser(ctx context.Context, uid int64) (bool, error) {
	return s.userRepo.Exists(ctx, uid)
}
