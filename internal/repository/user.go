package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/pkg/cache"
)

type UserRepository struct {
	cache *cache.RedisClient
}

func NewUserRepository(cache *cache.RedisClient) *UserRepository {
	return &UserRepository{cache: cache}
}

// Create 注册新用户，按 emails -> uid计数器 -> uids -> 资料 -> 邮箱索引 的顺序写入
func (r *UserRepository) Create(ctx context.Context, identity *models.Identity) (*models.Profile, error) {
	if err := r.cache.SAdd(ctx, emailsKey, identity.Email); err != nil {
		return nil, fmt.Errorf("failed to register email: %w", err)
	}

	uid, err := r.cache.Incr(ctx, uidCounterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate uid: %w", err)
	}

	if err := r.cache.SAdd(ctx, uidsKey, uid); err != nil {
		return nil, fmt.Errorf("failed to register uid: %w", err)
	}

	profile := &models.Profile{
		UID:        uid,
		Email:      identity.Email,
		FamilyName: identity.FamilyName,
		GivenName:  identity.GivenName,
		Name:       identity.Name,
		Locale:     identity.Locale,
		Picture:    identity.Picture,
	}
	if err := r.cache.HSet(ctx, userKey(uid), profile.Fields()); err != nil {
		return nil, fmt.Errorf("failed to create user profile: %w", err)
	}

	if err := r.cache.HSet(ctx, usersIndexKey, identity.Email, uid); err != nil {
		return nil, fmt.Errorf("failed to index user email: %w", err)
	}

	return profile, nil
}

func (r *UserRepository) EmailRegistered(ctx context.Context, email string) (bool, error) {
	ok, err := r.cache.SIsMember(ctx, emailsKey, email)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return ok, nil
}

// GetIDByEmail 邮箱索引中不存在时返回 0, false
func (r *UserRepository) GetIDByEmail(ctx context.Context, email string) (int64, bool, error) {
	raw, err := r.cache.HGet(ctx, usersIndexKey, email)
	if err != nil {
		if cache.IsNil(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to get user by email: %w", err)
	}

	uid, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, nil
	}
	return uid, true, nil
}

func (r *UserRepository) Exists(ctx context.Context, uid int64) (bool, error) {
	ok, err := r.cache.SIsMember(ctx, uidsKey, uid)
	if err != nil {
		return false, fmt.Errorf("failed to check user: %w", err)
	}
	return ok, nil
}

// GetByID uid不在uids集合中时返回 nil, nil
func (r *UserRepository) GetByID(ctx context.Context, uid int64) (*models.Profile, error) {
	exists, err := r.Exists(ctx, uid)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	var profile models.Profile
	if err := r.cache.HScan(ctx, userKey(uid), &profile); err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	profile.UID = uid
	return &profile, nil
}

func (r *UserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	return r.members(ctx, uidsKey)
}

func (r *UserRepository) GetFollowers(ctx context.Context, uid int64) ([]int64, error) {
	return r.members(ctx, followersKey(uid))
}

func (r *UserRepository) GetFollowing(ctx context.Context, uid int64) ([]int64, error) {
	return r.members(ctx, followingKey(uid))
}

func (r *UserRepository) GetTweetIDs(ctx context.Context, uid int64) ([]int64, error) {
	return r.members(ctx, userTweetsKey(uid))
}

func (r *UserRepository) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	ok, err := r.cache.SIsMember(ctx, followingKey(followerID), followingID)
	if err != nil {
		return false, fmt.Errorf("failed to check follow status: %w", err)
	}
	return ok, nil
}

func (r *UserRepository) members(ctx context.Context, key string) ([]int64, error) {
	members, err := r.cache.SMembers(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", key, err)
	}
	return parseIDs(members)
}
