package repository

import (
	"context"
	"fmt"

	"github.com/twitterlite/twitterlite/pkg/cache"
)

// FollowRepository 关注关系以两个互为镜像的集合保存，两次写入之间没有原子性
type FollowRepository struct {
	cache *cache.RedisClient
}

func NewFollowRepository(cache *cache.RedisClient) *FollowRepository {
	return &FollowRepository{cache: cache}
}

func (r *FollowRepository) Create(ctx context.Context, followerID, followingID int64) error {
	if err := r.cache.SAdd(ctx, followingKey(followerID), followingID); err != nil {
		return fmt.Errorf("failed to add following edge: %w", err)
	}
	if err := r.cache.SAdd(ctx, followersKey(followingID), followerID); err != nil {
		return fmt.Errorf("failed to add follower edge: %w", err)
	}
	return nil
}

func (r *FollowRepository) Delete(ctx context.Context, followerID, followingID int64) error {
	if err := r.cache.SRem(ctx, followingKey(followerID), followingID); err != nil {
		return fmt.Errorf("failed to remove following edge: %w", err)
	}
	if err := r.cache.SRem(ctx, followersKey(followingID), followerID); err != nil {
		return fmt.Errorf("failed to remove follower edge: %w", err)
	}
	return nil
}
