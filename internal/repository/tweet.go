package repository

import (
	"context"
	"fmt"
	"strconv"

	"github.com/go-redis/redis/v8"
	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/pkg/cache"
)

type TweetRepository struct {
	cache *cache.RedisClient
}

func NewTweetRepository(cache *cache.RedisClient) *TweetRepository {
	return &TweetRepository{cache: cache}
}

// NextID 分配新的tid，计数器永不回退
func (r *TweetRepository) NextID(ctx context.Context) (int64, error) {
	tid, err := r.cache.Incr(ctx, tidCounterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate tid: %w", err)
	}
	return tid, nil
}

// NextImageID 分配新的图片id
func (r *TweetRepository) NextImageID(ctx context.Context) (int64, error) {
	iid, err := r.cache.Incr(ctx, iidCounterKey)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate iid: %w", err)
	}
	return iid, nil
}

// Register 先写入全局和作者的索引集合，推文哈希随后写入
func (r *TweetRepository) Register(ctx context.Context, tid, uid int64) error {
	if err := r.cache.SAdd(ctx, tidsKey, tid); err != nil {
		return fmt.Errorf("failed to register tweet: %w", err)
	}
	if err := r.cache.SAdd(ctx, userTweetsKey(uid), tid); err != nil {
		return fmt.Errorf("failed to register user tweet: %w", err)
	}
	return nil
}

func (r *TweetRepository) Unregister(ctx context.Context, tid, uid int64) error {
	if err := r.cache.SRem(ctx, tidsKey, tid); err != nil {
		return fmt.Errorf("failed to unregister tweet: %w", err)
	}
	if err := r.cache.SRem(ctx, userTweetsKey(uid), tid); err != nil {
		return fmt.Errorf("failed to unregister user tweet: %w", err)
	}
	return nil
}

// Save 覆盖写入给定字段，未给出的字段保持不变
func (r *TweetRepository) Save(ctx context.Context, tid int64, fields map[string]interface{}) error {
	if err := r.cache.HSet(ctx, tweetKey(tid), fields); err != nil {
		return fmt.Errorf("failed to save tweet: %w", err)
	}
	return nil
}

// Erase 删除整个推文哈希
func (r *TweetRepository) Erase(ctx context.Context, tid int64) error {
	if err := r.cache.Delete(ctx, tweetKey(tid)); err != nil {
		return fmt.Errorf("failed to erase tweet: %w", err)
	}
	return nil
}

func (r *TweetRepository) Exists(ctx context.Context, tid int64) (bool, error) {
	ok, err := r.cache.SIsMember(ctx, tidsKey, tid)
	if err != nil {
		return false, fmt.Errorf("failed to check tweet: %w", err)
	}
	return ok, nil
}

func (r *TweetRepository) IsAuthoredBy(ctx context.Context, uid, tid int64) (bool, error) {
	ok, err := r.cache.SIsMember(ctx, userTweetsKey(uid), tid)
	if err != nil {
		return false, fmt.Errorf("failed to check tweet ownership: %w", err)
	}
	return ok, nil
}

// GetByID tid不在tids中或哈希尚未写入时返回 nil, nil
func (r *TweetRepository) GetByID(ctx context.Context, tid int64) (*models.Tweet, error) {
	exists, err := r.Exists(ctx, tid)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}

	fields, err := r.cache.HGetAll(ctx, tweetKey(tid))
	if err != nil {
		return nil, fmt.Errorf("failed to get tweet: %w", err)
	}
	return decodeTweet(tid, fields), nil
}

// GetByIDs 通过pipeline批量读取，缺失或不完整的推文被跳过
func (r *TweetRepository) GetByIDs(ctx context.Context, tids []int64) ([]*models.Tweet, error) {
	if len(tids) == 0 {
		return nil, nil
	}

	pipe := r.cache.Pipeline()
	cmds := make([]*redis.StringStringMapCmd, len(tids))
	for i, tid := range tids {
		cmds[i] = pipe.HGetAll(ctx, tweetKey(tid))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to get tweets: %w", err)
	}

	tweets := make([]*models.Tweet, 0, len(tids))
	for i, cmd := range cmds {
		if tweet := decodeTweet(tids[i], cmd.Val()); tweet != nil {
			tweets = append(tweets, tweet)
		}
	}
	return tweets, nil
}

// GetImageKey 没有图片时返回空串
func (r *TweetRepository) GetImageKey(ctx context.Context, tid int64) (string, error) {
	key, err := r.cache.HGet(ctx, tweetKey(tid), "image")
	if err != nil {
		if cache.IsNil(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get tweet image: %w", err)
	}
	return key, nil
}

func (r *TweetRepository) RemoveImage(ctx context.Context, tid int64) error {
	if err := r.cache.HDel(ctx, tweetKey(tid), "image"); err != nil {
		return fmt.Errorf("failed to remove tweet image: %w", err)
	}
	return nil
}

func (r *TweetRepository) ListIDs(ctx context.Context) ([]int64, error) {
	members, err := r.cache.SMembers(ctx, tidsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to list tweets: %w", err)
	}
	return parseIDs(members)
}

// decodeTweet 必需字段缺失的哈希视为不存在
func decodeTweet(tid int64, fields map[string]string) *models.Tweet {
	rawUID, ok := fields["uid"]
	if !ok {
		return nil
	}
	uid, err := strconv.ParseInt(rawUID, 10, 64)
	if err != nil {
		return nil
	}
	ts, err := strconv.ParseFloat(fields["timestamp"], 64)
	if err != nil {
		return nil
	}

	return &models.Tweet{
		TID:       tid,
		UID:       uid,
		TweetText: fields["tweet_text"],
		Timestamp: ts,
		Image:     fields["image"],
	}
}
