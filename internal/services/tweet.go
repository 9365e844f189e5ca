package services

import (
	"bytes"
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/queue"
	"github.com/twitterlite/twitterlite/pkg/storage"
)

const MaxTweetLength = 500

type TweetService struct {
	tweetRepo     *repository.TweetRepository
	store         storage.ObjectStore
	producer      queue.Publisher
	logger        *logger.Logger
	presignExpiry time.Duration
	now           func() time.Time
}

func NewTweetService(
	tweetRepo *repository.TweetRepository,
	store storage.ObjectStore,
	producer queue.Publisher,
	logger *logger.Logger,
	presignExpiry time.Duration,
) *TweetService {
	return &TweetService{
		tweetRepo:     tweetRepo,
		store:         store,
		producer:      producer,
		logger:        logger,
		presignExpiry: presignExpiry,
		now:           time.Now,
	}
}

func validateTweetText(text string) error {
	if utf8.RuneCountInString(text) > MaxTweetLength {
		return &ValidationError{
			Field:  "tweet_text",
			Reason: fmt.Sprintf("tweet must be at most %d characters", MaxTweetLength),
			Err:    ErrTweetTooLong,
		}
	}
	return nil
}

// PostTweet 发布推文；图片或正文校验失败时不产生任何写入
func (s *TweetService) PostTweet(ctx context.Context, actor *Actor, text string, image *ImageUpload) (int64, error) {
	if err := validateTweetText(text); err != nil {
		return 0, err
	}
	filename, contentType, hasImage, err := prepareImage(image)
	if err != nil {
		return 0, err
	}

	tid, err := s.tweetRepo.NextID(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.tweetRepo.Register(ctx, tid, actor.UID()); err != nil {
		return 0, err
	}

	fields := map[string]interface{}{
		"tid":        tid,
		"tweet_text": text,
	}

	if hasImage {
		iid, err := s.tweetRepo.NextImageID(ctx)
		if err != nil {
			return 0, err
		}
		key := fmt.Sprintf("%d_%s", iid, filename)
		if err := s.upload(ctx, key, image.Data, contentType); err != nil {
			return 0, err
		}
		fields["image"] = key
	}

	fields["timestamp"] = models.UnixSeconds(s.now())
	fields["uid"] = actor.UID()
	if err := s.tweetRepo.Save(ctx, tid, fields); err != nil {
		return 0, err
	}

	publish(ctx, s.producer, s.logger, fmt.Sprint(tid), queue.EventTweetCreated, queue.TweetEventData{
		TID:      tid,
		UID:      actor.UID(),
		HasImage: hasImage,
	})

	s.logger.WithFields(map[string]interface{}{
		"tid": tid,
		"uid": actor.UID(),
	}).Info("Tweet posted successfully")

	return tid, nil
}

// GetTweet 图片字段替换为临时签名URL
func (s *TweetService) GetTweet(ctx context.Context, tid int64) (*models.TweetView, error) {
	tweet, err := s.tweetRepo.GetByID(ctx, tid)
	if err != nil {
		return nil, fmt.Errorf("failed to get tweet: %w", err)
	}
	if tweet == nil {
		return nil, ErrNotFound
	}
	return s.present(ctx, tweet)
}

// UpdateTweet 修改正文并刷新时间戳；
// 提供有效图片时覆盖原图（沿用原对象key），未提供图片时删除原图
func (s *TweetService) UpdateTweet(ctx context.Context, actor *Actor, tid int64, text string, image *ImageUpload) error {
	owned, err := s.tweetRepo.IsAuthoredBy(ctx, actor.UID(), tid)
	if err != nil {
		return fmt.Errorf("failed to check ownership: %w", err)
	}
	if !owned {
		return ErrNotOwner
	}

	if err := validateTweetText(text); err != nil {
		return err
	}
	filename, contentType, hasImage, err := prepareImage(image)
	if err != nil {
		return err
	}

	fields := map[string]interface{}{
		"tweet_text": text,
	}

	oldKey, err := s.tweetRepo.GetImageKey(ctx, tid)
	if err != nil {
		return err
	}

	if hasImage {
		key := oldKey
		if key == "" {
			iid, err := s.tweetRepo.NextImageID(ctx)
			if err != nil {
				return err
			}
			key = fmt.Sprintf("%d_%s", iid, filename)
		}
		if err := s.upload(ctx, key, image.Data, contentType); err != nil {
			return err
		}
		fields["image"] = key
	} else if oldKey != "" {
		if err := s.store.Delete(ctx, oldKey); err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		if err := s.tweetRepo.RemoveImage(ctx, tid); err != nil {
			return err
		}
	}

	fields["timestamp"] = models.UnixSeconds(s.now())
	if err := s.tweetRepo.Save(ctx, tid, fields); err != nil {
		return err
	}

	publish(ctx, s.producer, s.logger, fmt.Sprint(tid), queue.EventTweetUpdated, queue.TweetEventData{
		TID:      tid,
		UID:      actor.UID(),
		HasImage: hasImage,
	})

	s.logger.WithFields(map[string]interface{}{
		"tid": tid,
		"uid": actor.UID(),
	}).Info("Tweet updated successfully")

	return nil
}

// DeleteTweet 依次删除图片、索引和推文哈希
func (s *TweetService) DeleteTweet(ctx context.Context, actor *Actor, tid int64) error {
	owned, err := s.tweetRepo.IsAuthoredBy(ctx, actor.UID(), tid)
	if err != nil {
		return fmt.Errorf("failed to check ownership: %w", err)
	}
	if !owned {
		return ErrNotOwner
	}

	key, err := s.tweetRepo.GetImageKey(ctx, tid)
	if err != nil {
		return err
	}
	if key != "" {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
	}

	if err := s.tweetRepo.Unregister(ctx, tid, actor.UID()); err != nil {
		return err
	}
	if err := s.tweetRepo.Erase(ctx, tid); err != nil {
		return err
	}

	publish(ctx, s.producer, s.logger, fmt.Sprint(tid), queue.EventTweetDeleted, queue.TweetEventData{
		TID:      tid,
		UID:      actor.UID(),
		HasImage: key != "",
	})

	s.logger.WithFields(map[string]interface{}{
		"tid": tid,
		"uid": actor.UID(),
	}).Info("Tweet deleted successfully")

	return nil
}

func (s *TweetService) TweetExists(ctx context.Context, tid int64) (bool, error) {
	return s.tweetRepo.Exists(ctx, tid)
}

func (s *TweetService) ListAllTweetIDs(ctx context.Context) ([]int64, error) {
	return s.tweetRepo.ListIDs(ctx)
}

func (s *TweetService) upload(ctx context.Context, key string, data []byte, contentType string) error {
	if err := s.store.Upload(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return fmt.Errorf("failed to upload image: %w", err)
	}
	return nil
}

func (s *TweetService) present(ctx context.Context, tweet *models.Tweet) (*models.TweetView, error) {
	view := &models.TweetView{Tweet: *tweet}
	if tweet.HasImage() {
		url, err := s.store.PresignedURL(ctx, tweet.Image, s.presignExpiry)
		if err != nil {
			return nil, fmt.Errorf("failed to presign image: %w", err)
		}
		view.Image = url
	}
	return view, nil
}
