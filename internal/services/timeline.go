package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/internal/repository"
)

// TimelineService 读取时组装时间线，不做预先分发
type TimelineService struct {
	tweetRepo *repository.TweetRepository
	userRepo  *repository.UserRepository
	tweets    *TweetService
}

func NewTimelineService(tweetRepo *repository.TweetRepository, userRepo *repository.UserRepository, tweets *TweetService) *TimelineService {
	return &TimelineService{
		tweetRepo: tweetRepo,
		userRepo:  userRepo,
		tweets:    tweets,
	}
}

// HomeTimeline 全站推文
func (s *TimelineService) HomeTimeline(ctx context.Context, viewer *Actor) ([]*models.TweetView, error) {
	tids, err := s.tweetRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tweets: %w", err)
	}
	return s.build(ctx, tids)
}

// ProfileTimeline 自己和关注的人的推文
func (s *TimelineService) ProfileTimeline(ctx context.Context, viewer *Actor) ([]*models.TweetView, error) {
	authors, err := s.userRepo.GetFollowing(ctx, viewer.UID())
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	authors = append(authors, viewer.UID())

	seen := make(map[int64]bool)
	tids := make([]int64, 0)
	for _, uid := range authors {
		ids, err := s.userRepo.GetTweetIDs(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("failed to get tweets of user %d: %w", uid, err)
		}
		for _, tid := range ids {
			if !seen[tid] {
				seen[tid] = true
				tids = append(tids, tid)
			}
		}
	}
	return s.build(ctx, tids)
}

// UserTimeline 指定用户发布的推文
func (s *TimelineService) UserTimeline(ctx context.Context, subject int64) ([]*models.TweetView, error) {
	exists, err := s.userRepo.Exists(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to check user: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	tids, err := s.userRepo.GetTweetIDs(ctx, subject)
	if err != nil {
		return nil, fmt.Errorf("failed to get tweets: %w", err)
	}
	return s.build(ctx, tids)
}

// Gallery 全站带图片的推文
func (s *TimelineService) Gallery(ctx context.Context, viewer *Actor) ([]*models.TweetView, error) {
	tids, err := s.tweetRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tweets: %w", err)
	}

	tweets, err := s.tweetRepo.GetByIDs(ctx, tids)
	if err != nil {
		return nil, fmt.Errorf("failed to get tweets: %w", err)
	}
	withImage := tweets[:0]
	for _, tweet := range tweets {
		if tweet.HasImage() {
			withImage = append(withImage, tweet)
		}
	}
	return s.present(ctx, withImage)
}

// DiscoverableUsers 既不是自己也未关注的用户
func (s *TimelineService) DiscoverableUsers(ctx context.Context, viewer *Actor) ([]*models.Profile, error) {
	uids, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	following, err := s.userRepo.GetFollowing(ctx, viewer.UID())
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}

	excluded := map[int64]bool{viewer.UID(): true}
	for _, uid := range following {
		excluded[uid] = true
	}

	sortIDs(uids)
	profiles := make([]*models.Profile, 0)
	for _, uid := range uids {
		if excluded[uid] {
			continue
		}
		profile, err := s.userRepo.GetByID(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if profile != nil {
			profiles = append(profiles, profile)
		}
	}
	return profiles, nil
}

func (s *TimelineService) build(ctx context.Context, tids []int64) ([]*models.TweetView, error) {
	tweets, err := s.tweetRepo.GetByIDs(ctx, tids)
	if err != nil {
		return nil, fmt.Errorf("failed to get tweets: %w", err)
	}
	return s.present(ctx, tweets)
}

// present 按时间戳倒序排列，附带作者资料和图片签名URL
func (s *TimelineService) present(ctx context.Context, tweets []*models.Tweet) ([]*models.TweetView, error) {
	sort.SliceStable(tweets, func(i, j int) bool {
		return tweets[i].Timestamp > tweets[j].Timestamp
	})

	authors := make(map[int64]*models.Profile)
	views := make([]*models.TweetView, 0, len(tweets))
	for _, tweet := range tweets {
		view, err := s.tweets.present(ctx, tweet)
		if err != nil {
			return nil, err
		}

		author, ok := authors[tweet.UID]
		if !ok {
			author, err = s.userRepo.GetByID(ctx, tweet.UID)
			if err != nil {
				return nil, fmt.Errorf("failed to get author: %w", err)
			}
			authors[tweet.UID] = author
		}
		view.User = author

		views = append(views, view)
	}
	return views, nil
}
