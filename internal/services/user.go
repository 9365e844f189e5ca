package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/queue"
)

type UserService struct {
	userRepo   *repository.UserRepository
	followRepo *repository.FollowRepository
	producer   queue.Publisher
	logger     *logger.Logger
}

func NewUserService(userRepo *repository.UserRepository, followRepo *repository.FollowRepository, producer queue.Publisher, logger *logger.Logger) *UserService {
	return &UserService{
		userRepo:   userRepo,
		followRepo: followRepo,
		producer:   producer,
		logger:     logger,
	}
}

func (s *UserService) GetProfile(ctx context.Context, uid int64) (*models.Profile, error) {
	profile, err := s.userRepo.GetByID(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	return profile, nil
}

func (s *UserService) ListFollowers(ctx context.Context, uid int64) ([]int64, error) {
	return s.userRepo.GetFollowers(ctx, uid)
}

func (s *UserService) ListFollowing(ctx context.Context, uid int64) ([]int64, error) {
	return s.userRepo.GetFollowing(ctx, uid)
}

func (s *UserService) ListAuthoredTweets(ctx context.Context, uid int64) ([]int64, error) {
	return s.userRepo.GetTweetIDs(ctx, uid)
}

func (s *UserService) ListAllUserIDs(ctx context.Context) ([]int64, error) {
	return s.userRepo.ListIDs(ctx)
}

func (s *UserService) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	return s.userRepo.IsFollowing(ctx, followerID, followingID)
}

// Summary 个人资料及关注/粉丝计数
func (s *UserService) Summary(ctx context.Context, uid int64) (*models.ProfileSummary, error) {
	profile, err := s.GetProfile(ctx, uid)
	if err != nil {
		return nil, err
	}

	following, err := s.userRepo.GetFollowing(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	followers, err := s.userRepo.GetFollowers(ctx, uid)
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	sortIDs(following)

	return &models.ProfileSummary{
		Profile:        *profile,
		FollowingUIDs:  following,
		NumOfFollowing: len(following),
		NumOfFollowers: len(followers),
	}, nil
}

// People 除自己以外的全部用户
func (s *UserService) People(ctx context.Context, viewer *Actor) ([]*models.PersonView, error) {
	uids, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	others := make([]int64, 0, len(uids))
	for _, uid := range uids {
		if uid != viewer.UID() {
			others = append(others, uid)
		}
	}
	return s.personViews(ctx, viewer, others)
}

// Followers 关注当前用户的人，标注当前用户是否回关
func (s *UserService) Followers(ctx context.Context, viewer *Actor) ([]*models.PersonView, error) {
	uids, err := s.userRepo.GetFollowers(ctx, viewer.UID())
	if err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return s.personViews(ctx, viewer, uids)
}

// Following 当前用户关注的人
func (s *UserService) Following(ctx context.Context, viewer *Actor) ([]*models.PersonView, error) {
	uids, err := s.userRepo.GetFollowing(ctx, viewer.UID())
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return s.personViews(ctx, viewer, uids)
}

func (s *UserService) personViews(ctx context.Context, viewer *Actor, uids []int64) ([]*models.PersonView, error) {
	following, err := s.userRepo.GetFollowing(ctx, viewer.UID())
	if err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	followed := make(map[int64]bool, len(following))
	for _, uid := range following {
		followed[uid] = true
	}

	sortIDs(uids)
	views := make([]*models.PersonView, 0, len(uids))
	for _, uid := range uids {
		profile, err := s.userRepo.GetByID(ctx, uid)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if profile == nil {
			continue
		}
		views = append(views, &models.PersonView{Profile: *profile, Following: followed[uid]})
	}
	return views, nil
}

// Follow 建立 actor -> target 的关注边；关注自己时返回false且不修改任何数据
func (s *UserService) Follow(ctx context.Context, actor *Actor, target int64) (bool, error) {
	if actor.UID() == target {
		return false, nil
	}

	if err := s.followRepo.Create(ctx, actor.UID(), target); err != nil {
		return false, fmt.Errorf("failed to create follow: %w", err)
	}

	publish(ctx, s.producer, s.logger, fmt.Sprint(actor.UID()), queue.EventFollowCreated, queue.FollowEventData{
		FollowerID:  actor.UID(),
		FollowingID: target,
	})

	s.logger.WithFields(map[string]interface{}{
		"follower_id":  actor.UID(),
		"following_id": target,
	}).Info("User followed successfully")

	return true, nil
}

// Unfollow 删除 actor -> target 的关注边，反向的边不受影响
func (s *UserService) Unfollow(ctx context.Context, actor *Actor, target int64) (bool, error) {
	if actor.UID() == target {
		return false, nil
	}

	if err := s.followRepo.Delete(ctx, actor.UID(), target); err != nil {
		return false, fmt.Errorf("failed to delete follow: %w", err)
	}

	publish(ctx, s.producer, s.logger, fmt.Sprint(actor.UID()), queue.EventFollowDeleted, queue.FollowEventData{
		FollowerID:  actor.UID(),
		FollowingID: target,
	})

	s.logger.WithFields(map[string]interface{}{
		"follower_id":  actor.UID(),
		"following_id": target,
	}).Info("User unfollowed successfully")

	return true, nil
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
