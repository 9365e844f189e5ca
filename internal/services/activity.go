package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/twitterlite/twitterlite/internal/models"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/queue"
)

const defaultActivityLimit = 50

// ActivityService 领域事件归档
type ActivityService struct {
	activityRepo *repository.ActivityRepository
	logger       *logger.Logger
}

func NewActivityService(activityRepo *repository.ActivityRepository, logger *logger.Logger) *ActivityService {
	return &ActivityService{
		activityRepo: activityRepo,
		logger:       logger,
	}
}

// Record 将事件写入归档，同一事件ID只保存一次
func (s *ActivityService) Record(ctx context.Context, event queue.Event) error {
	actor, subject, err := eventParticipants(event)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(event.ID)
	if err != nil {
		return fmt.Errorf("invalid event id %q: %w", event.ID, err)
	}

	record := &models.ActivityRecord{
		ID:         id,
		EventType:  string(event.Type),
		ActorUID:   actor,
		SubjectID:  subject,
		Payload:    string(event.Data),
		OccurredAt: event.Timestamp,
	}
	if err := s.activityRepo.Create(ctx, record); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"actor_uid":  actor,
	}).Debug("Activity recorded")
	return nil
}

// ListActivity 最新的在前
func (s *ActivityService) ListActivity(ctx context.Context, uid int64, limit int) ([]*models.ActivityRecord, error) {
	if limit <= 0 || limit > defaultActivityLimit {
		limit = defaultActivityLimit
	}
	return s.activityRepo.GetByActor(ctx, uid, 0, limit)
}

// eventParticipants 返回事件的发起者和对象
func eventParticipants(event queue.Event) (actor, subject int64, err error) {
	switch event.Type {
	case queue.EventUserCreated:
		var data queue.UserEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return 0, 0, fmt.Errorf("failed to decode %s: %w", event.Type, err)
		}
		return data.UID, data.UID, nil
	case queue.EventTweetCreated, queue.EventTweetUpdated, queue.EventTweetDeleted:
		var data queue.TweetEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return 0, 0, fmt.Errorf("failed to decode %s: %w", event.Type, err)
		}
		return data.UID, data.TID, nil
	case queue.EventFollowCreated, queue.EventFollowDeleted:
		var data queue.FollowEventData
		if err := json.Unmarshal(event.Data, &data); err != nil {
			return 0, 0, fmt.Errorf("failed to decode %s: %w", event.Type, err)
		}
		return data.FollowerID, data.FollowingID, nil
	default:
		return 0, 0, fmt.Errorf("unknown event type: %s", event.Type)
	}
}
