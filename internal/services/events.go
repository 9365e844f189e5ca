package services

import (
	"context"

	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/queue"
)

// publish 事件发布失败只记录日志，不影响已完成的写入
func publish(ctx context.Context, producer queue.Publisher, log *logger.Logger, key string, eventType queue.EventType, data interface{}) {
	if producer == nil {
		return
	}

	event, err := queue.NewEvent(eventType, data)
	if err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("Failed to build event")
		return
	}
	if err := producer.Publish(ctx, key, event); err != nil {
		log.WithError(err).WithField("event_type", eventType).Error("Failed to publish event")
	}
}
