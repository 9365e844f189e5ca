package workers

import (
	"context"
	"errors"

	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/queue"
	"golang.org/x/sync/errgroup"
)

// Subscriber 由 queue.KafkaConsumer 实现
type Subscriber interface {
	Subscribe(ctx context.Context, handler func(queue.Message) error, onError func(error)) error
	Close() error
}

// ArchiveWorker 消费领域事件并写入归档库
type ArchiveWorker struct {
	activityService *services.ActivityService
	consumers       []Subscriber
	logger          *logger.Logger
}

func NewArchiveWorker(activityService *services.ActivityService, logger *logger.Logger, consumers ...Subscriber) *ArchiveWorker {
	return &ArchiveWorker{
		activityService: activityService,
		consumers:       consumers,
		logger:          logger,
	}
}

// Start 阻塞直到ctx取消或任一消费者出错
func (w *ArchiveWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting archive worker...")

	g, ctx := errgroup.WithContext(ctx)
	for _, consumer := range w.consumers {
		consumer := consumer
		g.Go(func() error {
			err := consumer.Subscribe(ctx, func(msg queue.Message) error {
				return w.HandleMessage(ctx, msg)
			}, func(err error) {
				w.logger.WithError(err).Error("Failed to process event")
			})
			// 正常退出
			if ctx.Err() != nil {
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

func (w *ArchiveWorker) HandleMessage(ctx context.Context, msg queue.Message) error {
	event := msg.Event

	w.logger.WithFields(map[string]interface{}{
		"event_id":   event.ID,
		"event_type": event.Type,
		"topic":      msg.Topic,
	}).Debug("Processing event")

	switch event.Type {
	case queue.EventUserCreated,
		queue.EventTweetCreated,
		queue.EventTweetUpdated,
		queue.EventTweetDeleted,
		queue.EventFollowCreated,
		queue.EventFollowDeleted:
		return w.activityService.Record(ctx, event)
	default:
		w.logger.WithField("event_type", event.Type).Warn("Unknown event type")
		return nil
	}
}

func (w *ArchiveWorker) Stop() error {
	var errs []error
	for _, consumer := range w.consumers {
		if err := consumer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
