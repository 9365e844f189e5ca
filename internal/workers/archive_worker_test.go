package workers_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twitterlite/twitterlite/internal/repository"
	"github.com/twitterlite/twitterlite/internal/services"
	"github.com/twitterlite/twitterlite/internal/workers"
	"github.com/twitterlite/twitterlite/pkg/logger"
	"github.com/twitterlite/twitterlite/pkg/queue"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fakeSubscriber 投递固定消息后阻塞到ctx取消
type fakeSubscriber struct {
	messages []queue.Message
	errs     []error
	closed   bool
}

func (f *fakeSubscriber) Subscribe(ctx context.Context, handler func(queue.Message) error, onError func(error)) error {
	for _, msg := range f.messages {
		if err := handler(msg); err != nil {
			f.errs = append(f.errs, err)
			onError(err)
		}
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeSubscriber) Close() error {
	f.closed = true
	return nil
}

func newActivityService(t *testing.T) *services.ActivityService {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	db := &repository.Database{DB: gdb}
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { db.Close() })

	return services.NewActivityService(repository.NewActivityRepository(gdb), logger.NewNopLogger())
}

func mustEvent(t *testing.T, eventType queue.EventType, data interface{}) queue.Message {
	t.Helper()
	event, err := queue.NewEvent(eventType, data)
	require.NoError(t, err)
	return queue.Message{Key: "1", Event: event, Topic: "tweet-events"}
}

func TestArchiveWorkerRecordsEvents(t *testing.T) {
	activity := newActivityService(t)

	sub := &fakeSubscriber{messages: []queue.Message{
		mustEvent(t, queue.EventUserCreated, queue.UserEventData{UID: 1, Email: "a@example.com"}),
		mustEvent(t, queue.EventTweetCreated, queue.TweetEventData{TID: 3, UID: 1}),
		mustEvent(t, "post_liked", map[string]int{"pid": 1}),
	}}
	worker := workers.NewArchiveWorker(activity, logger.NewNopLogger(), sub)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, worker.Start(ctx))
	require.NoError(t, worker.Stop())

	assert.True(t, sub.closed)
	assert.Empty(t, sub.errs)

	records, err := activity.ListActivity(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestArchiveWorkerReportsBadPayload(t *testing.T) {
	activity := newActivityService(t)
	worker := workers.NewArchiveWorker(activity, logger.NewNopLogger())

	msg := queue.Message{Event: queue.Event{ID: "not-a-uuid", Type: queue.EventTweetDeleted, Data: []byte(`{"tid":1,"uid":1}`)}}
	assert.Error(t, worker.HandleMessage(context.Background(), msg))
}
