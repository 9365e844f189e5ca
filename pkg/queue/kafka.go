package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Publisher 领域事件发布者
type Publisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type KafkaProducer struct {
	writer *kafka.Writer
}

type KafkaConsumer struct {
	reader *kafka.Reader
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
		Async:    false,
	}

	return &KafkaProducer{writer: writer}
}

func NewKafkaConsumer(brokers []string, topic, groupID string) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		CommitInterval: 1 * time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaConsumer{reader: reader}
}

func (p *KafkaProducer) Publish(ctx context.Context, key string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	message := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	return p.writer.WriteMessages(ctx, message)
}

// Subscribe 逐条读取并处理消息，处理失败只回调onError不中断
func (c *KafkaConsumer) Subscribe(ctx context.Context, handler func(Message) error, onError func(error)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.ReadMessage(ctx)
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}

			var event Event
			if err := json.Unmarshal(message.Value, &event); err != nil {
				onError(fmt.Errorf("failed to unmarshal message: %w", err))
				continue
			}

			msg := Message{
				Key:   string(message.Key),
				Event: event,
				Topic: message.Topic,
			}

			if err := handler(msg); err != nil {
				onError(fmt.Errorf("failed to handle message: %w", err))
				continue
			}
		}
	}
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

type Message struct {
	Key   string
	Event Event
	Topic string
}

type EventType string

const (
	EventUserCreated   EventType = "user_created"
	EventTweetCreated  EventType = "tweet_created"
	EventTweetUpdated  EventType = "tweet_updated"
	EventTweetDeleted  EventType = "tweet_deleted"
	EventFollowCreated EventType = "follow_created"
	EventFollowDeleted EventType = "follow_deleted"
)

type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent 生成带唯一ID的事件
func NewEvent(eventType EventType, data interface{}) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal event data: %w", err)
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      raw,
	}, nil
}

type UserEventData struct {
	UID   int64  `json:"uid"`
	Email string `json:"email"`
}

type TweetEventData struct {
	TID      int64 `json:"tid"`
	UID      int64 `json:"uid"`
	HasImage bool  `json:"has_image"`
}

type FollowEventData struct {
	FollowerID  int64 `json:"follower_id"`
	FollowingID int64 `json:"following_id"`
}

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, key string, event Event) error {
	return nil
}
