package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

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

func (p *KafkaProducer) Publish(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	return p.PublishRaw(ctx, key, data)
}

// PublishRaw 投递已序列化的消息体（outbox调度器使用，事件在入库时已编码）
func (p *KafkaProducer) PublishRaw(ctx context.Context, key string, data []byte) error {
	message := kafka.Message{
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	return p.writer.WriteMessages(ctx, message)
}

func (c *KafkaConsumer) Subscribe(ctx context.Context, handler func(Message) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			message, err := c.reader.ReadMessage(ctx)
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}

			var value interface{}
			if err := json.Unmarshal(message.Value, &value); err != nil {
				fmt.Printf("Failed to unmarshal message: %v\n", err)
				continue
			}

			msg := Message{
				Key:   string(message.Key),
				Value: value,
				Topic: message.Topic,
			}

			if err := handler(msg); err != nil {
				fmt.Printf("Failed to handle message: %v\n", err)
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
	Value interface{}
	Topic string
}

type EventType string

const (
	EventTweetCreated        EventType = "tweet_created"
	EventTweetDeleted        EventType = "tweet_deleted"
	EventCommentCreated      EventType = "comment_created"
	EventCommentDeleted      EventType = "comment_deleted"
	EventLikeCreated         EventType = "like_created"
	EventLikeDeleted         EventType = "like_deleted"
	EventFollowCreated       EventType = "follow_created"
	EventFollowDeleted       EventType = "follow_deleted"
	EventNotificationCreated EventType = "notification_created"
)

type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

type TweetEventData struct {
	TweetID       string `json:"tweet_id"`
	ProfileID     string `json:"profile_id"`
	ParentTweetID string `json:"parent_tweet_id,omitempty"`
}

type CommentEventData struct {
	CommentID       string `json:"comment_id"`
	ProfileID       string `json:"profile_id"`
	TweetID         string `json:"tweet_id"`
	ParentCommentID string `json:"parent_comment_id,omitempty"`
}

type LikeEventData struct {
	ProfileID  string `json:"profile_id"`
	TargetKind string `json:"target_kind"`
	TargetID   string `json:"target_id"`
}

type FollowEventData struct {
	FollowerID string `json:"follower_id"`
	FollowedID string `json:"followed_id"`
}

type NotificationEventData struct {
	NotificationID string `json:"notification_id"`
	RecipientID    string `json:"recipient_id"`
	Type           string `json:"notification_type"`
}
