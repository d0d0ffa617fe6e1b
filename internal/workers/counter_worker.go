package workers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/pkg/cache"
	"github.com/social-system/social-system/pkg/logger"
	"github.com/social-system/social-system/pkg/queue"
)

// CounterWorker 消费互动事件流，把热点计数镜像到redis哈希，
// 给读侧提供免DB的计数查询。数据库里的计数器仍是唯一权威，
// 这里只是异步投影，重放事件幂等性由delta语义近似保证。
type CounterWorker struct {
	cache    *cache.RedisClient
	consumer *queue.KafkaConsumer
	logger   *logger.Logger
}

func NewCounterWorker(cache *cache.RedisClient, consumer *queue.KafkaConsumer, logger *logger.Logger) *CounterWorker {
	return &CounterWorker{
		cache:    cache,
		consumer: consumer,
		logger:   logger,
	}
}

func tweetCounterKey(tweetID string) string {
	return fmt.Sprintf("counters:tweet:%s", tweetID)
}

func commentCounterKey(commentID string) string {
	return fmt.Sprintf("counters:comment:%s", commentID)
}

func profileCounterKey(profileID string) string {
	return fmt.Sprintf("counters:profile:%s", profileID)
}

func (w *CounterWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting counter worker...")

	return w.consumer.Subscribe(ctx, func(msg queue.Message) error {
		var event queue.Event
		data, err := json.Marshal(msg.Value)
		if err != nil {
			return fmt.Errorf("failed to marshal message value: %w", err)
		}

		if err := json.Unmarshal(data, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}

		switch event.Type {
		case queue.EventLikeCreated:
			return w.handleLike(ctx, event, 1)
		case queue.EventLikeDeleted:
			return w.handleLike(ctx, event, -1)
		case queue.EventCommentCreated:
			return w.handleComment(ctx, event, 1)
		case queue.EventCommentDeleted:
			return w.handleComment(ctx, event, -1)
		case queue.EventTweetCreated:
			return w.handleTweet(ctx, event, 1)
		case queue.EventTweetDeleted:
			return w.handleTweet(ctx, event, -1)
		case queue.EventFollowCreated:
			return w.handleFollow(ctx, event, 1)
		case queue.EventFollowDeleted:
			return w.handleFollow(ctx, event, -1)
		case queue.EventNotificationCreated:
			// 通知未读数由DB实时统计，不做镜像
			return nil
		default:
			w.logger.WithField("event_type", event.Type).Warn("Unknown event type")
			return nil
		}
	})
}

func (w *CounterWorker) Stop() error {
	return w.consumer.Close()
}

func decodeEventData(event queue.Event, out interface{}) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}
	return nil
}

func (w *CounterWorker) handleLike(ctx context.Context, event queue.Event, delta int64) error {
	var data queue.LikeEventData
	if err := decodeEventData(event, &data); err != nil {
		return err
	}

	key := tweetCounterKey(data.TargetID)
	if data.TargetKind == string(models.TargetComment) {
		key = commentCounterKey(data.TargetID)
	}
	return w.cache.HIncrBy(ctx, key, "likes", delta)
}

func (w *CounterWorker) handleComment(ctx context.Context, event queue.Event, delta int64) error {
	var data queue.CommentEventData
	if err := decodeEventData(event, &data); err != nil {
		return err
	}

	// 回复推进父评论回复数，直接评论推进推文评论数
	if data.ParentCommentID != "" {
		return w.cache.HIncrBy(ctx, commentCounterKey(data.ParentCommentID), "replies", delta)
	}
	return w.cache.HIncrBy(ctx, tweetCounterKey(data.TweetID), "comments", delta)
}

func (w *CounterWorker) handleTweet(ctx context.Context, event queue.Event, delta int64) error {
	var data queue.TweetEventData
	if err := decodeEventData(event, &data); err != nil {
		return err
	}

	if err := w.cache.HIncrBy(ctx, profileCounterKey(data.ProfileID), "tweets", delta); err != nil {
		return err
	}
	if data.ParentTweetID != "" {
		return w.cache.HIncrBy(ctx, tweetCounterKey(data.ParentTweetID), "retweets", delta)
	}
	return nil
}

func (w *CounterWorker) handleFollow(ctx context.Context, event queue.Event, delta int64) error {
	var data queue.FollowEventData
	if err := decodeEventData(event, &data); err != nil {
		return err
	}

	if err := w.cache.HIncrBy(ctx, profileCounterKey(data.FollowerID), "following", delta); err != nil {
		return err
	}
	return w.cache.HIncrBy(ctx, profileCounterKey(data.FollowedID), "followers", delta)
}
