package workers

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/pkg/logger"
)

// Publisher outbox调度器的投递端，pkg/queue的KafkaProducer实现
type Publisher interface {
	PublishRaw(ctx context.Context, key string, data []byte) error
}

// OutboxWorker 轮询outbox表把未投递的事件行推到Kafka。
// 行在业务事务内写入、这里标记投递，崩溃后重启会重投未标记的行，
// 语义是至少一次，消费端按事件ID去重。
type OutboxWorker struct {
	outboxRepo *repository.OutboxRepository
	publisher  Publisher
	interval   time.Duration
	batchSize  int
	logger     *logger.Logger
	quit       chan struct{}
}

func NewOutboxWorker(
	outboxRepo *repository.OutboxRepository,
	publisher Publisher,
	interval time.Duration,
	batchSize int,
	logger *logger.Logger,
) *OutboxWorker {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &OutboxWorker{
		outboxRepo: outboxRepo,
		publisher:  publisher,
		interval:   interval,
		batchSize:  batchSize,
		logger:     logger,
		quit:       make(chan struct{}),
	}
}

func (w *OutboxWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting outbox worker...")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.quit:
			return nil
		case <-ticker.C:
			if err := w.Drain(ctx); err != nil {
				w.logger.WithError(err).Error("Failed to drain outbox")
			}
		}
	}
}

func (w *OutboxWorker) Stop() error {
	close(w.quit)
	return nil
}

// Drain 投递一批未发送的事件行，按写入顺序逐条推进，
// 中途失败的留到下一轮重试
func (w *OutboxWorker) Drain(ctx context.Context) error {
	events, err := w.outboxRepo.GetPending(ctx, w.batchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	sent := make([]uuid.UUID, 0, len(events))
	for _, event := range events {
		if err := w.publisher.PublishRaw(ctx, event.Key, []byte(event.Payload)); err != nil {
			w.logger.WithError(err).WithField("event_id", event.ID).Error("Failed to publish outbox event")
			break
		}
		sent = append(sent, event.ID)
	}

	if len(sent) == 0 {
		return nil
	}

	if err := w.outboxRepo.MarkSent(ctx, sent); err != nil {
		// 标记失败会导致重投，靠消费端去重兜底
		return err
	}

	w.logger.WithField("count", len(sent)).Debug("Outbox events published")
	return nil
}
