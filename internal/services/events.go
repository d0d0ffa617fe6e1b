package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/pkg/queue"
	"gorm.io/gorm"
)

// Pusher 实时扇出原语，pkg/hub实现
type Pusher interface {
	BroadcastAll(event string, payload interface{})
	SendToUser(profileID uuid.UUID, event string, payload interface{})
}

// Files 附件清理协作方；blob保存在到达核心前已完成，核心只负责删除
type Files interface {
	Delete(url string) error
}

// Presence 在线状态查询，寻址推送前先确认
type Presence interface {
	IsOnline(ctx context.Context, profileID uuid.UUID) (bool, error)
}

// 实时事件载荷，字段名与对外事件契约一致
type LikeCounterPayload struct {
	TargetID   uuid.UUID `json:"targetId"`
	TotalLikes int64     `json:"totalLikes"`
}

type CommentCounterPayload struct {
	TargetID      uuid.UUID `json:"tweetOrCommentId"`
	TotalComments int64     `json:"totalComments"`
}

type FollowCounterPayload struct {
	ProfileID      uuid.UUID `json:"profileId"`
	TotalFollowing int64     `json:"totalFollowing"`
	TotalFollowers int64     `json:"totalFollowers"`
}

type UnreadCountPayload struct {
	Count int64 `json:"count"`
}

// appendOutbox 在业务事务内追加事件行，编码好的事件体由调度器原样投递
func appendOutbox(ctx context.Context, outboxRepo *repository.OutboxRepository, tx *gorm.DB, eventType queue.EventType, key string, data interface{}) error {
	payload, err := json.Marshal(queue.Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal outbox event: %w", err)
	}

	return outboxRepo.WithTx(tx).Create(ctx, &models.OutboxEvent{
		ID:        uuid.New(),
		EventType: string(eventType),
		Key:       key,
		Payload:   string(payload),
		CreatedAt: time.Now(),
	})
}
