package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationLike    NotificationType = "LIKE"
	NotificationComment NotificationType = "COMMENT"
	NotificationFollow  NotificationType = "FOLLOW"
)

type Notification struct {
	ID           uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	RecipientID  uuid.UUID        `json:"recipient_profile_id" gorm:"type:uuid;not null;index"`
	Message      string           `json:"message" gorm:"not null"`
	Type         NotificationType `json:"type" gorm:"size:20;not null"`
	ReferenceURL string           `json:"reference_url"`
	IsRead       bool             `json:"is_read" gorm:"default:false;index"`
	CreatedAt    time.Time        `json:"created_at" gorm:"index"`
}

// OutboxEvent 与触发变更同事务写入的事件行，由调度器异步投递到Kafka，
// 保证至少一次交付
type OutboxEvent struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	EventType string     `json:"event_type" gorm:"not null"`
	Key       string     `json:"key" gorm:"not null"`
	Payload   string     `json:"payload" gorm:"type:text;not null"`
	CreatedAt time.Time  `json:"created_at" gorm:"index"`
	SentAt    *time.Time `json:"sent_at" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}
