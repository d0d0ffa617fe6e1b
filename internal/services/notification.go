package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/pkg/hub"
	"github.com/social-system/social-system/pkg/logger"
	"github.com/social-system/social-system/pkg/queue"
	"gorm.io/gorm"
)

// NotificationService 负责通知的持久化与实时分发。
// 通知行在触发它的业务事务内写入（CreateInTx），实时推送在提交后尽力而为：
// 进程在提交与推送之间崩溃只会丢实时事件，不会丢数据。
type NotificationService struct {
	actor            *ActorResolver
	notificationRepo *repository.NotificationRepository
	outboxRepo       *repository.OutboxRepository
	presence         Presence
	pusher           Pusher
	logger           *logger.Logger
	baseURL          string
}

func NewNotificationService(
	actor *ActorResolver,
	notificationRepo *repository.NotificationRepository,
	outboxRepo *repository.OutboxRepository,
	presence Presence,
	pusher Pusher,
	logger *logger.Logger,
	baseURL string,
) *NotificationService {
	return &NotificationService{
		actor:            actor,
		notificationRepo: notificationRepo,
		outboxRepo:       outboxRepo,
		presence:         presence,
		pusher:           pusher,
		logger:           logger,
		baseURL:          strings.TrimRight(baseURL, "/"),
	}
}

func (s *NotificationService) TweetRef(id uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/tweets/%s", s.baseURL, id)
}

func (s *NotificationService) CommentRef(id uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/comments/%s", s.baseURL, id)
}

func (s *NotificationService) ProfileRef(id uuid.UUID) string {
	return fmt.Sprintf("%s/api/v1/profiles/%s", s.baseURL, id)
}

// CreateInTx 在调用方的事务内写入通知行和对应的outbox事件行
func (s *NotificationService) CreateInTx(ctx context.Context, tx *gorm.DB, recipientID uuid.UUID, message string, notificationType models.NotificationType, referenceURL string) (*models.Notification, error) {
	notification := &models.Notification{
		ID:           uuid.New(),
		RecipientID:  recipientID,
		Message:      message,
		Type:         notificationType,
		ReferenceURL: referenceURL,
		CreatedAt:    time.Now(),
	}

	if err := s.notificationRepo.WithTx(tx).Create(ctx, notification); err != nil {
		return nil, err
	}

	if err := appendOutbox(ctx, s.outboxRepo, tx, queue.EventNotificationCreated, recipientID.String(), queue.NotificationEventData{
		NotificationID: notification.ID.String(),
		RecipientID:    recipientID.String(),
		Type:           string(notificationType),
	}); err != nil {
		return nil, err
	}

	return notification, nil
}

// Push 提交后的实时推送：先查在线状态，离线跳过，失败只记日志。
// 通知本身已落库，下次拉取仍可读到。
func (s *NotificationService) Push(ctx context.Context, notification *models.Notification) {
	online, err := s.presence.IsOnline(ctx, notification.RecipientID)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to check recipient presence, pushing anyway")
	} else if !online {
		return
	}

	s.pusher.SendToUser(notification.RecipientID, hub.EventNotificationCreate, notification)
}

func (s *NotificationService) List(ctx context.Context, offset, limit int) ([]*models.Notification, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return nil, err
	}

	notifications, err := s.notificationRepo.GetByRecipient(ctx, profile.ID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int64, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return 0, err
	}
	return s.notificationRepo.UnreadCount(ctx, profile.ID)
}

// PushUnreadCount 按需把未读数推给指定用户
func (s *NotificationService) PushUnreadCount(ctx context.Context, profileID uuid.UUID) {
	count, err := s.notificationRepo.UnreadCount(ctx, profileID)
	if err != nil {
		s.logger.WithError(err).Error("Failed to count unread notifications")
		return
	}
	s.pusher.SendToUser(profileID, hub.EventUnreadCount, UnreadCountPayload{Count: count})
}

func (s *NotificationService) MarkRead(ctx context.Context, notificationID uuid.UUID) error {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return err
	}
	return s.notificationRepo.MarkRead(ctx, notificationID, profile.ID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context) error {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return err
	}
	return s.notificationRepo.MarkAllRead(ctx, profile.ID)
}
