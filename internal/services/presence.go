package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/social-system/social-system/pkg/logger"
)

// PresenceStore 在线状态所需的redis操作子集
type PresenceStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Decr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	Exists(ctx context.Context, keys ...string) (int64, error)
	Delete(ctx context.Context, keys ...string) error
}

// PresenceService 用redis共享计数键跟踪在线会话数。每条websocket连接
// 上线加一个引用、断开减一个，引用归零或TTL过期才算离线，
// 多实例部署下任一实例断开连接都不会误清其他实例持有的在线状态。
type PresenceService struct {
	store  PresenceStore
	ttl    time.Duration
	logger *logger.Logger
}

func NewPresenceService(store PresenceStore, ttl time.Duration, logger *logger.Logger) *PresenceService {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &PresenceService{
		store:  store,
		ttl:    ttl,
		logger: logger,
	}
}

func presenceKey(profileID uuid.UUID) string {
	return fmt.Sprintf("presence:online:%s", profileID)
}

// Connect 新会话上线，引用数加一并续期
func (s *PresenceService) Connect(ctx context.Context, profileID uuid.UUID) error {
	key := presenceKey(profileID)
	if _, err := s.store.Incr(ctx, key); err != nil {
		return fmt.Errorf("failed to mark presence: %w", err)
	}
	if err := s.store.Expire(ctx, key, s.ttl); err != nil {
		return fmt.Errorf("failed to set presence ttl: %w", err)
	}
	return nil
}

// Heartbeat 连接活跃时续期。键已因TTL过期时是空操作，
// 用户要到下一次Connect才重新可见。
func (s *PresenceService) Heartbeat(ctx context.Context, profileID uuid.UUID) error {
	if err := s.store.Expire(ctx, presenceKey(profileID), s.ttl); err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}
	return nil
}

// Disconnect 会话断开，引用归零才清除在线键。
// 其他实例上还有存活连接时键保持存在。
func (s *PresenceService) Disconnect(ctx context.Context, profileID uuid.UUID) error {
	key := presenceKey(profileID)
	n, err := s.store.Decr(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to release presence: %w", err)
	}
	if n <= 0 {
		if err := s.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to clear presence: %w", err)
		}
	}
	return nil
}

func (s *PresenceService) IsOnline(ctx context.Context, profileID uuid.UUID) (bool, error) {
	n, err := s.store.Exists(ctx, presenceKey(profileID))
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}
	return n > 0, nil
}
