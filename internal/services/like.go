package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/pkg/hub"
	"github.com/social-system/social-system/pkg/logger"
	"github.com/social-system/social-system/pkg/queue"
	"gorm.io/gorm"
)

type LikeService struct {
	db            *gorm.DB
	actor         *ActorResolver
	likeRepo      *repository.LikeRepository
	tweetRepo     *repository.TweetRepository
	commentRepo   *repository.CommentRepository
	outboxRepo    *repository.OutboxRepository
	notifications *NotificationService
	pusher        Pusher
	logger        *logger.Logger
}

func NewLikeService(
	db *gorm.DB,
	actor *ActorResolver,
	likeRepo *repository.LikeRepository,
	tweetRepo *repository.TweetRepository,
	commentRepo *repository.CommentRepository,
	outboxRepo *repository.OutboxRepository,
	notifications *NotificationService,
	pusher Pusher,
	logger *logger.Logger,
) *LikeService {
	return &LikeService{
		db:            db,
		actor:         actor,
		likeRepo:      likeRepo,
		tweetRepo:     tweetRepo,
		commentRepo:   commentRepo,
		outboxRepo:    outboxRepo,
		notifications: notifications,
		pusher:        pusher,
		logger:        logger,
	}
}

// resolveTarget 校验目标存在并返回作者ID
func (s *LikeService) resolveTarget(ctx context.Context, target models.LikeTarget) (uuid.UUID, error) {
	switch target.Kind {
	case models.TargetComment:
		comment, err := s.commentRepo.GetByID(ctx, target.ID)
		if err != nil {
			return uuid.Nil, err
		}
		if comment == nil {
			return uuid.Nil, fmt.Errorf("comment %s: %w", target.ID, ErrNotFound)
		}
		return comment.ProfileID, nil
	default:
		tweet, err := s.tweetRepo.GetByID(ctx, target.ID)
		if err != nil {
			return uuid.Nil, err
		}
		if tweet == nil {
			return uuid.Nil, fmt.Errorf("tweet %s: %w", target.ID, ErrNotFound)
		}
		return tweet.ProfileID, nil
	}
}

func (s *LikeService) updateLikeCount(ctx context.Context, tx *gorm.DB, target models.LikeTarget, delta int64) error {
	if target.Kind == models.TargetComment {
		return s.commentRepo.WithTx(tx).UpdateLikeCount(ctx, target.ID, delta)
	}
	return s.tweetRepo.WithTx(tx).UpdateLikeCount(ctx, target.ID, delta)
}

func (s *LikeService) freshLikeTotal(ctx context.Context, target models.LikeTarget) (int64, error) {
	if target.Kind == models.TargetComment {
		comment, err := s.commentRepo.GetByID(ctx, target.ID)
		if err != nil || comment == nil {
			return 0, err
		}
		return comment.TotalLikes, nil
	}
	tweet, err := s.tweetRepo.GetByID(ctx, target.ID)
	if err != nil || tweet == nil {
		return 0, err
	}
	return tweet.TotalLikes, nil
}

// Like 点赞推文或评论。点赞行、计数器、通知行与outbox事件在同一事务内提交，
// 任一步失败则全部回滚，计数器不会偏离点赞行的真实数量。
func (s *LikeService) Like(ctx context.Context, target models.LikeTarget) (*models.Like, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return nil, err
	}

	authorID, err := s.resolveTarget(ctx, target)
	if err != nil {
		return nil, err
	}

	// 重复点赞直接拒绝；并发竞争下漏网的由唯一索引兜底
	existing, err := s.likeRepo.GetByTarget(ctx, profile.ID, target)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("already liked: %w", ErrConflict)
	}

	like := models.NewLike(profile.ID, target)
	var notification *models.Notification

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.updateLikeCount(ctx, tx, target, 1); err != nil {
			return err
		}
		if err := s.likeRepo.WithTx(tx).Create(ctx, like); err != nil {
			return err
		}

		// 自己赞自己不提醒
		if authorID != profile.ID {
			message := fmt.Sprintf("%s liked your %s", profile.Username, target.Kind)
			refURL := s.notifications.TweetRef(target.ID)
			if target.Kind == models.TargetComment {
				refURL = s.notifications.CommentRef(target.ID)
			}
			notification, err = s.notifications.CreateInTx(ctx, tx, authorID, message, models.NotificationLike, refURL)
			if err != nil {
				return err
			}
		}

		return appendOutbox(ctx, s.outboxRepo, tx, queue.EventLikeCreated, profile.ID.String(), queue.LikeEventData{
			ProfileID:  profile.ID.String(),
			TargetKind: string(target.Kind),
			TargetID:   target.ID.String(),
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to like %s: %w", target.Kind, err)
	}

	s.broadcastLikeCounter(ctx, target)
	if notification != nil {
		s.notifications.Push(ctx, notification)
		s.notifications.PushUnreadCount(ctx, authorID)
	}

	s.logger.WithFields(map[string]interface{}{
		"profile_id":  profile.ID,
		"target_kind": target.Kind,
		"target_id":   target.ID,
	}).Info("Target liked successfully")

	return like, nil
}

// Unlike 按目标取消点赞，幂等拒绝未点赞的取消
func (s *LikeService) Unlike(ctx context.Context, target models.LikeTarget) error {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return err
	}

	existing, err := s.likeRepo.GetByTarget(ctx, profile.ID, target)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("not liked: %w", ErrNotFound)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.updateLikeCount(ctx, tx, target, -1); err != nil {
			return err
		}
		affected, err := s.likeRepo.WithTx(tx).Delete(ctx, existing.ID)
		if err != nil {
			return err
		}
		// 并发的另一次取消先提交了，回滚掉本次的计数递减
		if affected == 0 {
			return fmt.Errorf("not liked: %w", ErrNotFound)
		}
		return appendOutbox(ctx, s.outboxRepo, tx, queue.EventLikeDeleted, profile.ID.String(), queue.LikeEventData{
			ProfileID:  profile.ID.String(),
			TargetKind: string(target.Kind),
			TargetID:   target.ID.String(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to unlike %s: %w", target.Kind, err)
	}

	s.broadcastLikeCounter(ctx, target)

	s.logger.WithFields(map[string]interface{}{
		"profile_id":  profile.ID,
		"target_kind": target.Kind,
		"target_id":   target.ID,
	}).Info("Target unliked successfully")

	return nil
}

// broadcastLikeCounter 提交后读取新鲜计数广播给全部在线连接，失败只记日志
func (s *LikeService) broadcastLikeCounter(ctx context.Context, target models.LikeTarget) {
	total, err := s.freshLikeTotal(ctx, target)
	if err != nil {
		s.logger.WithError(err).Error("Failed to read like total for broadcast")
		return
	}
	s.pusher.BroadcastAll(hub.EventLikeCounter, LikeCounterPayload{
		TargetID:   target.ID,
		TotalLikes: total,
	})
}

func (s *LikeService) GetLikers(ctx context.Context, target models.LikeTarget, offset, limit int) ([]*models.Like, error) {
	if _, err := s.resolveTarget(ctx, target); err != nil {
		return nil, err
	}
	return s.likeRepo.GetAllByTarget(ctx, target, offset, limit)
}

func (s *LikeService) IsLiked(ctx context.Context, target models.LikeTarget) (bool, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return false, err
	}
	return s.likeRepo.IsLiked(ctx, profile.ID, target)
}

func (s *LikeService) GetLikeCount(ctx context.Context, target models.LikeTarget) (int64, error) {
	return s.likeRepo.CountByTarget(ctx, target)
}
