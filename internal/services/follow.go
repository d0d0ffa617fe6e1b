package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/pkg/hub"
	"github.com/social-system/social-system/pkg/logger"
	"github.com/social-system/social-system/pkg/queue"
	"gorm.io/gorm"
)

type FollowService struct {
	db            *gorm.DB
	actor         *ActorResolver
	followRepo    *repository.FollowRepository
	profileRepo   *repository.ProfileRepository
	outboxRepo    *repository.OutboxRepository
	notifications *NotificationService
	pusher        Pusher
	logger        *logger.Logger
}

func NewFollowService(
	db *gorm.DB,
	actor *ActorResolver,
	followRepo *repository.FollowRepository,
	profileRepo *repository.ProfileRepository,
	outboxRepo *repository.OutboxRepository,
	notifications *NotificationService,
	pusher Pusher,
	logger *logger.Logger,
) *FollowService {
	return &FollowService{
		db:            db,
		actor:         actor,
		followRepo:    followRepo,
		profileRepo:   profileRepo,
		outboxRepo:    outboxRepo,
		notifications: notifications,
		pusher:        pusher,
		logger:        logger,
	}
}

// ProfileView 带观察者关注标注的资料
type ProfileView struct {
	*models.Profile
	IsFollowing bool `json:"is_following"`
}

// Follow 建立关注边。边、双方计数器、通知与outbox事件同事务提交，
// 并发重复由唯一索引兜底。
func (s *FollowService) Follow(ctx context.Context, followedID uuid.UUID) error {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return err
	}

	if followedID == profile.ID {
		return fmt.Errorf("cannot follow yourself: %w", ErrConflict)
	}

	followed, err := s.profileRepo.GetByID(ctx, followedID)
	if err != nil {
		return err
	}
	if followed == nil {
		return fmt.Errorf("profile %s: %w", followedID, ErrNotFound)
	}

	existing, err := s.followRepo.Get(ctx, profile.ID, followedID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("already following: %w", ErrConflict)
	}

	follow := &models.Follow{
		ID:         uuid.New(),
		FollowerID: profile.ID,
		FollowedID: followedID,
		CreatedAt:  time.Now(),
	}

	var notification *models.Notification

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.followRepo.WithTx(tx).Create(ctx, follow); err != nil {
			return err
		}
		if err := s.profileRepo.WithTx(tx).UpdateFollowingCount(ctx, profile.ID, 1); err != nil {
			return err
		}
		if err := s.profileRepo.WithTx(tx).UpdateFollowersCount(ctx, followedID, 1); err != nil {
			return err
		}

		message := fmt.Sprintf("%s started following you", profile.Username)
		notification, err = s.notifications.CreateInTx(ctx, tx, followedID, message, models.NotificationFollow, s.notifications.ProfileRef(profile.ID))
		if err != nil {
			return err
		}

		return appendOutbox(ctx, s.outboxRepo, tx, queue.EventFollowCreated, profile.ID.String(), queue.FollowEventData{
			FollowerID: profile.ID.String(),
			FollowedID: followedID.String(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to follow profile: %w", err)
	}

	s.broadcastFollowCounter(ctx, profile.ID)
	s.broadcastFollowCounter(ctx, followedID)
	s.notifications.Push(ctx, notification)
	s.notifications.PushUnreadCount(ctx, followedID)

	s.logger.WithFields(map[string]interface{}{
		"follower_id": profile.ID,
		"followed_id": followedID,
	}).Info("Profile followed successfully")

	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, followedID uuid.UUID) error {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return err
	}

	existing, err := s.followRepo.Get(ctx, profile.ID, followedID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("not following: %w", ErrNotFound)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		affected, err := s.followRepo.WithTx(tx).Delete(ctx, profile.ID, followedID)
		if err != nil {
			return err
		}
		// 并发的另一次取关先提交了，计数不再递减
		if affected == 0 {
			return fmt.Errorf("not following: %w", ErrNotFound)
		}
		if err := s.profileRepo.WithTx(tx).UpdateFollowingCount(ctx, profile.ID, -1); err != nil {
			return err
		}
		if err := s.profileRepo.WithTx(tx).UpdateFollowersCount(ctx, followedID, -1); err != nil {
			return err
		}
		return appendOutbox(ctx, s.outboxRepo, tx, queue.EventFollowDeleted, profile.ID.String(), queue.FollowEventData{
			FollowerID: profile.ID.String(),
			FollowedID: followedID.String(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to unfollow profile: %w", err)
	}

	s.broadcastFollowCounter(ctx, profile.ID)
	s.broadcastFollowCounter(ctx, followedID)

	s.logger.WithFields(map[string]interface{}{
		"follower_id": profile.ID,
		"followed_id": followedID,
	}).Info("Profile unfollowed successfully")

	return nil
}

// broadcastFollowCounter 提交后广播该资料的新鲜关注计数
func (s *FollowService) broadcastFollowCounter(ctx context.Context, profileID uuid.UUID) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil || profile == nil {
		if err != nil {
			s.logger.WithError(err).Error("Failed to read follow totals for broadcast")
		}
		return
	}
	s.pusher.BroadcastAll(hub.EventFollowCounter, FollowCounterPayload{
		ProfileID:      profile.ID,
		TotalFollowing: profile.TotalFollowing,
		TotalFollowers: profile.TotalFollowers,
	})
}

func (s *FollowService) GetFollowers(ctx context.Context, profileID uuid.UUID, offset, limit int) ([]*ProfileView, error) {
	profiles, err := s.followRepo.GetFollowers(ctx, profileID, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, profiles)
}

func (s *FollowService) GetFollowing(ctx context.Context, profileID uuid.UUID, offset, limit int) ([]*ProfileView, error) {
	profiles, err := s.followRepo.GetFollowing(ctx, profileID, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, profiles)
}

func (s *FollowService) IsFollowing(ctx context.Context, followedID uuid.UUID) (bool, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return false, err
	}
	return s.followRepo.IsFollowing(ctx, profile.ID, followedID)
}

// annotate 一次IN查询批量标注观察者对整页资料的关注状态
func (s *FollowService) annotate(ctx context.Context, profiles []*models.Profile) ([]*ProfileView, error) {
	views := make([]*ProfileView, 0, len(profiles))

	viewer, err := s.actor.CurrentProfileIfAny(ctx)
	if err != nil {
		return nil, err
	}

	following := map[uuid.UUID]bool{}
	if viewer != nil && len(profiles) > 0 {
		ids := make([]uuid.UUID, 0, len(profiles))
		for _, p := range profiles {
			ids = append(ids, p.ID)
		}
		following, err = s.followRepo.FollowingSet(ctx, viewer.ID, ids)
		if err != nil {
			return nil, err
		}
	}

	for _, p := range profiles {
		views = append(views, &ProfileView{Profile: p, IsFollowing: following[p.ID]})
	}
	return views, nil
}
