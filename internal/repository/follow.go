package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"gorm.io/gorm"
)

type FollowRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

func (r *FollowRepository) WithTx(tx *gorm.DB) *FollowRepository {
	return &FollowRepository{db: tx}
}

func (r *FollowRepository) Create(ctx context.Context, follow *models.Follow) error {
	if err := r.db.WithContext(ctx).Create(follow).Error; err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

// Delete 返回实际删除的行数，供调用方识别并发的重复取消
func (r *FollowRepository) Delete(ctx context.Context, followerID, followedID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete follow: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *FollowRepository) Get(ctx context.Context, followerID, followedID uuid.UUID) (*models.Follow, error) {
	var follow models.Follow
	if err := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		First(&follow).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get follow: %w", err)
	}
	return &follow, nil
}

func (r *FollowRepository) GetFollowers(ctx context.Context, profileID uuid.UUID, offset, limit int) ([]*models.Profile, error) {
	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).
		Table("profiles").
		Joins("JOIN follows ON follows.follower_id = profiles.id").
		Where("follows.followed_id = ?", profileID).
		Order("follows.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to get followers: %w", err)
	}
	return profiles, nil
}

func (r *FollowRepository) GetFollowing(ctx context.Context, profileID uuid.UUID, offset, limit int) ([]*models.Profile, error) {
	var profiles []*models.Profile
	if err := r.db.WithContext(ctx).
		Table("profiles").
		Joins("JOIN follows ON follows.followed_id = profiles.id").
		Where("follows.follower_id = ?", profileID).
		Order("follows.created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to get following: %w", err)
	}
	return profiles, nil
}

// FollowingSet 批量查询观察者已关注的资料集合，给列表做逐页标注
func (r *FollowRepository) FollowingSet(ctx context.Context, viewerID uuid.UUID, profileIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool)
	if len(profileIDs) == 0 {
		return result, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id IN ?", viewerID, profileIDs).
		Pluck("followed_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get following set: %w", err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *FollowRepository) CountFollowers(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("followed_id = ?", profileID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count followers: %w", err)
	}
	return count, nil
}

func (r *FollowRepository) CountFollowing(ctx context.Context, profileID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", profileID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count following: %w", err)
	}
	return count, nil
}

func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followedID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check follow status: %w", err)
	}
	return count > 0, nil
}
