package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"gorm.io/gorm"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// WithTx 返回绑定到事务的仓库副本
func (r *ProfileRepository) WithTx(tx *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: tx}
}

func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) GetByUsername(ctx context.Context, username string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "username = ?", username).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by username: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	var profile models.Profile
	if err := r.db.WithContext(ctx).First(&profile, "email = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get profile by email: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Profile, error) {
	var profiles []*models.Profile
	if len(ids) == 0 {
		return profiles, nil
	}
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("failed to get profiles by ids: %w", err)
	}
	return profiles, nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	if err := r.db.WithContext(ctx).Save(profile).Error; err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) UpdateFollowingCount(ctx context.Context, profileID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profileID).
		UpdateColumn("total_following", gorm.Expr("total_following + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update following count: %w", err)
	}
	return nil
}

func (r *ProfileRepository) UpdateFollowersCount(ctx context.Context, profileID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profileID).
		UpdateColumn("total_followers", gorm.Expr("total_followers + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update followers count: %w", err)
	}
	return nil
}

func (r *ProfileRepository) UpdateTweetCount(ctx context.Context, profileID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Profile{}).
		Where("id = ?", profileID).
		UpdateColumn("total_tweets", gorm.Expr("total_tweets + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update tweet count: %w", err)
	}
	return nil
}
