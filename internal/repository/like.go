package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"gorm.io/gorm"
)

type LikeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) *LikeRepository {
	return &LikeRepository{db: db}
}

func (r *LikeRepository) WithTx(tx *gorm.DB) *LikeRepository {
	return &LikeRepository{db: tx}
}

func (r *LikeRepository) Create(ctx context.Context, like *models.Like) error {
	if err := r.db.WithContext(ctx).Create(like).Error; err != nil {
		return fmt.Errorf("failed to create like: %w", err)
	}
	return nil
}

func (r *LikeRepository) targetScope(target models.LikeTarget) (string, uuid.UUID) {
	if target.Kind == models.TargetComment {
		return "comment_id = ?", target.ID
	}
	return "tweet_id = ?", target.ID
}

func (r *LikeRepository) GetByTarget(ctx context.Context, profileID uuid.UUID, target models.LikeTarget) (*models.Like, error) {
	cond, id := r.targetScope(target)
	var like models.Like
	if err := r.db.WithContext(ctx).
		Where("profile_id = ?", profileID).
		Where(cond, id).
		First(&like).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get like: %w", err)
	}
	return &like, nil
}

// Delete 返回实际删除的行数，供调用方识别并发的重复取消
func (r *LikeRepository) Delete(ctx context.Context, likeID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Like{}, "id = ?", likeID)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete like: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *LikeRepository) GetAllByTarget(ctx context.Context, target models.LikeTarget, offset, limit int) ([]*models.Like, error) {
	cond, id := r.targetScope(target)
	var likes []*models.Like
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Where(cond, id).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&likes).Error; err != nil {
		return nil, fmt.Errorf("failed to get likes by target: %w", err)
	}
	return likes, nil
}

func (r *LikeRepository) IsLiked(ctx context.Context, profileID uuid.UUID, target models.LikeTarget) (bool, error) {
	cond, id := r.targetScope(target)
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("profile_id = ?", profileID).
		Where(cond, id).
		Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check like status: %w", err)
	}
	return count > 0, nil
}

// LikedTweetSet 批量查询观察者点赞过的推文集合
func (r *LikeRepository) LikedTweetSet(ctx context.Context, profileID uuid.UUID, tweetIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool)
	if len(tweetIDs) == 0 {
		return result, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("profile_id = ? AND tweet_id IN ?", profileID, tweetIDs).
		Pluck("tweet_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get liked tweet set: %w", err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

// LikedCommentSet 批量查询观察者点赞过的评论集合
func (r *LikeRepository) LikedCommentSet(ctx context.Context, profileID uuid.UUID, commentIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool)
	if len(commentIDs) == 0 {
		return result, nil
	}
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("profile_id = ? AND comment_id IN ?", profileID, commentIDs).
		Pluck("comment_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get liked comment set: %w", err)
	}
	for _, id := range ids {
		result[id] = true
	}
	return result, nil
}

func (r *LikeRepository) DeleteByTweetIDs(ctx context.Context, tweetIDs []uuid.UUID) error {
	if len(tweetIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.Like{}, "tweet_id IN ?", tweetIDs).Error; err != nil {
		return fmt.Errorf("failed to delete likes by tweets: %w", err)
	}
	return nil
}

func (r *LikeRepository) DeleteByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.Like{}, "comment_id IN ?", commentIDs).Error; err != nil {
		return fmt.Errorf("failed to delete likes by comments: %w", err)
	}
	return nil
}

func (r *LikeRepository) CountByTarget(ctx context.Context, target models.LikeTarget) (int64, error) {
	cond, id := r.targetScope(target)
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where(cond, id).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return count, nil
}
