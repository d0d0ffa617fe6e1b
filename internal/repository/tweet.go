package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"gorm.io/gorm"
)

type TweetRepository struct {
	db *gorm.DB
}

func NewTweetRepository(db *gorm.DB) *TweetRepository {
	return &TweetRepository{db: db}
}

func (r *TweetRepository) WithTx(tx *gorm.DB) *TweetRepository {
	return &TweetRepository{db: tx}
}

func (r *TweetRepository) Create(ctx context.Context, tweet *models.Tweet) error {
	if err := r.db.WithContext(ctx).Create(tweet).Error; err != nil {
		return fmt.Errorf("failed to create tweet: %w", err)
	}
	return nil
}

func (r *TweetRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Tweet, error) {
	var tweet models.Tweet
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Files").
		First(&tweet, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get tweet: %w", err)
	}
	return &tweet, nil
}

func (r *TweetRepository) GetByProfileID(ctx context.Context, profileID uuid.UUID, offset, limit int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Files").
		Where("profile_id = ?", profileID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&tweets).Error; err != nil {
		return nil, fmt.Errorf("failed to get tweets by profile: %w", err)
	}
	return tweets, nil
}

func (r *TweetRepository) GetAll(ctx context.Context, genreID *uuid.UUID, offset, limit int) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	db := r.db.WithContext(ctx).Preload("Profile").Preload("Files")
	if genreID != nil {
		db = db.Where("genre_id = ?", *genreID)
	}
	if err := db.Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&tweets).Error; err != nil {
		return nil, fmt.Errorf("failed to get tweets: %w", err)
	}
	return tweets, nil
}

// GetChildren 返回以该推文为父的转推
func (r *TweetRepository) GetChildren(ctx context.Context, parentID uuid.UUID) ([]*models.Tweet, error) {
	var tweets []*models.Tweet
	if err := r.db.WithContext(ctx).
		Where("parent_tweet_id = ?", parentID).
		Find(&tweets).Error; err != nil {
		return nil, fmt.Errorf("failed to get child retweets: %w", err)
	}
	return tweets, nil
}

func (r *TweetRepository) Update(ctx context.Context, tweet *models.Tweet) error {
	if err := r.db.WithContext(ctx).Save(tweet).Error; err != nil {
		return fmt.Errorf("failed to update tweet: %w", err)
	}
	return nil
}

// Delete 返回实际删除的行数，供调用方识别并发的重复删除
func (r *TweetRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Tweet{}, "id = ?", id)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete tweet: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ClearParent 将子转推的父指针置空，使其降级为独立推文
func (r *TweetRepository) ClearParent(ctx context.Context, parentID uuid.UUID) error {
	if err := r.db.WithContext(ctx).Model(&models.Tweet{}).
		Where("parent_tweet_id = ?", parentID).
		Update("parent_tweet_id", nil).Error; err != nil {
		return fmt.Errorf("failed to clear retweet parent: %w", err)
	}
	return nil
}

func (r *TweetRepository) UpdateLikeCount(ctx context.Context, tweetID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Tweet{}).
		Where("id = ?", tweetID).
		UpdateColumn("total_likes", gorm.Expr("total_likes + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update like count: %w", err)
	}
	return nil
}

func (r *TweetRepository) UpdateRetweetCount(ctx context.Context, tweetID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Tweet{}).
		Where("id = ?", tweetID).
		UpdateColumn("total_retweets", gorm.Expr("total_retweets + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update retweet count: %w", err)
	}
	return nil
}

func (r *TweetRepository) UpdateCommentCount(ctx context.Context, tweetID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Tweet{}).
		Where("id = ?", tweetID).
		UpdateColumn("total_comments", gorm.Expr("total_comments + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update comment count: %w", err)
	}
	return nil
}

// RetweetedSet 批量查询观察者在给定推文集合上的转推状态，避免逐行探查
func (r *TweetRepository) RetweetedSet(ctx context.Context, profileID uuid.UUID, tweetIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	result := make(map[uuid.UUID]bool)
	if len(tweetIDs) == 0 {
		return result, nil
	}
	var parents []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Tweet{}).
		Where("profile_id = ? AND parent_tweet_id IN ?", profileID, tweetIDs).
		Pluck("parent_tweet_id", &parents).Error; err != nil {
		return nil, fmt.Errorf("failed to get retweeted set: %w", err)
	}
	for _, id := range parents {
		result[id] = true
	}
	return result, nil
}

func (r *TweetRepository) CreateFiles(ctx context.Context, files []models.TweetFile) error {
	if len(files) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&files).Error; err != nil {
		return fmt.Errorf("failed to create tweet files: %w", err)
	}
	return nil
}

func (r *TweetRepository) GetFiles(ctx context.Context, tweetID uuid.UUID) ([]models.TweetFile, error) {
	var files []models.TweetFile
	if err := r.db.WithContext(ctx).
		Where("tweet_id = ?", tweetID).
		Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to get tweet files: %w", err)
	}
	return files, nil
}

func (r *TweetRepository) DeleteFiles(ctx context.Context, tweetID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Delete(&models.TweetFile{}, "tweet_id = ?", tweetID).Error; err != nil {
		return fmt.Errorf("failed to delete tweet files: %w", err)
	}
	return nil
}

func (r *TweetRepository) CountLikes(ctx context.Context, tweetID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("tweet_id = ?", tweetID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count tweet likes: %w", err)
	}
	return count, nil
}
