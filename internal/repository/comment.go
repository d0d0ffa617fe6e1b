package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"gorm.io/gorm"
)

type CommentRepository struct {
	db *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

func (r *CommentRepository) WithTx(tx *gorm.DB) *CommentRepository {
	return &CommentRepository{db: tx}
}

func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *CommentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Files").
		First(&comment, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &comment, nil
}

// GetByTweetID 只返回直接评论，楼中楼回复经 GetReplies 拉取
func (r *CommentRepository) GetByTweetID(ctx context.Context, tweetID uuid.UUID, offset, limit int) ([]*models.Comment, error) {
	var comments []*models.Comment
	if err := r.db.WithContext(ctx).
		Preload("Profile").
		Preload("Files").
		Where("tweet_id = ? AND parent_comment_id IS NULL", tweetID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&comments).Error; err != nil {
		return nil, fmt.Errorf("failed to get comments by tweet: %w", err)
	}
	return comments, nil
}

func (r *CommentRepository) GetReplies(ctx context.Context, parentID uuid.UUID) ([]*models.Comment, error) {
	var replies []*models.Comment
	if err := r.db.WithContext(ctx).
		Where("parent_comment_id = ?", parentID).
		Order("created_at").
		Find(&replies).Error; err != nil {
		return nil, fmt.Errorf("failed to get replies: %w", err)
	}
	return replies, nil
}

func (r *CommentRepository) GetIDsByTweetID(ctx context.Context, tweetID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("tweet_id = ?", tweetID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get comment ids by tweet: %w", err)
	}
	return ids, nil
}

func (r *CommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if err := r.db.WithContext(ctx).Save(comment).Error; err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

// Delete 返回实际删除的行数，供调用方识别并发的重复删除
func (r *CommentRepository) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Comment{}, "id = ?", id)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete comment: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func (r *CommentRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.Comment{}, "id IN ?", ids).Error; err != nil {
		return fmt.Errorf("failed to delete comments: %w", err)
	}
	return nil
}

func (r *CommentRepository) UpdateLikeCount(ctx context.Context, commentID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", commentID).
		UpdateColumn("total_likes", gorm.Expr("total_likes + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update like count: %w", err)
	}
	return nil
}

func (r *CommentRepository) UpdateReplyCount(ctx context.Context, commentID uuid.UUID, delta int64) error {
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("id = ?", commentID).
		UpdateColumn("total_replies", gorm.Expr("total_replies + ?", delta)).Error; err != nil {
		return fmt.Errorf("failed to update reply count: %w", err)
	}
	return nil
}

func (r *CommentRepository) CreateFiles(ctx context.Context, files []models.CommentFile) error {
	if len(files) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&files).Error; err != nil {
		return fmt.Errorf("failed to create comment files: %w", err)
	}
	return nil
}

func (r *CommentRepository) GetFilesByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) ([]models.CommentFile, error) {
	var files []models.CommentFile
	if len(commentIDs) == 0 {
		return files, nil
	}
	if err := r.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Find(&files).Error; err != nil {
		return nil, fmt.Errorf("failed to get comment files: %w", err)
	}
	return files, nil
}

func (r *CommentRepository) DeleteFilesByCommentIDs(ctx context.Context, commentIDs []uuid.UUID) error {
	if len(commentIDs) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Delete(&models.CommentFile{}, "comment_id IN ?", commentIDs).Error; err != nil {
		return fmt.Errorf("failed to delete comment files: %w", err)
	}
	return nil
}

func (r *CommentRepository) CountByTweetID(ctx context.Context, tweetID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Comment{}).
		Where("tweet_id = ?", tweetID).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return count, nil
}
