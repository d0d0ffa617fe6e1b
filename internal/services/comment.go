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

type CommentService struct {
	db            *gorm.DB
	actor         *ActorResolver
	tweetRepo     *repository.TweetRepository
	commentRepo   *repository.CommentRepository
	likeRepo      *repository.LikeRepository
	outboxRepo    *repository.OutboxRepository
	notifications *NotificationService
	pusher        Pusher
	files         Files
	logger        *logger.Logger
}

func NewCommentService(
	db *gorm.DB,
	actor *ActorResolver,
	tweetRepo *repository.TweetRepository,
	commentRepo *repository.CommentRepository,
	likeRepo *repository.LikeRepository,
	outboxRepo *repository.OutboxRepository,
	notifications *NotificationService,
	pusher Pusher,
	files Files,
	logger *logger.Logger,
) *CommentService {
	return &CommentService{
		db:            db,
		actor:         actor,
		tweetRepo:     tweetRepo,
		commentRepo:   commentRepo,
		likeRepo:      likeRepo,
		outboxRepo:    outboxRepo,
		notifications: notifications,
		pusher:        pusher,
		files:         files,
		logger:        logger,
	}
}

type CreateCommentRequest struct {
	Content         string  `json:"content" binding:"required,min=1,max=500"`
	ParentCommentID *string `json:"parent_comment_id"`
	// 附件在进入事务前已落盘，这里只携带URL
	FileURLs []string `json:"file_urls"`
}

// CommentView 带观察者标注的评论
type CommentView struct {
	*models.Comment
	IsLiked bool `json:"is_liked"`
}

// CreateComment 发表评论或楼中楼回复。
// 回复只推进父评论的回复数，推文级评论数只统计直接评论；
// 评论行、计数器、通知与outbox事件同事务提交。
func (s *CommentService) CreateComment(ctx context.Context, tweetID uuid.UUID, req *CreateCommentRequest) (*models.Comment, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return nil, err
	}

	tweet, err := s.tweetRepo.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if tweet == nil {
		return nil, fmt.Errorf("tweet %s: %w", tweetID, ErrNotFound)
	}

	var parent *models.Comment
	var parentUUID *uuid.UUID
	if req.ParentCommentID != nil {
		parentID, err := uuid.Parse(*req.ParentCommentID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent comment ID: %w", err)
		}

		parent, err = s.commentRepo.GetByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent comment %s: %w", parentID, ErrNotFound)
		}
		if parent.TweetID != tweetID {
			return nil, fmt.Errorf("parent comment belongs to another tweet: %w", ErrConflict)
		}
		parentUUID = &parentID
	}

	now := time.Now()
	comment := &models.Comment{
		ID:              uuid.New(),
		TweetID:         tweetID,
		ProfileID:       profile.ID,
		Content:         req.Content,
		ParentCommentID: parentUUID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	files := make([]models.CommentFile, 0, len(req.FileURLs))
	for _, url := range req.FileURLs {
		files = append(files, models.CommentFile{
			ID:        uuid.New(),
			CommentID: comment.ID,
			URL:       url,
			CreatedAt: now,
		})
	}

	var notification *models.Notification
	var recipientID uuid.UUID

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commentRepo.WithTx(tx).Create(ctx, comment); err != nil {
			return err
		}
		if err := s.commentRepo.WithTx(tx).CreateFiles(ctx, files); err != nil {
			return err
		}

		if parent != nil {
			if err := s.commentRepo.WithTx(tx).UpdateReplyCount(ctx, parent.ID, 1); err != nil {
				return err
			}
			recipientID = parent.ProfileID
		} else {
			if err := s.tweetRepo.WithTx(tx).UpdateCommentCount(ctx, tweetID, 1); err != nil {
				return err
			}
			recipientID = tweet.ProfileID
		}

		if recipientID != profile.ID {
			message := fmt.Sprintf("%s commented on your tweet", profile.Username)
			if parent != nil {
				message = fmt.Sprintf("%s replied to your comment", profile.Username)
			}
			notification, err = s.notifications.CreateInTx(ctx, tx, recipientID, message, models.NotificationComment, s.notifications.TweetRef(tweetID))
			if err != nil {
				return err
			}
		}

		eventData := queue.CommentEventData{
			CommentID: comment.ID.String(),
			ProfileID: profile.ID.String(),
			TweetID:   tweetID.String(),
		}
		if parentUUID != nil {
			eventData.ParentCommentID = parentUUID.String()
		}
		return appendOutbox(ctx, s.outboxRepo, tx, queue.EventCommentCreated, profile.ID.String(), eventData)
	})
	if err != nil {
		// 事务没提交，已落盘的附件成了孤儿，尽力清掉
		s.cleanupBlobs(req.FileURLs)
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	comment.Profile = *profile
	comment.Files = files

	s.pusher.BroadcastAll(hub.EventCommentCreated, comment)
	s.broadcastCommentCounter(ctx, tweetID, parentUUID)
	if notification != nil {
		s.notifications.Push(ctx, notification)
		s.notifications.PushUnreadCount(ctx, recipientID)
	}

	s.logger.WithFields(map[string]interface{}{
		"comment_id": comment.ID,
		"profile_id": profile.ID,
		"tweet_id":   tweetID,
	}).Info("Comment created successfully")

	return comment, nil
}

type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required,min=1,max=500"`
	// 非nil时整组替换附件（空切片表示清空）
	FileURLs *[]string `json:"file_urls"`
}

func (s *CommentService) UpdateComment(ctx context.Context, commentID uuid.UUID, req *UpdateCommentRequest) (*models.Comment, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return nil, err
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if comment.ProfileID != profile.ID {
		return nil, fmt.Errorf("not the comment author: %w", ErrUnauthorized)
	}

	now := time.Now()
	comment.Content = req.Content
	comment.IsUpdated = true
	comment.UpdatedAt = now

	if req.FileURLs == nil {
		if err := s.commentRepo.Update(ctx, comment); err != nil {
			return nil, err
		}
		return comment, nil
	}

	oldURLs := make([]string, 0, len(comment.Files))
	for _, f := range comment.Files {
		oldURLs = append(oldURLs, f.URL)
	}

	newFiles := make([]models.CommentFile, 0, len(*req.FileURLs))
	for _, url := range *req.FileURLs {
		newFiles = append(newFiles, models.CommentFile{
			ID:        uuid.New(),
			CommentID: comment.ID,
			URL:       url,
			CreatedAt: now,
		})
	}

	// Save会把预载的附件行原样回写，先摘掉再替换
	comment.Files = nil
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.commentRepo.WithTx(tx).DeleteFilesByCommentIDs(ctx, []uuid.UUID{comment.ID}); err != nil {
			return err
		}
		if err := s.commentRepo.WithTx(tx).CreateFiles(ctx, newFiles); err != nil {
			return err
		}
		return s.commentRepo.WithTx(tx).Update(ctx, comment)
	})
	if err != nil {
		s.cleanupBlobs(*req.FileURLs)
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	s.cleanupBlobs(oldURLs)
	comment.Files = newFiles
	return comment, nil
}

// DeleteComment 删除评论及其全部楼中楼回复、点赞和附件。
// 直接评论递减推文评论数，回复递减父评论回复数。
func (s *CommentService) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return err
	}

	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment == nil {
		return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	if comment.ProfileID != profile.ID {
		return fmt.Errorf("not the comment author: %w", ErrUnauthorized)
	}

	ids, err := s.collectThread(ctx, commentID)
	if err != nil {
		return err
	}

	orphanFiles, err := s.commentRepo.GetFilesByCommentIDs(ctx, ids)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		// 先删根评论并确认删到了行；并发的另一次删除先提交时整体回滚，
		// 计数不会被递减两次
		affected, err := s.commentRepo.WithTx(tx).Delete(ctx, commentID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
		}
		if err := s.likeRepo.WithTx(tx).DeleteByCommentIDs(ctx, ids); err != nil {
			return err
		}
		if err := s.commentRepo.WithTx(tx).DeleteFilesByCommentIDs(ctx, ids); err != nil {
			return err
		}
		if err := s.commentRepo.WithTx(tx).DeleteByIDs(ctx, ids[1:]); err != nil {
			return err
		}

		if comment.ParentCommentID != nil {
			if err := s.commentRepo.WithTx(tx).UpdateReplyCount(ctx, *comment.ParentCommentID, -1); err != nil {
				return err
			}
		} else {
			if err := s.tweetRepo.WithTx(tx).UpdateCommentCount(ctx, comment.TweetID, -1); err != nil {
				return err
			}
		}

		eventData := queue.CommentEventData{
			CommentID: commentID.String(),
			ProfileID: profile.ID.String(),
			TweetID:   comment.TweetID.String(),
		}
		if comment.ParentCommentID != nil {
			eventData.ParentCommentID = comment.ParentCommentID.String()
		}
		return appendOutbox(ctx, s.outboxRepo, tx, queue.EventCommentDeleted, profile.ID.String(), eventData)
	})
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	// 行已删掉，blob清理尽力而为
	urls := make([]string, 0, len(orphanFiles))
	for _, f := range orphanFiles {
		urls = append(urls, f.URL)
	}
	s.cleanupBlobs(urls)

	s.broadcastCommentCounter(ctx, comment.TweetID, comment.ParentCommentID)

	s.logger.WithFields(map[string]interface{}{
		"comment_id": commentID,
		"profile_id": profile.ID,
		"deleted":    len(ids),
	}).Info("Comment deleted successfully")

	return nil
}

// collectThread 广度优先收集评论及其全部后代ID
func (s *CommentService) collectThread(ctx context.Context, rootID uuid.UUID) ([]uuid.UUID, error) {
	ids := []uuid.UUID{rootID}
	frontier := []uuid.UUID{rootID}
	for len(frontier) > 0 {
		var next []uuid.UUID
		for _, id := range frontier {
			replies, err := s.commentRepo.GetReplies(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, reply := range replies {
				ids = append(ids, reply.ID)
				next = append(next, reply.ID)
			}
		}
		frontier = next
	}
	return ids, nil
}

func (s *CommentService) cleanupBlobs(urls []string) {
	for _, url := range urls {
		if err := s.files.Delete(url); err != nil {
			s.logger.WithError(err).WithField("url", url).Warn("Failed to delete attachment blob")
		}
	}
}

// broadcastCommentCounter 直接评论广播推文评论数，回复广播父评论回复数
func (s *CommentService) broadcastCommentCounter(ctx context.Context, tweetID uuid.UUID, parentCommentID *uuid.UUID) {
	if parentCommentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *parentCommentID)
		if err != nil || parent == nil {
			if err != nil {
				s.logger.WithError(err).Error("Failed to read reply total for broadcast")
			}
			return
		}
		s.pusher.BroadcastAll(hub.EventCommentCounter, CommentCounterPayload{
			TargetID:      parent.ID,
			TotalComments: parent.TotalReplies,
		})
		return
	}

	tweet, err := s.tweetRepo.GetByID(ctx, tweetID)
	if err != nil || tweet == nil {
		if err != nil {
			s.logger.WithError(err).Error("Failed to read comment total for broadcast")
		}
		return
	}
	s.pusher.BroadcastAll(hub.EventCommentCounter, CommentCounterPayload{
		TargetID:      tweet.ID,
		TotalComments: tweet.TotalComments,
	})
}

func (s *CommentService) GetCommentByID(ctx context.Context, commentID uuid.UUID) (*CommentView, error) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, ErrNotFound)
	}
	views, err := s.annotate(ctx, []*models.Comment{comment})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// GetTweetComments 分页返回推文的直接评论，附带观察者点赞标注
func (s *CommentService) GetTweetComments(ctx context.Context, tweetID uuid.UUID, offset, limit int) ([]*CommentView, error) {
	comments, err := s.commentRepo.GetByTweetID(ctx, tweetID, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, comments)
}

func (s *CommentService) GetReplies(ctx context.Context, parentID uuid.UUID) ([]*CommentView, error) {
	parent, err := s.commentRepo.GetByID(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if parent == nil {
		return nil, fmt.Errorf("comment %s: %w", parentID, ErrNotFound)
	}

	replies, err := s.commentRepo.GetReplies(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, replies)
}

// annotate 一次IN查询批量标注整页，不逐行探查
func (s *CommentService) annotate(ctx context.Context, comments []*models.Comment) ([]*CommentView, error) {
	views := make([]*CommentView, 0, len(comments))

	viewer, err := s.actor.CurrentProfileIfAny(ctx)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	if viewer != nil && len(comments) > 0 {
		ids := make([]uuid.UUID, 0, len(comments))
		for _, c := range comments {
			ids = append(ids, c.ID)
		}
		liked, err = s.likeRepo.LikedCommentSet(ctx, viewer.ID, ids)
		if err != nil {
			return nil, err
		}
	}

	for _, c := range comments {
		views = append(views, &CommentView{Comment: c, IsLiked: liked[c.ID]})
	}
	return views, nil
}
