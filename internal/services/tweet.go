package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/pkg/logger"
	"github.com/social-system/social-system/pkg/queue"
	"gorm.io/gorm"
)

type TweetService struct {
	db          *gorm.DB
	actor       *ActorResolver
	tweetRepo   *repository.TweetRepository
	commentRepo *repository.CommentRepository
	likeRepo    *repository.LikeRepository
	profileRepo *repository.ProfileRepository
	genreRepo   *repository.GenreRepository
	outboxRepo  *repository.OutboxRepository
	files       Files
	logger      *logger.Logger
}

func NewTweetService(
	db *gorm.DB,
	actor *ActorResolver,
	tweetRepo *repository.TweetRepository,
	commentRepo *repository.CommentRepository,
	likeRepo *repository.LikeRepository,
	profileRepo *repository.ProfileRepository,
	genreRepo *repository.GenreRepository,
	outboxRepo *repository.OutboxRepository,
	files Files,
	logger *logger.Logger,
) *TweetService {
	return &TweetService{
		db:          db,
		actor:       actor,
		tweetRepo:   tweetRepo,
		commentRepo: commentRepo,
		likeRepo:    likeRepo,
		profileRepo: profileRepo,
		genreRepo:   genreRepo,
		outboxRepo:  outboxRepo,
		files:       files,
		logger:      logger,
	}
}

type CreateTweetRequest struct {
	Content       string   `json:"content" binding:"required,min=1,max=280"`
	GenreID       *string  `json:"genre_id"`
	ParentTweetID *string  `json:"parent_tweet_id"`
	FileURLs      []string `json:"file_urls"`
}

// TweetView 带观察者标注的推文
type TweetView struct {
	*models.Tweet
	IsLiked     bool `json:"is_liked"`
	IsRetweeted bool `json:"is_retweeted"`
}

// CreateTweet 发布推文或转推。转推携带父推文指针并推进父推文的转推数；
// 推文行、作者推文数、父计数与outbox事件同事务提交。
func (s *TweetService) CreateTweet(ctx context.Context, req *CreateTweetRequest) (*models.Tweet, error) {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return nil, err
	}

	var genreUUID *uuid.UUID
	if req.GenreID != nil {
		genreID, err := uuid.Parse(*req.GenreID)
		if err != nil {
			return nil, fmt.Errorf("invalid genre ID: %w", err)
		}
		genre, err := s.genreRepo.GetByID(ctx, genreID)
		if err != nil {
			return nil, err
		}
		if genre == nil {
			return nil, fmt.Errorf("genre %s: %w", genreID, ErrNotFound)
		}
		genreUUID = &genreID
	}

	var parentUUID *uuid.UUID
	if req.ParentTweetID != nil {
		parentID, err := uuid.Parse(*req.ParentTweetID)
		if err != nil {
			return nil, fmt.Errorf("invalid parent tweet ID: %w", err)
		}
		parent, err := s.tweetRepo.GetByID(ctx, parentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("parent tweet %s: %w", parentID, ErrNotFound)
		}
		parentUUID = &parentID
	}

	now := time.Now()
	tweet := &models.Tweet{
		ID:            uuid.New(),
		ProfileID:     profile.ID,
		Content:       req.Content,
		GenreID:       genreUUID,
		ParentTweetID: parentUUID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	files := make([]models.TweetFile, 0, len(req.FileURLs))
	for _, url := range req.FileURLs {
		files = append(files, models.TweetFile{
			ID:        uuid.New(),
			TweetID:   tweet.ID,
			URL:       url,
			CreatedAt: now,
		})
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.tweetRepo.WithTx(tx).Create(ctx, tweet); err != nil {
			return err
		}
		if err := s.tweetRepo.WithTx(tx).CreateFiles(ctx, files); err != nil {
			return err
		}
		if err := s.profileRepo.WithTx(tx).UpdateTweetCount(ctx, profile.ID, 1); err != nil {
			return err
		}
		if parentUUID != nil {
			if err := s.tweetRepo.WithTx(tx).UpdateRetweetCount(ctx, *parentUUID, 1); err != nil {
				return err
			}
		}

		eventData := queue.TweetEventData{
			TweetID:   tweet.ID.String(),
			ProfileID: profile.ID.String(),
		}
		if parentUUID != nil {
			eventData.ParentTweetID = parentUUID.String()
		}
		return appendOutbox(ctx, s.outboxRepo, tx, queue.EventTweetCreated, profile.ID.String(), eventData)
	})
	if err != nil {
		s.cleanupBlobs(req.FileURLs)
		return nil, fmt.Errorf("failed to create tweet: %w", err)
	}

	tweet.Profile = *profile
	tweet.Files = files

	s.logger.WithFields(map[string]interface{}{
		"tweet_id":   tweet.ID,
		"profile_id": profile.ID,
		"is_retweet": parentUUID != nil,
	}).Info("Tweet created successfully")

	return tweet, nil
}

type UpdateTweetRequest struct {
	Content string `json:"content" binding:"required,min=1,max=280"`
	// 非nil时整组替换附件（空切片表示清空）
	FileURLs *[]string `json:"file_urls"`
}

func (s *TweetService) UpdateTweet(ctx context.Context, tweetID uuid.UUID, req *UpdateTweetRequest) (*models.Tweet, error) {
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
	if tweet.ProfileID != profile.ID {
		return nil, fmt.Errorf("not the tweet author: %w", ErrUnauthorized)
	}

	now := time.Now()
	tweet.Content = req.Content
	tweet.IsUpdated = true
	tweet.UpdatedAt = now

	if req.FileURLs == nil {
		if err := s.tweetRepo.Update(ctx, tweet); err != nil {
			return nil, err
		}
		return tweet, nil
	}

	oldURLs := make([]string, 0, len(tweet.Files))
	for _, f := range tweet.Files {
		oldURLs = append(oldURLs, f.URL)
	}

	newFiles := make([]models.TweetFile, 0, len(*req.FileURLs))
	for _, url := range *req.FileURLs {
		newFiles = append(newFiles, models.TweetFile{
			ID:        uuid.New(),
			TweetID:   tweet.ID,
			URL:       url,
			CreatedAt: now,
		})
	}

	// Save会把预载的附件行原样回写，先摘掉再替换
	tweet.Files = nil
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.tweetRepo.WithTx(tx).DeleteFiles(ctx, tweet.ID); err != nil {
			return err
		}
		if err := s.tweetRepo.WithTx(tx).CreateFiles(ctx, newFiles); err != nil {
			return err
		}
		return s.tweetRepo.WithTx(tx).Update(ctx, tweet)
	})
	if err != nil {
		s.cleanupBlobs(*req.FileURLs)
		return nil, fmt.Errorf("failed to update tweet: %w", err)
	}

	s.cleanupBlobs(oldURLs)
	tweet.Files = newFiles
	return tweet, nil
}

// DeleteTweet 删除推文并级联清理：评论（含楼中楼）、两类点赞、附件行。
// 子转推不删除，父指针置空降级为独立推文；自身是转推则回退父推文的转推数。
func (s *TweetService) DeleteTweet(ctx context.Context, tweetID uuid.UUID) error {
	profile, err := s.actor.CurrentProfile(ctx)
	if err != nil {
		return err
	}

	tweet, err := s.tweetRepo.GetByID(ctx, tweetID)
	if err != nil {
		return err
	}
	if tweet == nil {
		return fmt.Errorf("tweet %s: %w", tweetID, ErrNotFound)
	}
	if tweet.ProfileID != profile.ID {
		return fmt.Errorf("not the tweet author: %w", ErrUnauthorized)
	}

	commentIDs, err := s.commentRepo.GetIDsByTweetID(ctx, tweetID)
	if err != nil {
		return err
	}

	commentFiles, err := s.commentRepo.GetFilesByCommentIDs(ctx, commentIDs)
	if err != nil {
		return err
	}

	orphanURLs := make([]string, 0, len(tweet.Files)+len(commentFiles))
	for _, f := range tweet.Files {
		orphanURLs = append(orphanURLs, f.URL)
	}
	for _, f := range commentFiles {
		orphanURLs = append(orphanURLs, f.URL)
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.likeRepo.WithTx(tx).DeleteByCommentIDs(ctx, commentIDs); err != nil {
			return err
		}
		if err := s.commentRepo.WithTx(tx).DeleteFilesByCommentIDs(ctx, commentIDs); err != nil {
			return err
		}
		if err := s.commentRepo.WithTx(tx).DeleteByIDs(ctx, commentIDs); err != nil {
			return err
		}
		if err := s.likeRepo.WithTx(tx).DeleteByTweetIDs(ctx, []uuid.UUID{tweetID}); err != nil {
			return err
		}
		if err := s.tweetRepo.WithTx(tx).DeleteFiles(ctx, tweetID); err != nil {
			return err
		}
		if err := s.tweetRepo.WithTx(tx).ClearParent(ctx, tweetID); err != nil {
			return err
		}
		affected, err := s.tweetRepo.WithTx(tx).Delete(ctx, tweetID)
		if err != nil {
			return err
		}
		// 并发的另一次删除先提交了，回滚以免计数递减两次
		if affected == 0 {
			return fmt.Errorf("tweet %s: %w", tweetID, ErrNotFound)
		}
		if err := s.profileRepo.WithTx(tx).UpdateTweetCount(ctx, profile.ID, -1); err != nil {
			return err
		}
		if tweet.ParentTweetID != nil {
			if err := s.tweetRepo.WithTx(tx).UpdateRetweetCount(ctx, *tweet.ParentTweetID, -1); err != nil {
				return err
			}
		}

		eventData := queue.TweetEventData{
			TweetID:   tweetID.String(),
			ProfileID: profile.ID.String(),
		}
		if tweet.ParentTweetID != nil {
			eventData.ParentTweetID = tweet.ParentTweetID.String()
		}
		return appendOutbox(ctx, s.outboxRepo, tx, queue.EventTweetDeleted, profile.ID.String(), eventData)
	})
	if err != nil {
		return fmt.Errorf("failed to delete tweet: %w", err)
	}

	s.cleanupBlobs(orphanURLs)

	s.logger.WithFields(map[string]interface{}{
		"tweet_id":   tweetID,
		"profile_id": profile.ID,
		"comments":   len(commentIDs),
	}).Info("Tweet deleted successfully")

	return nil
}

func (s *TweetService) cleanupBlobs(urls []string) {
	for _, url := range urls {
		if err := s.files.Delete(url); err != nil {
			s.logger.WithError(err).WithField("url", url).Warn("Failed to delete attachment blob")
		}
	}
}

func (s *TweetService) GetTweetByID(ctx context.Context, tweetID uuid.UUID) (*TweetView, error) {
	tweet, err := s.tweetRepo.GetByID(ctx, tweetID)
	if err != nil {
		return nil, err
	}
	if tweet == nil {
		return nil, fmt.Errorf("tweet %s: %w", tweetID, ErrNotFound)
	}
	views, err := s.annotate(ctx, []*models.Tweet{tweet})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *TweetService) GetTweets(ctx context.Context, genreID *uuid.UUID, offset, limit int) ([]*TweetView, error) {
	tweets, err := s.tweetRepo.GetAll(ctx, genreID, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, tweets)
}

func (s *TweetService) GetProfileTweets(ctx context.Context, profileID uuid.UUID, offset, limit int) ([]*TweetView, error) {
	profile, err := s.profileRepo.GetByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, fmt.Errorf("profile %s: %w", profileID, ErrNotFound)
	}

	tweets, err := s.tweetRepo.GetByProfileID(ctx, profileID, offset, limit)
	if err != nil {
		return nil, err
	}
	return s.annotate(ctx, tweets)
}

// annotate 两次IN查询批量标注整页的点赞与转推状态
func (s *TweetService) annotate(ctx context.Context, tweets []*models.Tweet) ([]*TweetView, error) {
	views := make([]*TweetView, 0, len(tweets))

	viewer, err := s.actor.CurrentProfileIfAny(ctx)
	if err != nil {
		return nil, err
	}

	liked := map[uuid.UUID]bool{}
	retweeted := map[uuid.UUID]bool{}
	if viewer != nil && len(tweets) > 0 {
		ids := make([]uuid.UUID, 0, len(tweets))
		for _, t := range tweets {
			ids = append(ids, t.ID)
		}
		liked, err = s.likeRepo.LikedTweetSet(ctx, viewer.ID, ids)
		if err != nil {
			return nil, err
		}
		retweeted, err = s.tweetRepo.RetweetedSet(ctx, viewer.ID, ids)
		if err != nil {
			return nil, err
		}
	}

	for _, t := range tweets {
		views = append(views, &TweetView{
			Tweet:       t,
			IsLiked:     liked[t.ID],
			IsRetweeted: retweeted[t.ID],
		})
	}
	return views, nil
}

type CreateGenreRequest struct {
	Name string `json:"name" binding:"required,min=1,max=50"`
}

func (s *TweetService) CreateGenre(ctx context.Context, req *CreateGenreRequest) (*models.Genre, error) {
	if _, err := s.actor.CurrentProfile(ctx); err != nil {
		return nil, err
	}

	genre := &models.Genre{
		ID:   uuid.New(),
		Name: req.Name,
	}
	if err := s.genreRepo.Create(ctx, genre); err != nil {
		return nil, err
	}
	return genre, nil
}

func (s *TweetService) GetGenres(ctx context.Context) ([]*models.Genre, error) {
	return s.genreRepo.GetAll(ctx)
}
