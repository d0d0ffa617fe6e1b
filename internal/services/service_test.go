package services

import (
	"context"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/internal/repository"
	"github.com/social-system/social-system/pkg/logger"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type pushedEvent struct {
	ProfileID uuid.UUID
	Event     string
	Payload   interface{}
}

type fakePusher struct {
	mu         sync.Mutex
	broadcasts []pushedEvent
	sends      []pushedEvent
}

func (p *fakePusher) BroadcastAll(event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.broadcasts = append(p.broadcasts, pushedEvent{Event: event, Payload: payload})
}

func (p *fakePusher) SendToUser(profileID uuid.UUID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, pushedEvent{ProfileID: profileID, Event: event, Payload: payload})
}

func (p *fakePusher) sendsTo(profileID uuid.UUID, event string) []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushedEvent
	for _, e := range p.sends {
		if e.ProfileID == profileID && e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (p *fakePusher) broadcastsOf(event string) []pushedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []pushedEvent
	for _, e := range p.broadcasts {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeFiles struct {
	mu      sync.Mutex
	deleted []string
}

func (f *fakeFiles) Delete(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, url)
	return nil
}

type fakePresence struct {
	online map[uuid.UUID]bool
}

func (f *fakePresence) IsOnline(ctx context.Context, profileID uuid.UUID) (bool, error) {
	return f.online[profileID], nil
}

type testEnv struct {
	db       *gorm.DB
	pusher   *fakePusher
	files    *fakeFiles
	presence *fakePresence

	profileRepo      *repository.ProfileRepository
	followRepo       *repository.FollowRepository
	tweetRepo        *repository.TweetRepository
	commentRepo      *repository.CommentRepository
	likeRepo         *repository.LikeRepository
	notificationRepo *repository.NotificationRepository
	outboxRepo       *repository.OutboxRepository

	profiles      *ProfileService
	follows       *FollowService
	tweets        *TweetService
	comments      *CommentService
	likes         *LikeService
	notifications *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	if err := db.AutoMigrate(
		&models.Profile{},
		&models.Follow{},
		&models.Genre{},
		&models.Tweet{},
		&models.TweetFile{},
		&models.Comment{},
		&models.CommentFile{},
		&models.Like{},
		&models.Notification{},
		&models.OutboxEvent{},
	); err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}

	log := logger.NewLogger("error")
	pusher := &fakePusher{}
	filestore := &fakeFiles{}
	presence := &fakePresence{online: make(map[uuid.UUID]bool)}

	env := &testEnv{
		db:       db,
		pusher:   pusher,
		files:    filestore,
		presence: presence,

		profileRepo:      repository.NewProfileRepository(db),
		followRepo:       repository.NewFollowRepository(db),
		tweetRepo:        repository.NewTweetRepository(db),
		commentRepo:      repository.NewCommentRepository(db),
		likeRepo:         repository.NewLikeRepository(db),
		notificationRepo: repository.NewNotificationRepository(db),
		outboxRepo:       repository.NewOutboxRepository(db),
	}

	actor := NewActorResolver(env.profileRepo)
	genreRepo := repository.NewGenreRepository(db)

	env.notifications = NewNotificationService(actor, env.notificationRepo, env.outboxRepo, presence, pusher, log, "http://localhost:8080")
	env.profiles = NewProfileService(actor, env.profileRepo, log)
	env.follows = NewFollowService(db, actor, env.followRepo, env.profileRepo, env.outboxRepo, env.notifications, pusher, log)
	env.tweets = NewTweetService(db, actor, env.tweetRepo, env.commentRepo, env.likeRepo, env.profileRepo, genreRepo, env.outboxRepo, filestore, log)
	env.comments = NewCommentService(db, actor, env.tweetRepo, env.commentRepo, env.likeRepo, env.outboxRepo, env.notifications, pusher, filestore, log)
	env.likes = NewLikeService(db, actor, env.likeRepo, env.tweetRepo, env.commentRepo, env.outboxRepo, env.notifications, pusher, log)

	return env
}

func (e *testEnv) register(t *testing.T, username string) *models.Profile {
	t.Helper()
	profile, err := e.profiles.Register(context.Background(), &RegisterRequest{
		Username: username,
		Email:    username + "@example.com",
		Password: "secret123",
	})
	if err != nil {
		t.Fatalf("failed to register %s: %v", username, err)
	}
	return profile
}

func (e *testEnv) as(profile *models.Profile) context.Context {
	return WithActor(context.Background(), profile.ID)
}

func (e *testEnv) tweet(t *testing.T, author *models.Profile, content string) *models.Tweet {
	t.Helper()
	tweet, err := e.tweets.CreateTweet(e.as(author), &CreateTweetRequest{Content: content})
	if err != nil {
		t.Fatalf("failed to create tweet: %v", err)
	}
	return tweet
}

func (e *testEnv) reloadTweet(t *testing.T, id uuid.UUID) *models.Tweet {
	t.Helper()
	tweet, err := e.tweetRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to reload tweet: %v", err)
	}
	if tweet == nil {
		t.Fatalf("tweet %s vanished", id)
	}
	return tweet
}

func (e *testEnv) reloadComment(t *testing.T, id uuid.UUID) *models.Comment {
	t.Helper()
	comment, err := e.commentRepo.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("failed to reload comment: %v", err)
	}
	if comment == nil {
		t.Fatalf("comment %s vanished", id)
	}
	return comment
}

func (e *testEnv) reloadProfile(t *testing.T, id uuid.UUID) *models.Profile {
	t.Helper()
	profile, err := e.profileRepo.GetByID(context.Background(), id)
	if err != nil || profile == nil {
		t.Fatalf("failed to reload profile: %v", err)
	}
	return profile
}

func (e *testEnv) notificationsFor(t *testing.T, recipientID uuid.UUID) []*models.Notification {
	t.Helper()
	list, err := e.notificationRepo.GetByRecipient(context.Background(), recipientID, 0, 100)
	if err != nil {
		t.Fatalf("failed to load notifications: %v", err)
	}
	return list
}

func (e *testEnv) pendingOutbox(t *testing.T) []*models.OutboxEvent {
	t.Helper()
	events, err := e.outboxRepo.GetPending(context.Background(), 1000)
	if err != nil {
		t.Fatalf("failed to load outbox: %v", err)
	}
	return events
}
