package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/social-system/social-system/pkg/logger"
)

type fakePresenceStore struct {
	counts map[string]int64
}

func newFakePresenceStore() *fakePresenceStore {
	return &fakePresenceStore{counts: make(map[string]int64)}
}

func (f *fakePresenceStore) Incr(ctx context.Context, key string) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakePresenceStore) Decr(ctx context.Context, key string) (int64, error) {
	f.counts[key]--
	return f.counts[key], nil
}

func (f *fakePresenceStore) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return nil
}

func (f *fakePresenceStore) Exists(ctx context.Context, keys ...string) (int64, error) {
	var n int64
	for _, key := range keys {
		if _, ok := f.counts[key]; ok {
			n++
		}
	}
	return n, nil
}

func (f *fakePresenceStore) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.counts, key)
	}
	return nil
}

// 同一用户在多个进程各挂一条连接时，单条断开不得清掉共享的在线状态
func TestPresenceSurvivesOtherSessions(t *testing.T) {
	store := newFakePresenceStore()
	svc := NewPresenceService(store, time.Minute, logger.NewLogger("error"))
	profileID := uuid.New()
	ctx := context.Background()

	if err := svc.Connect(ctx, profileID); err != nil {
		t.Fatalf("first connect failed: %v", err)
	}
	if err := svc.Connect(ctx, profileID); err != nil {
		t.Fatalf("second connect failed: %v", err)
	}

	if err := svc.Disconnect(ctx, profileID); err != nil {
		t.Fatalf("disconnect failed: %v", err)
	}
	online, err := svc.IsOnline(ctx, profileID)
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if !online {
		t.Fatal("user went offline while another session was alive")
	}

	if err := svc.Disconnect(ctx, profileID); err != nil {
		t.Fatalf("last disconnect failed: %v", err)
	}
	online, err = svc.IsOnline(ctx, profileID)
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if online {
		t.Fatal("user still online after the last session closed")
	}
}

func TestPresenceUnknownUserOffline(t *testing.T) {
	svc := NewPresenceService(newFakePresenceStore(), time.Minute, logger.NewLogger("error"))

	online, err := svc.IsOnline(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("IsOnline failed: %v", err)
	}
	if online {
		t.Fatal("unknown user reported online")
	}
}
