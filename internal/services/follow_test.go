package services

import (
	"context"
	"errors"
	"testing"

	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/pkg/hub"
	"gorm.io/gorm"
)

func TestFollow(t *testing.T) {
	env := newTestEnv(t)
	follower := env.register(t, "alice")
	followed := env.register(t, "bob")

	if err := env.follows.Follow(env.as(follower), followed.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	if got := env.reloadProfile(t, follower.ID).TotalFollowing; got != 1 {
		t.Errorf("follower TotalFollowing = %d, want 1", got)
	}
	if got := env.reloadProfile(t, followed.ID).TotalFollowers; got != 1 {
		t.Errorf("followed TotalFollowers = %d, want 1", got)
	}

	list := env.notificationsFor(t, followed.ID)
	if len(list) != 1 || list[0].Type != models.NotificationFollow {
		t.Fatalf("expected one FOLLOW notification, got %+v", list)
	}

	// 双方计数都广播
	casts := env.pusher.broadcastsOf(hub.EventFollowCounter)
	if len(casts) != 2 {
		t.Errorf("follow counter broadcasts = %d, want 2", len(casts))
	}
}

func TestFollowSelfConflicts(t *testing.T) {
	env := newTestEnv(t)
	profile := env.register(t, "alice")

	err := env.follows.Follow(env.as(profile), profile.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("self-follow = %v, want ErrConflict", err)
	}
}

func TestFollowTwiceConflicts(t *testing.T) {
	env := newTestEnv(t)
	follower := env.register(t, "alice")
	followed := env.register(t, "bob")

	if err := env.follows.Follow(env.as(follower), followed.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	err := env.follows.Follow(env.as(follower), followed.ID)
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("double follow = %v, want ErrConflict", err)
	}
	if got := env.reloadProfile(t, followed.ID).TotalFollowers; got != 1 {
		t.Errorf("TotalFollowers = %d, want 1", got)
	}
}

func TestUnfollow(t *testing.T) {
	env := newTestEnv(t)
	follower := env.register(t, "alice")
	followed := env.register(t, "bob")

	if err := env.follows.Follow(env.as(follower), followed.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if err := env.follows.Unfollow(env.as(follower), followed.ID); err != nil {
		t.Fatalf("Unfollow failed: %v", err)
	}

	if got := env.reloadProfile(t, follower.ID).TotalFollowing; got != 0 {
		t.Errorf("TotalFollowing = %d, want 0", got)
	}
	if got := env.reloadProfile(t, followed.ID).TotalFollowers; got != 0 {
		t.Errorf("TotalFollowers = %d, want 0", got)
	}

	err := env.follows.Unfollow(env.as(follower), followed.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("second unfollow = %v, want ErrNotFound", err)
	}
}

func TestUnfollowLosingRacerRollsBack(t *testing.T) {
	env := newTestEnv(t)
	follower := env.register(t, "alice")
	followed := env.register(t, "bob")
	ctx := context.Background()

	if err := env.follows.Follow(env.as(follower), followed.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	// 先提交的一方正常走完
	if err := env.follows.Unfollow(env.as(follower), followed.ID); err != nil {
		t.Fatalf("first unfollow failed: %v", err)
	}

	// 后提交的一方带着过期的存在性检查进入事务，
	// 删不到关注行就不许递减双方计数
	err := env.db.Transaction(func(tx *gorm.DB) error {
		affected, err := env.followRepo.WithTx(tx).Delete(ctx, follower.ID, followed.ID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return ErrNotFound
		}
		if err := env.profileRepo.WithTx(tx).UpdateFollowingCount(ctx, follower.ID, -1); err != nil {
			return err
		}
		return env.profileRepo.WithTx(tx).UpdateFollowersCount(ctx, followed.ID, -1)
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("stale unfollow = %v, want ErrNotFound", err)
	}
	if got := env.reloadProfile(t, follower.ID).TotalFollowing; got != 0 {
		t.Errorf("TotalFollowing = %d, want 0", got)
	}
	if got := env.reloadProfile(t, followed.ID).TotalFollowers; got != 0 {
		t.Errorf("TotalFollowers = %d, want 0", got)
	}
}

func TestFollowerListAnnotation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")

	// bob和carol都关注alice；bob还关注carol
	if err := env.follows.Follow(env.as(bob), alice.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if err := env.follows.Follow(env.as(carol), alice.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}
	if err := env.follows.Follow(env.as(bob), carol.ID); err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	// bob视角看alice的粉丝列表：carol被标注已关注，bob自己没有
	views, err := env.follows.GetFollowers(env.as(bob), alice.ID, 0, 10)
	if err != nil {
		t.Fatalf("GetFollowers failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d followers, want 2", len(views))
	}
	for _, v := range views {
		want := v.ID == carol.ID
		if v.IsFollowing != want {
			t.Errorf("follower %s IsFollowing = %v, want %v", v.Username, v.IsFollowing, want)
		}
	}
}
