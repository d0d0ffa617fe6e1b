package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/social-system/social-system/internal/models"
	"github.com/social-system/social-system/pkg/hub"
)

func TestCreateDirectComment(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	commenter := env.register(t, "bob")
	tweet := env.tweet(t, author, "hello")

	comment, err := env.comments.CreateComment(env.as(commenter), tweet.ID, &CreateCommentRequest{Content: "nice"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if comment.ParentCommentID != nil {
		t.Fatal("direct comment must have no parent")
	}

	if got := env.reloadTweet(t, tweet.ID).TotalComments; got != 1 {
		t.Errorf("TotalComments = %d, want 1", got)
	}

	list := env.notificationsFor(t, author.ID)
	if len(list) != 1 || list[0].Type != models.NotificationComment {
		t.Fatalf("expected one COMMENT notification, got %+v", list)
	}

	// 新评论广播 + 计数广播
	if got := len(env.pusher.broadcastsOf(hub.EventCommentCreated)); got != 1 {
		t.Errorf("comment.created broadcasts = %d, want 1", got)
	}
	casts := env.pusher.broadcastsOf(hub.EventCommentCounter)
	if len(casts) != 1 {
		t.Fatalf("counter broadcasts = %d, want 1", len(casts))
	}
	payload := casts[0].Payload.(CommentCounterPayload)
	if payload.TargetID != tweet.ID || payload.TotalComments != 1 {
		t.Errorf("unexpected counter payload %+v", payload)
	}
}

func TestCreateReplyTouchesOnlyParentCounter(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	replier := env.register(t, "bob")
	tweet := env.tweet(t, author, "hello")

	parent, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{Content: "first"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	parentID := parent.ID.String()
	reply, err := env.comments.CreateComment(env.as(replier), tweet.ID, &CreateCommentRequest{
		Content:         "reply",
		ParentCommentID: &parentID,
	})
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}
	if reply.ParentCommentID == nil || *reply.ParentCommentID != parent.ID {
		t.Fatal("reply not bound to parent")
	}

	// 回复只推进父评论回复数，推文级评论数只统计直接评论
	if got := env.reloadComment(t, parent.ID).TotalReplies; got != 1 {
		t.Errorf("parent TotalReplies = %d, want 1", got)
	}
	if got := env.reloadTweet(t, tweet.ID).TotalComments; got != 1 {
		t.Errorf("tweet TotalComments = %d, want 1", got)
	}

	// 通知发给父评论作者
	list := env.notificationsFor(t, author.ID)
	if len(list) != 1 {
		t.Fatalf("expected 1 notification for parent author, got %d", len(list))
	}
}

func TestCreateCommentWrongParentTweet(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	tweetA := env.tweet(t, author, "a")
	tweetB := env.tweet(t, author, "b")

	parent, err := env.comments.CreateComment(env.as(author), tweetA.ID, &CreateCommentRequest{Content: "on a"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	parentID := parent.ID.String()
	_, err = env.comments.CreateComment(env.as(author), tweetB.ID, &CreateCommentRequest{
		Content:         "cross",
		ParentCommentID: &parentID,
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("cross-tweet reply = %v, want ErrConflict", err)
	}
}

func TestUpdateCommentAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	other := env.register(t, "bob")
	tweet := env.tweet(t, author, "hello")

	comment, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{Content: "v1"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	_, err = env.comments.UpdateComment(env.as(other), comment.ID, &UpdateCommentRequest{Content: "hacked"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign update = %v, want ErrUnauthorized", err)
	}

	updated, err := env.comments.UpdateComment(env.as(author), comment.ID, &UpdateCommentRequest{Content: "v2"})
	if err != nil {
		t.Fatalf("UpdateComment failed: %v", err)
	}
	if updated.Content != "v2" || !updated.IsUpdated {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestUpdateCommentReplacesFiles(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	tweet := env.tweet(t, author, "hello")

	comment, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{
		Content:  "look",
		FileURLs: []string{"http://localhost:8080/uploads/before.png"},
	})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}

	newURLs := []string{"http://localhost:8080/uploads/after.png"}
	updated, err := env.comments.UpdateComment(env.as(author), comment.ID, &UpdateCommentRequest{
		Content:  "look again",
		FileURLs: &newURLs,
	})
	if err != nil {
		t.Fatalf("UpdateComment failed: %v", err)
	}
	if len(updated.Files) != 1 || updated.Files[0].URL != newURLs[0] {
		t.Fatalf("files not replaced: %+v", updated.Files)
	}

	files, err := env.commentRepo.GetFilesByCommentIDs(context.Background(), []uuid.UUID{comment.ID})
	if err != nil {
		t.Fatalf("GetFilesByCommentIDs failed: %v", err)
	}
	if len(files) != 1 || files[0].URL != newURLs[0] {
		t.Errorf("stored files = %+v, want only after.png", files)
	}
	if len(env.files.deleted) != 1 || env.files.deleted[0] != "http://localhost:8080/uploads/before.png" {
		t.Errorf("deleted blobs = %v, want before.png only", env.files.deleted)
	}
}

func TestDeleteCommentCascadesThread(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	replier := env.register(t, "bob")
	tweet := env.tweet(t, author, "hello")

	root, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{Content: "root"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	rootID := root.ID.String()
	reply, err := env.comments.CreateComment(env.as(replier), tweet.ID, &CreateCommentRequest{
		Content:         "reply",
		ParentCommentID: &rootID,
	})
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}
	replyID := reply.ID.String()
	if _, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{
		Content:         "nested",
		ParentCommentID: &replyID,
	}); err != nil {
		t.Fatalf("nested reply failed: %v", err)
	}
	if _, err := env.likes.Like(env.as(replier), models.CommentTarget(root.ID)); err != nil {
		t.Fatalf("like failed: %v", err)
	}

	if err := env.comments.DeleteComment(env.as(author), root.ID); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}

	// 整条楼连同楼中楼和点赞一起消失
	ids, err := env.commentRepo.GetIDsByTweetID(context.Background(), tweet.ID)
	if err != nil {
		t.Fatalf("failed to list comments: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("comments left after cascade: %v", ids)
	}
	var likeCount int64
	if err := env.db.Model(&models.Like{}).Count(&likeCount).Error; err != nil {
		t.Fatalf("failed to count likes: %v", err)
	}
	if likeCount != 0 {
		t.Errorf("likes left after cascade: %d", likeCount)
	}

	if got := env.reloadTweet(t, tweet.ID).TotalComments; got != 0 {
		t.Errorf("TotalComments = %d, want 0", got)
	}
}

func TestDeleteReplyDecrementsParent(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	tweet := env.tweet(t, author, "hello")

	parent, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{Content: "parent"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	parentID := parent.ID.String()
	reply, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{
		Content:         "reply",
		ParentCommentID: &parentID,
	})
	if err != nil {
		t.Fatalf("reply failed: %v", err)
	}

	if err := env.comments.DeleteComment(env.as(author), reply.ID); err != nil {
		t.Fatalf("DeleteComment failed: %v", err)
	}

	if got := env.reloadComment(t, parent.ID).TotalReplies; got != 0 {
		t.Errorf("parent TotalReplies = %d, want 0", got)
	}
	if got := env.reloadTweet(t, tweet.ID).TotalComments; got != 1 {
		t.Errorf("tweet TotalComments = %d, want 1", got)
	}
}

func TestCommentAnnotationMarksLiked(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	viewer := env.register(t, "bob")
	tweet := env.tweet(t, author, "hello")

	liked, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{Content: "liked"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if _, err := env.comments.CreateComment(env.as(author), tweet.ID, &CreateCommentRequest{Content: "plain"}); err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if _, err := env.likes.Like(env.as(viewer), models.CommentTarget(liked.ID)); err != nil {
		t.Fatalf("like failed: %v", err)
	}

	views, err := env.comments.GetTweetComments(env.as(viewer), tweet.ID, 0, 10)
	if err != nil {
		t.Fatalf("GetTweetComments failed: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("got %d comments, want 2", len(views))
	}
	for _, v := range views {
		want := v.ID == liked.ID
		if v.IsLiked != want {
			t.Errorf("comment %s IsLiked = %v, want %v", v.ID, v.IsLiked, want)
		}
	}

	// 匿名读取不带标注
	anon, err := env.comments.GetTweetComments(context.Background(), tweet.ID, 0, 10)
	if err != nil {
		t.Fatalf("anonymous GetTweetComments failed: %v", err)
	}
	for _, v := range anon {
		if v.IsLiked {
			t.Errorf("anonymous view marked liked: %s", v.ID)
		}
	}
}
