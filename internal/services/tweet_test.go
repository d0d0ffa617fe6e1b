package services

import (
	"context"
	"errors"
	"testing"

	"github.com/social-system/social-system/internal/models"
)

func TestCreateTweetBumpsAuthorCounter(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")

	env.tweet(t, author, "hello")
	env.tweet(t, author, "again")

	if got := env.reloadProfile(t, author.ID).TotalTweets; got != 2 {
		t.Errorf("TotalTweets = %d, want 2", got)
	}
}

func TestRetweet(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	retweeter := env.register(t, "bob")
	original := env.tweet(t, author, "original")

	parentID := original.ID.String()
	retweet, err := env.tweets.CreateTweet(env.as(retweeter), &CreateTweetRequest{
		Content:       "check this out",
		ParentTweetID: &parentID,
	})
	if err != nil {
		t.Fatalf("retweet failed: %v", err)
	}
	if retweet.ParentTweetID == nil || *retweet.ParentTweetID != original.ID {
		t.Fatal("retweet not bound to original")
	}

	if got := env.reloadTweet(t, original.ID).TotalRetweets; got != 1 {
		t.Errorf("TotalRetweets = %d, want 1", got)
	}

	// 观察者标注：retweeter视角下原推文IsRetweeted为真
	views, err := env.tweets.GetTweets(env.as(retweeter), nil, 0, 10)
	if err != nil {
		t.Fatalf("GetTweets failed: %v", err)
	}
	var found bool
	for _, v := range views {
		if v.ID == original.ID {
			found = true
			if !v.IsRetweeted {
				t.Error("original not marked IsRetweeted for retweeter")
			}
		}
	}
	if !found {
		t.Fatal("original tweet missing from listing")
	}
}

func TestRetweetMissingParent(t *testing.T) {
	env := newTestEnv(t)
	retweeter := env.register(t, "bob")

	missing := "4f8e3b39-0000-4000-8000-000000000000"
	_, err := env.tweets.CreateTweet(env.as(retweeter), &CreateTweetRequest{
		Content:       "ghost",
		ParentTweetID: &missing,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("retweet of missing tweet = %v, want ErrNotFound", err)
	}
}

func TestUpdateTweetAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	other := env.register(t, "bob")
	tweet := env.tweet(t, author, "v1")

	_, err := env.tweets.UpdateTweet(env.as(other), tweet.ID, &UpdateTweetRequest{Content: "hacked"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign update = %v, want ErrUnauthorized", err)
	}

	updated, err := env.tweets.UpdateTweet(env.as(author), tweet.ID, &UpdateTweetRequest{Content: "v2"})
	if err != nil {
		t.Fatalf("UpdateTweet failed: %v", err)
	}
	if updated.Content != "v2" || !updated.IsUpdated {
		t.Errorf("update not applied: %+v", updated)
	}
}

func TestUpdateTweetReplacesFiles(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")

	tweet, err := env.tweets.CreateTweet(env.as(author), &CreateTweetRequest{
		Content:  "with pic",
		FileURLs: []string{"http://localhost:8080/uploads/old.png"},
	})
	if err != nil {
		t.Fatalf("CreateTweet failed: %v", err)
	}

	newURLs := []string{"http://localhost:8080/uploads/new.png"}
	updated, err := env.tweets.UpdateTweet(env.as(author), tweet.ID, &UpdateTweetRequest{
		Content:  "with new pic",
		FileURLs: &newURLs,
	})
	if err != nil {
		t.Fatalf("UpdateTweet failed: %v", err)
	}
	if len(updated.Files) != 1 || updated.Files[0].URL != newURLs[0] {
		t.Fatalf("files not replaced: %+v", updated.Files)
	}

	files, err := env.tweetRepo.GetFiles(context.Background(), tweet.ID)
	if err != nil {
		t.Fatalf("GetFiles failed: %v", err)
	}
	if len(files) != 1 || files[0].URL != newURLs[0] {
		t.Errorf("stored files = %+v, want only new.png", files)
	}

	// 旧blob被清理
	if len(env.files.deleted) != 1 || env.files.deleted[0] != "http://localhost:8080/uploads/old.png" {
		t.Errorf("deleted blobs = %v, want old.png only", env.files.deleted)
	}
}

func TestDeleteTweetCascades(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	other := env.register(t, "bob")
	tweet := env.tweet(t, author, "doomed")

	comment, err := env.comments.CreateComment(env.as(other), tweet.ID, &CreateCommentRequest{Content: "rip"})
	if err != nil {
		t.Fatalf("CreateComment failed: %v", err)
	}
	if _, err := env.likes.Like(env.as(other), models.TweetTarget(tweet.ID)); err != nil {
		t.Fatalf("like tweet failed: %v", err)
	}
	if _, err := env.likes.Like(env.as(author), models.CommentTarget(comment.ID)); err != nil {
		t.Fatalf("like comment failed: %v", err)
	}

	parentID := tweet.ID.String()
	retweet, err := env.tweets.CreateTweet(env.as(other), &CreateTweetRequest{
		Content:       "sharing",
		ParentTweetID: &parentID,
	})
	if err != nil {
		t.Fatalf("retweet failed: %v", err)
	}

	if err := env.tweets.DeleteTweet(env.as(author), tweet.ID); err != nil {
		t.Fatalf("DeleteTweet failed: %v", err)
	}

	// 推文、评论、两类点赞全部消失
	gone, err := env.tweetRepo.GetByID(context.Background(), tweet.ID)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if gone != nil {
		t.Fatal("tweet still present after delete")
	}
	ids, err := env.commentRepo.GetIDsByTweetID(context.Background(), tweet.ID)
	if err != nil {
		t.Fatalf("failed to list comments: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("comments left: %v", ids)
	}
	var likeCount int64
	if err := env.db.Model(&models.Like{}).Count(&likeCount).Error; err != nil {
		t.Fatalf("failed to count likes: %v", err)
	}
	if likeCount != 0 {
		t.Errorf("likes left: %d", likeCount)
	}

	// 子转推降级为独立推文而不是被删
	child := env.reloadTweet(t, retweet.ID)
	if child.ParentTweetID != nil {
		t.Error("retweet parent pointer not cleared")
	}

	if got := env.reloadProfile(t, author.ID).TotalTweets; got != 0 {
		t.Errorf("author TotalTweets = %d, want 0", got)
	}
}

func TestDeleteRetweetDecrementsOriginal(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")
	retweeter := env.register(t, "bob")
	original := env.tweet(t, author, "original")

	parentID := original.ID.String()
	retweet, err := env.tweets.CreateTweet(env.as(retweeter), &CreateTweetRequest{
		Content:       "boost",
		ParentTweetID: &parentID,
	})
	if err != nil {
		t.Fatalf("retweet failed: %v", err)
	}

	if err := env.tweets.DeleteTweet(env.as(retweeter), retweet.ID); err != nil {
		t.Fatalf("DeleteTweet failed: %v", err)
	}

	if got := env.reloadTweet(t, original.ID).TotalRetweets; got != 0 {
		t.Errorf("TotalRetweets = %d, want 0", got)
	}
}

func TestGenreFilter(t *testing.T) {
	env := newTestEnv(t)
	author := env.register(t, "alice")

	genre, err := env.tweets.CreateGenre(env.as(author), &CreateGenreRequest{Name: "tech"})
	if err != nil {
		t.Fatalf("CreateGenre failed: %v", err)
	}

	genreID := genre.ID.String()
	tagged, err := env.tweets.CreateTweet(env.as(author), &CreateTweetRequest{
		Content: "about tech",
		GenreID: &genreID,
	})
	if err != nil {
		t.Fatalf("CreateTweet failed: %v", err)
	}
	env.tweet(t, author, "off topic")

	views, err := env.tweets.GetTweets(context.Background(), &genre.ID, 0, 10)
	if err != nil {
		t.Fatalf("GetTweets failed: %v", err)
	}
	if len(views) != 1 || views[0].ID != tagged.ID {
		t.Fatalf("genre filter returned %d tweets", len(views))
	}
}
