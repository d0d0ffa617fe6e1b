package models

import (
	"time"

	"github.com/google/uuid"
)

type TargetKind string

const (
	TargetTweet   TargetKind = "tweet"
	TargetComment TargetKind = "comment"
)

// LikeTarget 点赞目标的带标签变体，杜绝"双FK同时为空/同时非空"的非法状态
type LikeTarget struct {
	Kind TargetKind
	ID   uuid.UUID
}

func TweetTarget(id uuid.UUID) LikeTarget {
	return LikeTarget{Kind: TargetTweet, ID: id}
}

func CommentTarget(id uuid.UUID) LikeTarget {
	return LikeTarget{Kind: TargetComment, ID: id}
}

type Like struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	ProfileID uuid.UUID `json:"profile_id" gorm:"type:uuid;not null;index;uniqueIndex:uniq_like_tweet,priority:1;uniqueIndex:uniq_like_comment,priority:1"`
	// 持久层表示：二选一的可空外键，仅经由 LikeTarget 读写
	TweetID   *uuid.UUID `json:"tweet_id" gorm:"type:uuid;index;uniqueIndex:uniq_like_tweet,priority:2"`
	CommentID *uuid.UUID `json:"comment_id" gorm:"type:uuid;index;uniqueIndex:uniq_like_comment,priority:2"`
	CreatedAt time.Time  `json:"created_at"`

	Profile Profile `json:"profile" gorm:"foreignKey:ProfileID"`
}

// NewLike 由带标签目标构造点赞行
func NewLike(profileID uuid.UUID, target LikeTarget) *Like {
	like := &Like{
		ID:        uuid.New(),
		ProfileID: profileID,
		CreatedAt: time.Now(),
	}
	id := target.ID
	switch target.Kind {
	case TargetComment:
		like.CommentID = &id
	default:
		like.TweetID = &id
	}
	return like
}

// Target 还原带标签目标
func (l *Like) Target() LikeTarget {
	if l.CommentID != nil {
		return CommentTarget(*l.CommentID)
	}
	return TweetTarget(*l.TweetID)
}

func (Like) TableName() string {
	return "likes"
}
