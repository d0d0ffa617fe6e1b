package models

import (
	"time"

	"github.com/google/uuid"
)

type Comment struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TweetID   uuid.UUID `json:"tweet_id" gorm:"type:uuid;not null;index"`
	ProfileID uuid.UUID `json:"profile_id" gorm:"type:uuid;not null;index"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	// 楼中楼回复指向父评论；推文级计数只统计直接评论
	ParentCommentID *uuid.UUID `json:"parent_comment_id" gorm:"type:uuid;index"`
	TotalLikes      int64      `json:"total_likes" gorm:"default:0"`
	TotalReplies    int64      `json:"total_replies" gorm:"default:0"`
	IsUpdated       bool       `json:"is_updated" gorm:"default:false"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Profile Profile       `json:"profile" gorm:"foreignKey:ProfileID"`
	Files   []CommentFile `json:"files" gorm:"foreignKey:CommentID"`
}

type CommentFile struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CommentID uuid.UUID `json:"comment_id" gorm:"type:uuid;not null;index"`
	URL       string    `json:"url" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (Comment) TableName() string {
	return "comments"
}

func (CommentFile) TableName() string {
	return "comment_files"
}
