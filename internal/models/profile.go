package models

import (
	"time"

	"github.com/google/uuid"
)

type Profile struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Username    string    `json:"username" gorm:"uniqueIndex;not null"`
	Email       string    `json:"email" gorm:"uniqueIndex;not null"`
	Password    string    `json:"-" gorm:"not null"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
	Bio         string    `json:"bio"`
	// 冗余计数器，与边/子行严格一致（同一事务内维护）
	TotalFollowing int64 `json:"total_following" gorm:"default:0"`
	TotalFollowers int64 `json:"total_followers" gorm:"default:0"`
	TotalTweets    int64 `json:"total_tweets" gorm:"default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Follow struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FollowerID uuid.UUID `json:"follower_id" gorm:"type:uuid;not null;uniqueIndex:uniq_follower_followed,priority:1"`
	FollowedID uuid.UUID `json:"followed_id" gorm:"type:uuid;not null;uniqueIndex:uniq_follower_followed,priority:2;index"`
	CreatedAt  time.Time `json:"created_at"`

	Follower Profile `json:"follower" gorm:"foreignKey:FollowerID"`
	Followed Profile `json:"followed" gorm:"foreignKey:FollowedID"`
}

func (Profile) TableName() string {
	return "profiles"
}

func (Follow) TableName() string {
	return "follows"
}
