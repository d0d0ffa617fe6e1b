package models

import (
	"time"

	"github.com/google/uuid"
)

type Tweet struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	ProfileID uuid.UUID  `json:"profile_id" gorm:"type:uuid;not null;index"`
	Content   string     `json:"content" gorm:"type:text;not null"`
	GenreID   *uuid.UUID `json:"genre_id" gorm:"type:uuid"`
	// 转推时指向原推文；原推文删除后被置空，转推降级为独立推文
	ParentTweetID *uuid.UUID `json:"parent_tweet_id" gorm:"type:uuid;index"`
	TotalLikes    int64      `json:"total_likes" gorm:"default:0"`
	TotalRetweets int64      `json:"total_retweets" gorm:"default:0"`
	TotalComments int64      `json:"total_comments" gorm:"default:0"`
	IsUpdated     bool       `json:"is_updated" gorm:"default:false"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`

	Profile Profile     `json:"profile" gorm:"foreignKey:ProfileID"`
	Genre   *Genre      `json:"genre,omitempty" gorm:"foreignKey:GenreID"`
	Files   []TweetFile `json:"files" gorm:"foreignKey:TweetID"`
}

type TweetFile struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TweetID   uuid.UUID `json:"tweet_id" gorm:"type:uuid;not null;index"`
	URL       string    `json:"url" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}

type Genre struct {
	ID   uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Name string    `json:"name" gorm:"uniqueIndex;not null"`
}

func (Tweet) TableName() string {
	return "tweets"
}

func (TweetFile) TableName() string {
	return "tweet_files"
}

func (Genre) TableName() string {
	return "genres"
}
