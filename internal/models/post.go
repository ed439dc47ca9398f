// Package models contains data structures for the application's domain models.
package models

import "time"

// Post is a single message. Counters are denormalized and only mutated with
// atomic column expressions; deletion is a tombstone.
type Post struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	AuthorID           uint      `gorm:"not null;index" json:"author_id"`
	Author             User      `gorm:"foreignKey:AuthorID" json:"-"`
	Content            string    `gorm:"type:text;not null" json:"content"`
	IsDeleted          bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	LikeCount          int64     `gorm:"not null;default:0" json:"like_count"`
	RetweetCount       int64     `gorm:"not null;default:0" json:"retweet_count"`
	ReplyCount         int64     `gorm:"not null;default:0" json:"reply_count"`
	ParentPostID       *uint     `gorm:"index" json:"parent_post_id,omitempty"`
	IsReply            bool      `gorm:"not null;default:false" json:"is_reply"`
	ThreadID           *uint     `gorm:"index" json:"thread_id,omitempty"`
	IsThread           bool      `gorm:"not null;default:false" json:"is_thread"`
	NextPostInThreadID *uint     `json:"next_post_in_thread_id,omitempty"`
	CreatedAt          time.Time `gorm:"index" json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Post) TableName() string {
	return "posts"
}

// Counter names a denormalized counter column on posts.
type Counter string

const (
	CounterLikes    Counter = "like_count"
	CounterRetweets Counter = "retweet_count"
	CounterReplies  Counter = "reply_count"
)
