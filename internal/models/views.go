// Package models contains data structures for the application's domain models.
package models

import "time"

// UserView is the public projection of a User.
type UserView struct {
	ID             uint   `json:"id"`
	Handle         string `json:"handle"`
	DisplayName    string `json:"display_name"`
	FollowerCount  int64  `json:"follower_count"`
	FollowingCount int64  `json:"following_count"`
}

// ToView projects the user into its read-view.
func (u *User) ToView() UserView {
	return UserView{
		ID:             u.ID,
		Handle:         u.Handle,
		DisplayName:    u.DisplayName,
		FollowerCount:  u.FollowerCount,
		FollowingCount: u.FollowingCount,
	}
}

// PostView is the flat read-view of a Post. A tombstoned post projects to a
// marker that keeps its id, links and counters but no content or author.
type PostView struct {
	ID                 uint      `json:"id"`
	AuthorID           uint      `json:"author_id,omitempty"`
	Author             *UserView `json:"author,omitempty"`
	Content            string    `json:"content"`
	CreatedAt          time.Time `json:"created_at"`
	IsDeleted          bool      `json:"is_deleted"`
	LikeCount          int64     `json:"like_count"`
	RetweetCount       int64     `json:"retweet_count"`
	ReplyCount         int64     `json:"reply_count"`
	ParentPostID       *uint     `json:"parent_post_id,omitempty"`
	IsReply            bool      `json:"is_reply"`
	ThreadID           *uint     `json:"thread_id,omitempty"`
	IsThread           bool      `json:"is_thread"`
	NextPostInThreadID *uint     `json:"next_post_in_thread_id,omitempty"`
}

// ToView projects the post into its read-view.
func (p *Post) ToView() PostView {
	v := PostView{
		ID:                 p.ID,
		CreatedAt:          p.CreatedAt,
		IsDeleted:          p.IsDeleted,
		LikeCount:          p.LikeCount,
		RetweetCount:       p.RetweetCount,
		ReplyCount:         p.ReplyCount,
		ParentPostID:       p.ParentPostID,
		IsReply:            p.IsReply,
		ThreadID:           p.ThreadID,
		IsThread:           p.IsThread,
		NextPostInThreadID: p.NextPostInThreadID,
	}
	if p.IsDeleted {
		return v
	}
	v.AuthorID = p.AuthorID
	v.Content = p.Content
	if p.Author.ID != 0 {
		author := p.Author.ToView()
		v.Author = &author
	}
	return v
}

// FeedItem is a post annotated for a particular viewer.
type FeedItem struct {
	PostView
	Liked              bool   `json:"liked"`
	Retweeted          bool   `json:"retweeted"`
	FollowedRetweeters []uint `json:"followed_retweeters,omitempty"`
	RetweetedByUser    bool   `json:"retweeted_by_user,omitempty"`
	// SortTime is the instant the item is ordered by; equals CreatedAt unless
	// retweet ordering is enabled for the viewer.
	SortTime time.Time `json:"-"`
}

// Replies is the first layer of replies under a post.
type Replies struct {
	Parent  PostView   `json:"parent"`
	Replies []FeedItem `json:"replies"`
	Thread  []PostView `json:"thread,omitempty"`
}

// EngagementState reports the outcome of a like/retweet mutation.
type EngagementState struct {
	PostID       uint      `json:"post_id"`
	UserID       uint      `json:"user_id"`
	Kind         EdgeKind  `json:"kind"`
	Active       bool      `json:"active"`
	Created      bool      `json:"created"`
	Since        time.Time `json:"since,omitempty"`
	LikeCount    int64     `json:"like_count"`
	RetweetCount int64     `json:"retweet_count"`
}

// Connection is one entry of a follower/following/liking/retweeting listing.
type Connection struct {
	User  UserView  `json:"user"`
	Since time.Time `json:"since"`
}

// FollowState reports the outcome of a follow/unfollow mutation.
type FollowState struct {
	FollowerID uint      `json:"follower_id"`
	TargetID   uint      `json:"target_id"`
	Active     bool      `json:"active"`
	Created    bool      `json:"created"`
	Since      time.Time `json:"since,omitempty"`
}
