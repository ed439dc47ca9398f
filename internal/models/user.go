// Package models contains data structures for the application's domain models.
package models

import "time"

// User is the identity anchor referenced by posts and edges. Accounts are
// created by the identity provider; the core only adjusts follow counters.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Handle         string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"handle"`
	DisplayName    string    `gorm:"type:varchar(100)" json:"display_name"`
	FollowerCount  int64     `gorm:"not null;default:0" json:"follower_count"`
	FollowingCount int64     `gorm:"not null;default:0" json:"following_count"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}
