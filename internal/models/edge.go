// Package models contains data structures for the application's domain models.
package models

import "time"

// EdgeKind names the relation an Edge belongs to.
type EdgeKind string

const (
	// EdgeFollow links follower (subject) to followed user (object).
	EdgeFollow EdgeKind = "follow"
	// EdgeLike links user (subject) to liked post (object).
	EdgeLike EdgeKind = "like"
	// EdgeRetweet links user (subject) to retweeted post (object).
	EdgeRetweet EdgeKind = "retweet"
)

// Valid reports whether k is one of the known relations.
func (k EdgeKind) Valid() bool {
	switch k {
	case EdgeFollow, EdgeLike, EdgeRetweet:
		return true
	}
	return false
}

// Edge is a directed, typed relationship. The (kind, subject, object) triple
// is unique; the database enforces it so duplicate inserts race safely.
type Edge struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Kind      EdgeKind  `gorm:"type:varchar(16);not null;uniqueIndex:idx_edges_triple,priority:1;index:idx_edges_object,priority:1" json:"kind"`
	SubjectID uint      `gorm:"not null;uniqueIndex:idx_edges_triple,priority:2" json:"subject_id"`
	ObjectID  uint      `gorm:"not null;uniqueIndex:idx_edges_triple,priority:3;index:idx_edges_object,priority:2" json:"object_id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Edge) TableName() string {
	return "edges"
}
