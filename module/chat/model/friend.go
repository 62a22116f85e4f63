package model

import "time"

// FriendList holds one user's friend set. Friendship is symmetric but stored
// per direction (two rows per pair), so either party's set answers the query.
type FriendList struct {
	UserID     string    `bson:"_id" json:"user_id"`
	Friends    []string  `bson:"friends" json:"friends"`
	UpdateTime time.Time `bson:"update_time" json:"update_time"`
}
