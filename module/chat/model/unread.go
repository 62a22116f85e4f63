package model

import "time"

// UnreadCounter is the durable per-(room,user) tally of messages sent while
// the user was not present. Count is only ever incremented for absent users
// and reset to zero when the user's session joins the room.
type UnreadCounter struct {
	RoomID      string    `bson:"room_id" json:"room_id"`
	UserID      string    `bson:"user_id" json:"user_id"`
	OtherUserID string    `bson:"other_user_id,omitempty" json:"other_user_id,omitempty"`
	Count       int       `bson:"count" json:"count"`
	MostRecent  string    `bson:"most_recent_message" json:"most_recent_message"`
	ResetAt     time.Time `bson:"reset_timestamp" json:"reset_timestamp"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}
