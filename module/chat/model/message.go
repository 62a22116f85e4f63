package model

import "time"

// Message is an immutable chat message appended to a room's log.
type Message struct {
	ID        string    `bson:"_id" json:"id"`
	RoomID    string    `bson:"room_id" json:"room_id"`
	AuthorID  string    `bson:"author_id" json:"author_id"`
	Content   string    `bson:"content" json:"content"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
