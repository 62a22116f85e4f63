package model

import "time"

// FriendRequest is a single pending-or-settled request from sender to
// receiver. IsActive=true means pending; accept/decline/cancel all settle it
// (terminal, IsActive=false).
type FriendRequest struct {
	ID         string    `bson:"_id" json:"id"`
	SenderID   string    `bson:"sender_id" json:"sender_id"`
	ReceiverID string    `bson:"receiver_id" json:"receiver_id"`
	IsActive   bool      `bson:"is_active" json:"is_active"`
	CreateTime time.Time `bson:"create_time" json:"create_time"`
	HandleTime time.Time `bson:"handle_time,omitempty" json:"handle_time,omitempty"`
}
