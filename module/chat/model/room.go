package model

import (
	"fmt"
	"time"
)

type RoomKind string

const (
	RoomPrivate RoomKind = "private"
	RoomPublic  RoomKind = "public"
	RoomGroup   RoomKind = "group"
)

// Room is a logical message channel. Private rooms hold exactly two distinct
// participants and are friend-gated; public rooms are open; group rooms are
// member-gated. Room rows are never deleted so message history survives
// unfriending; IsActive is a display-list filter only.
type Room struct {
	ID    string   `bson:"_id" json:"id"`
	Kind  RoomKind `bson:"kind" json:"kind"`
	Title string   `bson:"title,omitempty" json:"title,omitempty"`

	UserA string `bson:"user_a,omitempty" json:"user_a,omitempty"`
	UserB string `bson:"user_b,omitempty" json:"user_b,omitempty"`

	Members []string `bson:"members,omitempty" json:"members,omitempty"`
	Admins  []string `bson:"admins,omitempty" json:"admins,omitempty"`
	Owners  []string `bson:"owners,omitempty" json:"owners,omitempty"`

	IsActive bool `bson:"is_active" json:"is_active"`

	// Persisted snapshot of connected users, for display while offline.
	// Eventually consistent with the live presence tracker.
	ConnectedUsers []string `bson:"connected_users,omitempty" json:"connected_users,omitempty"`

	CreateTime time.Time `bson:"create_time" json:"create_time"`
}

// GroupName is the stable fanout-group address for this room.
func (r *Room) GroupName() string {
	return fmt.Sprintf("%s-room-%s", r.Kind, r.ID)
}

// Participants returns the bounded member set for rooms that have one.
// Public rooms have no fixed membership and return nil.
func (r *Room) Participants() []string {
	switch r.Kind {
	case RoomPrivate:
		return []string{r.UserA, r.UserB}
	case RoomGroup:
		return r.Members
	default:
		return nil
	}
}

func (r *Room) HasParticipant(userID string) bool {
	for _, p := range r.Participants() {
		if p == userID {
			return true
		}
	}
	return false
}

// NotifiesPeers reports whether joins and leaves are broadcast to the group.
func (r *Room) NotifiesPeers() bool {
	return r.Kind != RoomPrivate
}

// TracksUnread reports whether the room keeps per-user unread counters.
func (r *Room) TracksUnread() bool {
	return r.Kind != RoomPublic
}
