package model

import "time"

// NotificationKind is the tagged union over notification sources. The kind is
// resolved once at creation time; ObjectID is the typed reference whose
// meaning depends on the kind:
//
//	KindFriendRequest  -> FriendRequest id
//	KindFriendship     -> the other user's id
//	KindUnreadMessages -> room id (one per (target, room))
type NotificationKind string

const (
	KindFriendRequest  NotificationKind = "friend_request"
	KindFriendship     NotificationKind = "friendship"
	KindUnreadMessages NotificationKind = "unread_messages"
)

// GeneralKinds are the kinds surfaced in the "general" notification feed;
// ChatKinds in the "chat" feed. The two feeds are never conflated.
var (
	GeneralKinds = []NotificationKind{KindFriendRequest, KindFriendship}
	ChatKinds    = []NotificationKind{KindUnreadMessages}
)

// Notification is a durable, user-facing record of a state change. At most
// one notification exists per (target, kind, object) for the friend_request
// and unread_messages kinds; later changes update it in place.
type Notification struct {
	ID       string           `bson:"_id" json:"id"`
	Target   string           `bson:"target" json:"target"`
	Kind     NotificationKind `bson:"kind" json:"kind"`
	ObjectID string           `bson:"object_id" json:"object_id"`

	FromUser    string `bson:"from_user,omitempty" json:"from_user,omitempty"`
	Verb        string `bson:"verb" json:"verb"`
	RedirectURL string `bson:"redirect_url,omitempty" json:"redirect_url,omitempty"`
	ImageURL    string `bson:"image_url,omitempty" json:"image_url,omitempty"`

	Read     bool `bson:"read" json:"read"`
	IsActive bool `bson:"is_active" json:"is_active"`

	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
