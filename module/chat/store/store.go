package store

import (
	"context"
	"time"

	"ChatCore/module/chat/model"
)

// Stores return (nil, nil) for lookups that find nothing; callers translate
// absence into their own domain errors.

type RoomStore interface {
	InsertRoom(ctx context.Context, r *model.Room) error
	GetRoom(ctx context.Context, id string) (*model.Room, error)
	// FindPrivateRoom checks both orderings of (a, b).
	FindPrivateRoom(ctx context.Context, a, b string) (*model.Room, error)
	FindPublicRoomByTitle(ctx context.Context, title string) (*model.Room, error)
	UpdateRoomActive(ctx context.Context, id string, active bool) error
	SetRoomConnectedUsers(ctx context.Context, id string, users []string) error
	ListPublicRooms(ctx context.Context) ([]*model.Room, error)
}

type MessageStore interface {
	InsertMessage(ctx context.Context, m *model.Message) error
	// PageMessages returns one newest-first page (1-indexed) plus the total
	// row count for the room. Pages past the end yield an empty slice.
	PageMessages(ctx context.Context, roomID string, page, size int) ([]*model.Message, int64, error)
}

type UnreadStore interface {
	// IncrementUnread atomically bumps the (room,user) counter, creating it
	// with count=1 when absent, and records the most recent message text.
	IncrementUnread(ctx context.Context, roomID, userID, otherUserID, mostRecent string, at time.Time) (*model.UnreadCounter, error)
	// ResetUnread zeroes the counter; reports whether a count>0 row was reset.
	ResetUnread(ctx context.Context, roomID, userID string, at time.Time) (bool, error)
	GetUnread(ctx context.Context, roomID, userID string) (*model.UnreadCounter, error)
	CountActiveUnread(ctx context.Context, userID string) (int, error)
}

type NotificationStore interface {
	InsertNotification(ctx context.Context, n *model.Notification) error
	UpdateNotification(ctx context.Context, n *model.Notification) error
	GetNotification(ctx context.Context, id string) (*model.Notification, error)
	FindNotificationByObject(ctx context.Context, target string, kind model.NotificationKind, objectID string) (*model.Notification, error)
	// DeleteNotificationByObject is a no-op when no row matches.
	DeleteNotificationByObject(ctx context.Context, target string, kind model.NotificationKind, objectID string) error
	PageNotifications(ctx context.Context, target string, kinds []model.NotificationKind, page, size int) ([]*model.Notification, int64, error)
	ListNotificationsNewer(ctx context.Context, target string, kinds []model.NotificationKind, since time.Time) ([]*model.Notification, error)
	CountUnreadNotifications(ctx context.Context, target string, kinds []model.NotificationKind) (int, error)
	MarkNotificationsRead(ctx context.Context, target string) error
}

type FriendStore interface {
	// AddFriend records one direction of the relation; idempotent.
	AddFriend(ctx context.Context, owner, friend string) error
	RemoveFriend(ctx context.Context, owner, friend string) error
	AreFriends(ctx context.Context, owner, friend string) (bool, error)
	FriendsOf(ctx context.Context, owner string) ([]string, error)
}

type RequestStore interface {
	InsertRequest(ctx context.Context, r *model.FriendRequest) error
	GetRequest(ctx context.Context, id string) (*model.FriendRequest, error)
	// FindPendingRequest matches sender->receiver in that direction only.
	FindPendingRequest(ctx context.Context, sender, receiver string) (*model.FriendRequest, error)
	UpdateRequest(ctx context.Context, r *model.FriendRequest) error
}

// Store is the full durable surface the chat services run on.
type Store interface {
	RoomStore
	MessageStore
	UnreadStore
	NotificationStore
	FriendStore
	RequestStore
}
