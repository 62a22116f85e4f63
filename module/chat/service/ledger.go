package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ChatCore/logger"
	"ChatCore/module/chat/model"
	"ChatCore/module/chat/store"
	usermodel "ChatCore/module/user/model"
	usersvc "ChatCore/module/user/service"
	"ChatCore/tools/errs"
	"ChatCore/tools/ids"
)

// Presence answers whether a user is currently live in a room. Implemented by
// the in-memory presence tracker; a narrow interface keeps the ledger
// testable without the gateway.
type Presence interface {
	IsPresent(roomID, userID string) bool
}

// Ledger owns unread counters and their lifecycle-linked notifications, plus
// the general (friend) notification feed queries. The increment-unless-present
// and reset-and-delete pairs are serialized so a racing send and join cannot
// lose an update.
type Ledger struct {
	mu        sync.Mutex
	store     store.Store
	directory *usersvc.Directory
	presence  Presence
	pageSize  int
}

func NewLedger(st store.Store, dir *usersvc.Directory, presence Presence, pageSize int) *Ledger {
	if pageSize <= 0 {
		pageSize = 20
	}
	return &Ledger{store: st, directory: dir, presence: presence, pageSize: pageSize}
}

func (l *Ledger) PageSize() int { return l.pageSize }

// OnMessageSent bumps the unread counter of every room participant that is
// not currently present and upserts the paired unread_messages notification.
// Present participants are untouched.
func (l *Ledger) OnMessageSent(ctx context.Context, room *model.Room, author *usermodel.Account, msg *model.Message) error {
	if !room.TracksUnread() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	for _, target := range room.Participants() {
		if target == author.ID {
			continue
		}
		if l.presence != nil && l.presence.IsPresent(room.ID, target) {
			continue
		}
		counter, err := l.store.IncrementUnread(ctx, room.ID, target, author.ID, msg.Content, now)
		if err != nil {
			return err
		}
		if err := l.upsertUnreadNotification(ctx, room, target, author, counter, now); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) upsertUnreadNotification(ctx context.Context, room *model.Room, target string, author *usermodel.Account, counter *model.UnreadCounter, now time.Time) error {
	verb := fmt.Sprintf("%s: %s", author.Username, preview(counter.MostRecent, 50))
	existing, err := l.store.FindNotificationByObject(ctx, target, model.KindUnreadMessages, room.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		existing.Verb = verb
		existing.FromUser = author.ID
		existing.ImageURL = author.ProfileImage
		existing.Read = false
		existing.Timestamp = now
		return l.store.UpdateNotification(ctx, existing)
	}
	return l.store.InsertNotification(ctx, &model.Notification{
		ID:          ids.GenerateString(),
		Target:      target,
		Kind:        model.KindUnreadMessages,
		ObjectID:    room.ID,
		FromUser:    author.ID,
		Verb:        verb,
		RedirectURL: "/chat/?room_id=" + room.ID,
		ImageURL:    author.ProfileImage,
		IsActive:    true,
		Timestamp:   now,
	})
}

// OnUserConnected resets the (room,user) counter when it is above zero and
// deletes the paired notification. Called by the presence tracker on every
// successful connect; a missing counter or notification is not an error.
func (l *Ledger) OnUserConnected(ctx context.Context, roomID, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	reset, err := l.store.ResetUnread(ctx, roomID, userID, time.Now())
	if err != nil {
		return err
	}
	if !reset {
		return nil
	}
	return l.store.DeleteNotificationByObject(ctx, userID, model.KindUnreadMessages, roomID)
}

// ListNotifications pages one feed newest-first, with the same page shape and
// exhaustion sentinel as message history.
func (l *Ledger) ListNotifications(ctx context.Context, user string, kinds []model.NotificationKind, page int) ([]*model.Notification, bool, error) {
	if page < 1 {
		page = 1
	}
	items, total, err := l.store.PageNotifications(ctx, user, kinds, page, l.pageSize)
	if err != nil {
		return nil, false, err
	}
	return items, hasMore(page, l.pageSize, total), nil
}

// ListNewer returns all of the user's notifications newer than since, for the
// on-screen refresh query.
func (l *Ledger) ListNewer(ctx context.Context, user string, kinds []model.NotificationKind, since time.Time) ([]*model.Notification, error) {
	return l.store.ListNotificationsNewer(ctx, user, kinds, since)
}

// UnreadGeneralCount counts unread general-feed notifications.
func (l *Ledger) UnreadGeneralCount(ctx context.Context, user string) (int, error) {
	return l.store.CountUnreadNotifications(ctx, user, model.GeneralKinds)
}

// UnreadChatCount counts rooms with a live unread counter. Deliberately a
// different definition from the general feed: counters, not notifications.
func (l *Ledger) UnreadChatCount(ctx context.Context, user string) (int, error) {
	return l.store.CountActiveUnread(ctx, user)
}

func (l *Ledger) MarkAllRead(ctx context.Context, user string) error {
	return l.store.MarkNotificationsRead(ctx, user)
}

// GetNotification fetches one row, erroring when it does not exist.
func (l *Ledger) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	n, err := l.store.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, errs.ErrNotFound.WrapMsg("notification " + id)
	}
	return n, nil
}

// preview truncates on a rune boundary so a multi-byte character never
// splits into invalid UTF-8.
func preview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max > 3 {
		return string(r[:max-3]) + "..."
	}
	return string(r[:max])
}

// AuthorOf resolves the author account, falling back to a placeholder when
// the directory row has gone missing so a broadcast never fails on lookup.
func (l *Ledger) AuthorOf(ctx context.Context, userID string) *usermodel.Account {
	a, err := l.directory.Get(ctx, userID)
	if err != nil {
		logger.Warnf("[ledger] author lookup failed user=%s err=%v", userID, err)
		return &usermodel.Account{ID: userID, Username: "unknown"}
	}
	return a
}
