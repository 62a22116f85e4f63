package service

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"ChatCore/module/chat/model"
)

func (e *testEnv) sendPrivate(t *testing.T, room *model.Room, author, text string) *model.Message {
	t.Helper()
	ctx := context.Background()
	msg, err := e.messages.Append(ctx, room.ID, author, text)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	acc, err := e.directory.Get(ctx, author)
	if err != nil {
		t.Fatalf("directory.Get: %v", err)
	}
	if err := e.ledger.OnMessageSent(ctx, room, acc, msg); err != nil {
		t.Fatalf("OnMessageSent: %v", err)
	}
	return msg
}

func TestUnreadIncrementForAbsentParticipant(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.befriend(t, "alice", "bob")
	room, _ := env.registry.GetOrCreatePrivateRoom(ctx, "alice", "bob")

	env.presence.set(room.ID, "alice", true)
	env.sendPrivate(t, room, "alice", "hey bob")

	// The absent peer gets a counter and the paired notification.
	c, _ := env.store.GetUnread(ctx, room.ID, "bob")
	if c == nil || c.Count != 1 || c.MostRecent != "hey bob" {
		t.Fatalf("bob counter = %+v", c)
	}
	n, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindUnreadMessages, room.ID)
	if n == nil {
		t.Fatal("missing unread notification")
	}
	if n.Verb != "alice: hey bob" {
		t.Fatalf("verb = %q", n.Verb)
	}

	// The author never counts against themselves.
	if c, _ := env.store.GetUnread(ctx, room.ID, "alice"); c != nil {
		t.Fatalf("alice counter = %+v", c)
	}
}

func TestUnreadSkipsPresentParticipant(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.befriend(t, "alice", "bob")
	room, _ := env.registry.GetOrCreatePrivateRoom(ctx, "alice", "bob")

	env.presence.set(room.ID, "alice", true)
	env.presence.set(room.ID, "bob", true)
	env.sendPrivate(t, room, "alice", "hey bob")

	if c, _ := env.store.GetUnread(ctx, room.ID, "bob"); c != nil {
		t.Fatalf("present peer got a counter: %+v", c)
	}
	if n, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindUnreadMessages, room.ID); n != nil {
		t.Fatal("present peer got a notification")
	}
}

func TestUnreadNotificationUpdatedInPlace(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.befriend(t, "alice", "bob")
	room, _ := env.registry.GetOrCreatePrivateRoom(ctx, "alice", "bob")

	env.sendPrivate(t, room, "alice", "first")
	first, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindUnreadMessages, room.ID)

	env.sendPrivate(t, room, "alice", "second")
	second, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindUnreadMessages, room.ID)

	if first.ID != second.ID {
		t.Fatal("a second notification row was created instead of updating")
	}
	if second.Verb != "alice: second" {
		t.Fatalf("verb = %q", second.Verb)
	}
	c, _ := env.store.GetUnread(ctx, room.ID, "bob")
	if c.Count != 2 {
		t.Fatalf("count = %d, want 2", c.Count)
	}
}

func TestJoinResetsUnreadAndDeletesNotification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.befriend(t, "alice", "bob")
	room, _ := env.registry.GetOrCreatePrivateRoom(ctx, "alice", "bob")

	for i := 0; i < 3; i++ {
		env.sendPrivate(t, room, "alice", "ping")
	}
	c, _ := env.store.GetUnread(ctx, room.ID, "bob")
	if c.Count != 3 {
		t.Fatalf("count before join = %d", c.Count)
	}

	if err := env.ledger.OnUserConnected(ctx, room.ID, "bob"); err != nil {
		t.Fatalf("OnUserConnected: %v", err)
	}

	c, _ = env.store.GetUnread(ctx, room.ID, "bob")
	if c.Count != 0 {
		t.Fatalf("count after join = %d", c.Count)
	}
	if n, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindUnreadMessages, room.ID); n != nil {
		t.Fatal("unread notification survived the join")
	}

	// A join with nothing to reset is quiet.
	if err := env.ledger.OnUserConnected(ctx, room.ID, "bob"); err != nil {
		t.Fatalf("second OnUserConnected: %v", err)
	}
}

func TestPublicRoomTracksNoUnread(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	room, _ := env.registry.GetOrCreatePublicRoom(ctx, "General")

	env.sendPrivate(t, room, "alice", "hello world")

	if c, _ := env.store.GetUnread(ctx, room.ID, "bob"); c != nil {
		t.Fatalf("public room produced a counter: %+v", c)
	}
}

func TestUnreadVerbPreviewTruncated(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.befriend(t, "alice", "bob")
	room, _ := env.registry.GetOrCreatePrivateRoom(ctx, "alice", "bob")

	long := strings.Repeat("x", 200)
	env.sendPrivate(t, room, "alice", long)

	n, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindUnreadMessages, room.ID)
	if !strings.HasPrefix(n.Verb, "alice: ") || !strings.HasSuffix(n.Verb, "...") {
		t.Fatalf("verb = %q", n.Verb)
	}
	if len(n.Verb) > len("alice: ")+50 {
		t.Fatalf("verb too long: %d chars", len(n.Verb))
	}
}

func TestUnreadVerbPreviewKeepsUTF8Intact(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.befriend(t, "alice", "bob")
	room, _ := env.registry.GetOrCreatePrivateRoom(ctx, "alice", "bob")

	long := strings.Repeat("\u00e9\u4e16", 100)
	env.sendPrivate(t, room, "alice", long)

	n, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindUnreadMessages, room.ID)
	if !utf8.ValidString(n.Verb) {
		t.Fatalf("verb is not valid UTF-8: %q", n.Verb)
	}
	if !strings.HasSuffix(n.Verb, "...") {
		t.Fatalf("verb = %q", n.Verb)
	}
	if got := utf8.RuneCountInString(n.Verb); got > utf8.RuneCountInString("alice: ")+50 {
		t.Fatalf("verb too long: %d runes", got)
	}
}

func TestNotificationFeedPaginationSentinel(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")
	env.befriend(t, "alice", "bob")
	room, _ := env.registry.GetOrCreatePrivateRoom(ctx, "alice", "bob")

	env.sendPrivate(t, room, "alice", "one")

	items, more, err := env.ledger.ListNotifications(ctx, "bob", model.ChatKinds, 1)
	if err != nil || len(items) != 1 || more {
		t.Fatalf("chat feed page 1: len=%d more=%v err=%v", len(items), more, err)
	}
	// The chat feed never leaks into the general feed.
	items, _, _ = env.ledger.ListNotifications(ctx, "bob", model.GeneralKinds, 1)
	if len(items) != 0 {
		t.Fatalf("general feed leaked %d chat notifications", len(items))
	}
	// Past the end: empty, no more.
	items, more, _ = env.ledger.ListNotifications(ctx, "bob", model.ChatKinds, 2)
	if len(items) != 0 || more {
		t.Fatalf("page past end: len=%d more=%v", len(items), more)
	}
}

func TestUnreadChatCountCountsRooms(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob", "carol")
	env.befriend(t, "alice", "bob")
	env.befriend(t, "carol", "bob")
	r1, _ := env.registry.GetOrCreatePrivateRoom(ctx, "alice", "bob")
	r2, _ := env.registry.GetOrCreatePrivateRoom(ctx, "carol", "bob")

	env.sendPrivate(t, r1, "alice", "hi")
	env.sendPrivate(t, r1, "alice", "hi again")
	env.sendPrivate(t, r2, "carol", "yo")

	count, err := env.ledger.UnreadChatCount(ctx, "bob")
	if err != nil || count != 2 {
		t.Fatalf("UnreadChatCount = %d, %v; want 2 rooms", count, err)
	}

	_ = env.ledger.OnUserConnected(ctx, r1.ID, "bob")
	count, _ = env.ledger.UnreadChatCount(ctx, "bob")
	if count != 1 {
		t.Fatalf("UnreadChatCount after reset = %d, want 1", count)
	}
}
