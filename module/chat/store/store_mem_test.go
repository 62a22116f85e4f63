package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"ChatCore/module/chat/model"
)

func TestPageMessagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMem()

	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		err := s.InsertMessage(ctx, &model.Message{
			ID:        fmt.Sprintf("m%d", i),
			RoomID:    "r1",
			AuthorID:  "u1",
			Content:   fmt.Sprintf("msg %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("InsertMessage: %v", err)
		}
	}

	items, total, err := s.PageMessages(ctx, "r1", 1, 2)
	if err != nil {
		t.Fatalf("PageMessages: %v", err)
	}
	if total != 5 {
		t.Fatalf("total = %d, want 5", total)
	}
	if len(items) != 2 || items[0].ID != "m4" || items[1].ID != "m3" {
		t.Fatalf("page 1 = %v", ids(items))
	}

	items, _, _ = s.PageMessages(ctx, "r1", 3, 2)
	if len(items) != 1 || items[0].ID != "m0" {
		t.Fatalf("page 3 = %v", ids(items))
	}

	items, _, _ = s.PageMessages(ctx, "r1", 4, 2)
	if len(items) != 0 {
		t.Fatalf("page past end = %v, want empty", ids(items))
	}
}

func ids(items []*model.Message) []string {
	out := make([]string, len(items))
	for i, m := range items {
		out[i] = m.ID
	}
	return out
}

func TestIncrementAndResetUnread(t *testing.T) {
	ctx := context.Background()
	s := NewMem()
	now := time.Now()

	for i := 0; i < 3; i++ {
		c, err := s.IncrementUnread(ctx, "r1", "bob", "alice", fmt.Sprintf("hello %d", i), now)
		if err != nil {
			t.Fatalf("IncrementUnread: %v", err)
		}
		if c.Count != i+1 {
			t.Fatalf("count = %d, want %d", c.Count, i+1)
		}
	}

	c, _ := s.GetUnread(ctx, "r1", "bob")
	if c.MostRecent != "hello 2" {
		t.Fatalf("most recent = %q", c.MostRecent)
	}

	reset, err := s.ResetUnread(ctx, "r1", "bob", now)
	if err != nil || !reset {
		t.Fatalf("ResetUnread = %v, %v; want true, nil", reset, err)
	}
	c, _ = s.GetUnread(ctx, "r1", "bob")
	if c.Count != 0 {
		t.Fatalf("count after reset = %d", c.Count)
	}

	// A second reset has nothing to do.
	reset, _ = s.ResetUnread(ctx, "r1", "bob", now)
	if reset {
		t.Fatal("second reset reported a change")
	}
	// Resetting a counter that never existed is not an error either.
	reset, err = s.ResetUnread(ctx, "r9", "bob", now)
	if err != nil || reset {
		t.Fatalf("reset of absent counter = %v, %v", reset, err)
	}
}

func TestNotificationObjectLookup(t *testing.T) {
	ctx := context.Background()
	s := NewMem()

	n := &model.Notification{
		ID:        "n1",
		Target:    "bob",
		Kind:      model.KindUnreadMessages,
		ObjectID:  "r1",
		Verb:      "alice: hi",
		IsActive:  true,
		Timestamp: time.Now(),
	}
	if err := s.InsertNotification(ctx, n); err != nil {
		t.Fatalf("InsertNotification: %v", err)
	}

	got, _ := s.FindNotificationByObject(ctx, "bob", model.KindUnreadMessages, "r1")
	if got == nil || got.ID != "n1" {
		t.Fatalf("FindNotificationByObject = %v", got)
	}
	if got, _ := s.FindNotificationByObject(ctx, "alice", model.KindUnreadMessages, "r1"); got != nil {
		t.Fatalf("wrong-target lookup = %v", got)
	}

	if err := s.DeleteNotificationByObject(ctx, "bob", model.KindUnreadMessages, "r1"); err != nil {
		t.Fatalf("DeleteNotificationByObject: %v", err)
	}
	if got, _ := s.GetNotification(ctx, "n1"); got != nil {
		t.Fatal("notification survived delete")
	}
	// Deleting again is a no-op.
	if err := s.DeleteNotificationByObject(ctx, "bob", model.KindUnreadMessages, "r1"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestPageNotificationsOrder(t *testing.T) {
	ctx := context.Background()
	s := NewMem()
	base := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		_ = s.InsertNotification(ctx, &model.Notification{
			ID:        fmt.Sprintf("n%d", i),
			Target:    "bob",
			Kind:      model.KindFriendRequest,
			ObjectID:  fmt.Sprintf("req%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Minute),
		})
	}

	items, total, err := s.PageNotifications(ctx, "bob", model.GeneralKinds, 1, 10)
	if err != nil {
		t.Fatalf("PageNotifications: %v", err)
	}
	if total != 3 || len(items) != 3 {
		t.Fatalf("total=%d len=%d", total, len(items))
	}
	if items[0].ID != "n2" || items[2].ID != "n0" {
		t.Fatalf("order = %s,%s,%s", items[0].ID, items[1].ID, items[2].ID)
	}

	newer, _ := s.ListNotificationsNewer(ctx, "bob", model.GeneralKinds, base)
	if len(newer) != 2 {
		t.Fatalf("newer than base = %d, want 2", len(newer))
	}
}

func TestFriendSetIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewMem()

	_ = s.AddFriend(ctx, "alice", "bob")
	_ = s.AddFriend(ctx, "alice", "bob")

	got, _ := s.FriendsOf(ctx, "alice")
	if len(got) != 1 || got[0] != "bob" {
		t.Fatalf("FriendsOf = %v", got)
	}
	// One direction only.
	if ok, _ := s.AreFriends(ctx, "bob", "alice"); ok {
		t.Fatal("reverse direction should not exist")
	}

	_ = s.RemoveFriend(ctx, "alice", "bob")
	if ok, _ := s.AreFriends(ctx, "alice", "bob"); ok {
		t.Fatal("relation survived removal")
	}
}
