package service

import (
	"context"
	"testing"

	"ChatCore/module/chat/model"
	"ChatCore/tools/errs"
)

func TestSendRequestCreatesNotification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	req, err := env.friends.SendRequest(ctx, "alice", "bob")
	if err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if !req.IsActive || req.SenderID != "alice" || req.ReceiverID != "bob" {
		t.Fatalf("request = %+v", req)
	}

	n, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindFriendRequest, req.ID)
	if n == nil {
		t.Fatal("receiver got no notification")
	}
	if n.Verb != "alice sent you a friend request." {
		t.Fatalf("verb = %q", n.Verb)
	}
}

func TestSendRequestRejectsSelfDuplicateAndFriends(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	if _, err := env.friends.SendRequest(ctx, "alice", "alice"); !errs.ErrValidation.Is(err) {
		t.Fatalf("self request err = %v", err)
	}

	if _, err := env.friends.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	if _, err := env.friends.SendRequest(ctx, "alice", "bob"); !errs.ErrValidation.Is(err) {
		t.Fatalf("duplicate err = %v", err)
	}
	// The reverse direction is blocked by the same pending request.
	if _, err := env.friends.SendRequest(ctx, "bob", "alice"); !errs.ErrValidation.Is(err) {
		t.Fatalf("reverse duplicate err = %v", err)
	}

	env2 := newTestEnv(t, "alice", "bob")
	env2.befriend(t, "alice", "bob")
	if _, err := env2.friends.SendRequest(ctx, "alice", "bob"); !errs.ErrValidation.Is(err) {
		t.Fatalf("already-friends err = %v", err)
	}
}

func TestAcceptEstablishesFriendshipAndRoom(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	req, _ := env.friends.SendRequest(ctx, "alice", "bob")

	// Only the receiver can accept.
	if _, err := env.friends.Accept(ctx, req.ID, "alice"); !errs.ErrRoomAccessDenied.Is(err) {
		t.Fatalf("sender accept err = %v", err)
	}

	updated, err := env.friends.Accept(ctx, req.ID, "bob")
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// Friendship is mutual.
	for _, pair := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		if ok, _ := env.store.AreFriends(ctx, pair[0], pair[1]); !ok {
			t.Fatalf("%s -> %s not friends after accept", pair[0], pair[1])
		}
	}

	// The private room exists and is active.
	room, _ := env.store.FindPrivateRoom(ctx, "alice", "bob")
	if room == nil || !room.IsActive {
		t.Fatalf("room after accept = %+v", room)
	}
	if _, err := env.registry.ResolveRoom(ctx, room.ID, "alice"); err != nil {
		t.Fatalf("resolve after accept: %v", err)
	}

	// Receiver's notification was rewritten in place and settled.
	if updated == nil || updated.Verb != "You accepted alice's friend request." || updated.IsActive {
		t.Fatalf("updated notification = %+v", updated)
	}
	// Sender got the acceptance notification.
	n, _ := env.store.FindNotificationByObject(ctx, "alice", model.KindFriendship, "bob")
	if n == nil || n.Verb != "bob accepted your friend request." {
		t.Fatalf("sender notification = %+v", n)
	}

	// The request is settled: a second accept fails.
	if _, err := env.friends.Accept(ctx, req.ID, "bob"); !errs.ErrNotFound.Is(err) {
		t.Fatalf("second accept err = %v", err)
	}
}

func TestDeclineLeavesNoFriendship(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	req, _ := env.friends.SendRequest(ctx, "alice", "bob")
	updated, err := env.friends.Decline(ctx, req.ID, "bob")
	if err != nil {
		t.Fatalf("Decline: %v", err)
	}
	if updated == nil || updated.Verb != "You declined alice's friend request." {
		t.Fatalf("updated notification = %+v", updated)
	}

	if ok, _ := env.store.AreFriends(ctx, "alice", "bob"); ok {
		t.Fatal("decline created a friendship")
	}
	if room, _ := env.store.FindPrivateRoom(ctx, "alice", "bob"); room != nil {
		t.Fatal("decline created a room")
	}
	n, _ := env.store.FindNotificationByObject(ctx, "alice", model.KindFriendship, "bob")
	if n == nil || n.Verb != "bob declined your friend request." {
		t.Fatalf("sender notification = %+v", n)
	}
}

func TestCancelIsSenderOnly(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	req, _ := env.friends.SendRequest(ctx, "alice", "bob")
	if err := env.friends.Cancel(ctx, req.ID, "bob"); !errs.ErrRoomAccessDenied.Is(err) {
		t.Fatalf("receiver cancel err = %v", err)
	}
	if err := env.friends.Cancel(ctx, req.ID, "alice"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	got, _ := env.store.GetRequest(ctx, req.ID)
	if got.IsActive {
		t.Fatal("request still active after cancel")
	}
	// A fresh request can now be sent.
	if _, err := env.friends.SendRequest(ctx, "alice", "bob"); err != nil {
		t.Fatalf("resend after cancel: %v", err)
	}
}

func TestUnfriendTearsDownRoomAndNotifiesBoth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	req, _ := env.friends.SendRequest(ctx, "alice", "bob")
	if _, err := env.friends.Accept(ctx, req.ID, "bob"); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if err := env.friends.Unfriend(ctx, "alice", "bob"); err != nil {
		t.Fatalf("Unfriend: %v", err)
	}

	if ok, _ := env.store.AreFriends(ctx, "alice", "bob"); ok {
		t.Fatal("friendship survived unfriend")
	}
	if ok, _ := env.store.AreFriends(ctx, "bob", "alice"); ok {
		t.Fatal("reverse friendship survived unfriend")
	}
	room, _ := env.store.FindPrivateRoom(ctx, "alice", "bob")
	if room.IsActive {
		t.Fatal("room still active after unfriend")
	}
	if _, err := env.registry.ResolveRoom(ctx, room.ID, "alice"); !errs.ErrRoomAccessDenied.Is(err) {
		t.Fatalf("resolve after unfriend err = %v", err)
	}

	n, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindFriendship, "alice")
	if n == nil || n.Verb != "You are no longer friends with alice." {
		t.Fatalf("removee notification = %+v", n)
	}

	// Unfriending twice errors.
	if err := env.friends.Unfriend(ctx, "alice", "bob"); !errs.ErrNotFound.Is(err) {
		t.Fatalf("second unfriend err = %v", err)
	}
}

func TestRequestFromNotification(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, "alice", "bob")

	req, _ := env.friends.SendRequest(ctx, "alice", "bob")
	n, _ := env.store.FindNotificationByObject(ctx, "bob", model.KindFriendRequest, req.ID)

	got, err := env.friends.RequestFromNotification(ctx, n.ID, "bob")
	if err != nil || got != req.ID {
		t.Fatalf("RequestFromNotification = %q, %v", got, err)
	}
	// Someone else's notification id is refused.
	if _, err := env.friends.RequestFromNotification(ctx, n.ID, "alice"); !errs.ErrRoomAccessDenied.Is(err) {
		t.Fatalf("foreign notification err = %v", err)
	}
	if _, err := env.friends.RequestFromNotification(ctx, "nope", "bob"); !errs.ErrNotFound.Is(err) {
		t.Fatalf("unknown notification err = %v", err)
	}
}
