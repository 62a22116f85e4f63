package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ChatCore/module/chat/model"
	"ChatCore/module/chat/store"
	usersvc "ChatCore/module/user/service"
	"ChatCore/tools/errs"
	"ChatCore/tools/ids"
)

// Friends drives the friend-request lifecycle. Every mutation performs its
// notification side effects synchronously as part of the documented contract;
// the whole side-effect set of an accept (both friend sets, room activation,
// both notifications, request settle) is applied under one lock so callers
// observe it atomically.
type Friends struct {
	mu        sync.Mutex
	store     store.Store
	registry  *Registry
	directory *usersvc.Directory
}

func NewFriends(st store.Store, reg *Registry, dir *usersvc.Directory) *Friends {
	return &Friends{store: st, registry: reg, directory: dir}
}

// SendRequest creates a pending request and the receiver's notification.
func (f *Friends) SendRequest(ctx context.Context, sender, receiver string) (*model.FriendRequest, error) {
	if sender == "" {
		return nil, errs.ErrAuthRequired.Wrap()
	}
	if receiver == "" || receiver == sender {
		return nil, errs.ErrValidation.WrapMsg("You cannot send a friend request to yourself.")
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	if ok, err := f.store.AreFriends(ctx, sender, receiver); err != nil {
		return nil, err
	} else if ok {
		return nil, errs.ErrValidation.WrapMsg("You are already friends.")
	}
	for _, pair := range [][2]string{{sender, receiver}, {receiver, sender}} {
		if pending, err := f.store.FindPendingRequest(ctx, pair[0], pair[1]); err != nil {
			return nil, err
		} else if pending != nil {
			return nil, errs.ErrValidation.WrapMsg("A friend request is already pending.")
		}
	}

	senderAcc, err := f.directory.Get(ctx, sender)
	if err != nil {
		return nil, err
	}
	req := &model.FriendRequest{
		ID:         ids.GenerateString(),
		SenderID:   sender,
		ReceiverID: receiver,
		IsActive:   true,
		CreateTime: time.Now(),
	}
	if err := f.store.InsertRequest(ctx, req); err != nil {
		return nil, err
	}
	err = f.store.InsertNotification(ctx, &model.Notification{
		ID:          ids.GenerateString(),
		Target:      receiver,
		Kind:        model.KindFriendRequest,
		ObjectID:    req.ID,
		FromUser:    sender,
		Verb:        fmt.Sprintf("%s sent you a friend request.", senderAcc.Username),
		RedirectURL: "/account/" + sender + "/",
		ImageURL:    senderAcc.ProfileImage,
		IsActive:    true,
		Timestamp:   req.CreateTime,
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Accept settles the request: both friend sets gain the other party, the
// private room is activated (created on first acceptance), the receiver's
// request notification is resolved in place and the sender gets a new one.
// Only the receiver may accept.
func (f *Friends) Accept(ctx context.Context, requestID, actor string) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, err := f.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != actor {
		return nil, errs.ErrRoomAccessDenied.WrapMsg("Only the receiver can accept a friend request.")
	}

	senderAcc, err := f.directory.Get(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	receiverAcc, err := f.directory.Get(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}

	if err := f.store.AddFriend(ctx, req.ReceiverID, req.SenderID); err != nil {
		return nil, err
	}
	if err := f.store.AddFriend(ctx, req.SenderID, req.ReceiverID); err != nil {
		return nil, err
	}
	if _, err := f.registry.SetPrivateRoomActive(ctx, req.SenderID, req.ReceiverID, true); err != nil {
		return nil, err
	}

	now := time.Now()
	receiverNotif, err := f.store.FindNotificationByObject(ctx, req.ReceiverID, model.KindFriendRequest, req.ID)
	if err != nil {
		return nil, err
	}
	if receiverNotif != nil {
		receiverNotif.Verb = fmt.Sprintf("You accepted %s's friend request.", senderAcc.Username)
		receiverNotif.IsActive = false
		receiverNotif.Read = false
		receiverNotif.Timestamp = now
		if err := f.store.UpdateNotification(ctx, receiverNotif); err != nil {
			return nil, err
		}
	}
	err = f.store.InsertNotification(ctx, &model.Notification{
		ID:          ids.GenerateString(),
		Target:      req.SenderID,
		Kind:        model.KindFriendship,
		ObjectID:    req.ReceiverID,
		FromUser:    req.ReceiverID,
		Verb:        fmt.Sprintf("%s accepted your friend request.", receiverAcc.Username),
		RedirectURL: "/account/" + req.ReceiverID + "/",
		ImageURL:    receiverAcc.ProfileImage,
		IsActive:    true,
		Timestamp:   now,
	})
	if err != nil {
		return nil, err
	}

	req.IsActive = false
	req.HandleTime = now
	if err := f.store.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}
	return receiverNotif, nil
}

// Decline settles the request with no friendship mutation. Receiver only.
func (f *Friends) Decline(ctx context.Context, requestID, actor string) (*model.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, err := f.pendingRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != actor {
		return nil, errs.ErrRoomAccessDenied.WrapMsg("Only the receiver can decline a friend request.")
	}
	senderAcc, err := f.directory.Get(ctx, req.SenderID)
	if err != nil {
		return nil, err
	}
	receiverAcc, err := f.directory.Get(ctx, req.ReceiverID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	receiverNotif, err := f.store.FindNotificationByObject(ctx, req.ReceiverID, model.KindFriendRequest, req.ID)
	if err != nil {
		return nil, err
	}
	if receiverNotif != nil {
		receiverNotif.Verb = fmt.Sprintf("You declined %s's friend request.", senderAcc.Username)
		receiverNotif.IsActive = false
		receiverNotif.Timestamp = now
		if err := f.store.UpdateNotification(ctx, receiverNotif); err != nil {
			return nil, err
		}
	}
	err = f.store.InsertNotification(ctx, &model.Notification{
		ID:          ids.GenerateString(),
		Target:      req.SenderID,
		Kind:        model.KindFriendship,
		ObjectID:    req.ReceiverID,
		FromUser:    req.ReceiverID,
		Verb:        fmt.Sprintf("%s declined your friend request.", receiverAcc.Username),
		RedirectURL: "/account/" + req.ReceiverID + "/",
		ImageURL:    receiverAcc.ProfileImage,
		IsActive:    true,
		Timestamp:   now,
	})
	if err != nil {
		return nil, err
	}

	req.IsActive = false
	req.HandleTime = now
	if err := f.store.UpdateRequest(ctx, req); err != nil {
		return nil, err
	}
	return receiverNotif, nil
}

// Cancel withdraws a pending request. Sender only; the receiver's
// notification is rewritten in place rather than deleted.
func (f *Friends) Cancel(ctx context.Context, requestID, actor string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	req, err := f.pendingRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.SenderID != actor {
		return errs.ErrRoomAccessDenied.WrapMsg("Only the sender can cancel a friend request.")
	}
	senderAcc, err := f.directory.Get(ctx, req.SenderID)
	if err != nil {
		return err
	}
	receiverAcc, err := f.directory.Get(ctx, req.ReceiverID)
	if err != nil {
		return err
	}

	now := time.Now()
	receiverNotif, err := f.store.FindNotificationByObject(ctx, req.ReceiverID, model.KindFriendRequest, req.ID)
	if err != nil {
		return err
	}
	if receiverNotif != nil {
		receiverNotif.Verb = fmt.Sprintf("%s cancelled the friend request sent to you.", senderAcc.Username)
		receiverNotif.IsActive = false
		receiverNotif.Read = false
		if err := f.store.UpdateNotification(ctx, receiverNotif); err != nil {
			return err
		}
	}
	err = f.store.InsertNotification(ctx, &model.Notification{
		ID:          ids.GenerateString(),
		Target:      req.SenderID,
		Kind:        model.KindFriendship,
		ObjectID:    req.ReceiverID,
		FromUser:    req.ReceiverID,
		Verb:        fmt.Sprintf("You cancelled the friend request to %s.", receiverAcc.Username),
		RedirectURL: "/account/" + req.ReceiverID + "/",
		ImageURL:    receiverAcc.ProfileImage,
		IsActive:    true,
		Timestamp:   now,
	})
	if err != nil {
		return err
	}

	req.IsActive = false
	req.HandleTime = now
	return f.store.UpdateRequest(ctx, req)
}

// Unfriend removes the symmetric relation, deactivates the private room and
// notifies both parties.
func (f *Friends) Unfriend(ctx context.Context, remover, removee string) error {
	if remover == "" {
		return errs.ErrAuthRequired.Wrap()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	ok, err := f.store.AreFriends(ctx, remover, removee)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrNotFound.WrapMsg("You are not friends.")
	}
	removerAcc, err := f.directory.Get(ctx, remover)
	if err != nil {
		return err
	}
	removeeAcc, err := f.directory.Get(ctx, removee)
	if err != nil {
		return err
	}

	if err := f.store.RemoveFriend(ctx, remover, removee); err != nil {
		return err
	}
	if err := f.store.RemoveFriend(ctx, removee, remover); err != nil {
		return err
	}
	if _, err := f.registry.SetPrivateRoomActive(ctx, remover, removee, false); err != nil {
		return err
	}

	now := time.Now()
	for _, n := range []*model.Notification{
		{
			Target: removee, FromUser: remover, ObjectID: remover,
			Verb:        fmt.Sprintf("You are no longer friends with %s.", removerAcc.Username),
			RedirectURL: "/account/" + remover + "/",
			ImageURL:    removerAcc.ProfileImage,
		},
		{
			Target: remover, FromUser: removee, ObjectID: removee,
			Verb:        fmt.Sprintf("You are no longer friends with %s.", removeeAcc.Username),
			RedirectURL: "/account/" + removee + "/",
			ImageURL:    removeeAcc.ProfileImage,
		},
	} {
		n.ID = ids.GenerateString()
		n.Kind = model.KindFriendship
		n.IsActive = true
		n.Timestamp = now
		if err := f.store.InsertNotification(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

// RequestFromNotification maps a friend_request notification back to its
// request id, validating the notification belongs to the actor.
func (f *Friends) RequestFromNotification(ctx context.Context, notificationID, actor string) (string, error) {
	n, err := f.store.GetNotification(ctx, notificationID)
	if err != nil {
		return "", err
	}
	if n == nil || n.Kind != model.KindFriendRequest {
		return "", errs.ErrNotFound.WrapMsg("An error occurred with that notification. Try refreshing the browser.")
	}
	if n.Target != actor {
		return "", errs.ErrRoomAccessDenied.Wrap()
	}
	return n.ObjectID, nil
}

func (f *Friends) pendingRequest(ctx context.Context, requestID string) (*model.FriendRequest, error) {
	req, err := f.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, errs.ErrNotFound.WrapMsg("friend request " + requestID)
	}
	if !req.IsActive {
		return nil, errs.ErrNotFound.WrapMsg("That friend request has already been handled.")
	}
	return req, nil
}
