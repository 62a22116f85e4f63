package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"ChatCore/module/chat/model"
	"ChatCore/module/chat/store"
	"ChatCore/tools/errs"
	"ChatCore/tools/ids"
)

// Registry owns room rows: find-or-create for private rooms, existence and
// permission checks for everything else. Friendship gating is re-derived from
// the friend store on every ResolveRoom call; the room's is_active flag is a
// display filter, never a security boundary.
type Registry struct {
	mu    sync.Mutex // serializes find-or-create
	store store.Store
}

func NewRegistry(st store.Store) *Registry {
	return &Registry{store: st}
}

// GetOrCreatePrivateRoom returns the private room between a and b, creating
// it lazily on first use. Lookup is symmetric and the call is idempotent.
func (r *Registry) GetOrCreatePrivateRoom(ctx context.Context, a, b string) (*model.Room, error) {
	if a == "" || b == "" || a == b {
		return nil, errs.ErrValidation.WrapMsg("a private room needs two distinct users")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	room, err := r.store.FindPrivateRoom(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}
	room = &model.Room{
		ID:         ids.GenerateString(),
		Kind:       model.RoomPrivate,
		UserA:      a,
		UserB:      b,
		IsActive:   false,
		CreateTime: time.Now(),
	}
	if err := r.store.InsertRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// GetOrCreatePublicRoom returns the public room with the given title,
// creating it when absent.
func (r *Registry) GetOrCreatePublicRoom(ctx context.Context, title string) (*model.Room, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errs.ErrValidation.WrapMsg("room title is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	room, err := r.store.FindPublicRoomByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if room != nil {
		return room, nil
	}
	room = &model.Room{
		ID:         ids.GenerateString(),
		Kind:       model.RoomPublic,
		Title:      title,
		IsActive:   true,
		CreateTime: time.Now(),
	}
	if err := r.store.InsertRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// ResolveRoom fetches the room and enforces access for the requester.
// requester == "" means anonymous: allowed into public rooms only.
func (r *Registry) ResolveRoom(ctx context.Context, roomID, requester string) (*model.Room, error) {
	room, err := r.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, errs.ErrRoomInvalid.Wrap()
	}

	switch room.Kind {
	case model.RoomPublic:
		return room, nil

	case model.RoomPrivate:
		if requester == "" {
			return nil, errs.ErrAuthRequired.Wrap()
		}
		if !room.HasParticipant(requester) {
			return nil, errs.ErrRoomAccessDenied.Wrap()
		}
		ok, err := r.store.AreFriends(ctx, room.UserA, room.UserB)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.ErrRoomAccessDenied.WrapMsg("You must be friends to chat.")
		}
		return room, nil

	case model.RoomGroup:
		if requester == "" {
			return nil, errs.ErrAuthRequired.Wrap()
		}
		if !room.HasParticipant(requester) {
			return nil, errs.ErrRoomAccessDenied.Wrap()
		}
		return room, nil

	default:
		return nil, errs.ErrRoomInvalid.WrapMsg("unknown room kind")
	}
}

// SetPrivateRoomActive flips the display flag on the private room between a
// and b, creating the room when it does not exist yet.
func (r *Registry) SetPrivateRoomActive(ctx context.Context, a, b string, active bool) (*model.Room, error) {
	room, err := r.GetOrCreatePrivateRoom(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if room.IsActive != active {
		if err := r.store.UpdateRoomActive(ctx, room.ID, active); err != nil {
			return nil, err
		}
		room.IsActive = active
	}
	return room, nil
}

// SyncConnectedUsers persists the live presence snapshot onto the room row
// so offline readers see who is in the room. The presence tracker stays
// authoritative; the row is eventually consistent.
func (r *Registry) SyncConnectedUsers(ctx context.Context, roomID string, users []string) error {
	return r.store.SetRoomConnectedUsers(ctx, roomID, users)
}

// ListPublicRooms is the directory used by the lobby page.
func (r *Registry) ListPublicRooms(ctx context.Context) ([]*model.Room, error) {
	return r.store.ListPublicRooms(ctx)
}
