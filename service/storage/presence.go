package storage

import (
	"context"
	"sort"
	"sync"

	"ChatCore/logger"
)

// PresenceTracker is the authoritative record of which users are connected to
// which rooms on this gateway. It counts sessions per (room, user) so a user
// with two tabs open stays present until the last one detaches. Redis only
// mirrors this state for cross-node lookup.
type PresenceTracker struct {
	mu        sync.RWMutex
	rooms     map[string]map[string]int
	gatewayID string

	// ConnectHook runs after a user transitions to present in a room,
	// outside the tracker lock.
	ConnectHook func(ctx context.Context, roomID, userID string)
}

func NewPresenceTracker(gatewayID string) *PresenceTracker {
	return &PresenceTracker{
		rooms:     make(map[string]map[string]int),
		gatewayID: gatewayID,
	}
}

// Connect records a session attaching to a room. It reports whether the user
// transitioned from absent to present.
func (p *PresenceTracker) Connect(ctx context.Context, roomID, userID string) bool {
	p.mu.Lock()
	users := p.rooms[roomID]
	if users == nil {
		users = make(map[string]int)
		p.rooms[roomID] = users
	}
	users[userID]++
	first := users[userID] == 1
	p.mu.Unlock()

	if first {
		if err := MirrorRoomJoin(ctx, roomID, userID); err != nil {
			logger.Warnf("presence mirror join failed: room=%s user=%s err=%v", roomID, userID, err)
		}
		if err := MirrorOnline(ctx, userID, p.gatewayID); err != nil {
			logger.Warnf("presence mirror online failed: user=%s err=%v", userID, err)
		}
		if p.ConnectHook != nil {
			p.ConnectHook(ctx, roomID, userID)
		}
	}
	return first
}

// Disconnect records a session detaching. Calls beyond the matching Connect
// are ignored. It reports whether the user transitioned to absent.
func (p *PresenceTracker) Disconnect(ctx context.Context, roomID, userID string) bool {
	p.mu.Lock()
	users := p.rooms[roomID]
	if users == nil || users[userID] == 0 {
		p.mu.Unlock()
		return false
	}
	users[userID]--
	last := users[userID] == 0
	if last {
		delete(users, userID)
		if len(users) == 0 {
			delete(p.rooms, roomID)
		}
	}
	p.mu.Unlock()

	if last {
		if err := MirrorRoomLeave(ctx, roomID, userID); err != nil {
			logger.Warnf("presence mirror leave failed: room=%s user=%s err=%v", roomID, userID, err)
		}
	}
	return last
}

// IsPresent reports whether the user has at least one session in the room.
func (p *PresenceTracker) IsPresent(roomID, userID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rooms[roomID][userID] > 0
}

// Snapshot returns the users currently present in a room, sorted.
func (p *PresenceTracker) Snapshot(roomID string) []string {
	p.mu.RLock()
	users := p.rooms[roomID]
	out := make([]string, 0, len(users))
	for u := range users {
		out = append(out, u)
	}
	p.mu.RUnlock()
	sort.Strings(out)
	return out
}

// RoomCount returns how many users are present in a room.
func (p *PresenceTracker) RoomCount(roomID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.rooms[roomID])
}
