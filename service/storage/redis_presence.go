package storage

import (
	"context"
	"time"
)

// Redis mirror of the in-process presence state. Keys:
//
//	im:presence:<user>       gateway id, TTL bounds staleness after a crash
//	im:room:<room>:online    set of user ids connected to the room
//
// All writes are best effort. The in-memory tracker stays authoritative and
// callers must not gate message delivery on these keys.

const presenceTTL = 90 * time.Second

func presenceKey(user string) string { return "im:presence:" + user }
func roomOnlineKey(room string) string { return "im:room:" + room + ":online" }

// MirrorOnline marks the user online on this gateway and renews the TTL.
func MirrorOnline(ctx context.Context, user, gatewayID string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Set(ctx, presenceKey(user), gatewayID, presenceTTL).Err()
}

// MirrorOffline deletes the user presence key.
func MirrorOffline(ctx context.Context, user string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, presenceKey(user)).Err()
}

// MirrorRoomJoin adds the user to the room's online set.
func MirrorRoomJoin(ctx context.Context, room, user string) error {
	if rdb == nil {
		return nil
	}
	return rdb.SAdd(ctx, roomOnlineKey(room), user).Err()
}

// MirrorRoomLeave removes the user from the room's online set.
func MirrorRoomLeave(ctx context.Context, room, user string) error {
	if rdb == nil {
		return nil
	}
	return rdb.SRem(ctx, roomOnlineKey(room), user).Err()
}
