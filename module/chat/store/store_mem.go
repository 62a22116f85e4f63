package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"ChatCore/module/chat/model"
)

// Mem is the in-memory Store used by tests and standalone runs. All methods
// are safe for concurrent use; values are copied on the way in and out so
// callers never alias internal state.
type Mem struct {
	mu      sync.RWMutex
	rooms   map[string]*model.Room
	msgs    map[string][]*model.Message // roomID -> commit order
	unread  map[string]*model.UnreadCounter
	notifs  map[string]*model.Notification
	nseq    map[string]int64 // notification id -> insertion sequence
	seq     int64
	friends map[string]map[string]struct{}
	reqs    map[string]*model.FriendRequest
}

func NewMem() *Mem {
	return &Mem{
		rooms:   make(map[string]*model.Room),
		msgs:    make(map[string][]*model.Message),
		unread:  make(map[string]*model.UnreadCounter),
		notifs:  make(map[string]*model.Notification),
		nseq:    make(map[string]int64),
		friends: make(map[string]map[string]struct{}),
		reqs:    make(map[string]*model.FriendRequest),
	}
}

func unreadKey(roomID, userID string) string { return roomID + "|" + userID }

// ---- rooms ----

func (s *Mem) InsertRoom(ctx context.Context, r *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.rooms[r.ID] = &cp
	return nil
}

func (s *Mem) GetRoom(ctx context.Context, id string) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.rooms[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *Mem) FindPrivateRoom(ctx context.Context, a, b string) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.Kind != model.RoomPrivate {
			continue
		}
		if (r.UserA == a && r.UserB == b) || (r.UserA == b && r.UserB == a) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Mem) FindPublicRoomByTitle(ctx context.Context, title string) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rooms {
		if r.Kind == model.RoomPublic && r.Title == title {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Mem) UpdateRoomActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		r.IsActive = active
	}
	return nil
}

func (s *Mem) SetRoomConnectedUsers(ctx context.Context, id string, users []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		r.ConnectedUsers = append([]string(nil), users...)
	}
	return nil
}

func (s *Mem) ListPublicRooms(ctx context.Context) ([]*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Room
	for _, r := range s.rooms {
		if r.Kind == model.RoomPublic {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}

// ---- messages ----

func (s *Mem) InsertMessage(ctx context.Context, m *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.msgs[m.RoomID] = append(s.msgs[m.RoomID], &cp)
	return nil
}

func (s *Mem) PageMessages(ctx context.Context, roomID string, page, size int) ([]*model.Message, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	log := s.msgs[roomID]
	total := int64(len(log))
	if page < 1 || size <= 0 {
		return nil, total, nil
	}
	// newest first = reverse commit order
	start := (page - 1) * size
	if start >= len(log) {
		return []*model.Message{}, total, nil
	}
	end := start + size
	if end > len(log) {
		end = len(log)
	}
	out := make([]*model.Message, 0, end-start)
	for i := start; i < end; i++ {
		cp := *log[len(log)-1-i]
		out = append(out, &cp)
	}
	return out, total, nil
}

// ---- unread counters ----

func (s *Mem) IncrementUnread(ctx context.Context, roomID, userID, otherUserID, mostRecent string, at time.Time) (*model.UnreadCounter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := unreadKey(roomID, userID)
	c, ok := s.unread[k]
	if !ok {
		c = &model.UnreadCounter{RoomID: roomID, UserID: userID, OtherUserID: otherUserID}
		s.unread[k] = c
	}
	c.Count++
	c.MostRecent = mostRecent
	c.UpdatedAt = at
	cp := *c
	return &cp, nil
}

func (s *Mem) ResetUnread(ctx context.Context, roomID, userID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.unread[unreadKey(roomID, userID)]
	if !ok || c.Count == 0 {
		return false, nil
	}
	c.Count = 0
	c.ResetAt = at
	c.UpdatedAt = at
	return true, nil
}

func (s *Mem) GetUnread(ctx context.Context, roomID, userID string) (*model.UnreadCounter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.unread[unreadKey(roomID, userID)]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, nil
}

func (s *Mem) CountActiveUnread(ctx context.Context, userID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.unread {
		if c.UserID == userID && c.Count > 0 {
			n++
		}
	}
	return n, nil
}

// ---- notifications ----

func (s *Mem) InsertNotification(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *n
	s.notifs[n.ID] = &cp
	s.seq++
	s.nseq[n.ID] = s.seq
	return nil
}

func (s *Mem) UpdateNotification(ctx context.Context, n *model.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notifs[n.ID]; !ok {
		return nil
	}
	cp := *n
	s.notifs[n.ID] = &cp
	return nil
}

func (s *Mem) GetNotification(ctx context.Context, id string) (*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n, ok := s.notifs[id]; ok {
		cp := *n
		return &cp, nil
	}
	return nil, nil
}

func (s *Mem) FindNotificationByObject(ctx context.Context, target string, kind model.NotificationKind, objectID string) (*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notifs {
		if n.Target == target && n.Kind == kind && n.ObjectID == objectID {
			cp := *n
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Mem) DeleteNotificationByObject(ctx context.Context, target string, kind model.NotificationKind, objectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, n := range s.notifs {
		if n.Target == target && n.Kind == kind && n.ObjectID == objectID {
			delete(s.notifs, id)
			delete(s.nseq, id)
		}
	}
	return nil
}

func (s *Mem) matchLocked(target string, kinds []model.NotificationKind) []*model.Notification {
	var out []*model.Notification
	for _, n := range s.notifs {
		if n.Target != target {
			continue
		}
		for _, k := range kinds {
			if n.Kind == k {
				out = append(out, n)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return s.nseq[out[i].ID] > s.nseq[out[j].ID]
	})
	return out
}

func (s *Mem) PageNotifications(ctx context.Context, target string, kinds []model.NotificationKind, page, size int) ([]*model.Notification, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.matchLocked(target, kinds)
	total := int64(len(all))
	if page < 1 || size <= 0 {
		return nil, total, nil
	}
	start := (page - 1) * size
	if start >= len(all) {
		return []*model.Notification{}, total, nil
	}
	end := start + size
	if end > len(all) {
		end = len(all)
	}
	out := make([]*model.Notification, 0, end-start)
	for _, n := range all[start:end] {
		cp := *n
		out = append(out, &cp)
	}
	return out, total, nil
}

func (s *Mem) ListNotificationsNewer(ctx context.Context, target string, kinds []model.NotificationKind, since time.Time) ([]*model.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Notification
	for _, n := range s.matchLocked(target, kinds) {
		if n.Timestamp.After(since) {
			cp := *n
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Mem) CountUnreadNotifications(ctx context.Context, target string, kinds []model.NotificationKind) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, x := range s.matchLocked(target, kinds) {
		if !x.Read {
			n++
		}
	}
	return n, nil
}

func (s *Mem) MarkNotificationsRead(ctx context.Context, target string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifs {
		if n.Target == target {
			n.Read = true
		}
	}
	return nil
}

// ---- friend sets ----

func (s *Mem) AddFriend(ctx context.Context, owner, friend string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.friends[owner] == nil {
		s.friends[owner] = make(map[string]struct{})
	}
	s.friends[owner][friend] = struct{}{}
	return nil
}

func (s *Mem) RemoveFriend(ctx context.Context, owner, friend string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.friends[owner], friend)
	return nil
}

func (s *Mem) AreFriends(ctx context.Context, owner, friend string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.friends[owner][friend]
	return ok, nil
}

func (s *Mem) FriendsOf(ctx context.Context, owner string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.friends[owner]))
	for f := range s.friends[owner] {
		out = append(out, f)
	}
	sort.Strings(out)
	return out, nil
}

// ---- friend requests ----

func (s *Mem) InsertRequest(ctx context.Context, r *model.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.reqs[r.ID] = &cp
	return nil
}

func (s *Mem) GetRequest(ctx context.Context, id string) (*model.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r, ok := s.reqs[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (s *Mem) FindPendingRequest(ctx context.Context, sender, receiver string) (*model.FriendRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.reqs {
		if r.SenderID == sender && r.ReceiverID == receiver && r.IsActive {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Mem) UpdateRequest(ctx context.Context, r *model.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reqs[r.ID]; !ok {
		return nil
	}
	cp := *r
	s.reqs[r.ID] = &cp
	return nil
}

var _ Store = (*Mem)(nil)
