package chat

import (
	"context"

	"ChatCore/logger"
	"ChatCore/module/chat/model"
	"ChatCore/tools/errs"
)

// Session is the per-connection state machine. All commands for a session
// run on its single reader goroutine, so the rooms set needs no lock. A
// session starts Unjoined and moves to InRoom per joined room; disconnect
// replays the leave transition for everything still joined.
type Session struct {
	server *Server
	client *Client

	rooms map[string]*model.Room
}

func NewSession(server *Server, client *Client) *Session {
	return &Session{
		server: server,
		client: client,
		rooms:  make(map[string]*model.Room),
	}
}

func (s *Session) UserID() string  { return s.client.UserID }
func (s *Session) Client() *Client { return s.client }

// Emit queues an event to this session only.
func (s *Session) Emit(data []byte) { s.client.Enqueue(data) }

// EmitError surfaces a domain error as the single wire error event. The
// connection always survives; storage faults are logged and masked.
func (s *Session) EmitError(err error) {
	if err == nil {
		return
	}
	if errs.AsCodeError(err) == nil {
		logger.Errorf("[session] internal error conn=%s user=%s err=%+v", s.client.ConnID, s.client.UserID, err)
	}
	s.Emit(errorEvent(err))
}

// Join moves the session into a room. The ack is queued to the caller
// before any broadcast the join triggers. Joining a second private room
// implicitly leaves the first; a session holds at most one private chat.
func (s *Session) Join(ctx context.Context, roomID string) error {
	room, err := s.server.Registry.ResolveRoom(ctx, roomID, s.client.UserID)
	if err != nil {
		return err
	}
	if _, joined := s.rooms[room.ID]; joined {
		s.Emit(joinAckEvent(room.ID))
		return nil
	}
	if room.Kind == model.RoomPrivate {
		for _, prev := range s.rooms {
			if prev.Kind == model.RoomPrivate {
				s.Leave(ctx, prev.ID)
			}
		}
	}

	s.rooms[room.ID] = room
	s.server.ConnMgr.Subscribe(room.GroupName(), s.client)
	s.Emit(joinAckEvent(room.ID))

	if s.client.Anonymous() {
		return nil
	}
	first := s.server.Presence.Connect(ctx, room.ID, s.client.UserID)
	if first && room.NotifiesPeers() {
		s.server.syncConnectedUsers(ctx, room)
		author := s.server.Ledger.AuthorOf(ctx, s.client.UserID)
		s.server.BroadcastRoom(room, memberEvent("connected_user", room.ID, author.Username), true)
	}
	return nil
}

// Leave reverses Join. A leave for a room the session is not in does
// nothing and reports false.
func (s *Session) Leave(ctx context.Context, roomID string) bool {
	room, joined := s.rooms[roomID]
	if !joined {
		return false
	}
	delete(s.rooms, roomID)
	s.server.ConnMgr.Unsubscribe(room.GroupName(), s.client)
	s.Emit(leaveAckEvent(room.ID))

	if s.client.Anonymous() {
		return true
	}
	last := s.server.Presence.Disconnect(ctx, room.ID, s.client.UserID)
	if last && room.NotifiesPeers() {
		s.server.syncConnectedUsers(ctx, room)
		author := s.server.Ledger.AuthorOf(ctx, s.client.UserID)
		s.server.BroadcastRoom(room, memberEvent("disconnected_user", room.ID, author.Username), true)
	}
	return true
}

// SendMessage appends to the room log and fans the frame out to every
// subscriber, local and remote. The sender must be joined.
func (s *Session) SendMessage(ctx context.Context, roomID, content string) error {
	if s.client.Anonymous() {
		return errs.ErrAuthRequired.Wrap()
	}
	room, joined := s.rooms[roomID]
	if !joined {
		return errs.ErrRoomAccessDenied.WrapMsg("Join the room before sending messages.")
	}

	msg, err := s.server.Messages.Append(ctx, room.ID, s.client.UserID, content)
	if err != nil {
		return err
	}
	author := s.server.Ledger.AuthorOf(ctx, s.client.UserID)
	ledgerErr := s.server.Ledger.OnMessageSent(ctx, room, author, msg)
	s.server.BroadcastRoom(room, chatMessageEvent(msg, author), true)
	if ledgerErr != nil {
		// The message is persisted and delivered; the sender still learns
		// the unread bookkeeping failed.
		s.EmitError(ledgerErr)
	}
	return nil
}

// History sends one page of room messages to the caller, newest first,
// bracketed by progress-bar toggles. Requires current membership.
func (s *Session) History(ctx context.Context, roomID string, page int) error {
	room, joined := s.rooms[roomID]
	if !joined {
		return errs.ErrRoomAccessDenied.WrapMsg("Join the room before loading its history.")
	}
	if page < 1 {
		page = 1
	}

	s.Emit(progressEvent(true))
	defer s.Emit(progressEvent(false))

	items, more, err := s.server.Messages.Page(ctx, room.ID, page)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		s.Emit(messagesPayloadEvent(nil, page))
		return nil
	}
	s.Emit(messagesPayloadEvent(s.server.serializeMessages(ctx, items), nextPage(page, more)))
	return nil
}

// Close tears the session down, replaying the leave transition for every
// joined room. Safe to call after a partial command.
func (s *Session) Close(ctx context.Context) {
	for roomID := range s.rooms {
		s.Leave(ctx, roomID)
	}
}

// nextPage is the page number the client should ask for next. When the
// store is exhausted the number stays put, which clients treat as the stop
// sentinel.
func nextPage(page int, more bool) int {
	if more {
		return page + 1
	}
	return page
}
