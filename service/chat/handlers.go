package chat

import (
	"context"
	"time"

	"ChatCore/module/chat/model"
	"ChatCore/tools/decode"
	"ChatCore/tools/errs"
)

type roomPayload struct {
	RoomID string `json:"room_id"`
}

type sendPayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

type historyPayload struct {
	RoomID     string `json:"room_id"`
	PageNumber int    `json:"page_number"`
}

type pagePayload struct {
	PageNumber int `json:"page_number"`
}

type newerPayload struct {
	NewestTimestamp string `json:"newest_timestamp"`
}

type refreshPayload struct {
	OldestTimestamp string `json:"oldest_timestamp"`
}

type notificationPayload struct {
	NotificationID string `json:"notification_id"`
}

// registerHandlers wires every wire command to its handler. Order of
// registration has no meaning; dispatch is by name.
func (s *Server) registerHandlers() {
	d := s.Disp
	d.Register("join", s.handleJoin)
	d.Register("leave", s.handleLeave)
	d.Register("send", s.handleSend)
	d.Register("get_room_chat_messages", s.handleHistory)
	d.Register("get_general_notifications", s.handleGeneralNotifications)
	d.Register("get_chat_notifications", s.handleChatNotifications)
	d.Register("get_new_general_notifications", s.handleNewGeneralNotifications)
	d.Register("refresh_general_notifications", s.handleRefreshGeneralNotifications)
	d.Register("refresh_chat_notifications", s.handleRefreshChatNotifications)
	d.Register("get_unread_general_notifications_count", s.handleUnreadGeneralCount)
	d.Register("mark_notifications_read", s.handleMarkRead)
	d.Register("accept_friend_request", s.handleAcceptFriendRequest)
	d.Register("decline_friend_request", s.handleDeclineFriendRequest)
	d.Register("ping", s.handlePing)
}

func (s *Server) handleJoin(ctx context.Context, sess *Session, fields map[string]any) error {
	p, err := decode.Map[roomPayload](fields)
	if err != nil {
		return err
	}
	return sess.Join(ctx, p.RoomID)
}

func (s *Server) handleLeave(ctx context.Context, sess *Session, fields map[string]any) error {
	p, err := decode.Map[roomPayload](fields)
	if err != nil {
		return err
	}
	sess.Leave(ctx, p.RoomID)
	return nil
}

func (s *Server) handleSend(ctx context.Context, sess *Session, fields map[string]any) error {
	p, err := decode.Map[sendPayload](fields)
	if err != nil {
		return err
	}
	return sess.SendMessage(ctx, p.RoomID, p.Message)
}

func (s *Server) handleHistory(ctx context.Context, sess *Session, fields map[string]any) error {
	p, err := decode.Map[historyPayload](fields)
	if err != nil {
		return err
	}
	return sess.History(ctx, p.RoomID, p.PageNumber)
}

func (s *Server) handleGeneralNotifications(ctx context.Context, sess *Session, fields map[string]any) error {
	return s.handleNotificationsPage(ctx, sess, fields, "general", model.GeneralKinds)
}

func (s *Server) handleChatNotifications(ctx context.Context, sess *Session, fields map[string]any) error {
	return s.handleNotificationsPage(ctx, sess, fields, "chat", model.ChatKinds)
}

func (s *Server) handleNotificationsPage(ctx context.Context, sess *Session, fields map[string]any, feed string, kinds []model.NotificationKind) error {
	if sess.Client().Anonymous() {
		return errs.ErrAuthRequired.Wrap()
	}
	p, err := decode.Map[pagePayload](fields)
	if err != nil {
		return err
	}
	page := p.PageNumber
	if page < 1 {
		page = 1
	}
	items, more, err := s.Ledger.ListNotifications(ctx, sess.UserID(), kinds, page)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		sess.Emit(paginationExhaustedEvent(feed))
		return nil
	}
	sess.Emit(notificationsPayloadEvent(feed, s.serializeNotifications(items), nextPage(page, more)))
	return nil
}

// handleNewGeneralNotifications returns everything newer than the client's
// newest on-screen notification, so the feed refreshes without repaging.
func (s *Server) handleNewGeneralNotifications(ctx context.Context, sess *Session, fields map[string]any) error {
	if sess.Client().Anonymous() {
		return errs.ErrAuthRequired.Wrap()
	}
	p, err := decode.Map[newerPayload](fields)
	if err != nil {
		return err
	}
	since := time.Time{}
	if p.NewestTimestamp != "" {
		since, err = time.Parse(time.RFC3339, p.NewestTimestamp)
		if err != nil {
			return errs.ErrValidation.WrapMsg("newest_timestamp must be RFC 3339")
		}
	}
	items, err := s.Ledger.ListNewer(ctx, sess.UserID(), model.GeneralKinds, since)
	if err != nil {
		return err
	}
	sess.Emit(newNotificationsEvent("general", s.serializeNotifications(items)))
	return nil
}

func (s *Server) handleRefreshGeneralNotifications(ctx context.Context, sess *Session, fields map[string]any) error {
	return s.handleRefreshNotifications(ctx, sess, fields, "general", model.GeneralKinds)
}

func (s *Server) handleRefreshChatNotifications(ctx context.Context, sess *Session, fields map[string]any) error {
	return s.handleRefreshNotifications(ctx, sess, fields, "chat", model.ChatKinds)
}

// handleRefreshNotifications re-sends everything from the oldest on-screen
// row onward, so in-place edits repaint without repaging. The oldest bound
// is inclusive.
func (s *Server) handleRefreshNotifications(ctx context.Context, sess *Session, fields map[string]any, feed string, kinds []model.NotificationKind) error {
	if sess.Client().Anonymous() {
		return errs.ErrAuthRequired.Wrap()
	}
	p, err := decode.Map[refreshPayload](fields)
	if err != nil {
		return err
	}
	oldest := time.Time{}
	if p.OldestTimestamp != "" {
		oldest, err = time.Parse(time.RFC3339, p.OldestTimestamp)
		if err != nil {
			return errs.ErrValidation.WrapMsg("oldest_timestamp must be RFC 3339")
		}
	}
	items, err := s.Ledger.ListNewer(ctx, sess.UserID(), kinds, oldest.Add(-time.Millisecond))
	if err != nil {
		return err
	}
	sess.Emit(refreshedNotificationsEvent(feed, s.serializeNotifications(items)))
	return nil
}

func (s *Server) handleUnreadGeneralCount(ctx context.Context, sess *Session, fields map[string]any) error {
	if sess.Client().Anonymous() {
		return errs.ErrAuthRequired.Wrap()
	}
	count, err := s.Ledger.UnreadGeneralCount(ctx, sess.UserID())
	if err != nil {
		return err
	}
	sess.Emit(unreadCountEvent("general", count))
	return nil
}

func (s *Server) handleMarkRead(ctx context.Context, sess *Session, fields map[string]any) error {
	if sess.Client().Anonymous() {
		return errs.ErrAuthRequired.Wrap()
	}
	return s.Ledger.MarkAllRead(ctx, sess.UserID())
}

func (s *Server) handleAcceptFriendRequest(ctx context.Context, sess *Session, fields map[string]any) error {
	if sess.Client().Anonymous() {
		return errs.ErrAuthRequired.Wrap()
	}
	p, err := decode.Map[notificationPayload](fields)
	if err != nil {
		return err
	}
	requestID, err := s.Friends.RequestFromNotification(ctx, p.NotificationID, sess.UserID())
	if err != nil {
		return err
	}
	updated, err := s.Friends.Accept(ctx, requestID, sess.UserID())
	if err != nil {
		return err
	}
	if updated != nil {
		sess.Emit(updatedNotificationEvent("general", serializeNotification(updated, time.Now())))
	}
	return nil
}

func (s *Server) handleDeclineFriendRequest(ctx context.Context, sess *Session, fields map[string]any) error {
	if sess.Client().Anonymous() {
		return errs.ErrAuthRequired.Wrap()
	}
	p, err := decode.Map[notificationPayload](fields)
	if err != nil {
		return err
	}
	requestID, err := s.Friends.RequestFromNotification(ctx, p.NotificationID, sess.UserID())
	if err != nil {
		return err
	}
	updated, err := s.Friends.Decline(ctx, requestID, sess.UserID())
	if err != nil {
		return err
	}
	if updated != nil {
		sess.Emit(updatedNotificationEvent("general", serializeNotification(updated, time.Now())))
	}
	return nil
}

func (s *Server) handlePing(ctx context.Context, sess *Session, fields map[string]any) error {
	sess.Emit(pongEvent())
	return nil
}
