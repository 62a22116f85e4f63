package chat

import (
	"encoding/json"
	"time"

	"ChatCore/module/chat/model"
	usermodel "ChatCore/module/user/model"
	"ChatCore/tools/errs"
	"ChatCore/tools/humantime"
)

// Command is the client to server envelope. Every frame carries a "command"
// field; the remaining fields stay raw for the handler to decode.
type Command struct {
	Name   string
	Fields map[string]any
}

func ParseCommand(data []byte) (*Command, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, errs.ErrValidation.WrapMsg("malformed command frame")
	}
	name, _ := fields["command"].(string)
	if name == "" {
		return nil, errs.ErrValidation.WrapMsg("missing command field")
	}
	delete(fields, "command")
	return &Command{Name: name, Fields: fields}, nil
}

func marshalEvent(v any) []byte {
	out, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return out
}

// joinAckEvent acknowledges a successful join to the issuing session.
func joinAckEvent(roomID string) []byte {
	return marshalEvent(map[string]any{"join": roomID})
}

func leaveAckEvent(roomID string) []byte {
	return marshalEvent(map[string]any{"leave": roomID})
}

func pongEvent() []byte {
	return marshalEvent(map[string]any{"pong": time.Now().UnixMilli()})
}

func progressEvent(display bool) []byte {
	return marshalEvent(map[string]any{"display_progress_bar": display})
}

// errorEvent converts any error into the single wire error shape. The code's
// stable message goes in "error" and the human detail in "message".
func errorEvent(err error) []byte {
	ce := errs.AsCodeError(err)
	if ce == nil {
		ce = errs.ErrUnknown
	}
	detail := ce.Detail
	if detail == "" {
		detail = ce.Msg
	}
	return marshalEvent(map[string]any{"error": ce.Msg, "message": detail})
}

// chatMessageEvent is the broadcast shape for one room message.
func chatMessageEvent(msg *model.Message, author *usermodel.Account) []byte {
	return marshalEvent(map[string]any{
		"msg_type":          "message",
		"room_id":           msg.RoomID,
		"message_id":        msg.ID,
		"username":          author.Username,
		"user_id":           author.ID,
		"profile_image":     author.ProfileImage,
		"message":           msg.Content,
		"natural_timestamp": humantime.Format(msg.CreatedAt, time.Now()),
	})
}

func memberEvent(kind, roomID, username string) []byte {
	return marshalEvent(map[string]any{
		"msg_type": kind,
		"room_id":  roomID,
		"username": username,
	})
}

// messagesPayloadEvent carries one page of history. A nil items slice with
// the caller's original page number is the pagination-exhausted sentinel.
func messagesPayloadEvent(items []map[string]any, newPage int) []byte {
	return marshalEvent(map[string]any{
		"messages_payload": "messages_payload",
		"messages":         items,
		"new_page_number":  newPage,
	})
}

func serializeMessage(msg *model.Message, author *usermodel.Account, now time.Time) map[string]any {
	return map[string]any{
		"message_id":        msg.ID,
		"user_id":           author.ID,
		"username":          author.Username,
		"profile_image":     author.ProfileImage,
		"message":           msg.Content,
		"natural_timestamp": humantime.Format(msg.CreatedAt, now),
	}
}

// notificationsPayloadEvent mirrors the messages payload for a feed. The
// feed argument selects the general or chat envelope key.
func notificationsPayloadEvent(feed string, items []map[string]any, newPage int) []byte {
	return marshalEvent(map[string]any{
		feed + "_msg_type": feed + "_notifications_payload",
		"notifications":    items,
		"new_page_number":  newPage,
	})
}

func paginationExhaustedEvent(feed string) []byte {
	return marshalEvent(map[string]any{
		feed + "_msg_type": feed + "_pagination_exhausted",
	})
}

func newNotificationsEvent(feed string, items []map[string]any) []byte {
	return marshalEvent(map[string]any{
		feed + "_msg_type": feed + "_new_notifications",
		"notifications":    items,
	})
}

func unreadCountEvent(feed string, count int) []byte {
	return marshalEvent(map[string]any{
		feed + "_msg_type": "unread_" + feed + "_notifications_count",
		"count":            count,
	})
}

func refreshedNotificationsEvent(feed string, items []map[string]any) []byte {
	return marshalEvent(map[string]any{
		feed + "_msg_type": feed + "_refreshed_notifications",
		"notifications":    items,
	})
}

func updatedNotificationEvent(feed string, item map[string]any) []byte {
	return marshalEvent(map[string]any{
		feed + "_msg_type": feed + "_updated_notification",
		"notification":     item,
	})
}

func serializeNotification(n *model.Notification, now time.Time) map[string]any {
	out := map[string]any{
		"notification_type": string(n.Kind),
		"notification_id":   n.ID,
		"verb":              n.Verb,
		"is_read":           n.Read,
		"natural_timestamp": humantime.Natural(n.Timestamp, now),
		"timestamp":         n.Timestamp.Format(time.RFC3339),
		"actions": map[string]any{
			"redirect_url": n.RedirectURL,
		},
		"from": map[string]any{
			"image_url": n.ImageURL,
		},
	}
	if n.Kind == model.KindFriendRequest {
		out["is_active"] = n.IsActive
	}
	return out
}
