package chat

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"ChatCore/module/chat/model"
	usermodel "ChatCore/module/user/model"
	"ChatCore/tools/errs"
)

func TestParseCommand(t *testing.T) {
	cmd, err := ParseCommand([]byte(`{"command":"join","room_id":"r1"}`))
	if err != nil {
		t.Fatalf("ParseCommand: %v", err)
	}
	if cmd.Name != "join" {
		t.Fatalf("name = %q", cmd.Name)
	}
	if cmd.Fields["room_id"] != "r1" {
		t.Fatalf("fields = %v", cmd.Fields)
	}
	if _, ok := cmd.Fields["command"]; ok {
		t.Fatal("command key leaked into fields")
	}
}

func TestParseCommandRejectsGarbage(t *testing.T) {
	if _, err := ParseCommand([]byte(`not json`)); !errs.ErrValidation.Is(err) {
		t.Fatalf("garbage err = %v", err)
	}
	if _, err := ParseCommand([]byte(`{"room_id":"r1"}`)); !errs.ErrValidation.Is(err) {
		t.Fatalf("missing command err = %v", err)
	}
}

func TestErrorEventShape(t *testing.T) {
	var ev map[string]any
	if err := json.Unmarshal(errorEvent(errs.ErrRoomInvalid.Wrap()), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev["error"] != "ROOM_INVALID" || ev["message"] != "Invalid room." {
		t.Fatalf("event = %v", ev)
	}

	// Detail text rides in "message" when present.
	json.Unmarshal(errorEvent(errs.ErrRoomAccessDenied.WrapMsg("You must be friends to chat.")), &ev)
	if ev["error"] != "ROOM_ACCESS_DENIED" {
		t.Fatalf("event = %v", ev)
	}
	msg, _ := ev["message"].(string)
	if msg == "" || msg == "ROOM_ACCESS_DENIED" {
		t.Fatalf("message = %q", msg)
	}

	// Non-domain errors are masked as UNKNOWN_ERROR.
	json.Unmarshal(errorEvent(errors.New("disk on fire")), &ev)
	if ev["error"] != "UNKNOWN_ERROR" {
		t.Fatalf("event = %v", ev)
	}
}

func TestChatMessageEventFields(t *testing.T) {
	msg := &model.Message{
		ID:        "m1",
		RoomID:    "r1",
		AuthorID:  "alice",
		Content:   "hello",
		CreatedAt: time.Now(),
	}
	author := &usermodel.Account{ID: "alice", Username: "alice", ProfileImage: "/media/alice.png"}

	var ev map[string]any
	if err := json.Unmarshal(chatMessageEvent(msg, author), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"username", "user_id", "profile_image", "message", "natural_timestamp"} {
		if _, ok := ev[key]; !ok {
			t.Errorf("missing field %q", key)
		}
	}
	if ev["message"] != "hello" || ev["username"] != "alice" {
		t.Fatalf("event = %v", ev)
	}
}

func TestSerializeNotificationShape(t *testing.T) {
	now := time.Now()
	n := &model.Notification{
		ID:          "n1",
		Target:      "bob",
		Kind:        model.KindFriendRequest,
		ObjectID:    "req1",
		Verb:        "alice sent you a friend request.",
		RedirectURL: "/account/alice/",
		ImageURL:    "/media/alice.png",
		IsActive:    true,
		Timestamp:   now.Add(-5 * time.Minute),
	}

	out := serializeNotification(n, now)
	if out["notification_type"] != "friend_request" || out["notification_id"] != "n1" {
		t.Fatalf("out = %v", out)
	}
	if out["is_active"] != true {
		t.Fatal("friend_request rows carry is_active")
	}
	if out["natural_timestamp"] != "5 minutes ago" {
		t.Fatalf("natural_timestamp = %v", out["natural_timestamp"])
	}
	actions := out["actions"].(map[string]any)
	if actions["redirect_url"] != "/account/alice/" {
		t.Fatalf("actions = %v", actions)
	}

	// Friendship rows carry no is_active key.
	n.Kind = model.KindFriendship
	out = serializeNotification(n, now)
	if _, ok := out["is_active"]; ok {
		t.Fatal("friendship rows should not carry is_active")
	}
}
