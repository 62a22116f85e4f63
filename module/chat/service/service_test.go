package service

import (
	"context"
	"testing"

	"ChatCore/module/chat/store"
	usermodel "ChatCore/module/user/model"
	usersvc "ChatCore/module/user/service"
	userstore "ChatCore/module/user/store"
)

// fakePresence is a controllable Presence for ledger tests.
type fakePresence struct {
	present map[string]bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{present: make(map[string]bool)}
}

func (f *fakePresence) set(roomID, userID string, on bool) {
	f.present[roomID+"|"+userID] = on
}

func (f *fakePresence) IsPresent(roomID, userID string) bool {
	return f.present[roomID+"|"+userID]
}

type testEnv struct {
	store     *store.Mem
	users     *userstore.Mem
	directory *usersvc.Directory
	registry  *Registry
	messages  *Messages
	presence  *fakePresence
	ledger    *Ledger
	friends   *Friends
}

func newTestEnv(t *testing.T, usernames ...string) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    store.NewMem(),
		users:    userstore.NewMem(),
		presence: newFakePresence(),
	}
	env.directory = usersvc.NewDirectory(env.users)
	env.registry = NewRegistry(env.store)
	env.messages = NewMessages(env.store, 3)
	env.ledger = NewLedger(env.store, env.directory, env.presence, 3)
	env.friends = NewFriends(env.store, env.registry, env.directory)

	ctx := context.Background()
	for _, name := range usernames {
		err := env.users.InsertAccount(ctx, &usermodel.Account{
			ID:           name,
			Username:     name,
			Email:        name + "@example.com",
			ProfileImage: "/media/" + name + ".png",
		})
		if err != nil {
			t.Fatalf("seed account %s: %v", name, err)
		}
	}
	return env
}

// befriend installs the mutual relation directly at the store level.
func (e *testEnv) befriend(t *testing.T, a, b string) {
	t.Helper()
	ctx := context.Background()
	if err := e.store.AddFriend(ctx, a, b); err != nil {
		t.Fatalf("AddFriend: %v", err)
	}
	if err := e.store.AddFriend(ctx, b, a); err != nil {
		t.Fatalf("AddFriend: %v", err)
	}
}
