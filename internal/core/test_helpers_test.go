package core

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/causerie-chat/server/internal/store"
)

// fakeStore is an in-memory Store for router tests.
type fakeStore struct {
	mu       sync.Mutex
	users    map[int64]*store.User
	rooms    map[int64]*store.Room
	blocks   map[[2]int64]bool
	messages []*store.Message
	privates []*store.PrivateMessage
	nextID   int64

	failConversation bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:  make(map[int64]*store.User),
		rooms:  make(map[int64]*store.Room),
		blocks: make(map[[2]int64]bool),
		nextID: 1000,
	}
}

func (f *fakeStore) addUser(id int64, username string, banned bool) *store.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := &store.User{
		ID:       id,
		Username: username,
		Email:    username + "@example.com",
		Role:     store.RoleUser,
		IsBanned: banned,
	}
	f.users[id] = user
	return user
}

func (f *fakeStore) addRoom(id int64, name string) *store.Room {
	f.mu.Lock()
	defer f.mu.Unlock()
	room := &store.Room{ID: id, Name: name, CreatedAt: time.Now()}
	f.rooms[id] = room
	return room
}

func (f *fakeStore) block(blockerID, blockedID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocks[[2]int64{blockerID, blockedID}] = true
}

func (f *fakeStore) savedMessages() []*store.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*store.Message{}, f.messages...)
}

func (f *fakeStore) savedPrivates() []*store.PrivateMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*store.PrivateMessage{}, f.privates...)
}

func (f *fakeStore) GetUserByID(_ context.Context, id int64) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeStore) GetUsersByIDs(_ context.Context, ids []int64) ([]*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	users := []*store.User{}
	for _, id := range ids {
		if user, ok := f.users[id]; ok {
			users = append(users, user)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

func (f *fakeStore) HasBlocked(_ context.Context, blockerID, blockedID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocks[[2]int64{blockerID, blockedID}], nil
}

func (f *fakeStore) ListRooms(_ context.Context) ([]*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rooms := []*store.Room{}
	for _, room := range f.rooms {
		rooms = append(rooms, room)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID > rooms[j].ID })
	return rooms, nil
}

func (f *fakeStore) GetRoomByID(_ context.Context, id int64) (*store.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return room, nil
}

func (f *fakeStore) SaveMessage(_ context.Context, roomID, authorID int64, content string) (*store.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg := &store.Message{
		ID:        f.nextID,
		RoomID:    roomID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	f.messages = append(f.messages, msg)
	return msg, nil
}

func (f *fakeStore) SavePrivateMessage(_ context.Context, fromUserID, toUserID int64, content string) (*store.PrivateMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	msg := &store.PrivateMessage{
		ID:         f.nextID,
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		Content:    content,
		CreatedAt:  time.Now(),
	}
	f.privates = append(f.privates, msg)
	return msg, nil
}

func (f *fakeStore) ListConversation(_ context.Context, userA, userB int64) ([]*store.PrivateMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failConversation {
		return nil, store.ErrNotFound
	}
	messages := []*store.PrivateMessage{}
	for _, msg := range f.privates {
		if (msg.FromUserID == userA && msg.ToUserID == userB) ||
			(msg.FromUserID == userB && msg.ToUserID == userA) {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

// mustEvent waits for the next event of the given kind on the channel,
// skipping others.
func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// noEvent asserts that no event of the given kind is pending on the channel.
func noEvent(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event kind %v: %+v", kind, ev)
			}
		default:
			return
		}
	}
}
