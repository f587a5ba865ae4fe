package sqlite

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/causerie-chat/server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func mustCreateUser(t *testing.T, st *SQLiteStore, username string) *store.User {
	t.Helper()

	user, err := st.CreateUser(context.Background(), username, username+"@example.com", "hash")
	if err != nil {
		t.Fatalf("failed to create user %s: %v", username, err)
	}
	return user
}

func TestCreateAndGetUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user := mustCreateUser(t, st, "alice")
	if user.ID == 0 {
		t.Fatal("expected assigned id")
	}
	if user.Role != store.RoleUser {
		t.Fatalf("expected default role user, got %q", user.Role)
	}
	if user.IsBanned || user.Reports != 0 {
		t.Fatalf("expected fresh moderation state, got banned=%v reports=%d", user.IsBanned, user.Reports)
	}

	byEmail, err := st.GetUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if byEmail.ID != user.ID {
		t.Fatalf("expected user %d, got %d", user.ID, byEmail.ID)
	}

	if _, err := st.GetUserByID(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserRejectsDuplicates(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	mustCreateUser(t, st, "alice")
	if _, err := st.CreateUser(ctx, "alice", "other@example.com", "hash"); err == nil {
		t.Fatal("expected unique violation on username")
	}
	if _, err := st.CreateUser(ctx, "alice2", "alice@example.com", "hash"); err == nil {
		t.Fatal("expected unique violation on email")
	}
}

func TestBlockRelations(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")

	if err := st.BlockUser(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("block: %v", err)
	}
	// Idempotent.
	if err := st.BlockUser(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("repeat block: %v", err)
	}

	blocked, err := st.HasBlocked(ctx, alice.ID, bob.ID)
	if err != nil || !blocked {
		t.Fatalf("expected alice blocks bob, got %v %v", blocked, err)
	}
	// Direction matters.
	blocked, err = st.HasBlocked(ctx, bob.ID, alice.ID)
	if err != nil || blocked {
		t.Fatalf("expected bob does not block alice, got %v %v", blocked, err)
	}

	list, err := st.ListBlockedUsers(ctx, alice.ID)
	if err != nil {
		t.Fatalf("list blocked: %v", err)
	}
	if len(list) != 1 || list[0].ID != bob.ID {
		t.Fatalf("expected [bob], got %v", list)
	}

	if err := st.UnblockUser(ctx, alice.ID, bob.ID); err != nil {
		t.Fatalf("unblock: %v", err)
	}
	blocked, _ = st.HasBlocked(ctx, alice.ID, bob.ID)
	if blocked {
		t.Fatal("expected relation removed")
	}
}

func TestReportUserAutoBansAtThreshold(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	bob := mustCreateUser(t, st, "bob")

	var reported *store.User
	for i := 0; i < autoBanReports; i++ {
		var err error
		reported, err = st.ReportUser(ctx, bob.ID)
		if err != nil {
			t.Fatalf("report %d: %v", i+1, err)
		}
		if i < autoBanReports-1 && reported.IsBanned {
			t.Fatalf("banned too early at %d reports", reported.Reports)
		}
	}

	if reported.Reports != autoBanReports {
		t.Fatalf("expected %d reports, got %d", autoBanReports, reported.Reports)
	}
	if !reported.IsBanned {
		t.Fatal("expected auto-ban at threshold")
	}

	if _, err := st.ReportUser(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBanUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	bob := mustCreateUser(t, st, "bob")
	if err := st.BanUser(ctx, bob.ID); err != nil {
		t.Fatalf("ban: %v", err)
	}

	banned, err := st.GetUserByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !banned.IsBanned {
		t.Fatal("expected banned flag set")
	}

	if err := st.BanUser(ctx, 9999); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRoomsAndMessages(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	room, err := st.CreateRoom(ctx, "Général", "discussion générale")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}

	if _, err := st.CreateRoom(ctx, "Général", "doublon"); err == nil {
		t.Fatal("expected unique violation on room name")
	}

	for i := 1; i <= 3; i++ {
		if _, err := st.SaveMessage(ctx, room.ID, alice.ID, fmt.Sprintf("msg %d", i)); err != nil {
			t.Fatalf("save message %d: %v", i, err)
		}
	}

	messages, err := st.ListRoomMessages(ctx, room.ID)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	// Chronological order.
	for i, msg := range messages {
		if msg.Content != fmt.Sprintf("msg %d", i+1) {
			t.Fatalf("expected msg %d at index %d, got %q", i+1, i, msg.Content)
		}
		if msg.RoomID != room.ID || msg.AuthorID != alice.ID {
			t.Fatalf("unexpected message attribution: %+v", msg)
		}
	}

	if _, err := st.SaveMessage(ctx, room.ID, 9999, "orphan"); err == nil {
		t.Fatal("expected foreign key violation for unknown author")
	}
}

func TestConversationSpansBothDirections(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	alice := mustCreateUser(t, st, "alice")
	bob := mustCreateUser(t, st, "bob")
	carol := mustCreateUser(t, st, "carol")

	if _, err := st.SavePrivateMessage(ctx, alice.ID, bob.ID, "un"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := st.SavePrivateMessage(ctx, bob.ID, alice.ID, "deux"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := st.SavePrivateMessage(ctx, alice.ID, carol.ID, "hors sujet"); err != nil {
		t.Fatalf("save: %v", err)
	}

	conv, err := st.ListConversation(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if len(conv) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(conv))
	}
	if conv[0].Content != "un" || conv[1].Content != "deux" {
		t.Fatalf("expected chronological [un deux], got [%s %s]", conv[0].Content, conv[1].Content)
	}

	// Symmetric regardless of argument order.
	mirror, err := st.ListConversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("list conversation: %v", err)
	}
	if len(mirror) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(mirror))
	}
}

func TestSeedIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if err := st.Seed(ctx); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := st.Seed(ctx); err != nil {
		t.Fatalf("repeat seed: %v", err)
	}

	rooms, err := st.ListRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	if len(rooms) != 3 {
		t.Fatalf("expected 3 seeded rooms, got %d", len(rooms))
	}
}
