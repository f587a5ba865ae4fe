package core

import (
	"sort"
	"testing"
)

func TestPresenceJoinRequiresRegistration(t *testing.T) {
	p := NewPresence()

	if p.Join(1, "ghost") {
		t.Fatal("join succeeded for an unregistered connection")
	}

	p.Register("c1", Identity{UserID: 7})
	if !p.Join(1, "c1") {
		t.Fatal("join failed for a registered connection")
	}
}

func TestPresenceJoinIdempotent(t *testing.T) {
	p := NewPresence()
	p.Register("c1", Identity{UserID: 7})

	p.Join(1, "c1")
	p.Join(1, "c1")

	if got := p.Connections(1); len(got) != 1 {
		t.Fatalf("expected 1 connection, got %d", len(got))
	}
}

func TestPresenceLeaveUnknownRoomIsNoop(t *testing.T) {
	p := NewPresence()
	p.Register("c1", Identity{UserID: 7})

	p.Leave(42, "c1")

	if _, ok := p.IdentityOf("c1"); !ok {
		t.Fatal("identity lost after leaving a room never joined")
	}
}

func TestPresenceMembersDeduplicateByUser(t *testing.T) {
	p := NewPresence()
	p.Register("phone", Identity{UserID: 7})
	p.Register("laptop", Identity{UserID: 7})
	p.Register("other", Identity{UserID: 8})
	p.Join(1, "phone")
	p.Join(1, "laptop")
	p.Join(1, "other")

	members := p.Members(1)
	ids := make([]int64, 0, len(members))
	for _, identity := range members {
		ids = append(ids, identity.UserID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if len(ids) != 2 || ids[0] != 7 || ids[1] != 8 {
		t.Fatalf("expected distinct users [7 8], got %v", ids)
	}

	// Fan-out targets still address every connection.
	if got := p.Connections(1); len(got) != 3 {
		t.Fatalf("expected 3 connections, got %d", len(got))
	}
}

func TestPresenceRemoveConnection(t *testing.T) {
	p := NewPresence()
	p.Register("c1", Identity{UserID: 7})
	p.Register("c2", Identity{UserID: 8})
	p.Join(1, "c1")
	p.Join(2, "c1")
	p.Join(1, "c2")

	left := p.RemoveConnection("c1")
	sort.Slice(left, func(i, j int) bool { return left[i] < left[j] })
	if len(left) != 2 || left[0] != 1 || left[1] != 2 {
		t.Fatalf("expected rooms [1 2], got %v", left)
	}

	if _, ok := p.IdentityOf("c1"); ok {
		t.Fatal("identity survived removal")
	}
	for _, connID := range p.Connections(1) {
		if connID == "c1" {
			t.Fatal("removed connection still present in room")
		}
	}

	// A join racing with teardown must lose.
	if p.Join(1, "c1") {
		t.Fatal("join re-added a torn-down connection")
	}
}

func TestPresenceEmptyRoomEntriesAreDropped(t *testing.T) {
	p := NewPresence()
	p.Register("c1", Identity{UserID: 7})
	p.Join(1, "c1")
	p.Leave(1, "c1")

	if got := p.Connections(1); len(got) != 0 {
		t.Fatalf("expected empty room, got %v", got)
	}
	if got := p.Members(1); len(got) != 0 {
		t.Fatalf("expected no members, got %v", got)
	}
}

func TestPresenceConnectionsOfUsers(t *testing.T) {
	p := NewPresence()
	p.Register("phone", Identity{UserID: 7})
	p.Register("laptop", Identity{UserID: 7})
	p.Register("other", Identity{UserID: 8})
	p.Register("stranger", Identity{UserID: 9})

	conns := p.ConnectionsOfUsers(7, 8)
	sort.Strings(conns)
	want := []string{"laptop", "other", "phone"}
	if len(conns) != len(want) {
		t.Fatalf("expected %v, got %v", want, conns)
	}
	for i := range want {
		if conns[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, conns)
		}
	}
}
