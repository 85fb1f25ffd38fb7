package bbs

import (
	"strings"
	"testing"

	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/store"
)

func TestBoardPostAndList(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	b := NewBoard(st)

	wantStatus(t, b.Handle("NEW", "hello|first post body", alice), "OK Message posted")

	reply := b.Handle("LIST", "", alice)
	if !reply.IsOK() {
		t.Fatalf("LIST: %q", reply.Status)
	}
	if len(reply.Body) != 1 {
		t.Fatalf("LIST body: want 1 line got %v", reply.Body)
	}
	bodyContains(t, reply, "[hello] by alice")
}

func TestBoardRead(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	bob := seedUser(t, st, "bob", model.RoleUser)
	b := NewBoard(st)

	b.Handle("NEW", "topic|original body", alice)
	wantStatus(t, b.Handle("REPLY", "1|re: topic|reply body", bob), "OK Reply posted")

	reply := b.Handle("READ", "1", alice)
	if !reply.IsOK() {
		t.Fatalf("READ: %q", reply.Status)
	}
	bodyContains(t, reply, "ID:1 Subject:topic")
	bodyContains(t, reply, "original body")
	bodyContains(t, reply, ">> Reply ID:2 [re: topic] by bob")
	bodyContains(t, reply, "reply body")
}

func TestBoardListOmitsReplies(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	b := NewBoard(st)

	b.Handle("NEW", "topic|body", alice)
	b.Handle("REPLY", "1|re|reply", alice)

	reply := b.Handle("LIST", "", alice)
	if len(reply.Body) != 1 {
		t.Fatalf("replies must not appear in LIST: %v", reply.Body)
	}
}

func TestBoardErrors(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	b := NewBoard(st)

	wantStatus(t, b.Handle("NEW", "no pipe here", alice), "ERR Need subject|body")
	wantStatus(t, b.Handle("READ", "nope", alice), "ERR Need id")
	wantStatus(t, b.Handle("READ", "99", alice), "ERR Not found")
	wantStatus(t, b.Handle("REPLY", "99|subj|body", alice), "ERR Not found")
	wantStatus(t, b.Handle("DROP", "", alice), "ERR Unknown BOARD command")

	long := strings.Repeat("x", model.MaxPostSubjectLength+1)
	reply := b.Handle("NEW", long+"|body", alice)
	if reply.IsOK() {
		t.Fatal("oversize subject accepted")
	}
}

func TestBoardBodyMayContainPipes(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	b := NewBoard(st)

	wantStatus(t, b.Handle("NEW", "subj|a|b|c", alice), "OK Message posted")

	reply := b.Handle("READ", "1", alice)
	bodyContains(t, reply, "a|b|c")
}
