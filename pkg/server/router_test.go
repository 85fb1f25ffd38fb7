package server

import (
	"strings"
	"testing"

	"github.com/NicolasHaas/gobbs/pkg/auth"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
	"github.com/NicolasHaas/gobbs/pkg/store"
)

func newTestServer(t *testing.T) (*Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemory()
	cfg := DefaultConfig()
	cfg.MetricsAddr = ""
	srv := New(cfg, Dependencies{Store: st})
	t.Cleanup(srv.Shutdown)
	return srv, st
}

func mustUser(t *testing.T, st *store.MemoryStore, name, password string, role model.Role) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	u, err := st.CreateUser(name, hash, role)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	return u
}

func send(srv *Server, c *conn, line string) *protocol.Reply {
	return srv.route(c, protocol.Parse(line))
}

func TestRouteRequiresLogin(t *testing.T) {
	srv, _ := newTestServer(t)
	c := &conn{remote: "test"}

	for _, line := range []string{
		"WHOAMI", "WHO", "ROLE", "PASSWD old|new",
		"BOARD LIST", "CHAT RECV", "PMSG LIST", "FILE LIST", "TEXT LIST",
		"ADMIN listusers", "BOGUS",
	} {
		reply := send(srv, c, line)
		if reply.Status != "ERR Not logged in" {
			t.Errorf("%q: want %q got %q", line, "ERR Not logged in", reply.Status)
		}
	}
}

func TestRouteLogin(t *testing.T) {
	srv, st := newTestServer(t)
	mustUser(t, st, "alice", "secret", model.RoleUser)
	c := &conn{remote: "test"}

	if got := send(srv, c, "LOGIN alice wrong").Status; got != "ERR Invalid credentials" {
		t.Fatalf("wrong password: got %q", got)
	}
	if got := send(srv, c, "LOGIN nobody secret").Status; got != "ERR Invalid credentials" {
		t.Fatalf("unknown user should get the same error, got %q", got)
	}

	if got := send(srv, c, "LOGIN alice secret").Status; got != "OK Logged in" {
		t.Fatalf("login: got %q", got)
	}
	if c.sessionID == 0 {
		t.Fatal("no session id set after login")
	}
	if _, ok := srv.sessions.Get(c.sessionID); !ok {
		t.Fatal("session not registered")
	}

	if got := send(srv, c, "LOGIN alice secret").Status; got != "ERR Already logged in" {
		t.Fatalf("second login: got %q", got)
	}
}

func TestRouteLogoutIdempotent(t *testing.T) {
	srv, st := newTestServer(t)
	mustUser(t, st, "alice", "secret", model.RoleUser)
	c := &conn{remote: "test"}

	send(srv, c, "LOGIN alice secret")
	id := c.sessionID

	if got := send(srv, c, "LOGOUT").Status; got != "OK Logged out" {
		t.Fatalf("logout: got %q", got)
	}
	if c.sessionID != 0 {
		t.Fatal("session id not cleared")
	}
	if _, ok := srv.sessions.Get(id); ok {
		t.Fatal("session still registered after logout")
	}

	// LOGOUT without a session still succeeds.
	if got := send(srv, c, "LOGOUT").Status; got != "OK Logged out" {
		t.Fatalf("repeat logout: got %q", got)
	}
}

func TestRouteIdentity(t *testing.T) {
	srv, st := newTestServer(t)
	mustUser(t, st, "alice", "secret", model.RoleAdmin)
	c := &conn{remote: "test"}
	send(srv, c, "LOGIN alice secret")

	if got := send(srv, c, "WHOAMI").Status; got != "OK alice" {
		t.Errorf("WHOAMI: got %q", got)
	}
	if got := send(srv, c, "ROLE").Status; got != "OK admin" {
		t.Errorf("ROLE: got %q", got)
	}
}

func TestRouteRoleReflectsDemotion(t *testing.T) {
	srv, st := newTestServer(t)
	u := mustUser(t, st, "alice", "secret", model.RoleAdmin)
	c := &conn{remote: "test"}
	send(srv, c, "LOGIN alice secret")

	if err := st.UpdateUserRole(u.ID, model.RoleUser); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}

	if got := send(srv, c, "ROLE").Status; got != "OK user" {
		t.Errorf("ROLE after demotion: got %q", got)
	}
	if got := send(srv, c, "ADMIN listusers").Status; got != "ERR Not admin" {
		t.Errorf("ADMIN after demotion: got %q", got)
	}
}

func TestRouteWho(t *testing.T) {
	srv, st := newTestServer(t)
	mustUser(t, st, "alice", "secret", model.RoleUser)
	mustUser(t, st, "bob", "hunter2", model.RoleUser)

	ca := &conn{remote: "a"}
	cb := &conn{remote: "b"}
	send(srv, ca, "LOGIN alice secret")
	send(srv, cb, "LOGIN bob hunter2")

	reply := send(srv, ca, "WHO")
	if !reply.IsOK() {
		t.Fatalf("WHO: got %q", reply.Status)
	}
	joined := strings.Join(reply.Body, "\n")
	if !strings.Contains(joined, "- alice") || !strings.Contains(joined, "- bob") {
		t.Fatalf("WHO body missing users: %q", joined)
	}

	send(srv, cb, "LOGOUT")
	reply = send(srv, ca, "WHO")
	if strings.Contains(strings.Join(reply.Body, "\n"), "bob") {
		t.Fatalf("WHO still lists bob after logout: %v", reply.Body)
	}
}

func TestRoutePasswd(t *testing.T) {
	srv, st := newTestServer(t)
	mustUser(t, st, "alice", "secret", model.RoleUser)
	c := &conn{remote: "test"}
	send(srv, c, "LOGIN alice secret")

	if got := send(srv, c, "PASSWD wrong|next").Status; got != "ERR Wrong password" {
		t.Fatalf("wrong old password: got %q", got)
	}
	if got := send(srv, c, "PASSWD secret").Status; got != "ERR Format: PASSWD old|new" {
		t.Fatalf("malformed: got %q", got)
	}
	if got := send(srv, c, "PASSWD secret|next").Status; got != "OK Password changed" {
		t.Fatalf("change: got %q", got)
	}

	// Old password must stop working, new one must work.
	c2 := &conn{remote: "test2"}
	if got := send(srv, c2, "LOGIN alice secret").Status; got != "ERR Invalid credentials" {
		t.Fatalf("old password still valid: got %q", got)
	}
	if got := send(srv, c2, "LOGIN alice next").Status; got != "OK Logged in" {
		t.Fatalf("new password rejected: got %q", got)
	}
}

func TestRouteAdminGate(t *testing.T) {
	srv, st := newTestServer(t)
	mustUser(t, st, "alice", "secret", model.RoleUser)
	mustUser(t, st, "root", "toor", model.RoleAdmin)

	c := &conn{remote: "test"}
	send(srv, c, "LOGIN alice secret")
	if got := send(srv, c, "ADMIN listusers").Status; got != "ERR Not admin" {
		t.Fatalf("user ADMIN: got %q", got)
	}

	ca := &conn{remote: "admin"}
	send(srv, ca, "LOGIN root toor")
	reply := send(srv, ca, "ADMIN listusers")
	if !reply.IsOK() {
		t.Fatalf("admin ADMIN listusers: got %q", reply.Status)
	}
	if len(reply.Body) != 2 {
		t.Fatalf("listusers body: want 2 lines got %v", reply.Body)
	}
}

func TestRouteUnknownAndBlank(t *testing.T) {
	srv, st := newTestServer(t)
	mustUser(t, st, "alice", "secret", model.RoleUser)
	c := &conn{remote: "test"}
	send(srv, c, "LOGIN alice secret")

	if got := send(srv, c, "FROBNICATE now").Status; got != "ERR Unknown command" {
		t.Fatalf("unknown verb: got %q", got)
	}
	if reply := send(srv, c, "   \r\n"); reply != nil {
		t.Fatalf("blank line should produce no reply, got %q", reply.Status)
	}
}
