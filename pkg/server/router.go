package server

import (
	"errors"
	"log/slog"
	"strings"

	"github.com/NicolasHaas/gobbs/pkg/auth"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
	"github.com/NicolasHaas/gobbs/pkg/rbac"
)

// knownVerbs is the closed set accepted by the router. Anything else is
// counted under the "unknown" metrics label to keep cardinality bounded.
var knownVerbs = map[string]bool{
	"LOGIN": true, "LOGOUT": true, "ROLE": true, "WHOAMI": true,
	"WHO": true, "PASSWD": true, "ADMIN": true,
	"BOARD": true, "CHAT": true, "PMSG": true, "FILE": true, "TEXT": true,
}

// route authorizes and dispatches one parsed request for a connection.
// It returns nil for blank lines, which produce no response at all.
func (s *Server) route(c *conn, req protocol.Request) *protocol.Reply {
	if req.Verb == "" {
		return nil
	}

	verbLabel := "unknown"
	if knownVerbs[req.Verb] {
		verbLabel = req.Verb
	}
	s.metrics.CommandsHandled.WithLabelValues(verbLabel).Inc()

	// LOGIN and LOGOUT manage the session itself and are valid in both
	// authentication states.
	switch req.Verb {
	case "LOGIN":
		return s.handleLogin(c, req)
	case "LOGOUT":
		return s.handleLogout(c)
	}

	sess, ok := s.sessions.Get(c.sessionID)
	if c.sessionID == 0 || !ok {
		return protocol.Err("Not logged in")
	}
	caller := &model.User{ID: sess.UserID, Username: sess.Username, Role: sess.Role}

	switch req.Verb {
	case "ROLE":
		return s.handleRole(caller)
	case "WHOAMI":
		return protocol.OK(sess.Username)
	case "WHO":
		return s.handleWho()
	case "PASSWD":
		return s.handlePasswd(req, caller)
	case "ADMIN":
		return s.handleAdmin(req, caller)
	case "BOARD", "CHAT", "PMSG", "FILE", "TEXT":
		return s.handlers[req.Verb].Handle(req.Sub, req.Arg, caller)
	default:
		return protocol.Err("Unknown command")
	}
}

func (s *Server) handleLogin(c *conn, req protocol.Request) *protocol.Reply {
	if c.sessionID != 0 {
		return protocol.Err("Already logged in")
	}
	if req.Sub == "" || req.Arg == "" {
		return protocol.Err("Missing args")
	}

	user, err := s.auth.Verify(req.Sub, req.Arg)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.metrics.AuthFailed.Inc()
			return protocol.Err("Invalid credentials")
		}
		slog.Error("login failed", "remote", c.remote, "err", err)
		return protocol.Err("Server error")
	}

	sess := s.sessions.Create(user.ID, user.Username, user.Role, c.remote)
	c.sessionID = sess.ID
	s.metrics.AuthSuccessful.Inc()
	s.metrics.ActiveSessions.Inc()
	slog.Info("client authenticated", "user", user.Username, "session", sess.ID, "remote", c.remote)
	return protocol.OK("Logged in")
}

// handleLogout destroys the connection's session. A LOGOUT without a session
// is a no-op that still succeeds, so repeated LOGOUTs are harmless.
func (s *Server) handleLogout(c *conn) *protocol.Reply {
	if c.sessionID != 0 {
		s.sessions.Remove(c.sessionID)
		s.metrics.ActiveSessions.Dec()
		slog.Info("client logged out", "session", c.sessionID, "remote", c.remote)
		c.sessionID = 0
	}
	return protocol.OK("Logged out")
}

// handleRole re-fetches the role from the store rather than echoing the one
// cached at login, so promotions and demotions are visible immediately.
func (s *Server) handleRole(caller *model.User) *protocol.Reply {
	role, err := s.auth.RoleOf(caller.ID)
	if err != nil {
		slog.Error("role lookup failed", "user", caller.Username, "err", err)
		return protocol.Err("Server error")
	}
	return protocol.OK(role.String())
}

func (s *Server) handleWho() *protocol.Reply {
	reply := protocol.OK("")
	for _, sess := range s.sessions.Snapshot() {
		reply.WithBody("- " + sess.Username)
	}
	return reply
}

func (s *Server) handlePasswd(req protocol.Request, caller *model.User) *protocol.Reply {
	// The argument is a single old|new field; the new password may contain
	// spaces, so rejoin whatever the parser split off.
	field := req.Sub
	if req.Arg != "" {
		field += " " + req.Arg
	}
	old, newPw, found := strings.Cut(field, "|")
	if !found || old == "" || newPw == "" {
		return protocol.Err("Format: PASSWD old|new")
	}

	err := s.auth.ChangePassword(s.ctx, caller.ID, old, newPw)
	if err != nil {
		if errors.Is(err, auth.ErrWrongPassword) {
			return protocol.Err("Wrong password")
		}
		slog.Error("password change failed", "user", caller.Username, "err", err)
		return protocol.Err("Server error")
	}
	slog.Info("password changed", "user", caller.Username)
	return protocol.OK("Password changed")
}

// handleAdmin re-resolves the caller's role on every ADMIN command; a session
// demoted after login must not keep admin access.
func (s *Server) handleAdmin(req protocol.Request, caller *model.User) *protocol.Reply {
	role, err := s.auth.RoleOf(caller.ID)
	if err != nil {
		slog.Error("admin role check failed", "user", caller.Username, "err", err)
		return protocol.Err("Server error")
	}
	if !rbac.HasPermission(role, model.PermManageUsers) {
		return protocol.Err("Not admin")
	}
	return s.handlers["ADMIN"].Handle(req.Sub, req.Arg, caller)
}
