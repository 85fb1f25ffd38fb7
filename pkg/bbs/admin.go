package bbs

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/NicolasHaas/gobbs/pkg/auth"
	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
)

// DefaultPassword is assigned to users created over the wire with
// ADMIN adduser. The new user is expected to change it with PASSWD.
const DefaultPassword = "admin123"

// Admin handles user management over the wire. The router only dispatches
// here after the caller's role has been re-resolved to admin.
type Admin struct {
	store datastore.DataProviderFactory
}

// NewAdmin creates the admin handler.
func NewAdmin(store datastore.DataProviderFactory) *Admin {
	return &Admin{store: store}
}

func (a *Admin) Handle(sub, arg string, caller *model.User) *protocol.Reply {
	username := strings.TrimSpace(arg)
	switch strings.ToLower(sub) {
	case "adduser":
		return a.addUser(username, caller)
	case "deluser":
		return a.delUser(username, caller)
	case "listusers":
		return a.listUsers(caller)
	case "promote":
		return a.setRole(username, model.RoleAdmin, caller)
	case "demote":
		return a.setRole(username, model.RoleUser, caller)
	default:
		return protocol.Err("Unknown admin command")
	}
}

func (a *Admin) addUser(username string, caller *model.User) *protocol.Reply {
	if username == "" {
		return protocol.Err("adduser <username>")
	}
	if err := model.ValidateUsername(username); err != nil {
		return protocol.Err(err.Error())
	}
	st := a.store.NonTx()
	existing, err := st.GetUserByUsername(username)
	if err != nil {
		return serverError("admin adduser", err, caller)
	}
	if existing != nil {
		return protocol.Err("Could not add user")
	}

	hash, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return serverError("admin adduser", err, caller)
	}
	if _, err := st.CreateUser(username, hash, model.RoleAdmin); err != nil {
		return serverError("admin adduser", err, caller)
	}
	slog.Info("admin added user", "user", username, "by", caller.Username)
	return protocol.OK(fmt.Sprintf("User %s added with default pw '%s'", username, DefaultPassword))
}

func (a *Admin) delUser(username string, caller *model.User) *protocol.Reply {
	if username == "" {
		return protocol.Err("deluser <username>")
	}
	if username == caller.Username {
		return protocol.Err("Cannot delete your own account")
	}
	if err := a.store.NonTx().DeleteUser(username); err != nil {
		return serverError("admin deluser", err, caller)
	}
	slog.Info("admin deleted user", "user", username, "by", caller.Username)
	return protocol.OK(fmt.Sprintf("User %s deleted", username))
}

func (a *Admin) listUsers(caller *model.User) *protocol.Reply {
	users, err := a.store.NonTx().ListUsers()
	if err != nil {
		return serverError("admin listusers", err, caller)
	}
	reply := protocol.OK("")
	for _, u := range users {
		reply.WithBody(fmt.Sprintf("%s (%s)", u.Username, u.Role))
	}
	return reply
}

func (a *Admin) setRole(username string, role model.Role, caller *model.User) *protocol.Reply {
	verb := "promote"
	if role == model.RoleUser {
		verb = "demote"
	}
	if username == "" {
		return protocol.Err(verb + " <username>")
	}
	if username == caller.Username {
		return protocol.Err("Cannot change your own role")
	}
	st := a.store.NonTx()
	target, err := st.GetUserByUsername(username)
	if err != nil {
		return serverError("admin "+verb, err, caller)
	}
	if target == nil {
		return protocol.Err("User not found")
	}
	if err := st.UpdateUserRole(target.ID, role); err != nil {
		return serverError("admin "+verb, err, caller)
	}
	slog.Info("admin changed role", "user", username, "role", role, "by", caller.Username)
	return protocol.OK(fmt.Sprintf("%s is now %s", username, role))
}
