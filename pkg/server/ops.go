package server

import (
	"fmt"

	"github.com/NicolasHaas/gobbs/pkg/auth"
	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
)

// Out-of-band account operations, run from the command line while the
// server is stopped. They bypass the session layer entirely.

// AddUser creates an account with the given role.
func AddUser(st datastore.DataProviderFactory, username, password string, role model.Role) error {
	if err := model.ValidateUsername(username); err != nil {
		return err
	}
	if password == "" {
		return fmt.Errorf("server: password must not be empty")
	}
	existing, err := st.NonTx().GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("server: lookup user: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("server: user %s already exists", username)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("server: hash password: %w", err)
	}
	if _, err := st.NonTx().CreateUser(username, hash, role); err != nil {
		return fmt.Errorf("server: create user: %w", err)
	}
	return nil
}

// DeleteUser removes an account by name.
func DeleteUser(st datastore.DataProviderFactory, username string) error {
	user, err := st.NonTx().GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("server: lookup user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("server: no such user: %s", username)
	}
	if err := st.NonTx().DeleteUser(user.Username); err != nil {
		return fmt.Errorf("server: delete user: %w", err)
	}
	return nil
}

// SetUserRole changes an account's role by name.
func SetUserRole(st datastore.DataProviderFactory, username string, role model.Role) error {
	if !role.Valid() {
		return model.ErrInvalidRole
	}
	user, err := st.NonTx().GetUserByUsername(username)
	if err != nil {
		return fmt.Errorf("server: lookup user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("server: no such user: %s", username)
	}
	if err := st.NonTx().UpdateUserRole(user.ID, role); err != nil {
		return fmt.Errorf("server: update role: %w", err)
	}
	return nil
}
