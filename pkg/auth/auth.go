// Package auth verifies credentials against stored bcrypt hashes.
package auth

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
)

// ErrInvalidCredentials is returned for every authentication failure.
// Callers must not be able to tell a missing user from a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrWrongPassword is returned by ChangePassword when the old password
// does not match.
var ErrWrongPassword = errors.New("wrong password")

// HashPassword hashes a plaintext password with bcrypt and a fresh salt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticator checks credentials and resolves roles against the store.
type Authenticator struct {
	store datastore.DataProviderFactory
}

// New creates an Authenticator backed by the given store.
func New(store datastore.DataProviderFactory) *Authenticator {
	return &Authenticator{store: store}
}

// Verify checks a username/password pair and returns the matching user.
// Every failure path returns ErrInvalidCredentials with no indication of
// whether the username exists.
func (a *Authenticator) Verify(username, password string) (*model.User, error) {
	user, err := a.store.NonTx().GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("auth: verify: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// RoleOf re-fetches a user's role from the store. Authorization checks call
// this instead of trusting the role cached on the session, so demotions take
// effect before the next privileged command.
func (a *Authenticator) RoleOf(userID int64) (model.Role, error) {
	user, err := a.store.NonTx().GetUserByID(userID)
	if err != nil {
		return model.RoleUser, fmt.Errorf("auth: role of %d: %w", userID, err)
	}
	if user == nil {
		return model.RoleUser, fmt.Errorf("auth: role of %d: user not found", userID)
	}
	return user.Role, nil
}

// ChangePassword verifies the old password and stores a hash of the new one,
// inside a single transaction so the verify and the update see the same row.
func (a *Authenticator) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	tx, err := a.store.Tx(ctx)
	if err != nil {
		return fmt.Errorf("auth: change password: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	user, err := tx.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("auth: change password: %w", err)
	}
	if user == nil {
		return fmt.Errorf("auth: change password: user %d not found", userID)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := tx.UpdateUserPassword(userID, hash); err != nil {
		return fmt.Errorf("auth: change password: %w", err)
	}
	return tx.Commit()
}
