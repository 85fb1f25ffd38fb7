package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/NicolasHaas/gobbs/pkg/auth"
	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"gopkg.in/yaml.v3"
)

// UserYAML represents a user in a YAML seed file or export.
type UserYAML struct {
	ID        int64  `yaml:"id,omitempty"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password,omitempty"` // plain text, seed files only
	Role      string `yaml:"role"`
	CreatedAt string `yaml:"created_at,omitempty"`
}

// UsersConfig is the top-level YAML document for user seeding and export.
type UsersConfig struct {
	Users []UserYAML `yaml:"users"`
}

// LoadUsersFromYAML reads a users YAML file and creates any accounts that do
// not exist yet. Existing accounts are left untouched.
func LoadUsersFromYAML(path string, st datastore.DataProviderFactory) error {
	data, err := os.ReadFile(path) //nolint:gosec // path from user-provided CLI config
	if err != nil {
		return fmt.Errorf("read users config: %w", err)
	}

	var cfg UsersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fmt.Errorf("parse users config: %w", err)
	}

	created := 0
	for _, u := range cfg.Users {
		if err := ensureUser(st, u); err != nil {
			slog.Error("failed to create user from config", "user", u.Username, "err", err)
			continue
		}
		created++
	}

	slog.Info("loaded users from YAML", "path", path, "count", created)
	return nil
}

func ensureUser(st datastore.DataProviderFactory, u UserYAML) error {
	if err := model.ValidateUsername(u.Username); err != nil {
		return err
	}
	existing, err := st.NonTx().GetUserByUsername(u.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	password := u.Password
	if password == "" {
		return fmt.Errorf("user %s: password required for new account", u.Username)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	role := model.ParseRole(u.Role)
	_, err = st.NonTx().CreateUser(u.Username, hash, role)
	return err
}

// ExportUsersYAML exports all accounts as YAML. Password hashes are never
// included.
func ExportUsersYAML(st datastore.DataProviderFactory) ([]byte, error) {
	users, err := st.NonTx().ListUsers()
	if err != nil {
		return nil, err
	}

	export := UsersConfig{}
	for _, u := range users {
		export.Users = append(export.Users, UserYAML{
			ID:        u.ID,
			Username:  u.Username,
			Role:      u.Role.String(),
			CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	return yaml.Marshal(&export)
}
