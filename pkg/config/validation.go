package config

import (
	"errors"

	"github.com/NicolasHaas/gobbs/pkg/logging"
)

func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listenAddr must not be empty")
	}
	if c.Server.IdleTimeout < 0 {
		return errors.New("server.idleTimeout must not be negative")
	}
	if c.DB.Path == "" {
		return errors.New("db.path must not be empty")
	}
	if c.Chat.HistorySize < 1 {
		return errors.New("chat.historySize must be positive")
	}
	if err := logging.Validate(c.Log.Level); err != nil {
		return err
	}
	return nil
}
