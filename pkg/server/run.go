package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/NicolasHaas/gobbs/pkg/auth"
	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
)

// Start binds the TCP listener and launches the accept loop. A failure to
// bind is fatal; accept errors after that are logged and the loop continues.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("server: listen: %w", err)
	}
	s.ln = ln
	slog.Info("bbs listening", "addr", ln.Addr().String())

	go func() {
		for {
			nc, err := ln.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
					slog.Error("accept error", "err", err)
					continue
				}
			}
			go s.handleConn(nc)
		}
	}()

	return nil
}

// Addr returns the bound listener address, for callers that bind to port 0.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Run starts the server and blocks until a shutdown signal.
func (s *Server) Run() error {
	if s.store == nil {
		return fmt.Errorf("server: missing store dependency")
	}
	st := s.store
	defer func() { _ = st.NonTx().Close() }()

	if s.cfg.UsersFile != "" {
		if err := LoadUsersFromYAML(s.cfg.UsersFile, st); err != nil {
			slog.Error("failed to load users file", "path", s.cfg.UsersFile, "err", err)
		}
	}

	if err := s.ensureAdminUser(st); err != nil {
		return err
	}

	if err := s.Start(); err != nil {
		return err
	}

	s.StartMetricsHTTP()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")
	s.Shutdown()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown() {
	s.cancel()
	if s.ln != nil {
		_ = s.ln.Close()
	}
}

// ensureAdminUser creates an admin account only on first run, when the users
// table is empty, and prints the generated password once.
func (s *Server) ensureAdminUser(st datastore.DataProviderFactory) error {
	users, err := st.NonTx().ListUsers()
	if err != nil {
		return fmt.Errorf("server: check users: %w", err)
	}
	if len(users) > 0 {
		return nil
	}

	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("server: generate admin password: %w", err)
	}
	password := hex.EncodeToString(raw)

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("server: hash admin password: %w", err)
	}
	if _, err := st.NonTx().CreateUser("admin", hash, model.RoleAdmin); err != nil {
		return fmt.Errorf("server: create admin user: %w", err)
	}

	slog.Info("========================================")
	slog.Info("ADMIN PASSWORD (save this!):", "user", "admin", "password", password)
	slog.Info("========================================")
	return nil
}
