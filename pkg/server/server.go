// Package server implements the GoBBS server: TCP listener, per-connection
// workers, the line-protocol router, and the session registry.
package server

import (
	"context"
	"net"
	"time"

	"github.com/NicolasHaas/gobbs/pkg/auth"
	"github.com/NicolasHaas/gobbs/pkg/bbs"
	"github.com/NicolasHaas/gobbs/pkg/datastore"
)

// Config holds server configuration.
type Config struct {
	ListenAddr  string        // TCP bind address (e.g. ":12345")
	MetricsAddr string        // HTTP bind address for /metrics endpoint (empty = disabled)
	IdleTimeout time.Duration // read deadline between requests (0 = no limit)
	DocsDir     string        // text library directory
	UploadsDir  string        // upload area for the file registry
	ChatHistory int           // public chat lines kept in memory
	UsersFile   string        // YAML file of users to seed on startup (optional)
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ListenAddr:  ":12345",
		MetricsAddr: ":9600",
		IdleTimeout: 10 * time.Minute,
		DocsDir:     "data/docs",
		UploadsDir:  "data/uploads",
		ChatHistory: 200,
	}
}

// Dependencies holds external dependencies for the server.
type Dependencies struct {
	Store datastore.DataProviderFactory
}

// Server is the main GoBBS server.
type Server struct {
	cfg      Config
	sessions *SessionManager
	metrics  *Metrics
	store    datastore.DataProviderFactory
	auth     *auth.Authenticator
	handlers map[string]bbs.Handler
	ln       net.Listener
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new Server instance.
func New(cfg Config, deps Dependencies) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		sessions: NewSessionManager(),
		metrics:  NewMetrics(),
		store:    deps.Store,
		auth:     auth.New(deps.Store),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.handlers = map[string]bbs.Handler{
		"BOARD": bbs.NewBoard(deps.Store),
		"CHAT":  bbs.NewChat(deps.Store, cfg.ChatHistory),
		"PMSG":  bbs.NewPrivateMessages(deps.Store),
		"FILE":  bbs.NewFiles(deps.Store, cfg.UploadsDir),
		"TEXT":  bbs.NewTextLibrary(cfg.DocsDir),
		"ADMIN": bbs.NewAdmin(deps.Store),
	}
	return s
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
