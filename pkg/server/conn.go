package server

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/NicolasHaas/gobbs/pkg/protocol"
)

// conn carries the per-connection state a worker goroutine owns. sessionID
// is zero until a successful LOGIN and again after LOGOUT.
type conn struct {
	netConn   net.Conn
	remote    string
	sessionID uint64
}

// handleConn runs the lifecycle of one client connection: greeting, then a
// read-parse-route-reply loop until the client disconnects, the idle
// deadline expires, or the server shuts down.
func (s *Server) handleConn(nc net.Conn) {
	c := &conn{netConn: nc, remote: nc.RemoteAddr().String()}

	s.metrics.ConnectionsTotal.Inc()
	s.metrics.ActiveConnections.Inc()
	slog.Debug("new connection", "remote", c.remote)

	defer func() {
		if c.sessionID != 0 {
			s.sessions.Remove(c.sessionID)
			s.metrics.ActiveSessions.Dec()
		}
		_ = nc.Close()
		s.metrics.ActiveConnections.Dec()
		s.metrics.DisconnectsTotal.Inc()
		slog.Info("client disconnected", "remote", c.remote, "session", c.sessionID)
	}()

	w := bufio.NewWriter(nc)
	if err := writeLines(w, protocol.Greeting); err != nil {
		slog.Error("greeting write failed", "remote", c.remote, "err", err)
		return
	}

	r := bufio.NewReader(nc)
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if s.cfg.IdleTimeout > 0 {
			_ = nc.SetReadDeadline(time.Now().Add(s.cfg.IdleTimeout))
		}

		line, err := r.ReadString('\n')
		if err != nil {
			switch {
			case errors.Is(err, io.EOF), isClosedErr(err):
			case errors.Is(err, os.ErrDeadlineExceeded):
				slog.Info("idle timeout", "remote", c.remote, "session", c.sessionID)
			default:
				slog.Error("read error", "remote", c.remote, "err", err)
			}
			return
		}

		reply := s.route(c, protocol.Parse(line))
		if reply == nil {
			continue
		}
		if err := reply.WriteTo(w); err != nil {
			slog.Error("write error", "remote", c.remote, "err", err)
			return
		}
	}
}

func writeLines(w *bufio.Writer, lines ...string) error {
	for _, l := range lines {
		if _, err := w.WriteString(l + "\n"); err != nil {
			return err
		}
	}
	return w.Flush()
}

func isClosedErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "use of closed network connection")
}
