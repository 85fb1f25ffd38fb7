// Package bbs implements the domain command families of the BBS: the public
// board, live chat, private messages, the file registry, the text library,
// and user administration. Each family receives a sub-verb and raw argument
// from the router along with the authenticated caller and returns a complete
// reply; the router never interprets handler arguments.
package bbs

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
)

// Handler is one command family. Sub-verb casing and argument structure
// (pipe-delimited fields, ids) are validated here, before any store call, so
// malformed input never reaches a handler-internal failure path.
type Handler interface {
	Handle(sub, arg string, caller *model.User) *protocol.Reply
}

const timeLayout = "2006-01-02 15:04:05"

// serverError logs an unexpected failure and returns the generic reply.
// The client never sees internal error detail.
func serverError(op string, err error, caller *model.User) *protocol.Reply {
	slog.Error("handler error", "op", op, "user", caller.Username, "err", err)
	return protocol.Err("Server error")
}

// parseID parses a decimal record id argument.
func parseID(arg string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// splitFields splits a pipe-delimited argument into exactly n fields.
func splitFields(arg string, n int) ([]string, bool) {
	fields := strings.SplitN(arg, "|", n)
	if len(fields) < n {
		return nil, false
	}
	return fields, true
}
