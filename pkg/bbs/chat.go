package bbs

import (
	"strings"
	"sync"
	"time"

	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
)

// Chat handles the live public chat. History is a bounded in-memory buffer
// shared by all connections and lost on restart; SENDPRIVATE stores a
// private message instead, like PMSG WRITE.
type Chat struct {
	store datastore.DataProviderFactory

	mu      sync.RWMutex
	history []model.ChatMessage
	max     int
}

// NewChat creates the chat handler keeping at most max lines of history.
func NewChat(store datastore.DataProviderFactory, max int) *Chat {
	if max < 1 {
		max = 1
	}
	return &Chat{store: store, max: max}
}

func (c *Chat) Handle(sub, arg string, caller *model.User) *protocol.Reply {
	switch strings.ToUpper(sub) {
	case "RECV":
		return c.recv()
	case "SEND":
		return c.send(arg, caller)
	case "SENDPRIVATE":
		return c.sendPrivate(arg, caller)
	default:
		return protocol.Err("Unknown CHAT command")
	}
}

func (c *Chat) recv() *protocol.Reply {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reply := protocol.OK("")
	for _, m := range c.history {
		reply.WithBody(m.String())
	}
	return reply
}

func (c *Chat) send(arg string, caller *model.User) *protocol.Reply {
	body := strings.TrimSpace(arg)
	if body == "" {
		return protocol.Err("SEND <msg>")
	}
	msg := model.ChatMessage{
		Sender: caller.Username,
		Body:   body,
		SentAt: time.Now(),
	}

	c.mu.Lock()
	c.history = append(c.history, msg)
	if len(c.history) > c.max {
		c.history = c.history[len(c.history)-c.max:]
	}
	c.mu.Unlock()

	return protocol.OK("")
}

func (c *Chat) sendPrivate(arg string, caller *model.User) *protocol.Reply {
	to, body, found := strings.Cut(arg, " ")
	if !found || strings.TrimSpace(body) == "" {
		return protocol.Err("SENDPRIVATE <user> <msg>")
	}
	st := c.store.NonTx()
	target, err := st.GetUserByUsername(to)
	if err != nil {
		return serverError("chat sendprivate", err, caller)
	}
	if target == nil {
		return protocol.Err("User not found")
	}

	msg := &model.PrivateMessage{FromID: caller.ID, ToID: target.ID, Body: body}
	if err := msg.Validate(); err != nil {
		return protocol.Err(err.Error())
	}
	if err := st.CreateMessage(msg); err != nil {
		return serverError("chat sendprivate", err, caller)
	}
	return protocol.OK("Private message sent")
}

// History returns a snapshot of the chat buffer, for tests and diagnostics.
func (c *Chat) History() []model.ChatMessage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.ChatMessage, len(c.history))
	copy(out, c.history)
	return out
}
