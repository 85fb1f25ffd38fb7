package bbs

import (
	"context"
	"fmt"
	"strings"

	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
)

// PrivateMessages handles the stored user-to-user mailbox.
type PrivateMessages struct {
	store datastore.DataProviderFactory
}

// NewPrivateMessages creates the private-message handler.
func NewPrivateMessages(store datastore.DataProviderFactory) *PrivateMessages {
	return &PrivateMessages{store: store}
}

func (p *PrivateMessages) Handle(sub, arg string, caller *model.User) *protocol.Reply {
	switch strings.ToUpper(sub) {
	case "LIST":
		return p.list(caller)
	case "READ":
		return p.read(arg, caller)
	case "WRITE":
		return p.write(arg, caller)
	default:
		return protocol.Err("Unknown subcommand")
	}
}

func (p *PrivateMessages) list(caller *model.User) *protocol.Reply {
	msgs, err := p.store.NonTx().ListUnreadMessages(caller.ID)
	if err != nil {
		return serverError("pmsg list", err, caller)
	}
	reply := protocol.OK("End")
	for _, m := range msgs {
		reply.WithBody(fmt.Sprintf("ID:%d From:%s At:%s",
			m.ID, m.SenderName, m.CreatedAt.Format(timeLayout)))
	}
	return reply
}

// read fetches a message addressed to the caller and marks it read, in one
// transaction so a concurrent LIST cannot observe the message half-read.
func (p *PrivateMessages) read(arg string, caller *model.User) *protocol.Reply {
	id, ok := parseID(arg)
	if !ok {
		return protocol.Err("Missing id")
	}

	tx, err := p.store.Tx(context.Background())
	if err != nil {
		return serverError("pmsg read", err, caller)
	}
	defer func() { _ = tx.Rollback() }()

	msg, err := tx.GetMessageForRecipient(id, caller.ID)
	if err != nil {
		return serverError("pmsg read", err, caller)
	}
	if msg == nil {
		return protocol.Err("Not found")
	}
	if err := tx.MarkMessageRead(id); err != nil {
		return serverError("pmsg read", err, caller)
	}
	if err := tx.Commit(); err != nil {
		return serverError("pmsg read", err, caller)
	}

	return protocol.OK("").WithBody(
		fmt.Sprintf("From:%s At:%s", msg.SenderName, msg.CreatedAt.Format(timeLayout)),
		msg.Body,
	)
}

func (p *PrivateMessages) write(arg string, caller *model.User) *protocol.Reply {
	fields, ok := splitFields(arg, 2)
	if !ok {
		return protocol.Err("Format: WRITE user|body")
	}
	st := p.store.NonTx()
	target, err := st.GetUserByUsername(strings.TrimSpace(fields[0]))
	if err != nil {
		return serverError("pmsg write", err, caller)
	}
	if target == nil {
		return protocol.Err("User not found")
	}

	msg := &model.PrivateMessage{FromID: caller.ID, ToID: target.ID, Body: fields[1]}
	if err := msg.Validate(); err != nil {
		return protocol.Err(err.Error())
	}
	if err := st.CreateMessage(msg); err != nil {
		return serverError("pmsg write", err, caller)
	}
	return protocol.OK("Message sent")
}
