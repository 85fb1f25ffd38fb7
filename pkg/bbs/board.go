package bbs

import (
	"fmt"
	"strings"

	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
)

// Board handles the public message board: threaded posts with replies.
type Board struct {
	store datastore.DataProviderFactory
}

// NewBoard creates the board handler.
func NewBoard(store datastore.DataProviderFactory) *Board {
	return &Board{store: store}
}

func (b *Board) Handle(sub, arg string, caller *model.User) *protocol.Reply {
	switch strings.ToUpper(sub) {
	case "LIST":
		return b.list(caller)
	case "READ":
		return b.read(arg, caller)
	case "NEW":
		return b.post(arg, 0, caller)
	case "REPLY":
		return b.reply(arg, caller)
	default:
		return protocol.Err("Unknown BOARD command")
	}
}

func (b *Board) list(caller *model.User) *protocol.Reply {
	posts, err := b.store.NonTx().ListPosts()
	if err != nil {
		return serverError("board list", err, caller)
	}
	reply := protocol.OK("")
	for _, p := range posts {
		reply.WithBody(fmt.Sprintf("%d [%s] by %s at %s",
			p.ID, p.Subject, p.AuthorName, p.CreatedAt.Format(timeLayout)))
	}
	return reply
}

func (b *Board) read(arg string, caller *model.User) *protocol.Reply {
	id, ok := parseID(arg)
	if !ok {
		return protocol.Err("Need id")
	}
	st := b.store.NonTx()
	post, err := st.GetPost(id)
	if err != nil {
		return serverError("board read", err, caller)
	}
	if post == nil {
		return protocol.Err("Not found")
	}

	reply := protocol.OK("")
	reply.WithBody(
		fmt.Sprintf("ID:%d Subject:%s", post.ID, post.Subject),
		fmt.Sprintf("Author:%s At:%s", post.AuthorName, post.CreatedAt.Format(timeLayout)),
		post.Body,
	)

	replies, err := st.ListReplies(id)
	if err != nil {
		return serverError("board read replies", err, caller)
	}
	for _, r := range replies {
		reply.WithBody(
			fmt.Sprintf(">> Reply ID:%d [%s] by %s at %s",
				r.ID, r.Subject, r.AuthorName, r.CreatedAt.Format(timeLayout)),
			r.Body,
		)
	}
	return reply
}

func (b *Board) post(arg string, parentID int64, caller *model.User) *protocol.Reply {
	fields, ok := splitFields(arg, 2)
	if !ok {
		return protocol.Err("Need subject|body")
	}
	post := &model.Post{
		AuthorID: caller.ID,
		Subject:  strings.TrimSpace(fields[0]),
		Body:     fields[1],
		ParentID: parentID,
	}
	if err := post.Validate(); err != nil {
		return protocol.Err(err.Error())
	}
	if err := b.store.NonTx().CreatePost(post); err != nil {
		return serverError("board post", err, caller)
	}
	if parentID != 0 {
		return protocol.OK("Reply posted")
	}
	return protocol.OK("Message posted")
}

func (b *Board) reply(arg string, caller *model.User) *protocol.Reply {
	fields, ok := splitFields(arg, 3)
	if !ok {
		return protocol.Err("Need pid|subject|body")
	}
	pid, ok := parseID(fields[0])
	if !ok {
		return protocol.Err("Need pid|subject|body")
	}
	parent, err := b.store.NonTx().GetPost(pid)
	if err != nil {
		return serverError("board reply", err, caller)
	}
	if parent == nil {
		return protocol.Err("Not found")
	}
	return b.post(fields[1]+"|"+fields[2], pid, caller)
}
