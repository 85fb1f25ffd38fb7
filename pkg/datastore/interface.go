package datastore

import (
	"context"
	"time"

	"github.com/NicolasHaas/gobbs/pkg/model"
)

type DataProviderFactory interface {
	NonTx() DataStore
	Tx(context.Context) (DataStoreTx, error)
}

type DataStoreTx interface {
	DataStore
	Rollback() error
	Commit() error
}

// DataStore defines the persistence interface for all GoBBS entities.
// Implementations include the default SQLite store and the in-memory store
// used by tests; any other backend only needs to satisfy these providers.
type DataStore interface {
	ConfigReadProvider

	UserReadProvider
	UserWriteProvider

	BoardReadProvider
	BoardWriteProvider

	PrivateMessageReadProvider
	PrivateMessageWriteProvider

	FileReadProvider
	FileWriteProvider
}

// Compile-time check: *ProviderFactory implements DataProviderFactory.
var _ DataProviderFactory = (*ProviderFactory)(nil)

type ConfigReadProvider interface {
	ZeroTime() time.Time
	Close() error
}

type UserReadProvider interface {
	GetUserByUsername(username string) (*model.User, error)
	GetUserByID(id int64) (*model.User, error)
	ListUsers() ([]model.User, error)
}

type UserWriteProvider interface {
	CreateUser(username, passwordHash string, role model.Role) (*model.User, error)
	UpdateUserRole(userID int64, role model.Role) error
	UpdateUserPassword(userID int64, passwordHash string) error
	DeleteUser(username string) error
}

type BoardReadProvider interface {
	ListPosts() ([]model.Post, error)
	GetPost(id int64) (*model.Post, error)
	ListReplies(parentID int64) ([]model.Post, error)
}

type BoardWriteProvider interface {
	CreatePost(post *model.Post) error
}

type PrivateMessageReadProvider interface {
	ListUnreadMessages(toID int64) ([]model.PrivateMessage, error)
	GetMessageForRecipient(id, toID int64) (*model.PrivateMessage, error)
}

type PrivateMessageWriteProvider interface {
	CreateMessage(msg *model.PrivateMessage) error
	MarkMessageRead(id int64) error
}

type FileReadProvider interface {
	ListFiles() ([]model.FileEntry, error)
	GetFile(id int64) (*model.FileEntry, error)
}

type FileWriteProvider interface {
	CreateFile(entry *model.FileEntry) error
}
