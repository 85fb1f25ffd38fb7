// Package store provides an in-memory datastore implementation for tests.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
)

// MemoryStore provides an in-memory DataStore implementation for tests.
// It mirrors SQLite behavior for validation and error handling.
type MemoryStore struct {
	mu sync.RWMutex

	now func() time.Time

	nextUserID int64
	nextPostID int64
	nextMsgID  int64
	nextFileID int64

	usersByID       map[int64]*model.User
	usersByUsername map[string]*model.User
	postsByID       map[int64]*model.Post
	messagesByID    map[int64]*model.PrivateMessage
	filesByID       map[int64]*model.FileEntry
}

// Compile-time checks.
var _ datastore.DataStore = (*MemoryStore)(nil)
var _ datastore.DataProviderFactory = (*MemoryStore)(nil)

// NewMemory creates a MemoryStore using time.Now().UTC().
func NewMemory() *MemoryStore {
	return NewMemoryWithClock(func() time.Time { return time.Now().UTC() })
}

// NewMemoryWithClock creates a MemoryStore with a custom clock.
func NewMemoryWithClock(now func() time.Time) *MemoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &MemoryStore{
		now:             now,
		nextUserID:      1,
		nextPostID:      1,
		nextMsgID:       1,
		nextFileID:      1,
		usersByID:       make(map[int64]*model.User),
		usersByUsername: make(map[string]*model.User),
		postsByID:       make(map[int64]*model.Post),
		messagesByID:    make(map[int64]*model.PrivateMessage),
		filesByID:       make(map[int64]*model.FileEntry),
	}
}

// NonTx returns the store itself.
func (m *MemoryStore) NonTx() datastore.DataStore {
	return m
}

// Tx returns the store wrapped with no-op transaction control. Memory
// operations are already atomic under the store mutex.
func (m *MemoryStore) Tx(_ context.Context) (datastore.DataStoreTx, error) {
	return &memoryTx{MemoryStore: m}, nil
}

type memoryTx struct {
	*MemoryStore
}

func (t *memoryTx) Rollback() error { return nil }
func (t *memoryTx) Commit() error   { return nil }

func (m *MemoryStore) ZeroTime() time.Time {
	return time.Time{}
}

func (m *MemoryStore) Close() error {
	return nil
}

// ---- Users ----

func (m *MemoryStore) CreateUser(username, passwordHash string, role model.Role) (*model.User, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("store: create user: %w", model.ErrInvalidRole)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.usersByUsername[username]; exists {
		return nil, fmt.Errorf("store: create user: username %q already exists", username)
	}

	u := &model.User{
		ID:           m.nextUserID,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    m.now(),
	}
	m.nextUserID++
	m.usersByID[u.ID] = u
	m.usersByUsername[u.Username] = u

	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByUsername(username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.usersByUsername[username]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetUserByID(id int64) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.usersByID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) ListUsers() ([]model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]model.User, 0, len(m.usersByID))
	for _, u := range m.usersByID {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (m *MemoryStore) UpdateUserRole(userID int64, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("store: update user role: %w", model.ErrInvalidRole)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.usersByID[userID]; ok {
		u.Role = role
	}
	return nil
}

func (m *MemoryStore) UpdateUserPassword(userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.usersByID[userID]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *MemoryStore) DeleteUser(username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.usersByUsername[username]; ok {
		delete(m.usersByID, u.ID)
		delete(m.usersByUsername, username)
	}
	return nil
}

// ---- Board ----

func (m *MemoryStore) CreatePost(post *model.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("store: create post: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	post.ID = m.nextPostID
	m.nextPostID++
	post.CreatedAt = m.now()
	cp := *post
	m.postsByID[cp.ID] = &cp
	return nil
}

func (m *MemoryStore) ListPosts() ([]model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var posts []model.Post
	for _, p := range m.postsByID {
		if p.ParentID == 0 {
			posts = append(posts, m.withAuthorLocked(*p))
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID > posts[j].ID })
	return posts, nil
}

func (m *MemoryStore) GetPost(id int64) (*model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.postsByID[id]
	if !ok {
		return nil, nil
	}
	cp := m.withAuthorLocked(*p)
	return &cp, nil
}

func (m *MemoryStore) ListReplies(parentID int64) ([]model.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var posts []model.Post
	for _, p := range m.postsByID {
		if p.ParentID == parentID {
			posts = append(posts, m.withAuthorLocked(*p))
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i].ID < posts[j].ID })
	return posts, nil
}

func (m *MemoryStore) withAuthorLocked(p model.Post) model.Post {
	if u, ok := m.usersByID[p.AuthorID]; ok {
		p.AuthorName = u.Username
	}
	return p
}

// ---- Private messages ----

func (m *MemoryStore) CreateMessage(msg *model.PrivateMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("store: create message: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	msg.ID = m.nextMsgID
	m.nextMsgID++
	msg.CreatedAt = m.now()
	cp := *msg
	m.messagesByID[cp.ID] = &cp
	return nil
}

func (m *MemoryStore) ListUnreadMessages(toID int64) ([]model.PrivateMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var msgs []model.PrivateMessage
	for _, msg := range m.messagesByID {
		if msg.ToID == toID && !msg.Read {
			msgs = append(msgs, m.withSenderLocked(*msg))
		}
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ID > msgs[j].ID })
	return msgs, nil
}

func (m *MemoryStore) GetMessageForRecipient(id, toID int64) (*model.PrivateMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	msg, ok := m.messagesByID[id]
	if !ok || msg.ToID != toID {
		return nil, nil
	}
	cp := m.withSenderLocked(*msg)
	return &cp, nil
}

func (m *MemoryStore) MarkMessageRead(id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if msg, ok := m.messagesByID[id]; ok {
		msg.Read = true
	}
	return nil
}

func (m *MemoryStore) withSenderLocked(msg model.PrivateMessage) model.PrivateMessage {
	if u, ok := m.usersByID[msg.FromID]; ok {
		msg.SenderName = u.Username
	}
	return msg
}

// ---- Files ----

func (m *MemoryStore) CreateFile(entry *model.FileEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("store: create file: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = m.nextFileID
	m.nextFileID++
	entry.CreatedAt = m.now()
	cp := *entry
	m.filesByID[cp.ID] = &cp
	return nil
}

func (m *MemoryStore) ListFiles() ([]model.FileEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := make([]model.FileEntry, 0, len(m.filesByID))
	for _, e := range m.filesByID {
		entries = append(entries, m.withUploaderLocked(*e))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

func (m *MemoryStore) GetFile(id int64) (*model.FileEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.filesByID[id]
	if !ok {
		return nil, nil
	}
	cp := m.withUploaderLocked(*e)
	return &cp, nil
}

func (m *MemoryStore) withUploaderLocked(e model.FileEntry) model.FileEntry {
	if u, ok := m.usersByID[e.UploaderID]; ok {
		e.UploaderName = u.Username
	}
	return e
}
