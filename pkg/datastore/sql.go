package datastore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/NicolasHaas/gobbs/pkg/model"
)

const dbTimeLayout = "2006-01-02 15:04:05"

type DB interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type baseProvider struct {
	DB
}

func (p *baseProvider) ZeroTime() time.Time {
	return time.Time{}
}

func (p *baseProvider) Close() error {
	return nil
}

type nonTxProvider struct {
	baseProvider
}

type txProvider struct {
	baseProvider
	tx *sql.Tx
}

func (c *txProvider) Rollback() error {
	return c.tx.Rollback()
}

func (c *txProvider) Commit() error {
	return c.tx.Commit()
}

// ProviderFactory provides database access for all GoBBS entities.
type ProviderFactory struct {
	DB *sql.DB
}

func (sf ProviderFactory) NonTx() DataStore {
	return &nonTxProvider{
		baseProvider: baseProvider{
			DB: sf.DB,
		},
	}
}

func (sf ProviderFactory) Tx(ctx context.Context) (DataStoreTx, error) {
	tx, err := sf.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &txProvider{
		baseProvider: baseProvider{
			DB: tx,
		},
		tx: tx,
	}, nil
}

// NewProviderFactory opens (or creates) a SQLite database and runs migrations.
func NewProviderFactory(dbPath string) (*ProviderFactory, error) {
	DB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("datastore: open DB: %w", err)
	}

	ctx := context.Background()

	// Enable WAL mode for better concurrent read performance
	if _, err := DB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("datastore: set WAL: %w", err)
	}
	if _, err := DB.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("datastore: enable FK: %w", err)
	}
	// Set busy timeout to avoid "database is locked" under concurrency
	if _, err := DB.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("datastore: set busy_timeout: %w", err)
	}

	s := &ProviderFactory{DB: DB}
	if err := s.migrate(); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("datastore: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *ProviderFactory) Close() error {
	return s.DB.Close()
}

// Backup writes a consistent copy of the database to destPath using
// VACUUM INTO. The destination must not already exist.
func (s *ProviderFactory) Backup(destPath string) error {
	if _, err := s.DB.ExecContext(context.Background(), "VACUUM INTO ?", destPath); err != nil {
		return fmt.Errorf("datastore: backup: %w", err)
	}
	return nil
}

func (s *ProviderFactory) migrate() error {
	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT    NOT NULL UNIQUE CHECK(length(username) > 0 AND length(username) <= 32),
		password_hash TEXT    NOT NULL,
		role          INTEGER NOT NULL DEFAULT 0 CHECK(role >= 0 AND role <= 1),
		created_at    TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS board_messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		author_id  INTEGER NOT NULL,
		subject    TEXT    NOT NULL,
		body       TEXT    NOT NULL,
		parent_id  INTEGER NOT NULL DEFAULT 0,
		created_at TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS private_messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		from_id    INTEGER NOT NULL,
		to_id      INTEGER NOT NULL,
		body       TEXT    NOT NULL,
		read_flag  INTEGER NOT NULL DEFAULT 0,
		created_at TEXT    NOT NULL DEFAULT (datetime('now'))
	);

	CREATE TABLE IF NOT EXISTS files (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		uploader_id INTEGER NOT NULL,
		filename    TEXT    NOT NULL,
		description TEXT    NOT NULL DEFAULT '',
		visibility  TEXT    NOT NULL DEFAULT 'public',
		created_at  TEXT    NOT NULL DEFAULT (datetime('now'))
	);
	`
	ctx := context.Background()
	if err := s.ensureSchemaMigrations(ctx); err != nil {
		return err
	}
	currentVersion, err := s.getSchemaVersion(ctx)
	if err != nil {
		return err
	}

	migrations := []struct {
		version      int
		statements   []string
		ignoreErrors bool
	}{
		{
			version:    1,
			statements: []string{schema},
		},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		for _, stmt := range m.statements {
			if err := s.execMigration(ctx, stmt, m.ignoreErrors); err != nil {
				return err
			}
		}
		if err := s.setSchemaVersion(ctx, m.version); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProviderFactory) ensureSchemaMigrations(ctx context.Context) error {
	_, err := s.DB.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func (s *ProviderFactory) getSchemaVersion(ctx context.Context) (int, error) {
	var version sql.NullInt64
	err := s.DB.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("get schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (s *ProviderFactory) setSchemaVersion(ctx context.Context, version int) error {
	_, err := s.DB.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", version)
	if err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return nil
}

func (s *ProviderFactory) execMigration(ctx context.Context, stmt string, ignoreErrors bool) error {
	if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
		if ignoreErrors {
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func parseDBTime(value string) (time.Time, error) {
	return time.ParseInLocation(dbTimeLayout, value, time.UTC)
}

// ---- Users ----

// CreateUser creates a new user and returns it with the assigned ID.
// It validates the username format and role before inserting.
func (s *baseProvider) CreateUser(username, passwordHash string, role model.Role) (*model.User, error) {
	if err := model.ValidateUsername(username); err != nil {
		return nil, fmt.Errorf("datastore: create user: %w", err)
	}
	if !role.Valid() {
		return nil, fmt.Errorf("datastore: create user: %w", model.ErrInvalidRole)
	}
	res, err := s.ExecContext(context.Background(),
		"INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)",
		username, passwordHash, int(role))
	if err != nil {
		return nil, fmt.Errorf("datastore: create user: %w", err)
	}
	id, _ := res.LastInsertId()
	return &model.User{
		ID:           id,
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// GetUserByUsername retrieves a user by username. Returns (nil, nil) when absent.
func (s *baseProvider) GetUserByUsername(username string) (*model.User, error) {
	return s.getUser("SELECT id, username, password_hash, role, created_at FROM users WHERE username = ?", username)
}

// GetUserByID retrieves a user by ID. Returns (nil, nil) when absent.
func (s *baseProvider) GetUserByID(id int64) (*model.User, error) {
	return s.getUser("SELECT id, username, password_hash, role, created_at FROM users WHERE id = ?", id)
}

func (s *baseProvider) getUser(query string, arg any) (*model.User, error) {
	u := &model.User{}
	var roleInt int
	var createdAt string
	err := s.QueryRowContext(context.Background(), query, arg).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &roleInt, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: get user: %w", err)
	}
	u.Role = model.Role(roleInt)
	parsed, err := parseDBTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("datastore: get user: %w", err)
	}
	u.CreatedAt = parsed
	return u, nil
}

// UpdateUserRole changes a user's role.
func (s *baseProvider) UpdateUserRole(userID int64, role model.Role) error {
	if !role.Valid() {
		return fmt.Errorf("datastore: update user role: %w", model.ErrInvalidRole)
	}
	_, err := s.ExecContext(context.Background(), "UPDATE users SET role = ? WHERE id = ?", int(role), userID)
	if err != nil {
		return fmt.Errorf("datastore: update user role: %w", err)
	}
	return nil
}

// UpdateUserPassword replaces a user's stored password hash.
func (s *baseProvider) UpdateUserPassword(userID int64, passwordHash string) error {
	_, err := s.ExecContext(context.Background(), "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID)
	if err != nil {
		return fmt.Errorf("datastore: update user password: %w", err)
	}
	return nil
}

// DeleteUser removes a user by username. Deleting an absent user is not an error.
func (s *baseProvider) DeleteUser(username string) error {
	_, err := s.ExecContext(context.Background(), "DELETE FROM users WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("datastore: delete user: %w", err)
	}
	return nil
}

// ListUsers returns all users ordered by id.
func (s *baseProvider) ListUsers() ([]model.User, error) {
	rows, err := s.QueryContext(context.Background(),
		"SELECT id, username, password_hash, role, created_at FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("datastore: list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []model.User
	for rows.Next() {
		var u model.User
		var roleInt int
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Username, &u.PasswordHash, &roleInt, &createdAt); err != nil {
			return nil, fmt.Errorf("datastore: scan user: %w", err)
		}
		u.Role = model.Role(roleInt)
		parsed, err := parseDBTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("datastore: scan user: %w", err)
		}
		u.CreatedAt = parsed
		users = append(users, u)
	}
	return users, rows.Err()
}

// ---- Board ----

// CreatePost inserts a board post and fills in its assigned ID.
func (s *baseProvider) CreatePost(post *model.Post) error {
	if err := post.Validate(); err != nil {
		return fmt.Errorf("datastore: create post: %w", err)
	}
	res, err := s.ExecContext(context.Background(),
		"INSERT INTO board_messages (author_id, subject, body, parent_id) VALUES (?, ?, ?, ?)",
		post.AuthorID, post.Subject, post.Body, post.ParentID)
	if err != nil {
		return fmt.Errorf("datastore: create post: %w", err)
	}
	post.ID, _ = res.LastInsertId()
	post.CreatedAt = time.Now().UTC()
	return nil
}

// ListPosts returns top-level board posts, newest first, with author names joined.
func (s *baseProvider) ListPosts() ([]model.Post, error) {
	rows, err := s.QueryContext(context.Background(), `
		SELECT b.id, b.author_id, u.username, b.subject, b.body, b.parent_id, b.created_at
		FROM board_messages b
		JOIN users u ON b.author_id = u.id
		WHERE b.parent_id = 0
		ORDER BY b.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("datastore: list posts: %w", err)
	}
	return scanPosts(rows)
}

// GetPost retrieves one post (thread root or reply) by id. Returns (nil, nil) when absent.
func (s *baseProvider) GetPost(id int64) (*model.Post, error) {
	p := &model.Post{}
	var createdAt string
	err := s.QueryRowContext(context.Background(), `
		SELECT b.id, b.author_id, u.username, b.subject, b.body, b.parent_id, b.created_at
		FROM board_messages b
		JOIN users u ON b.author_id = u.id
		WHERE b.id = ?`, id).
		Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Subject, &p.Body, &p.ParentID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: get post: %w", err)
	}
	parsed, err := parseDBTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("datastore: get post: %w", err)
	}
	p.CreatedAt = parsed
	return p, nil
}

// ListReplies returns the replies to a post in posting order.
func (s *baseProvider) ListReplies(parentID int64) ([]model.Post, error) {
	rows, err := s.QueryContext(context.Background(), `
		SELECT b.id, b.author_id, u.username, b.subject, b.body, b.parent_id, b.created_at
		FROM board_messages b
		JOIN users u ON b.author_id = u.id
		WHERE b.parent_id = ?
		ORDER BY b.id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("datastore: list replies: %w", err)
	}
	return scanPosts(rows)
}

func scanPosts(rows *sql.Rows) ([]model.Post, error) {
	defer func() { _ = rows.Close() }()

	var posts []model.Post
	for rows.Next() {
		var p model.Post
		var createdAt string
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Subject, &p.Body, &p.ParentID, &createdAt); err != nil {
			return nil, fmt.Errorf("datastore: scan post: %w", err)
		}
		parsed, err := parseDBTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("datastore: scan post: %w", err)
		}
		p.CreatedAt = parsed
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// ---- Private messages ----

// CreateMessage inserts a private message and fills in its assigned ID.
func (s *baseProvider) CreateMessage(msg *model.PrivateMessage) error {
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("datastore: create message: %w", err)
	}
	res, err := s.ExecContext(context.Background(),
		"INSERT INTO private_messages (from_id, to_id, body) VALUES (?, ?, ?)",
		msg.FromID, msg.ToID, msg.Body)
	if err != nil {
		return fmt.Errorf("datastore: create message: %w", err)
	}
	msg.ID, _ = res.LastInsertId()
	msg.CreatedAt = time.Now().UTC()
	return nil
}

// ListUnreadMessages returns unread messages for a recipient, newest first.
func (s *baseProvider) ListUnreadMessages(toID int64) ([]model.PrivateMessage, error) {
	rows, err := s.QueryContext(context.Background(), `
		SELECT pm.id, pm.from_id, u.username, pm.to_id, pm.body, pm.read_flag, pm.created_at
		FROM private_messages pm
		JOIN users u ON pm.from_id = u.id
		WHERE pm.to_id = ? AND pm.read_flag = 0
		ORDER BY pm.id DESC`, toID)
	if err != nil {
		return nil, fmt.Errorf("datastore: list unread: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var msgs []model.PrivateMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	return msgs, rows.Err()
}

// GetMessageForRecipient retrieves a message only if addressed to toID.
// Returns (nil, nil) when absent, so callers cannot probe other inboxes.
func (s *baseProvider) GetMessageForRecipient(id, toID int64) (*model.PrivateMessage, error) {
	rows, err := s.QueryContext(context.Background(), `
		SELECT pm.id, pm.from_id, u.username, pm.to_id, pm.body, pm.read_flag, pm.created_at
		FROM private_messages pm
		JOIN users u ON pm.from_id = u.id
		WHERE pm.id = ? AND pm.to_id = ?`, id, toID)
	if err != nil {
		return nil, fmt.Errorf("datastore: get message: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanMessage(rows)
}

func scanMessage(rows *sql.Rows) (*model.PrivateMessage, error) {
	m := &model.PrivateMessage{}
	var readFlag int
	var createdAt string
	if err := rows.Scan(&m.ID, &m.FromID, &m.SenderName, &m.ToID, &m.Body, &readFlag, &createdAt); err != nil {
		return nil, fmt.Errorf("datastore: scan message: %w", err)
	}
	m.Read = readFlag != 0
	parsed, err := parseDBTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("datastore: scan message: %w", err)
	}
	m.CreatedAt = parsed
	return m, nil
}

// MarkMessageRead flags a private message as read.
func (s *baseProvider) MarkMessageRead(id int64) error {
	_, err := s.ExecContext(context.Background(), "UPDATE private_messages SET read_flag = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("datastore: mark read: %w", err)
	}
	return nil
}

// ---- Files ----

// CreateFile inserts a file registry entry and fills in its assigned ID.
func (s *baseProvider) CreateFile(entry *model.FileEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("datastore: create file: %w", err)
	}
	res, err := s.ExecContext(context.Background(),
		"INSERT INTO files (uploader_id, filename, description, visibility) VALUES (?, ?, ?, ?)",
		entry.UploaderID, entry.Filename, entry.Description, entry.Visibility)
	if err != nil {
		return fmt.Errorf("datastore: create file: %w", err)
	}
	entry.ID, _ = res.LastInsertId()
	entry.CreatedAt = time.Now().UTC()
	return nil
}

// ListFiles returns all registered files in registration order.
func (s *baseProvider) ListFiles() ([]model.FileEntry, error) {
	rows, err := s.QueryContext(context.Background(), `
		SELECT f.id, f.uploader_id, u.username, f.filename, f.description, f.visibility, f.created_at
		FROM files f
		JOIN users u ON f.uploader_id = u.id
		ORDER BY f.id`)
	if err != nil {
		return nil, fmt.Errorf("datastore: list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.FileEntry
	for rows.Next() {
		var e model.FileEntry
		var createdAt string
		if err := rows.Scan(&e.ID, &e.UploaderID, &e.UploaderName, &e.Filename, &e.Description, &e.Visibility, &createdAt); err != nil {
			return nil, fmt.Errorf("datastore: scan file: %w", err)
		}
		parsed, err := parseDBTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("datastore: scan file: %w", err)
		}
		e.CreatedAt = parsed
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetFile retrieves one file entry by id. Returns (nil, nil) when absent.
func (s *baseProvider) GetFile(id int64) (*model.FileEntry, error) {
	e := &model.FileEntry{}
	var createdAt string
	err := s.QueryRowContext(context.Background(), `
		SELECT f.id, f.uploader_id, u.username, f.filename, f.description, f.visibility, f.created_at
		FROM files f
		JOIN users u ON f.uploader_id = u.id
		WHERE f.id = ?`, id).
		Scan(&e.ID, &e.UploaderID, &e.UploaderName, &e.Filename, &e.Description, &e.Visibility, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("datastore: get file: %w", err)
	}
	parsed, err := parseDBTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("datastore: get file: %w", err)
	}
	e.CreatedAt = parsed
	return e, nil
}
