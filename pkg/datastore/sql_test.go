package datastore_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func NewTestSqlConn(t *testing.T) *datastore.ProviderFactory {
	t.Helper()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")

	st, err := datastore.NewProviderFactory(dbPath)
	if err != nil {
		t.Fatalf("sql_test: failed to open db: %v", err)
	}

	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			fmt.Printf("Error closing database: %v\n", err)
		}
	})

	return st
}

func TestZeroTime(t *testing.T) {
	st := NewTestSqlConn(t)

	if diff := cmp.Diff(time.Time{}, st.NonTx().ZeroTime()); diff != "" {
		t.Errorf("ZeroTime mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateUser(t *testing.T) {
	t.Parallel()

	type tcase struct {
		username  string
		role      model.Role
		expectErr bool
	}

	tcases := map[string]tcase{
		"regular_user": {
			username: "johndoe",
			role:     model.RoleUser,
		},
		"admin_user": {
			username: "root",
			role:     model.RoleAdmin,
		},
		"duplicate_username": {
			username:  "johndoe",
			expectErr: true,
		},
	}

	st := NewTestSqlConn(t)

	// Ordering matters for the duplicate case, so seed the first user up front.
	run := func(name string, tc tcase) {
		u, err := st.NonTx().CreateUser(tc.username, "hash", tc.role)
		if tc.expectErr {
			if err == nil {
				t.Errorf("%s: expected error, got user %v", name, u)
			}
			return
		}
		if err != nil {
			t.Errorf("%s: CreateUser: %v", name, err)
			return
		}
		if u.ID == 0 {
			t.Errorf("%s: no id assigned", name)
		}
		want := &model.User{Username: tc.username, PasswordHash: "hash", Role: tc.role}
		if diff := cmp.Diff(want, u,
			cmpopts.IgnoreFields(model.User{}, "ID", "CreatedAt")); diff != "" {
			t.Errorf("%s: user mismatch (-want +got):\n%s", name, diff)
		}
	}
	run("regular_user", tcases["regular_user"])
	run("admin_user", tcases["admin_user"])
	run("duplicate_username", tcases["duplicate_username"])
}

func TestGetUser(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	created, err := st.NonTx().CreateUser("alice", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	byName, err := st.NonTx().GetUserByUsername("alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	byID, err := st.NonTx().GetUserByID(created.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if diff := cmp.Diff(byName, byID); diff != "" {
		t.Errorf("lookup mismatch (-name +id):\n%s", diff)
	}

	missing, err := st.NonTx().GetUserByUsername("nobody")
	if err != nil {
		t.Fatalf("GetUserByUsername(nobody): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for absent user, got %v", missing)
	}
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	u, err := st.NonTx().CreateUser("alice", "hash1", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if err := st.NonTx().UpdateUserRole(u.ID, model.RoleAdmin); err != nil {
		t.Fatalf("UpdateUserRole: %v", err)
	}
	if err := st.NonTx().UpdateUserPassword(u.ID, "hash2"); err != nil {
		t.Fatalf("UpdateUserPassword: %v", err)
	}

	got, err := st.NonTx().GetUserByID(u.ID)
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Role != model.RoleAdmin || got.PasswordHash != "hash2" {
		t.Errorf("update not persisted: role=%s hash=%s", got.Role, got.PasswordHash)
	}
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	if _, err := st.NonTx().CreateUser("alice", "hash", model.RoleUser); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := st.NonTx().DeleteUser("alice"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	got, err := st.NonTx().GetUserByUsername("alice")
	if err != nil || got != nil {
		t.Fatalf("user survived deletion: %v %v", got, err)
	}
	// Deleting an absent user is not an error.
	if err := st.NonTx().DeleteUser("alice"); err != nil {
		t.Fatalf("repeat DeleteUser: %v", err)
	}
}

func TestBoardPosts(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	alice, err := st.NonTx().CreateUser("alice", "hash", model.RoleUser)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	post := &model.Post{AuthorID: alice.ID, Subject: "hello", Body: "first"}
	if err := st.NonTx().CreatePost(post); err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if post.ID == 0 {
		t.Fatal("no post id assigned")
	}

	reply := &model.Post{AuthorID: alice.ID, Subject: "re: hello", Body: "second", ParentID: post.ID}
	if err := st.NonTx().CreatePost(reply); err != nil {
		t.Fatalf("CreatePost reply: %v", err)
	}

	// Top-level listing excludes replies and joins the author name.
	posts, err := st.NonTx().ListPosts()
	if err != nil {
		t.Fatalf("ListPosts: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("ListPosts: want 1 got %d", len(posts))
	}
	if posts[0].AuthorName != "alice" {
		t.Errorf("AuthorName: got %q", posts[0].AuthorName)
	}

	replies, err := st.NonTx().ListReplies(post.ID)
	if err != nil {
		t.Fatalf("ListReplies: %v", err)
	}
	if len(replies) != 1 || replies[0].Body != "second" {
		t.Fatalf("ListReplies: %v", replies)
	}

	got, err := st.NonTx().GetPost(post.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if diff := cmp.Diff(post.Body, got.Body); diff != "" {
		t.Errorf("GetPost body mismatch (-want +got):\n%s", diff)
	}

	missing, err := st.NonTx().GetPost(999)
	if err != nil || missing != nil {
		t.Fatalf("absent post: %v %v", missing, err)
	}
}

func TestPrivateMessages(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	alice, _ := st.NonTx().CreateUser("alice", "hash", model.RoleUser)
	bob, _ := st.NonTx().CreateUser("bob", "hash", model.RoleUser)

	msg := &model.PrivateMessage{FromID: alice.ID, ToID: bob.ID, Body: "hi bob"}
	if err := st.NonTx().CreateMessage(msg); err != nil {
		t.Fatalf("CreateMessage: %v", err)
	}

	unread, err := st.NonTx().ListUnreadMessages(bob.ID)
	if err != nil {
		t.Fatalf("ListUnreadMessages: %v", err)
	}
	if len(unread) != 1 || unread[0].SenderName != "alice" {
		t.Fatalf("unread: %v", unread)
	}

	// The sender's mailbox must stay empty.
	if msgs, _ := st.NonTx().ListUnreadMessages(alice.ID); len(msgs) != 0 {
		t.Fatalf("message delivered to sender: %v", msgs)
	}

	got, err := st.NonTx().GetMessageForRecipient(msg.ID, bob.ID)
	if err != nil || got == nil {
		t.Fatalf("GetMessageForRecipient: %v %v", got, err)
	}
	if wrong, _ := st.NonTx().GetMessageForRecipient(msg.ID, alice.ID); wrong != nil {
		t.Fatal("message visible to non-recipient")
	}

	if err := st.NonTx().MarkMessageRead(msg.ID); err != nil {
		t.Fatalf("MarkMessageRead: %v", err)
	}
	if msgs, _ := st.NonTx().ListUnreadMessages(bob.ID); len(msgs) != 0 {
		t.Fatalf("message still unread: %v", msgs)
	}
}

func TestFiles(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	alice, _ := st.NonTx().CreateUser("alice", "hash", model.RoleUser)

	entry := &model.FileEntry{
		UploaderID:  alice.ID,
		Filename:    "notes.zip",
		Description: "meeting notes",
		Visibility:  model.VisibilityPublic,
	}
	if err := st.NonTx().CreateFile(entry); err != nil {
		t.Fatalf("CreateFile: %v", err)
	}

	files, err := st.NonTx().ListFiles()
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if len(files) != 1 || files[0].UploaderName != "alice" {
		t.Fatalf("ListFiles: %v", files)
	}

	got, err := st.NonTx().GetFile(entry.ID)
	if err != nil || got == nil {
		t.Fatalf("GetFile: %v %v", got, err)
	}
	if diff := cmp.Diff(entry.Description, got.Description); diff != "" {
		t.Errorf("description mismatch (-want +got):\n%s", diff)
	}
}

func TestTxCommitAndRollback(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)
	ctx := context.Background()

	tx, err := st.Tx(ctx)
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if _, err := tx.CreateUser("committed", "hash", model.RoleUser); err != nil {
		t.Fatalf("CreateUser in tx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	tx, err = st.Tx(ctx)
	if err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if _, err := tx.CreateUser("rolledback", "hash", model.RoleUser); err != nil {
		t.Fatalf("CreateUser in tx: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if u, _ := st.NonTx().GetUserByUsername("committed"); u == nil {
		t.Error("committed user missing")
	}
	if u, _ := st.NonTx().GetUserByUsername("rolledback"); u != nil {
		t.Error("rolled-back user persisted")
	}
}

func TestBackup(t *testing.T) {
	t.Parallel()
	st := NewTestSqlConn(t)

	if _, err := st.NonTx().CreateUser("alice", "hash", model.RoleAdmin); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "backup.db")
	if err := st.Backup(dest); err != nil {
		t.Fatalf("Backup: %v", err)
	}

	restored, err := datastore.NewProviderFactory(dest)
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer func() { _ = restored.Close() }()

	u, err := restored.NonTx().GetUserByUsername("alice")
	if err != nil || u == nil {
		t.Fatalf("backup missing user: %v %v", u, err)
	}
	if u.Role != model.RoleAdmin {
		t.Errorf("role lost in backup: %s", u.Role)
	}
}
