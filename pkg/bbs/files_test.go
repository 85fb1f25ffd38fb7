package bbs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/store"
)

func TestFilesRegisterAndList(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	dir := t.TempDir()
	f := NewFiles(st, dir)

	path := filepath.Join(dir, "notes.zip")
	if err := os.WriteFile(path, []byte("payload"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	wantStatus(t, f.Handle("REGISTER", "notes.zip|meeting notes|public", alice), "OK File registered")

	reply := f.Handle("LIST", "", alice)
	if !reply.IsOK() || len(reply.Body) != 1 {
		t.Fatalf("LIST: %q %v", reply.Status, reply.Body)
	}
	bodyContains(t, reply, "notes.zip by alice [public]")

	reply = f.Handle("INFO", "1", alice)
	bodyContains(t, reply, "File:notes.zip")
	bodyContains(t, reply, "Description:meeting notes")
}

func TestFilesRegisterRequiresUpload(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	f := NewFiles(st, t.TempDir())

	// Metadata without a file in the upload area is rejected.
	wantStatus(t, f.Handle("REGISTER", "ghost.zip|nothing here|public", alice), "ERR File not uploaded")
}

func TestFilesRegisterValidation(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	f := NewFiles(st, t.TempDir())

	for _, arg := range []string{
		"../../etc/passwd|desc|public",
		"sub/dir.zip|desc|public",
		"ok.zip|desc|secret",
		"ok.zip|desc",
	} {
		if f.Handle("REGISTER", arg, alice).IsOK() {
			t.Errorf("REGISTER %q accepted", arg)
		}
	}
}

func TestFilesInfoNotFound(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	f := NewFiles(st, t.TempDir())

	wantStatus(t, f.Handle("INFO", "5", alice), "ERR Not found")
	wantStatus(t, f.Handle("INFO", "x", alice), "ERR INFO <id>")
}
