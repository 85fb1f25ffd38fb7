package bbs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/store"
)

func TestTextLibraryListAndRead(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	dir := t.TempDir()
	lib := NewTextLibrary(dir)

	writeDoc := func(name, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatalf("WriteFile: %v", err)
		}
	}
	writeDoc("rules.txt", "line one\nline two\n")
	writeDoc("ignored.md", "not a txt")

	reply := lib.Handle("LIST", "", alice)
	if !reply.IsOK() {
		t.Fatalf("LIST: %q", reply.Status)
	}
	if len(reply.Body) != 1 || reply.Body[0] != "rules.txt" {
		t.Fatalf("only .txt documents are listed: %v", reply.Body)
	}

	reply = lib.Handle("READ", "rules.txt", alice)
	if !reply.IsOK() {
		t.Fatalf("READ: %q", reply.Status)
	}
	if len(reply.Body) != 2 || reply.Body[0] != "line one" || reply.Body[1] != "line two" {
		t.Fatalf("READ body: %v", reply.Body)
	}
}

func TestTextLibraryReadErrors(t *testing.T) {
	st := store.NewMemory()
	alice := seedUser(t, st, "alice", model.RoleUser)
	lib := NewTextLibrary(t.TempDir())

	wantStatus(t, lib.Handle("READ", "missing.txt", alice), "ERR Not found")
	wantStatus(t, lib.Handle("READ", "", alice), "ERR READ <filename>")
	wantStatus(t, lib.Handle("READ", "../secret.txt", alice), "ERR Not found")
	wantStatus(t, lib.Handle("READ", "/etc/passwd", alice), "ERR Not found")
	wantStatus(t, lib.Handle("BURN", "", alice), "ERR Unknown text command")
}
