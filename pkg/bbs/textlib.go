package bbs

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
)

// TextLibrary serves read-only .txt documents from a directory on disk.
type TextLibrary struct {
	docsDir string
}

// NewTextLibrary creates the text-library handler rooted at docsDir.
func NewTextLibrary(docsDir string) *TextLibrary {
	return &TextLibrary{docsDir: docsDir}
}

func (t *TextLibrary) Handle(sub, arg string, caller *model.User) *protocol.Reply {
	switch strings.ToUpper(sub) {
	case "LIST":
		return t.list(caller)
	case "READ":
		return t.read(arg, caller)
	default:
		return protocol.Err("Unknown text command")
	}
}

func (t *TextLibrary) list(caller *model.User) *protocol.Reply {
	entries, err := os.ReadDir(t.docsDir)
	if err != nil {
		return serverError("text list", err, caller)
	}
	reply := protocol.OK("")
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			reply.WithBody(e.Name())
		}
	}
	return reply
}

func (t *TextLibrary) read(arg string, caller *model.User) *protocol.Reply {
	name := strings.TrimSpace(arg)
	if name == "" {
		return protocol.Err("READ <filename>")
	}
	// Documents are addressed by bare name only.
	if strings.ContainsAny(name, "/\\") || name == ".." {
		return protocol.Err("Not found")
	}

	data, err := os.ReadFile(filepath.Join(t.docsDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return protocol.Err("Not found")
		}
		return serverError("text read", err, caller)
	}

	reply := protocol.OK("")
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		reply.WithBody(line)
	}
	return reply
}
