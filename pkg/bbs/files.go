package bbs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/NicolasHaas/gobbs/pkg/datastore"
	"github.com/NicolasHaas/gobbs/pkg/model"
	"github.com/NicolasHaas/gobbs/pkg/protocol"
)

// Files handles the file registry. It tracks metadata for files already
// placed in the upload directory out of band; the protocol never carries
// file content.
type Files struct {
	store      datastore.DataProviderFactory
	uploadsDir string
}

// NewFiles creates the file-registry handler rooted at uploadsDir.
func NewFiles(store datastore.DataProviderFactory, uploadsDir string) *Files {
	return &Files{store: store, uploadsDir: uploadsDir}
}

func (f *Files) Handle(sub, arg string, caller *model.User) *protocol.Reply {
	switch strings.ToUpper(sub) {
	case "LIST":
		return f.list(caller)
	case "INFO":
		return f.info(arg, caller)
	case "REGISTER":
		return f.register(arg, caller)
	default:
		return protocol.Err("Unknown file command")
	}
}

func (f *Files) list(caller *model.User) *protocol.Reply {
	entries, err := f.store.NonTx().ListFiles()
	if err != nil {
		return serverError("file list", err, caller)
	}
	reply := protocol.OK("")
	for _, e := range entries {
		reply.WithBody(fmt.Sprintf("%d %s by %s [%s]", e.ID, e.Filename, e.UploaderName, e.Visibility))
	}
	return reply
}

func (f *Files) info(arg string, caller *model.User) *protocol.Reply {
	id, ok := parseID(arg)
	if !ok {
		return protocol.Err("INFO <id>")
	}
	entry, err := f.store.NonTx().GetFile(id)
	if err != nil {
		return serverError("file info", err, caller)
	}
	if entry == nil {
		return protocol.Err("Not found")
	}
	return protocol.OK("").WithBody(
		fmt.Sprintf("ID:%d File:%s", entry.ID, entry.Filename),
		"Uploader:"+entry.UploaderName,
		"Visibility:"+entry.Visibility,
		"Description:"+entry.Description,
	)
}

func (f *Files) register(arg string, caller *model.User) *protocol.Reply {
	fields, ok := splitFields(arg, 3)
	if !ok {
		return protocol.Err("REGISTER filename|desc|vis")
	}
	entry := &model.FileEntry{
		UploaderID:  caller.ID,
		Filename:    strings.TrimSpace(fields[0]),
		Description: fields[1],
		Visibility:  strings.ToLower(strings.TrimSpace(fields[2])),
	}
	if err := entry.Validate(); err != nil {
		return protocol.Err(err.Error())
	}

	// The file must already be in the upload area; registration is metadata only.
	if _, err := os.Stat(filepath.Join(f.uploadsDir, entry.Filename)); err != nil {
		return protocol.Err("File not uploaded")
	}

	if err := f.store.NonTx().CreateFile(entry); err != nil {
		return serverError("file register", err, caller)
	}
	return protocol.OK("File registered")
}
