package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxFilenameLength = 128
	MaxFileDescLength = 512

	VisibilityPublic  = "public"
	VisibilityPrivate = "private"
)

var ErrFilenameEmpty = errors.New("filename must not be empty")
var ErrFilenameTooLong = fmt.Errorf("filename must not exceed %d characters", MaxFilenameLength)
var ErrFilenameInvalid = errors.New("filename must not contain path separators")
var ErrFileDescTooLong = fmt.Errorf("file description must not exceed %d characters", MaxFileDescLength)
var ErrFileVisibility = errors.New("visibility must be public or private")

// FileEntry is a registry record for a file already present in the upload
// area. The registry tracks metadata only; transferring file content is not
// part of the wire protocol.
type FileEntry struct {
	ID          int64     `json:"id"`
	UploaderID  int64     `json:"uploader_id"`
	Filename    string    `json:"filename"`
	Description string    `json:"description"`
	Visibility  string    `json:"visibility"`
	CreatedAt   time.Time `json:"created_at"`

	// UploaderName is joined in by list/info queries.
	UploaderName string `json:"uploader_name,omitempty"`
}

// Validate checks filename, description, and visibility before insertion.
// Filenames must be bare names: anything that could escape the upload
// directory is rejected here, before any filesystem check.
func (f *FileEntry) Validate() error {
	if strings.TrimSpace(f.Filename) == "" {
		return ErrFilenameEmpty
	}
	if utf8.RuneCountInString(f.Filename) > MaxFilenameLength {
		return ErrFilenameTooLong
	}
	if strings.ContainsAny(f.Filename, "/\\") || f.Filename == ".." {
		return ErrFilenameInvalid
	}
	if utf8.RuneCountInString(f.Description) > MaxFileDescLength {
		return ErrFileDescTooLong
	}
	if f.Visibility != VisibilityPublic && f.Visibility != VisibilityPrivate {
		return ErrFileVisibility
	}
	return nil
}
