package filestore

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/hack-pad/hackpadfs"
)

// MemoryDocument reads and rewrites the user-owned long-term memory file.
type MemoryDocument struct {
	fsys hackpadfs.FS
	path string
}

// NewMemoryDocument creates a memory document at a workspace-relative path
func NewMemoryDocument(fsys hackpadfs.FS, name string) *MemoryDocument {
	return &MemoryDocument{fsys: fsys, path: path.Clean(name)}
}

// Read returns "" when the document does not exist yet
func (d *MemoryDocument) Read(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := hackpadfs.ReadFile(d.fsys, d.path)
	if errors.Is(err, hackpadfs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", d.path, err)
	}
	return string(data), nil
}

// Write replaces the document
func (d *MemoryDocument) Write(ctx context.Context, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := hackpadfs.WriteFullFile(d.fsys, d.path, []byte(content), filePerm); err != nil {
		return fmt.Errorf("write %s: %w", d.path, err)
	}
	return nil
}

// Name is the document's file name
func (d *MemoryDocument) Name() string {
	return path.Base(d.path)
}
