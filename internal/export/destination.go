package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Destination is an export target (file, S3, git).
type Destination interface {
	// Deliver stores the snapshot. It reports false when the destination
	// already held the same lists and tasks and nothing was written.
	Deliver(ctx context.Context, snap *Snapshot) (bool, error)
}

// FileDestination writes the snapshot to a local file, replacing it
// atomically on every delivery.
type FileDestination struct {
	path string
}

func NewFileDestination(path string) *FileDestination {
	return &FileDestination{path: path}
}

func (d *FileDestination) Deliver(_ context.Context, snap *Snapshot) (bool, error) {
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".todoboard-*.jsonl")
	if err != nil {
		return false, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(snap.Data); err != nil {
		tmp.Close()
		return false, fmt.Errorf("write %s: %w", d.path, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("write %s: %w", d.path, err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return false, fmt.Errorf("rename: %w", err)
	}
	return true, nil
}

func (d *FileDestination) String() string { return "file:" + d.path }
