package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination keeps the snapshot as a file in a local clone and pushes a
// commit whenever the lists or tasks change.
type GitDestination struct {
	repo   string
	file   string // relative to repo
	branch string
	output io.Writer
}

// NewGitDestination creates a git destination for an existing clone at repo.
// Git's own output goes to stderr.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch, output: os.Stderr}
}

// Deliver syncs the branch, and commits and pushes the snapshot unless the
// committed file already holds the same lists and tasks.
func (d *GitDestination) Deliver(ctx context.Context, snap *Snapshot) (bool, error) {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return false, fmt.Errorf("git checkout %s: %w", d.branch, err)
	}
	// Fails harmlessly when the branch is not on the remote yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		if contentDigest(existing) == snap.Digest {
			return false, nil
		}
	case !errors.Is(err, fs.ErrNotExist):
		return false, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, snap.Data, 0o644); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	if err := d.git(ctx, "add", d.file); err != nil {
		return false, fmt.Errorf("git add: %w", err)
	}
	subject, body := commitMessage(snap)
	if err := d.git(ctx, "commit", "-m", subject, "-m", body); err != nil {
		return false, fmt.Errorf("git commit: %w", err)
	}
	if err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return false, fmt.Errorf("git push: %w", err)
	}
	return true, nil
}

// commitMessage summarises the snapshot, one body line per list.
func commitMessage(snap *Snapshot) (subject, body string) {
	subject = "todoboard: export " + snap.Summary()
	if len(snap.Lists) == 0 {
		return subject, "No lists."
	}
	lines := make([]string, len(snap.Lists))
	for i, l := range snap.Lists {
		lines[i] = fmt.Sprintf("- %s (%s)", l.Name, plural(len(l.Items), "task"))
	}
	return subject, strings.Join(lines, "\n")
}

func (d *GitDestination) String() string { return "git:" + filepath.Join(d.repo, d.file) }

func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = d.output
	cmd.Stderr = d.output
	return cmd.Run()
}
