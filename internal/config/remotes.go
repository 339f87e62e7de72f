package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/gofrs/flock"
)

// ErrRemoteNotFound is returned when a named remote does not exist.
var ErrRemoteNotFound = errors.New("remote not found")

// Remotes holds all named remotes and tracks which one is active.
type Remotes struct {
	Active  string            `toml:"active"`
	Remotes map[string]Remote `toml:"remotes"`
}

// Remote is a named server profile.
type Remote struct {
	URL         string `toml:"url"`
	Token       string `toml:"token,omitempty"`
	NATSURL     string `toml:"nats_url,omitempty"`
	Description string `toml:"description,omitempty"`
}

// RemotesPath returns ~/.local/state/todoboard/remotes.toml, creating the
// directory if needed.
func RemotesPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".local", "state", "todoboard")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return filepath.Join(dir, "remotes.toml"), nil
}

// LoadRemotes reads the remotes file at path. A missing file yields an empty
// set of remotes.
func LoadRemotes(path string) (Remotes, error) {
	var cfg Remotes
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Remotes{Remotes: map[string]Remote{}}, nil
		}
		return Remotes{}, fmt.Errorf("reading %s: %w", path, err)
	}
	if cfg.Remotes == nil {
		cfg.Remotes = map[string]Remote{}
	}
	return cfg, nil
}

// ActiveRemote returns the active remote's name and profile, or zero values
// when none is active.
func ActiveRemote(path string) (string, Remote, error) {
	cfg, err := LoadRemotes(path)
	if err != nil {
		return "", Remote{}, err
	}
	if cfg.Active == "" {
		return "", Remote{}, nil
	}
	r, ok := cfg.Remotes[cfg.Active]
	if !ok {
		return "", Remote{}, nil
	}
	return cfg.Active, r, nil
}

// UpdateRemotes loads the remotes file, applies fn and writes the result
// back, holding an exclusive file lock for the whole cycle so concurrent
// td processes do not lose each other's changes. Nothing is written when fn
// returns an error.
func UpdateRemotes(ctx context.Context, path string, fn func(*Remotes) error) error {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("locking %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("locking %s: lock not acquired", path)
	}
	defer lock.Unlock()

	cfg, err := LoadRemotes(path)
	if err != nil {
		return err
	}
	if err := fn(&cfg); err != nil {
		return err
	}
	return writeRemotes(path, cfg)
}

// writeRemotes replaces path atomically.
func writeRemotes(path string, cfg Remotes) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".remotes-*.toml")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		return fmt.Errorf("encoding remotes: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// AddRemote adds or replaces a named remote.
func AddRemote(ctx context.Context, path, name string, r Remote) error {
	if name == "" {
		return fmt.Errorf("remote name is required")
	}
	if r.URL == "" {
		return fmt.Errorf("remote %q: url is required", name)
	}
	return UpdateRemotes(ctx, path, func(cfg *Remotes) error {
		cfg.Remotes[name] = r
		return nil
	})
}

// RemoveRemote deletes a named remote, clearing it as active if it was.
func RemoveRemote(ctx context.Context, path, name string) error {
	return UpdateRemotes(ctx, path, func(cfg *Remotes) error {
		if _, ok := cfg.Remotes[name]; !ok {
			return fmt.Errorf("%w: %q", ErrRemoteNotFound, name)
		}
		delete(cfg.Remotes, name)
		if cfg.Active == name {
			cfg.Active = ""
		}
		return nil
	})
}

// UseRemote makes a named remote active.
func UseRemote(ctx context.Context, path, name string) error {
	return UpdateRemotes(ctx, path, func(cfg *Remotes) error {
		if _, ok := cfg.Remotes[name]; !ok {
			return fmt.Errorf("%w: %q", ErrRemoteNotFound, name)
		}
		cfg.Active = name
		return nil
	})
}
