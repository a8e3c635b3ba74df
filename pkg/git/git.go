// Package git provides utilities for reading changes from the current git
// repository.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotRepository is returned when the working directory is not inside a
// git work tree.
var ErrNotRepository = errors.New("not a git repository")

const commandTimeout = 10 * time.Second

// RepoName returns the name of the current git repository.
// It runs "git rev-parse --show-toplevel" and returns the base directory name.
// If not inside a git repo, it falls back to the base name of the working directory.
func RepoName(ctx context.Context) string {
	if top, err := run(ctx, "", "rev-parse", "--show-toplevel"); err == nil {
		if top = strings.TrimSpace(top); top != "" {
			return filepath.Base(top)
		}
	}

	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	return filepath.Base(wd)
}

// DiffOptions selects which changes Diff returns.
type DiffOptions struct {
	// Dir is the directory git runs in. Empty means the working directory.
	Dir string

	// Staged returns the index against HEAD instead of the work tree.
	Staged bool

	// Paths limits the diff to these paths.
	Paths []string
}

// Diff returns the unified diff of uncommitted changes.
func Diff(ctx context.Context, o DiffOptions) (string, error) {
	if _, err := run(ctx, o.Dir, "rev-parse", "--is-inside-work-tree"); err != nil {
		return "", ErrNotRepository
	}

	args := []string{"diff", "--no-color", "--no-ext-diff"}
	if o.Staged {
		args = append(args, "--cached")
	}
	if len(o.Paths) > 0 {
		args = append(args, "--")
		args = append(args, o.Paths...)
	}

	return run(ctx, o.Dir, args...)
}

func run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return string(out), nil
}
