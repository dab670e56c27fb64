package corpus

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrCloneFailed is returned when the corpus repository cannot be fetched
var ErrCloneFailed = errors.New("corpus clone failed")

// markerFile marks a complete checkout of the corpus repository
const markerFile = "README.md"

// gitCommand is overridden in tests
var gitCommand = "git"

// EnsureCloned makes sure dir holds a checkout of repo at tag.
// Nothing is done when dir already contains README.md; otherwise a shallow
// clone of the tag is made into dir.
func EnsureCloned(ctx context.Context, dir, repo, tag string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(filepath.Join(dir, markerFile)); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		return fmt.Errorf("%w: create parent of %s: %v", ErrCloneFailed, dir, err)
	}

	args := cloneArgs(dir, repo, tag)
	logger.Info("Cloning corpus", "repo", repo, "tag", tag, "dir", dir)

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, gitCommand, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v: %s\nclone it manually with: %s",
			ErrCloneFailed, err, strings.TrimSpace(out.String()), manualCloneCommand(dir, repo, tag))
	}
	return nil
}

func cloneArgs(dir, repo, tag string) []string {
	args := []string{"clone", "--depth", "1"}
	if tag != "" {
		args = append(args, "--branch", tag)
	}
	return append(args, repo, dir)
}

func manualCloneCommand(dir, repo, tag string) string {
	return "git " + strings.Join(cloneArgs(dir, repo, tag), " ")
}
