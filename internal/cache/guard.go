// Package cache skips pipeline stages whose output artifact already exists.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"

	"cropdata/internal/logger"
	"cropdata/pkg/metadata"
)

// StageFunc produces the artifact at the guarded path and returns the number
// of rows (or bytes, for raw downloads) it wrote.
type StageFunc func(ctx context.Context) (int, error)

// Guard runs a stage only when its artifact is absent, unless Replace is set.
// With Verify set, an artifact whose sidecar hash no longer matches is
// rebuilt as if it were absent.
type Guard struct {
	Path    string
	Replace bool
	Verify  bool
	RunID   string
	Logger  *logger.Logger
}

// Run invokes stage when the artifact needs (re)building and signs the result.
// It reports whether stage ran.
func (g Guard) Run(ctx context.Context, stage StageFunc) (bool, error) {
	log := g.Logger
	if log == nil {
		log = logger.Discard()
	}

	log = log.With("artifact", g.Path)

	fresh, reason, err := g.upToDate()
	if err != nil {
		return false, err
	}

	if fresh {
		log.Info("Artifact present, skipping stage")

		return false, nil
	}

	log.Debug("Running stage", "reason", reason)

	n, err := stage(ctx)
	if err != nil {
		return true, err
	}

	if _, err := metadata.Sign(g.Path, n, g.RunID); err != nil {
		return true, fmt.Errorf("sign %s: %w", g.Path, err)
	}

	return true, nil
}

func (g Guard) upToDate() (bool, string, error) {
	if g.Replace {
		return false, "replace", nil
	}

	_, err := os.Stat(g.Path)
	if errors.Is(err, os.ErrNotExist) {
		return false, "missing", nil
	}

	if err != nil {
		return false, "", fmt.Errorf("stat %s: %w", g.Path, err)
	}

	if !g.Verify {
		return true, "", nil
	}

	ok, err := metadata.Verify(g.Path)
	if ok {
		return true, "", nil
	}

	return false, err.Error(), nil
}

// Remove deletes the artifact at path together with its sidecar.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	if err := os.Remove(metadata.SidecarPath(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", metadata.SidecarPath(path), err)
	}

	return nil
}
