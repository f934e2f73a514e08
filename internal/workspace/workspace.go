// Package workspace implements file operations on the current (HEAD)
// revision tree, the only mutable revision. All client paths pass
// through the sandbox resolver before touching the filesystem.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loft/internal/errors"
	"loft/internal/revision"
	"loft/internal/sandbox"
	"loft/internal/search"
	"loft/internal/tree"

	"go.uber.org/zap"
)

type Workspace struct {
	revs   *revision.Store
	logger *zap.Logger
}

func New(revs *revision.Store, logger *zap.Logger) *Workspace {
	return &Workspace{revs: revs, logger: logger}
}

// Root returns the directory of the current revision, the working copy.
func (w *Workspace) Root() string {
	return w.revs.Dir(w.revs.Head())
}

func (w *Workspace) resolve(rel string) (string, error) {
	return sandbox.Resolve(w.Root(), rel)
}

// resolveEntry is resolve with the extra rule that the path must name
// an entry strictly inside the working copy. Rename and Delete use it:
// the revision directory itself belongs to the revision store and must
// never be moved or removed through a file operation.
func (w *Workspace) resolveEntry(rel string) (string, error) {
	root := w.Root()
	path, err := sandbox.Resolve(root, rel)
	if err != nil {
		return "", err
	}
	if path == root {
		return "", errors.PathEscape("path must name an entry inside the workspace")
	}
	return path, nil
}

// Read returns the full content of a file in the working copy.
func (w *Workspace) Read(rel string) (string, error) {
	path, err := w.resolve(rel)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return "", errors.NotFound("file does not exist")
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", rel, err)
	}
	return string(content), nil
}

// Write creates or overwrites a file, creating parent directories as
// needed. Overwrites are not distinguished from creations.
func (w *Workspace) Write(rel, content string) error {
	path, err := w.resolve(rel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating parents of %s: %w", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

// Rename atomically moves a file or directory, creating destination
// parents as needed.
func (w *Workspace) Rename(from, to string) error {
	src, err := w.resolveEntry(from)
	if err != nil {
		return err
	}
	dst, err := w.resolveEntry(to)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("creating parents of %s: %w", to, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("renaming %s to %s: %w", from, to, err)
	}
	return nil
}

// Delete removes a file, or a directory and everything beneath it.
func (w *Workspace) Delete(rel string) error {
	path, err := w.resolveEntry(rel)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return errors.NotFound("path does not exist")
	}

	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("deleting %s: %w", rel, err)
	}

	w.logger.Debug("deleted", zap.String("path", rel), zap.Bool("dir", info.IsDir()))
	return nil
}

// Mkdir creates a directory and all missing intermediates. Creating an
// existing directory is not an error.
func (w *Workspace) Mkdir(rel string) error {
	path, err := w.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", rel, err)
	}
	return nil
}

// List enumerates the children of a directory in the working copy.
func (w *Workspace) List(rel string) ([]tree.Node, error) {
	path, err := w.resolve(rel)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.NotFound("path does not exist")
	}
	return tree.Build(path, rel), nil
}

// Search matches filenames and bounded file contents under a subtree
// of the working copy against a case-folded query.
func (w *Workspace) Search(rel, query string) ([]search.Hit, error) {
	if query == "" {
		return nil, errors.ValidationError("search query must not be empty", nil)
	}

	path, err := w.resolve(rel)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, errors.NotFound("path does not exist")
	}
	return search.Run(path, rel, strings.ToLower(query)), nil
}
