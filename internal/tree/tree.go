// Package tree projects a directory into the transport shape the
// editor frontend consumes.
package tree

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Node is the transport projection of a filesystem entry. Paths are
// relative to the addressed root and use forward slashes. Directories
// carry a fully materialized child list; files have no children and
// directories have no size.
type Node struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	IsDirectory bool   `json:"isDirectory"`
	Modified    int64  `json:"modified"`
	Size        *int64 `json:"size"`
	Children    []Node `json:"children,omitempty"`
}

// Build lists the immediate children of dir, recursively expanded for
// subdirectories. rel is dir's logical path relative to the addressed
// root. Unreadable entries are skipped; an unreadable dir yields an
// empty list (the caller already checked existence).
func Build(dir, rel string) []Node {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return []Node{}
	}

	out := make([]Node, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			// entry vanished mid-walk or is unreadable
			continue
		}

		isDir := info.IsDir()
		name := e.Name()
		nodePath := name
		if rel != "" {
			nodePath = rel + "/" + name
		}

		node := Node{
			Name:        name,
			Path:        nodePath,
			IsDirectory: isDir,
			Modified:    info.ModTime().Unix(),
		}
		if isDir {
			node.Children = Build(filepath.Join(dir, name), nodePath)
			if node.Children == nil {
				node.Children = []Node{}
			}
		} else {
			size := info.Size()
			node.Size = &size
		}
		out = append(out, node)
	}

	// Directories first, then case-insensitive name order, applied
	// independently at every level.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDirectory != out[j].IsDirectory {
			return out[i].IsDirectory
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out
}
