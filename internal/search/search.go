// Package search walks a subtree matching filenames and bounded file
// contents against a case-folded query.
package search

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// MaxContentBytes bounds the file size eligible for content scanning.
const MaxContentBytes = 1_000_000

const (
	MatchedName    = "name"
	MatchedContent = "content"
)

// Hit is a single search result. Path is relative to the working-copy
// root and uses forward slashes regardless of platform.
type Hit struct {
	Path    string `json:"path"`
	Matched string `json:"matched"`
}

// Run walks every regular file under dir and returns at most one hit
// per file: a filename substring match wins and suppresses the content
// scan. Content matching skips files over MaxContentBytes and files
// that are not valid UTF-8. base is dir's logical path relative to the
// working-copy root; query must already be lower-cased by the caller.
func Run(dir, base, query string) []Hit {
	hits := []Hit{}

	filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		switch {
		case rel == ".":
			// dir is itself a regular file
			rel = base
			if rel == "" {
				rel = d.Name()
			}
		case base != "":
			rel = base + "/" + rel
		}

		if strings.Contains(strings.ToLower(d.Name()), query) {
			hits = append(hits, Hit{Path: rel, Matched: MatchedName})
			return nil
		}

		info, err := d.Info()
		if err != nil || info.Size() > MaxContentBytes {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil || !utf8.Valid(content) {
			return nil
		}
		if strings.Contains(strings.ToLower(string(content)), query) {
			hits = append(hits, Hit{Path: rel, Matched: MatchedContent})
		}
		return nil
	})

	return hits
}
