// Package sandbox confines client-supplied relative paths to a storage
// root. The check is purely syntactic: it never touches the filesystem
// and does not resolve symbolic links.
package sandbox

import (
	"path/filepath"
	"strings"

	"loft/internal/errors"
)

// Resolve joins a client-supplied relative path onto root, failing with
// a PATH_ESCAPE error if any component is a parent reference, an
// absolute marker, or a drive prefix. Current-directory components are
// dropped silently.
func Resolve(root, rel string) (string, error) {
	if strings.HasPrefix(rel, "/") || strings.HasPrefix(rel, `\`) || filepath.IsAbs(rel) {
		return "", errors.PathEscape("absolute paths are not allowed")
	}

	resolved := root
	for _, comp := range strings.FieldsFunc(rel, isSeparator) {
		switch {
		case comp == ".":
			// no-op
		case comp == "..":
			return "", errors.PathEscape("path escapes the storage root")
		case strings.Contains(comp, ":"):
			// drive prefixes and other non-normal components
			return "", errors.PathEscape("invalid path component")
		default:
			resolved = filepath.Join(resolved, comp)
		}
	}
	return resolved, nil
}

func isSeparator(r rune) bool {
	return r == '/' || r == '\\'
}
