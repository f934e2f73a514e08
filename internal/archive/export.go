package archive

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"loft/internal/errors"
	"loft/internal/revision"
	"loft/internal/sandbox"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// cacheableBytes caps the size of files kept in the export cache.
const cacheableBytes = 1 << 20

// Exporter streams single files out of historical revisions. Revisions
// below HEAD are immutable, so their files are served through an LRU
// cache; the working copy is always read from disk.
type Exporter struct {
	store  *revision.Store
	cache  *lru.Cache[string, []byte]
	logger *zap.Logger
}

func NewExporter(store *revision.Store, cacheSize int, logger *zap.Logger) (*Exporter, error) {
	cache, err := lru.New[string, []byte](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating export cache: %w", err)
	}
	return &Exporter{store: store, cache: cache, logger: logger}, nil
}

// Open returns a stream of the addressed file's bytes and its size.
// It fails with a NOT_FOUND error when the revision or path does not
// resolve to an existing regular file.
func (e *Exporter) Open(rev uint64, rel string) (io.ReadCloser, int64, error) {
	if !e.store.Exists(rev) {
		return nil, 0, errors.NotFound("revision does not exist")
	}

	// Resolution failures are indistinguishable from absent files on
	// the export side.
	path, err := sandbox.Resolve(e.store.Dir(rev), rel)
	if err != nil {
		return nil, 0, errors.NotFound("file does not exist in revision")
	}

	key := strconv.FormatUint(rev, 10) + "/" + rel
	immutable := rev < e.store.Head()
	if immutable {
		if content, ok := e.cache.Get(key); ok {
			return io.NopCloser(bytes.NewReader(content)), int64(len(content)), nil
		}
	}

	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return nil, 0, errors.NotFound("file does not exist in revision")
	}

	if immutable && info.Size() <= cacheableBytes {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, 0, fmt.Errorf("reading %s: %w", path, err)
		}
		e.cache.Add(key, content)
		return io.NopCloser(bytes.NewReader(content)), int64(len(content)), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("opening %s: %w", path, err)
	}
	return f, info.Size(), nil
}
