// Package archive moves whole workspaces in and out of the revision
// store: bulk import of an uploaded zip payload into a brand-new
// revision, and single-file export out of a historical one.
package archive

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"loft/internal/revision"
	"loft/internal/sandbox"

	"github.com/klauspost/compress/zip"
	"go.uber.org/zap"
)

// Limits bounds what a single uploaded archive may extract. The payload
// is untrusted input: without these bounds a corrupt or malicious
// archive could fill the disk.
type Limits struct {
	MaxEntries    int
	MaxTotalBytes int64
}

type Importer struct {
	store  *revision.Store
	limits Limits
	logger *zap.Logger
}

func NewImporter(store *revision.Store, limits Limits, logger *zap.Logger) *Importer {
	return &Importer{store: store, limits: limits, logger: logger}
}

// Import decodes a base64 zip payload and extracts it into a newly
// created revision, returning the new id. Decode and extraction run
// inside the store's creation critical section; on failure the bumped
// revision stays allocated, possibly partially populated.
func (im *Importer) Import(zipB64 string) (uint64, error) {
	return im.store.Create(func(dest string) error {
		raw, err := base64.StdEncoding.DecodeString(zipB64)
		if err != nil {
			return fmt.Errorf("decoding archive payload: %w", err)
		}
		return im.extract(raw, dest)
	})
}

func (im *Importer) extract(raw []byte, dest string) error {
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	if len(zr.File) > im.limits.MaxEntries {
		return fmt.Errorf("archive has %d entries, limit is %d", len(zr.File), im.limits.MaxEntries)
	}

	var total int64
	for _, f := range zr.File {
		// The archive's internal paths are untrusted: re-sandbox
		// every entry against the destination revision.
		target, err := sandbox.Resolve(dest, f.Name)
		if err != nil {
			return fmt.Errorf("entry %q: %w", f.Name, err)
		}

		if f.Mode().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0755); err != nil {
				return fmt.Errorf("creating directory %q: %w", f.Name, err)
			}
			continue
		}

		n, err := im.extractFile(f, target, im.limits.MaxTotalBytes-total)
		if err != nil {
			return err
		}
		total += n
	}

	im.logger.Info("archive extracted",
		zap.Int("entries", len(zr.File)),
		zap.Int64("bytes", total),
	)
	return nil
}

func (im *Importer) extractFile(f *zip.File, target string, budget int64) (int64, error) {
	if budget <= 0 {
		return 0, fmt.Errorf("archive exceeds extraction budget of %d bytes", im.limits.MaxTotalBytes)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return 0, fmt.Errorf("creating parent of %q: %w", f.Name, err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("opening entry %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return 0, fmt.Errorf("creating %q: %w", f.Name, err)
	}

	// Copy one byte past the budget so overruns are detected even
	// when the zip header lies about the uncompressed size.
	n, err := io.Copy(out, io.LimitReader(rc, budget+1))
	if err != nil {
		out.Close()
		return n, fmt.Errorf("extracting %q: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		return n, fmt.Errorf("closing %q: %w", f.Name, err)
	}
	if n > budget {
		return n, fmt.Errorf("archive exceeds extraction budget of %d bytes", im.limits.MaxTotalBytes)
	}
	return n, nil
}
