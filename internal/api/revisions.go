package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"loft/internal/archive"
	"loft/internal/pool"
	"loft/internal/revision"

	"go.uber.org/zap"
)

type importRequest struct {
	ZipB64 string `json:"zip_b64"`
}

type revisionListResponse struct {
	Latest uint64   `json:"latest"`
	List   []uint64 `json:"list"`
}

// RevisionsHandler serves the /api/revisions* surface: the immutable
// revision history.
type RevisionsHandler struct {
	revs     *revision.Store
	importer *archive.Importer
	exporter *archive.Exporter
	pool     *pool.Pool
	logger   *zap.Logger

	// OnHeadChange, when set, runs after an import moves HEAD.
	OnHeadChange func()
}

func NewRevisionsHandler(revs *revision.Store, im *archive.Importer, ex *archive.Exporter, p *pool.Pool, logger *zap.Logger) *RevisionsHandler {
	return &RevisionsHandler{revs: revs, importer: im, exporter: ex, pool: p, logger: logger}
}

func (h *RevisionsHandler) List(w http.ResponseWriter, r *http.Request) {
	latest, ids := h.revs.List()
	writeJSON(w, http.StatusOK, revisionListResponse{Latest: latest, List: ids})
}

func (h *RevisionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var id uint64
	err := h.pool.Do(func() error {
		var err error
		id, err = h.importer.Import(req.ZipB64)
		return err
	})
	if err != nil {
		// The bumped revision stays allocated; callers see only a
		// generic failure regardless of cause.
		h.logger.Error("archive import failed", zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if h.OnHeadChange != nil {
		h.OnHeadChange()
	}
	writeJSON(w, http.StatusOK, revisionResponse{ID: id})
}

func (h *RevisionsHandler) File(w http.ResponseWriter, r *http.Request) {
	rev, err := strconv.ParseUint(r.URL.Query().Get("rev"), 10, 64)
	if err != nil {
		http.Error(w, "invalid rev parameter", http.StatusBadRequest)
		return
	}
	rel := r.URL.Query().Get("path")

	var rc io.ReadCloser
	var size int64
	err = h.pool.Do(func() error {
		var err error
		rc, size, err = h.exporter.Open(rev, rel)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn("streaming revision file interrupted", zap.Error(err))
	}
}
