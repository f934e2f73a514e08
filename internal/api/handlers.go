package api

import (
	"encoding/json"
	"net/http"

	"loft/internal/pool"
	"loft/internal/revision"
	"loft/internal/search"
	"loft/internal/tree"
	"loft/internal/workspace"

	"go.uber.org/zap"
)

type pathContentRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type renameRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type pathRequest struct {
	Path string `json:"path"`
}

type revisionResponse struct {
	ID uint64 `json:"id"`
}

// FilesHandler serves the /api/fs/* surface: operations on the current
// (mutable) revision tree. Blocking filesystem work is dispatched to
// the worker pool so slow walks cannot stall unrelated requests.
type FilesHandler struct {
	ws     *workspace.Workspace
	revs   *revision.Store
	pool   *pool.Pool
	logger *zap.Logger

	// OnHeadChange, when set, runs after a snapshot moves HEAD.
	OnHeadChange func()
}

func NewFilesHandler(ws *workspace.Workspace, revs *revision.Store, p *pool.Pool, logger *zap.Logger) *FilesHandler {
	return &FilesHandler{ws: ws, revs: revs, pool: p, logger: logger}
}

func (h *FilesHandler) List(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")

	var nodes []tree.Node
	err := h.pool.Do(func() error {
		var err error
		nodes, err = h.ws.List(rel)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (h *FilesHandler) Read(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")

	var content string
	err := h.pool.Do(func() error {
		var err error
		content, err = h.ws.Read(rel)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, content)
}

func (h *FilesHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req pathContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.pool.Do(func() error {
		return h.ws.Write(req.Path, req.Content)
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *FilesHandler) Rename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.pool.Do(func() error {
		return h.ws.Rename(req.From, req.To)
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FilesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.pool.Do(func() error {
		return h.ws.Delete(req.Path)
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FilesHandler) Mkdir(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	err := h.pool.Do(func() error {
		return h.ws.Mkdir(req.Path)
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (h *FilesHandler) Search(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	query := r.URL.Query().Get("q")

	var hits []search.Hit
	err := h.pool.Do(func() error {
		var err error
		hits, err = h.ws.Search(rel, query)
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

func (h *FilesHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	var id uint64
	err := h.pool.Do(func() error {
		var err error
		id, err = h.revs.Snapshot()
		return err
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if h.OnHeadChange != nil {
		h.OnHeadChange()
	}
	writeJSON(w, http.StatusOK, revisionResponse{ID: id})
}
