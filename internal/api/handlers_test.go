package api

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"loft/internal/archive"
	"loft/internal/pool"
	"loft/internal/revision"
	"loft/internal/search"
	"loft/internal/tree"
	"loft/internal/workspace"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	files *FilesHandler
	revs  *RevisionsHandler
	store *revision.Store
	ws    *workspace.Workspace
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	store := revision.NewStore(t.TempDir(), logger)
	require.NoError(t, store.Bootstrap())

	ws := workspace.New(store, logger)
	p := pool.New(4, logger)

	importer := archive.NewImporter(store, archive.Limits{MaxEntries: 1000, MaxTotalBytes: 10 << 20}, logger)
	exporter, err := archive.NewExporter(store, 16, logger)
	require.NoError(t, err)

	return &fixture{
		files: NewFilesHandler(ws, store, p, logger),
		revs:  NewRevisionsHandler(store, importer, exporter, p, logger),
		store: store,
		ws:    ws,
	}
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewBuffer(data))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestSaveAndRead(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.files.Save, "/api/fs/save", map[string]string{
		"path":    "docs/intro.md",
		"content": "# hello",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest("GET", "/api/fs/read?path=docs/intro.md", nil)
	rec = httptest.NewRecorder()
	f.files.Read(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var content string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&content))
	assert.Equal(t, "# hello", content)
}

func TestReadMissing(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("GET", "/api/fs/read?path=ghost.txt", nil)
	rec := httptest.NewRecorder()
	f.files.Read(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaveRejectsEscape(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.files.Save, "/api/fs/save", map[string]string{
		"path":    "../../etc/passwd",
		"content": "nope",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestList(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ws.Write("b.txt", "b"))
	require.NoError(t, f.ws.Mkdir("A"))

	req := httptest.NewRequest("GET", "/api/fs/list?path=", nil)
	rec := httptest.NewRecorder()
	f.files.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var nodes []tree.Node
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&nodes))
	require.Len(t, nodes, 2)
	assert.Equal(t, "A", nodes[0].Name)
	assert.Equal(t, "b.txt", nodes[1].Name)
}

func TestListMissing(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("GET", "/api/fs/list?path=nowhere", nil)
	rec := httptest.NewRecorder()
	f.files.List(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ws.Write("old.txt", "x"))

	rec := postJSON(t, f.files.Rename, "/api/fs/rename", map[string]string{
		"from": "old.txt",
		"to":   "new.txt",
	})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	got, err := f.ws.Read("new.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ws.Write("a.txt", "x"))

	rec := postJSON(t, f.files.Delete, "/api/fs/delete", map[string]string{"path": "a.txt"})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = postJSON(t, f.files.Delete, "/api/fs/delete", map[string]string{"path": "a.txt"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteWorkspaceRootRejected(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.files.Delete, "/api/fs/delete", map[string]string{"path": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// The working copy is still listable afterwards
	req := httptest.NewRequest("GET", "/api/fs/list?path=", nil)
	listRec := httptest.NewRecorder()
	f.files.List(listRec, req)
	assert.Equal(t, http.StatusOK, listRec.Code)
}

func TestMkdir(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.files.Mkdir, "/api/fs/mkdir", map[string]string{"path": "a/b"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Idempotent
	rec = postJSON(t, f.files.Mkdir, "/api/fs/mkdir", map[string]string{"path": "a/b"})
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ws.Write("FOO.txt", ""))

	req := httptest.NewRequest("GET", "/api/fs/search?path=&q=foo", nil)
	rec := httptest.NewRecorder()
	f.files.Search(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var hits []search.Hit
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "FOO.txt", hits[0].Path)
	assert.Equal(t, search.MatchedName, hits[0].Matched)
}

func TestSearchEmptyQuery(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("GET", "/api/fs/search?path=&q=", nil)
	rec := httptest.NewRecorder()
	f.files.Search(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.ws.Write("v.txt", "one"))

	notified := false
	f.files.OnHeadChange = func() { notified = true }

	req := httptest.NewRequest("POST", "/api/fs/snapshot", nil)
	rec := httptest.NewRecorder()
	f.files.Snapshot(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, uint64(1), resp.ID)
	assert.True(t, notified)

	// Working copy moved to the new revision; the old one is frozen
	got, err := f.ws.Read("v.txt")
	require.NoError(t, err)
	assert.Equal(t, "one", got)
}

func TestRevisionList(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.Snapshot()
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/api/revisions", nil)
	rec := httptest.NewRecorder()
	f.revs.List(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Latest uint64   `json:"latest"`
		List   []uint64 `json:"list"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, uint64(1), resp.Latest)
	assert.Equal(t, []uint64{0, 1}, resp.List)
}

func TestImportAndFetch(t *testing.T) {
	f := newFixture(t)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("dir/b.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("beta"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	rec := postJSON(t, f.revs.Create, "/api/revisions", map[string]string{
		"zip_b64": base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ID uint64 `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, uint64(1), resp.ID)

	req := httptest.NewRequest("GET", "/api/revisions/file?rev=1&path=dir/b.txt", nil)
	rec = httptest.NewRecorder()
	f.revs.File(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "beta", string(body))
}

func TestImportBadPayload(t *testing.T) {
	f := newFixture(t)

	rec := postJSON(t, f.revs.Create, "/api/revisions", map[string]string{
		"zip_b64": "!!! not base64 !!!",
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFetchMissingRevision(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest("GET", "/api/revisions/file?rev=99&path=a.txt", nil)
	rec := httptest.NewRecorder()
	f.revs.File(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
