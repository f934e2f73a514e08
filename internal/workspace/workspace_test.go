package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"loft/internal/errors"
	"loft/internal/revision"
	"loft/internal/search"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestWorkspace(t *testing.T) (*Workspace, *revision.Store) {
	t.Helper()
	store := revision.NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, store.Bootstrap())
	return New(store, zap.NewNop()), store
}

func TestWriteReadRoundTrip(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	require.NoError(t, ws.Write("docs/note.txt", "hello loft"))

	got, err := ws.Read("docs/note.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello loft", got)
}

func TestWriteOverwrites(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	require.NoError(t, ws.Write("a.txt", "first"))
	require.NoError(t, ws.Write("a.txt", "second"))

	got, err := ws.Read("a.txt")
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestReadMissingFile(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	_, err := ws.Read("nope.txt")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestReadDirectoryIsNotFound(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Mkdir("adir"))

	_, err := ws.Read("adir")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestReadRejectsEscape(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	_, err := ws.Read("../HEAD")
	assert.True(t, errors.IsType(err, errors.ErrorTypePathEscape))
}

func TestRename(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Write("old.txt", "content"))

	require.NoError(t, ws.Rename("old.txt", "moved/new.txt"))

	_, err := ws.Read("old.txt")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	got, err := ws.Read("moved/new.txt")
	require.NoError(t, err)
	assert.Equal(t, "content", got)
}

func TestRenameRejectsEscape(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Write("a.txt", "x"))

	err := ws.Rename("a.txt", "../a.txt")
	assert.True(t, errors.IsType(err, errors.ErrorTypePathEscape))

	err = ws.Rename("../HEAD", "b.txt")
	assert.True(t, errors.IsType(err, errors.ErrorTypePathEscape))
}

func TestDeleteFile(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Write("a.txt", "x"))

	require.NoError(t, ws.Delete("a.txt"))

	_, err := ws.Read("a.txt")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestDeleteDirectoryRecursive(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Write("dir/sub/deep.txt", "x"))

	require.NoError(t, ws.Delete("dir"))

	nodes, err := ws.List("")
	require.NoError(t, err)
	assert.Empty(t, nodes)
}

func TestDeleteMissingIsNotFound(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	err := ws.Delete("ghost.txt")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestDeleteRootIsRejected(t *testing.T) {
	ws, store := newTestWorkspace(t)
	require.NoError(t, ws.Write("keep.txt", "x"))

	for _, rel := range []string{"", ".", "./", "./."} {
		err := ws.Delete(rel)
		assert.True(t, errors.IsType(err, errors.ErrorTypePathEscape), "path %q", rel)
	}

	// The revision directory itself must survive
	info, err := os.Stat(store.Dir(store.Head()))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	got, err := ws.Read("keep.txt")
	require.NoError(t, err)
	assert.Equal(t, "x", got)
}

func TestRenameRootIsRejected(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Write("a.txt", "x"))

	err := ws.Rename("", "elsewhere")
	assert.True(t, errors.IsType(err, errors.ErrorTypePathEscape))

	err = ws.Rename("a.txt", ".")
	assert.True(t, errors.IsType(err, errors.ErrorTypePathEscape))
}

func TestMkdirIdempotent(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	require.NoError(t, ws.Mkdir("a/b/c"))
	require.NoError(t, ws.Mkdir("a/b/c"))

	info, err := os.Stat(filepath.Join(ws.Root(), "a", "b", "c"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestListOrdering(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Write("b.txt", "b"))
	require.NoError(t, ws.Write("a.txt", "a"))
	require.NoError(t, ws.Mkdir("A"))

	nodes, err := ws.List("")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
	assert.Equal(t, "A", nodes[0].Name)
	assert.Equal(t, "a.txt", nodes[1].Name)
	assert.Equal(t, "b.txt", nodes[2].Name)
}

func TestListMissingPath(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	_, err := ws.List("missing")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestSearch(t *testing.T) {
	ws, _ := newTestWorkspace(t)
	require.NoError(t, ws.Write("FOO.txt", ""))
	require.NoError(t, ws.Write("bar.txt", "has foo inside"))

	hits, err := ws.Search("", "FOO")
	require.NoError(t, err)
	require.Len(t, hits, 2)

	byPath := map[string]string{}
	for _, h := range hits {
		byPath[h.Path] = h.Matched
	}
	assert.Equal(t, search.MatchedName, byPath["FOO.txt"])
	assert.Equal(t, search.MatchedContent, byPath["bar.txt"])
}

func TestSearchEmptyQuery(t *testing.T) {
	ws, _ := newTestWorkspace(t)

	_, err := ws.Search("", "")
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestWorkspaceTracksHead(t *testing.T) {
	ws, store := newTestWorkspace(t)
	require.NoError(t, ws.Write("v.txt", "one"))

	_, err := store.Snapshot()
	require.NoError(t, err)

	// Mutations now land in revision 1's directory
	require.NoError(t, ws.Write("v.txt", "two"))

	frozen, err := os.ReadFile(filepath.Join(store.Dir(0), "v.txt"))
	require.NoError(t, err)
	assert.Equal(t, "one", string(frozen))

	got, err := ws.Read("v.txt")
	require.NoError(t, err)
	assert.Equal(t, "two", got)
}
