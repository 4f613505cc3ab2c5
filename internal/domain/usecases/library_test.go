package usecases

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// fileLoader reads files as plain text; names containing "broken" fail.
type fileLoader struct{}

func (fileLoader) Load(ctx context.Context, path string) (*entities.Document, error) {
	if strings.Contains(filepath.Base(path), "broken") {
		return nil, errors.New("unreadable document")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &entities.Document{
		ID:      entities.DocumentIDForPath(path),
		Name:    filepath.Base(path),
		Path:    path,
		Content: string(data),
	}, nil
}

func (fileLoader) SupportedExtensions() []string { return AllowedExtensions }

type fakePinger struct{ err error }

func (p fakePinger) Ping(ctx context.Context) error { return p.err }

func newTestLibrary(t *testing.T) (*LibraryUseCase, *mockVectorStore, string) {
	t.Helper()
	dir := t.TempDir()
	store := &mockVectorStore{}
	ingest := NewIngestUseCase(&mockEmbedder{}, store, 100, 10)
	return NewLibraryUseCase(dir, fileLoader{}, ingest, store, fakePinger{}, 2, nil), store, dir
}

func TestLibrary_UploadIndexesFile(t *testing.T) {
	lib, store, dir := newTestLibrary(t)

	res, err := lib.Upload(context.Background(), "notes.md", strings.NewReader("# Notes\nGo is fun."))

	require.NoError(t, err)
	assert.Equal(t, "notes.md", res.Filename)
	assert.True(t, res.Processed)
	assert.Equal(t, 1, res.Chunks)
	assert.Equal(t, int64(18), res.Size)
	assert.FileExists(t, filepath.Join(dir, "notes.md"))
	require.Len(t, store.chunks, 1)
	assert.Equal(t, "notes.md", store.chunks[0].Source)
}

func TestLibrary_UploadRejectsExtension(t *testing.T) {
	lib, _, dir := newTestLibrary(t)

	_, err := lib.Upload(context.Background(), "image.png", strings.NewReader("x"))

	assert.ErrorIs(t, err, entities.ErrUnsupportedFileType)
	assert.NoFileExists(t, filepath.Join(dir, "image.png"))
}

func TestLibrary_UploadStripsDirectories(t *testing.T) {
	lib, _, dir := newTestLibrary(t)

	res, err := lib.Upload(context.Background(), "../../etc/evil.txt", strings.NewReader("x"))

	require.NoError(t, err)
	assert.Equal(t, "evil.txt", res.Filename)
	assert.FileExists(t, filepath.Join(dir, "evil.txt"))
}

func TestLibrary_UploadRejectsInvalidNames(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	for _, name := range []string{"", "..", ".hidden.txt", "/"} {
		_, err := lib.Upload(context.Background(), name, strings.NewReader("x"))
		assert.ErrorIs(t, err, entities.ErrInvalidFileName, "name %q", name)
	}
}

func TestLibrary_UploadKeepsFileWhenIndexingFails(t *testing.T) {
	lib, store, dir := newTestLibrary(t)

	res, err := lib.Upload(context.Background(), "my broken file.pdf", strings.NewReader("%PDF"))

	require.NoError(t, err)
	assert.Equal(t, "my_broken_file.pdf", res.Filename)
	assert.False(t, res.Processed)
	assert.NotEmpty(t, res.ProcessingError)
	assert.FileExists(t, filepath.Join(dir, "my_broken_file.pdf"))
	assert.Empty(t, store.chunks)
}

func TestLibrary_DeleteRemovesFileAndChunks(t *testing.T) {
	lib, store, dir := newTestLibrary(t)
	_, err := lib.Upload(context.Background(), "a.txt", strings.NewReader("alpha"))
	require.NoError(t, err)

	require.NoError(t, lib.Delete(context.Background(), "a.txt"))

	assert.NoFileExists(t, filepath.Join(dir, "a.txt"))
	assert.Empty(t, store.chunks)
	assert.Contains(t, store.deleted, entities.DocumentIDForPath(filepath.Join(dir, "a.txt")))
}

func TestLibrary_DeleteErrors(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	assert.ErrorIs(t, lib.Delete(context.Background(), "missing.txt"), entities.ErrFileNotFound)
	assert.ErrorIs(t, lib.Delete(context.Background(), "../x.txt"), entities.ErrInvalidFileName)
	assert.ErrorIs(t, lib.Delete(context.Background(), ".."), entities.ErrInvalidFileName)
}

func TestLibrary_ListNewestFirst(t *testing.T) {
	lib, _, dir := newTestLibrary(t)
	now := time.Now()
	for i, name := range []string{"old.txt", "mid.md", "new.pdf"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		ts := now.Add(time.Duration(i-3) * time.Hour)
		require.NoError(t, os.Chtimes(path, ts, ts))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))

	files, err := lib.List(context.Background())

	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "new.pdf", files[0].Name)
	assert.Equal(t, ".pdf", files[0].Type)
	assert.Equal(t, "old.txt", files[2].Name)
}

func TestLibrary_ListMissingDirectory(t *testing.T) {
	store := &mockVectorStore{}
	lib := NewLibraryUseCase(filepath.Join(t.TempDir(), "nope"), fileLoader{}, NewIngestUseCase(&mockEmbedder{}, store, 0, 0), store, nil, 0, nil)

	files, err := lib.List(context.Background())

	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestLibrary_ReindexRebuildsFromDisk(t *testing.T) {
	lib, store, dir := newTestLibrary(t)
	store.chunks = []entities.Chunk{{ID: "stale#0", DocumentID: "stale"}}
	for name, body := range map[string]string{
		"a.txt":          "alpha",
		"b.md":           "beta",
		"Spaced Out.pdf": "gamma",
		"broken.txt":     "never",
		"image.png":      "skip",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}

	n, err := lib.Reindex(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 1, store.cleared)
	assert.Len(t, store.chunks, 3)
	assert.FileExists(t, filepath.Join(dir, "Spaced_Out.pdf"))
	for _, c := range store.chunks {
		assert.NotEqual(t, "stale", c.DocumentID)
	}
}

func TestLibrary_Health(t *testing.T) {
	lib, _, dir := newTestLibrary(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0644))

	report := lib.Health(context.Background())
	assert.Equal(t, "healthy", report.Status)
	assert.True(t, report.DocsReadable)
	assert.True(t, report.LLMReachable)
	assert.Equal(t, 1, report.FileCount)

	lib.llm = fakePinger{err: errors.New("refused")}
	report = lib.Health(context.Background())
	assert.Equal(t, "degraded", report.Status)
	assert.False(t, report.LLMReachable)
}

func TestLibrary_SyncAppliesWatcherEvents(t *testing.T) {
	lib, store, dir := newTestLibrary(t)
	path := filepath.Join(dir, "watched.txt")
	require.NoError(t, os.WriteFile(path, []byte("first"), 0644))

	events := make(chan ports.FileEvent, 4)
	events <- ports.FileEvent{Path: path, Operation: ports.FileCreated}
	events <- ports.FileEvent{Path: filepath.Join(dir, "broken.txt"), Operation: ports.FileCreated}
	events <- ports.FileEvent{Path: path, Operation: ports.FileModified}
	close(events)

	lib.Sync(context.Background(), events)

	require.Len(t, store.chunks, 1)
	assert.Equal(t, "first", store.chunks[0].Content)

	events = make(chan ports.FileEvent, 1)
	events <- ports.FileEvent{Path: path, Operation: ports.FileDeleted}
	close(events)

	lib.Sync(context.Background(), events)

	assert.Empty(t, store.chunks)
}

func TestLibrary_SyncStopsOnCancel(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		lib.Sync(ctx, make(chan ports.FileEvent))
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Sync did not return after cancel")
	}
}
