package vectordb

import (
	"context"
	"testing"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

var (
	_ ports.VectorStore = (*SQLiteStore)(nil)
	_ ports.VectorStore = (*InMemoryStore)(nil)
)

func TestSQLiteStore_StoreAndSearch(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	chunks := []entities.Chunk{
		{ID: "c1", DocumentID: "doc1", Source: "guide.md", Content: "hello", Embedding: []float32{1.0, 0.0, 0.0}},
		{ID: "c2", DocumentID: "doc1", Source: "guide.md", Content: "world", Embedding: []float32{0.0, 1.0, 0.0}},
	}

	if err := store.Store(ctx, chunks); err != nil {
		t.Fatalf("store failed: %v", err)
	}

	results, err := store.Search(ctx, []float32{1.0, 0.0, 0.0}, 2)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Chunk.ID != "c1" {
		t.Error("c1 should be top result")
	}
	if results[0].SourceDoc != "guide.md" {
		t.Errorf("expected source guide.md, got %q", results[0].SourceDoc)
	}
}

func TestSQLiteStore_TopKLimitsResults(t *testing.T) {
	store, err := NewSQLiteStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	store.Store(ctx, []entities.Chunk{
		{ID: "a", DocumentID: "d", Embedding: []float32{1, 0}},
		{ID: "b", DocumentID: "d", Embedding: []float32{1, 1}},
		{ID: "c", DocumentID: "d", Embedding: []float32{0, 1}},
	})

	results, _ := store.Search(ctx, []float32{1, 0}, 1)
	if len(results) != 1 || results[0].Chunk.ID != "a" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestSQLiteStore_Delete(t *testing.T) {
	store, _ := NewSQLiteStore(t.TempDir())
	defer store.Close()

	ctx := context.Background()
	store.Store(ctx, []entities.Chunk{
		{ID: "c1", DocumentID: "doc1", Content: "test", Embedding: []float32{1, 0, 0}},
	})

	if err := store.Delete(ctx, "doc1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	results, _ := store.Search(ctx, []float32{1, 0, 0}, 10)
	if len(results) != 0 {
		t.Error("chunks should be deleted")
	}
}

func TestSQLiteStore_Clear(t *testing.T) {
	store, _ := NewSQLiteStore(t.TempDir())
	defer store.Close()

	ctx := context.Background()
	store.Store(ctx, []entities.Chunk{
		{ID: "c1", Embedding: []float32{1, 0, 0}},
		{ID: "c2", Embedding: []float32{0, 1, 0}},
	})

	store.Clear(ctx)

	count, _ := store.Count(ctx)
	if count != 0 {
		t.Errorf("expected 0 chunks after clear, got %d", count)
	}
}

func TestSQLiteStore_Persists(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, _ := NewSQLiteStore(dir)
	store.Store(ctx, []entities.Chunk{{ID: "c1", DocumentID: "d", Embedding: []float32{1}}})
	store.Close()

	reopened, err := NewSQLiteStore(dir)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	count, _ := reopened.Count(ctx)
	if count != 1 {
		t.Errorf("expected 1 chunk after reopen, got %d", count)
	}
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	c := []float32{0, 1, 0}

	if same := cosineSimilarity(a, b); same != 1.0 {
		t.Errorf("same vectors should have score 1.0, got %f", same)
	}
	if diff := cosineSimilarity(a, c); diff != 0.0 {
		t.Errorf("orthogonal vectors should have score 0.0, got %f", diff)
	}
	if mismatch := cosineSimilarity(a, []float32{1}); mismatch != 0 {
		t.Errorf("mismatched dims should score 0, got %f", mismatch)
	}
}
