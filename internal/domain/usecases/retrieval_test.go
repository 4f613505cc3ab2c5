package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

var _ ports.Retriever = (*RetrievalUseCase)(nil)

func TestRetrievalUseCase_ReturnsPassages(t *testing.T) {
	store := &mockVectorStore{
		chunks: []entities.Chunk{
			{ID: "c1", Content: "relevant context", DocumentID: "doc1", Source: "doc1.pdf"},
			{ID: "c2", Content: "more context", DocumentID: "doc2", Source: "doc2.md"},
		},
	}
	uc := NewRetrievalUseCase(&mockEmbedder{}, store, nil)

	rc, err := uc.Query(context.Background(), "what is this?", 3)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if len(rc) != 2 {
		t.Fatalf("expected 2 passages, got %d", len(rc))
	}
	if rc[0].Text != "relevant context" || rc[0].SourceID != "doc1.pdf" {
		t.Errorf("unexpected passage: %+v", rc[0])
	}
}

func TestRetrievalUseCase_RespectsTopK(t *testing.T) {
	var gotTopK int
	store := &mockVectorStore{searchFn: func(topK int) ([]entities.QueryResult, error) {
		gotTopK = topK
		return nil, nil
	}}
	uc := NewRetrievalUseCase(&mockEmbedder{}, store, nil)

	uc.Query(context.Background(), "q", 8)
	if gotTopK != 8 {
		t.Errorf("expected top_k 8, got %d", gotTopK)
	}
}

func TestRetrievalUseCase_EmptyStore(t *testing.T) {
	uc := NewRetrievalUseCase(&mockEmbedder{}, &mockVectorStore{}, nil)

	rc, err := uc.Query(context.Background(), "hello", 5)
	if err != nil {
		t.Fatalf("should not fail on empty store: %v", err)
	}
	if len(rc) != 0 {
		t.Error("should have no passages")
	}
}

func TestRetrievalUseCase_EmbedFailureIsRetrievalError(t *testing.T) {
	embedder := &mockEmbedder{embedFn: func(string) ([]float32, error) { return nil, errors.New("ollama down") }}
	uc := NewRetrievalUseCase(embedder, &mockVectorStore{}, nil)

	_, err := uc.Query(context.Background(), "q", 4)
	if !errors.Is(err, entities.ErrRetrieval) {
		t.Errorf("expected retrieval error, got %v", err)
	}
}

func TestRetrievalUseCase_SearchFailureIsRetrievalError(t *testing.T) {
	store := &mockVectorStore{searchFn: func(int) ([]entities.QueryResult, error) { return nil, errors.New("db locked") }}
	uc := NewRetrievalUseCase(&mockEmbedder{}, store, nil)

	_, err := uc.Query(context.Background(), "q", 4)
	if !errors.Is(err, entities.ErrRetrieval) {
		t.Errorf("expected retrieval error, got %v", err)
	}
}
