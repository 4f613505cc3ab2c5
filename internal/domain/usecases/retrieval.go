package usecases

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/0xcro3dile/docqa/internal/domain/entities"
	"github.com/0xcro3dile/docqa/internal/domain/ports"
)

// RetrievalUseCase implements ports.Retriever: embed the query, search the
// vector store, return passages best first.
type RetrievalUseCase struct {
	embedder    ports.EmbeddingService
	vectorStore ports.VectorStore
	logger      *zap.Logger
}

// NewRetrievalUseCase creates a RetrievalUseCase with injected dependencies.
func NewRetrievalUseCase(
	embedder ports.EmbeddingService,
	vectorStore ports.VectorStore,
	logger *zap.Logger,
) *RetrievalUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetrievalUseCase{
		embedder:    embedder,
		vectorStore: vectorStore,
		logger:      logger.Named("retrieval"),
	}
}

// Query returns up to topK passages for text. Failures wrap entities.ErrRetrieval.
func (uc *RetrievalUseCase) Query(ctx context.Context, text string, topK int) (entities.RetrievedContext, error) {
	if topK <= 0 {
		topK = 4
	}

	queryEmbedding, err := uc.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: embedding query: %w", entities.ErrRetrieval, err)
	}

	results, err := uc.vectorStore.Search(ctx, queryEmbedding, topK)
	if err != nil {
		return nil, fmt.Errorf("%w: searching vectors: %w", entities.ErrRetrieval, err)
	}

	rc := make(entities.RetrievedContext, 0, len(results))
	for _, r := range results {
		rc = append(rc, entities.Passage{
			Text:     r.Chunk.Content,
			SourceID: r.SourceDoc,
			Score:    r.Score,
		})
	}

	uc.logger.Debug("retrieved context",
		zap.Int("passages", len(rc)),
		zap.Int("top_k", topK),
		zap.Int("chars", rc.Length()),
	)
	return rc, nil
}
