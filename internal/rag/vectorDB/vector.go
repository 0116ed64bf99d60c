package vectorDB

import (
	"context"

	"github.com/akolanti/PDFChat/internal/domain/commonModels"
)

type DataProcessor interface {
	// Search returns the nearest chunks of one index, nearest first.
	Search(ctx context.Context, collectionName string, indexId string, vectorVal []float32, limit uint64) ([]commonModels.RetrievedChunk, error)
	GetCachedAnswer(ctx context.Context, indexId string, queryVector []float32) (string, bool, error)
	SaveToCache(ctx context.Context, id string, indexId string, vector []float32, answer string) error

	// CreateCollection Ingest document call
	CreateCollection(ctx context.Context, collectionName string) error
	UpsertBatch(ctx context.Context, collectionName string, chunks []commonModels.DocChunk, vectors [][]float32) error
}
