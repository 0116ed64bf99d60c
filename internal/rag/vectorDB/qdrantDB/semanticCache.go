package qdrantDB

import (
	"context"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/qdrant/go-client/qdrant"
)

// Cached answers are scoped to one index: the same standalone question over a different
// document batch must not hit.

func initCacheCollection(ctx context.Context, client *qdrant.Client) {
	if err := createCollection(ctx, client, config.SemanticCacheDBName); err != nil {
		logger.Error("Semantic cache collection creation failed", "error", err)
	}
}

func (db *ClientHolder) GetCachedAnswer(ctx context.Context, indexId string, queryVector []float32) (string, bool, error) {
	loggr := logger.WithTrace(ctx)

	searchResult, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: config.SemanticCacheDBName,
		Query:          qdrant.NewQuery(queryVector...),
		Filter:         indexFilter(indexId),
		Limit:          qdrant.PtrOf(uint64(1)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Cache Query failed", "error", err)
		return "", false, err
	}
	if len(searchResult) == 0 {
		return "", false, nil
	}

	loggr.Debug("Closest cached answer", "semantic similarity score", searchResult[0].Score)
	if searchResult[0].Score < config.CacheSimilarityCutoff {
		return "", false, nil
	}

	loggr.Info("semantic cache hit")
	return searchResult[0].Payload["answer"].GetStringValue(), true, nil
}

func (db *ClientHolder) SaveToCache(ctx context.Context, id string, indexId string, vector []float32, answer string) error {
	loggr := logger.WithTrace(ctx)

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: config.SemanticCacheDBName,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewID(id),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(map[string]any{
					"answer":    answer,
					"index_id":  indexId,
					"timestamp": time.Now().Unix(),
				}),
			},
		},
	})
	if err != nil {
		loggr.Error("Saving answer to cache failed", "error", err)
	}
	return err
}
