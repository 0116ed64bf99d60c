package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/qdrant/go-client/qdrant"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once
var dimension = uint64(config.EmbeddingOutputDimensionality)

type ClientHolder struct {
	QObj *qdrant.Client
}

// GetQuadrantClient builds the gRPC client. Collections are ensured per ingestion, so an
// unreachable server is reported on the jobs that need it instead of stopping the service.
func GetQuadrantClient(ctx context.Context) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient()
		if res != nil {
			quadrantInstance = res
			checkHealth(ctx, quadrantInstance)
			initCacheCollection(ctx, quadrantInstance)
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj: quadrantInstance,
	}
}

func newClient() *qdrant.Client {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     config.QdrantHost,
		Port:     config.QdrantPort,
		APIKey:   config.QdrantAPIKey,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate Qdrant client", "host", config.QdrantHost, "error", err)
		return nil
	}
	logger.Info("Qdrant client created", "host", config.QdrantHost, "port", config.QdrantPort, "tls", config.QdrantUseTLS)
	return client
}

func checkHealth(ctx context.Context, client *qdrant.Client) {
	healthCtx, cancel := context.WithTimeout(ctx, config.QdrantConnectionTimeout)
	defer cancel()
	reply, err := client.HealthCheck(healthCtx)
	if err != nil {
		logger.Warn("Qdrant is not reachable yet, ingestion will report it", "error", err)
		return
	}
	logger.Info("Qdrant is reachable", "version", reply.GetVersion())
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	if err := qi.Close(); err != nil {
		logger.Error("could not close Qdrant", "error", err)
	}
}

func indexFilter(indexId string) *qdrant.Filter {
	return &qdrant.Filter{
		Must: []*qdrant.Condition{
			qdrant.NewMatch("index_id", indexId),
		},
	}
}

func (db *ClientHolder) Search(ctx context.Context, collectionName string, indexId string, vectorFloat []float32, limit uint64) ([]commonModels.RetrievedChunk, error) {
	loggr := logger.WithTrace(ctx)
	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vectorFloat...),
		Filter:         indexFilter(indexId),
		Limit:          qdrant.PtrOf(limit),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant", "error", err)
		return nil, err
	}

	matches := make([]commonModels.RetrievedChunk, 0, len(result))
	for _, hit := range result {
		matches = append(matches, toRetrievedChunk(hit))
	}
	loggr.Debug("Found matches", "count", len(matches))
	return matches, nil
}

func toRetrievedChunk(hit *qdrant.ScoredPoint) commonModels.RetrievedChunk {
	chunk := commonModels.RetrievedChunk{
		ChunkId:    hit.Payload["chunk_id"].GetStringValue(),
		Content:    hit.Payload["content"].GetStringValue(),
		ChunkOrder: int(hit.Payload["chunk_order"].GetIntegerValue()),
		Score:      hit.Score,
	}
	if docs := hit.Payload["documents"].GetListValue(); docs != nil {
		for _, v := range docs.GetValues() {
			chunk.Documents = append(chunk.Documents, v.GetStringValue())
		}
	}
	return chunk
}

func (db *ClientHolder) CreateCollection(ctx context.Context, collectionName string) error {
	return createCollection(ctx, db.QObj, collectionName)
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, collectionName string, chunks []commonModels.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkId),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(chunkPayload(chunk)),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

func chunkPayload(chunk commonModels.DocChunk) map[string]any {
	documents := make([]any, 0, len(chunk.Batch.Documents))
	for _, d := range chunk.Batch.Documents {
		documents = append(documents, d)
	}
	return map[string]any{
		"content":         chunk.Chunk,
		"chunk_id":        chunk.ChunkId,
		"chunk_order":     int64(chunk.ChunkOrder),
		"index_id":        chunk.Batch.IndexId,
		"session_id":      chunk.Batch.SessionId,
		"documents":       documents,
		"embedding_model": chunk.EmbeddingModel,
		"ingested_at":     chunk.Batch.IngestedAt.Unix(),
	}
}

func createCollection(ctx context.Context, client *qdrant.Client, collectionName string) error {
	if collectionName == "" {
		return errors.New("empty collection name")
	}

	exists, err := client.CollectionExists(ctx, collectionName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return err
	}

	_, err = client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collectionName,
		FieldName:      "index_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		Wait:           qdrant.PtrOf(true),
	})
	return err
}
