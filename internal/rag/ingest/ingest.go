package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var ErrNoText = errors.New("no text could be extracted from the uploaded documents")

// Pipeline turns an uploaded batch into an index: extract, split, embed, upsert.
type Pipeline struct {
	splitter       Splitter
	embedder       embedding.Embedder
	vectorDB       vectorDB.DataProcessor
	collection     string
	embeddingModel string
	batchSize      int
	logger         *logger_i.Logger
}

func NewPipeline(splitter Splitter, e embedding.Embedder, vectorDatabase vectorDB.DataProcessor, collection string, embeddingModel string) *Pipeline {
	return &Pipeline{
		splitter:       splitter,
		embedder:       e,
		vectorDB:       vectorDatabase,
		collection:     collection,
		embeddingModel: embeddingModel,
		batchSize:      config.EmbeddingBatchSize,
		logger:         logger_i.NewLogger("Document Ingestion"),
	}
}

func (p *Pipeline) Collection() string {
	return p.collection
}

// ProcessDocumentIngestion runs the whole batch. On success the job carries the new index id and
// status COMPLETE; on failure status Error with a message, and nothing should be activated.
func (p *Pipeline) ProcessDocumentIngestion(ctx context.Context, job jobModel.Job) jobModel.Job {
	log := p.logger.WithTrace(ctx).With("job Id", job.Id, "session Id", job.SessionId)
	defer removeUploads(job.JobPayload.IngestFiles, log)

	job.CurrentStep = jobModel.IngestExtract
	log.Debug("Extracting documents", "count", len(job.JobPayload.IngestFiles))
	text, read, skipped := ExtractBatch(job.JobPayload.IngestFiles, log)
	job.JobPayload.SkippedDocuments = skipped
	if len(skipped) > 0 {
		log.Warn("Some documents were skipped", "skipped", skipped)
	}

	job.CurrentStep = jobModel.IngestSplit
	texts := p.splitter.Split(text)
	if len(texts) == 0 {
		return ingestError(job, ErrNoText.Error(), log, ErrNoText)
	}

	batch := commonModels.Batch{
		IndexId:    utils.GetNewUUID(),
		SessionId:  job.SessionId,
		Documents:  read,
		IngestedAt: time.Now(),
	}
	chunks := p.PrepareChunks(texts, batch)
	log.Debug("Processing document", "Number of chunks", len(chunks), "index Id", batch.IndexId)

	job.CurrentStep = jobModel.IngestProcessing
	if err := p.vectorDB.CreateCollection(ctx, p.collection); err != nil {
		return ingestError(job, "Error connecting to the vector store", log, err)
	}

	if err := p.BatchIngest(ctx, chunks); err != nil {
		return ingestError(job, "Error indexing document chunks", log, err)
	}

	job.JobPayload.IndexId = batch.IndexId
	job.JobPayload.ChunkCount = len(chunks)
	job.JobPayload.Sources = read
	job.Status = jobModel.JobStatusComplete
	return job
}

func (p *Pipeline) PrepareChunks(texts []string, batch commonModels.Batch) []commonModels.DocChunk {
	chunks := make([]commonModels.DocChunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, commonModels.DocChunk{
			Batch:          batch,
			ChunkId:        utils.GetNewUUID(),
			Chunk:          text,
			ChunkOrder:     i,
			EmbeddingModel: p.embeddingModel,
		})
	}
	return chunks
}

// BatchIngest embeds and upserts chunks batch by batch. Batches written before a failure stay in
// the collection but are unreachable because the index is never activated.
func (p *Pipeline) BatchIngest(ctx context.Context, chunks []commonModels.DocChunk) error {
	log := p.logger.WithTrace(ctx)

	isHugeDataSet := len(chunks) > config.HugeDatasetChunkCount
	if isHugeDataSet {
		log.Debug("Is a huge dataset")
	}

	for i := 0; i < len(chunks); i += p.batchSize {
		end := i + p.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		currentBatch := chunks[i:end]

		texts := make([]string, 0, len(currentBatch))
		for _, c := range currentBatch {
			texts = append(texts, c.Chunk)
		}

		log.Debug("Starting embedding call", "batch start", i, "batch length", len(currentBatch))
		vectors, err := p.embedder.BatchEmbedding(ctx, texts, isHugeDataSet)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}

		err = p.vectorDB.UpsertBatch(ctx, p.collection, currentBatch, vectors)
		if err != nil {
			return fmt.Errorf("upserting to qdrant failed: %w", err)
		}
	}
	return nil
}

func ingestError(job jobModel.Job, message string, log *logger_i.Logger, err error) jobModel.Job {
	log.Error(message, "error", err)
	job.Status = jobModel.JobStatusError
	job.Error.Message = message
	job.Error.Code = http.StatusInternalServerError
	job.Error.Retry = true
	//the same uploads will never yield text
	if errors.Is(err, ErrNoText) {
		job.Error.Code = http.StatusUnprocessableEntity
		job.Error.Retry = false
	}
	return job
}

func removeUploads(files []jobModel.UploadedFile, log *logger_i.Logger) {
	for _, f := range files {
		if err := os.Remove(f.Path); err != nil && !os.IsNotExist(err) {
			log.Error("Error removing file", "path", f.Path, "error", err)
		}
	}
}
