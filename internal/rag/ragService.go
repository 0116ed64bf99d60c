package rag

import (
	"context"
	"errors"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/internal/rag/ingest"
	"github.com/akolanti/PDFChat/internal/rag/llm"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

/*
Service is the only thing the worker sees. The private service struct holds the
clients (vector store, llm, embedder) so the worker stays decoupled from them and
tests can swap in mocks through NewService.
*/

type Service interface {
	// ProcessRequest answers one question against the session's chain and history.
	ProcessRequest(ctx context.Context, job jobModel.Job, chain sessionModel.Chain, history []sessionModel.Turn) jobModel.Job
	// IngestDocument builds a new index from the uploaded batch.
	IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job
	Collection() string
}

type service struct {
	vectorDB    vectorDB.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	pipeline    *ingest.Pipeline
	topK        uint64
	useCache    bool
	logger      *logger_i.Logger
}

type Option func(*service)

func WithTopK(k uint64) Option {
	return func(s *service) {
		if k > 0 {
			s.topK = k
		}
	}
}

func WithSemanticCache(enabled bool) Option {
	return func(s *service) {
		s.useCache = enabled
	}
}

func WithCollection(collection string) Option {
	return func(s *service) {
		s.pipeline = newPipeline(s.embedder, s.vectorDB, collection)
	}
}

func newPipeline(em embedding.Embedder, vector vectorDB.DataProcessor, collection string) *ingest.Pipeline {
	splitter := ingest.Splitter{ChunkSize: config.ChunkSize, ChunkOverlap: config.ChunkOverlap, Separator: config.ChunkSeparator}
	return ingest.NewPipeline(splitter, em, vector, collection, em.ModelName())
}

// NewService constructor
func NewService(vector vectorDB.DataProcessor, llm llm.Provider, em embedding.Embedder, opts ...Option) Service {
	s := &service{
		vectorDB:    vector,
		llmProvider: llm,
		embedder:    em,
		topK:        config.RetrieverTopK,
		useCache:    true,
		logger:      logger_i.NewLogger("RAG Service"),
	}
	s.pipeline = newPipeline(em, vector, config.QdrantCollectionName)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *service) Collection() string {
	return s.pipeline.Collection()
}

func (s *service) ProcessRequest(ctx context.Context, jobt jobModel.Job, chain sessionModel.Chain, history []sessionModel.Turn) jobModel.Job {
	inMethodLogger := s.logger.WithTrace(ctx).With("JobId", jobt.Id, "index Id", chain.IndexId)

	processContext, cancel := context.WithTimeout(ctx, config.QueryJobTimeout)
	defer cancel()

	jobt.CurrentStep = jobModel.RAGCall

	// Condense follow-up question against the memory
	question, err := s.executeCondenseStep(processContext, inMethodLogger, &jobt, history)
	if err != nil {
		return s.jobError(jobt, err, "CONDENSE_FAILURE", true)
	}

	// Embedding
	embeddingStep, err := s.executeEmbeddingStep(processContext, inMethodLogger, &jobt, question)
	if err != nil {
		return s.jobError(jobt, err, "EMBEDDING_FAILURE", true)
	}

	// Cache Check
	if cachedAnswer, found := s.executeCacheCheckStep(processContext, inMethodLogger, &jobt, chain, embeddingStep); found {
		jobt.JobPayload.CacheHit = true
		return returnOutput(jobt, cachedAnswer)
	}

	// Vector DB Search
	matches, err := s.executeVectorSearchStep(processContext, inMethodLogger, &jobt, chain, embeddingStep)
	if err != nil {
		return s.jobError(jobt, err, "VECTOR_DB_FAILURE", true)
	}

	// LLM Generation over the stuffed context
	answer, err := s.executeLLMStep(processContext, inMethodLogger, &jobt, buildStuffPrompt(matches, question))
	if err != nil {
		return s.jobError(jobt, err, "LLM_GENERATION_FAILURE", true)
	}

	s.saveToCacheInBackground(ctx, chain, embeddingStep, answer)
	return returnOutput(jobt, answer)
}

func (s *service) IngestDocument(ctx context.Context, job jobModel.Job) jobModel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_ingestion", time.Since(start)) }()

	j := s.pipeline.ProcessDocumentIngestion(ctx, job)
	if j.Status != jobModel.JobStatusComplete {
		return s.jobError(j, errors.New("ingest document failed"), "INGESTION_FAILURE", true)
	}
	j.CurrentStep = jobModel.Complete
	return j
}
