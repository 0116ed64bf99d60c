package rag

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/domain/commonModels"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

const cacheSaveTimeout = 10 * time.Second

func returnOutput(job jobModel.Job, ans string) jobModel.Job {
	job.JobPayload.Answer = ans
	job.CurrentStep = jobModel.Complete
	return job
}

func logOutput(job jobModel.Job, status jobModel.InternalStatus, log *logger_i.Logger) jobModel.Job {
	job.CurrentStep = status
	log.Debug("ProcessRequest", "Current Status", job.CurrentStep)
	return job
}

func (s *service) jobError(job jobModel.Job, err error, message string, canRetry bool) jobModel.Job {
	s.logger.Error(message, "error", err, "job Id", job.Id)

	detail := message
	if job.Error.Message != "" {
		detail = job.Error.Message
	} else if err != nil {
		detail = fmt.Sprintf("%s: %v", message, err)
	}
	code := http.StatusInternalServerError
	if job.Error.Code != 0 {
		code, canRetry = job.Error.Code, job.Error.Retry
	}
	job.Error = jobModel.JobError{
		Code:    code,
		Message: detail,
		Retry:   canRetry,
	}
	job.Status = jobModel.JobStatusError
	return job
}

func (s *service) executeCondenseStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, history []sessionModel.Turn) (string, error) {
	question := job.JobPayload.Question
	if len(history) == 0 {
		job.JobPayload.StandaloneQuestion = question
		return question, nil
	}
	*job = logOutput(*job, jobModel.CondenseCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("condense", time.Since(start)) }()

	standalone, err := s.llmProvider.Generate(ctx, buildCondensePrompt(history, question))
	if err != nil {
		return "", err
	}
	standalone = strings.TrimSpace(standalone)
	if standalone == "" {
		standalone = question
	}
	job.JobPayload.StandaloneQuestion = standalone
	return standalone, nil
}

func (s *service) executeEmbeddingStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, question string) ([]float32, error) {
	*job = logOutput(*job, jobModel.EmbeddingAPICall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, question)
}

func (s *service) executeCacheCheckStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, chain sessionModel.Chain, emb []float32) (string, bool) {
	if !s.useCache {
		return "", false
	}
	*job = logOutput(*job, jobModel.CacheCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("cache_lookup", time.Since(start)) }()

	//a cache failure only costs a regular retrieval
	ans, found, _ := s.vectorDB.GetCachedAnswer(ctx, chain.IndexId, emb)
	return ans, found
}

func (s *service) executeVectorSearchStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, chain sessionModel.Chain, emb []float32) ([]commonModels.RetrievedChunk, error) {
	*job = logOutput(*job, jobModel.VectorDBCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	matches, err := s.vectorDB.Search(ctx, chain.Collection, chain.IndexId, emb, s.topK)
	if err != nil {
		return nil, err
	}
	job.JobPayload.Sources = describeSources(matches)
	return matches, nil
}

func (s *service) executeLLMStep(ctx context.Context, log *logger_i.Logger, job *jobModel.Job, prompt string) (string, error) {
	*job = logOutput(*job, jobModel.LLMCall, log)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("llm_generation", time.Since(start)) }()

	return s.llmProvider.Generate(ctx, prompt)
}

func (s *service) saveToCacheInBackground(ctx context.Context, chain sessionModel.Chain, emb []float32, answer string) {
	if !s.useCache {
		return
	}
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheSaveTimeout)
		defer cancel()
		if err := s.vectorDB.SaveToCache(cacheCtx, utils.GetNewUUID(), chain.IndexId, emb, answer); err != nil {
			s.logger.Error("Failed to save to cache", "error", err)
		}
	}()
}
