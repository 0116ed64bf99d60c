package worker

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/akolanti/PDFChat/internal/config"
	jobmodel "github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

func jobTimeout(jobType jobmodel.JobType) time.Duration {
	if jobType == jobmodel.JobTypeIngest {
		return config.IngestJobTimeout
	}
	return config.QueryJobTimeout
}

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, jobTimeout(job.JobType))
	defer cancel()
	log := logger.WithTrace(ctx).With("job Id", job.Id, "session Id", job.SessionId)
	log.Debug("Processing job", "job type", job.JobType)

	job.Status = jobmodel.JobStatusRunning
	saveJobState(ctx, job, log)

	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
			job = jobFailure(job, http.StatusInternalServerError, "Internal Server Error", true)
			job.EndTime = time.Now()
			saveJobState(context.WithoutCancel(ctx), job, log)
		}
	}()

	if job.JobType == jobmodel.JobTypeIngest {
		job.CurrentStep = jobmodel.IngestProcessing
		job = ingestDocument(ctx, job, log)
	} else {
		job = processQuery(ctx, job, log)
	}

	job.EndTime = time.Now()
	if job.Status != jobmodel.JobStatusError {
		job.Status = jobmodel.JobStatusComplete
		job.CurrentStep = jobmodel.Complete
	}
	// the job context may be past its deadline here
	saveJobState(context.WithoutCancel(ctx), job, log)
	log.Debug("Finished job", "status", job.Status, "step", job.CurrentStep)
}

func removeWorker(reason string) {
	releaseWorker(reason, atomic.AddInt64(&currentWorkerCount, -1))
}

// retireIdleWorker claims one slot above minWorkerCount. Returns false when the pool is already at the minimum.
func retireIdleWorker() bool {
	for {
		count := atomic.LoadInt64(&currentWorkerCount)
		if count <= atomic.LoadInt64(&minWorkerCount) {
			return false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, count, count-1) {
			releaseWorker("Idle worker timeout - Removed worker", count-1)
			return true
		}
	}
}

func releaseWorker(reason string, count int64) {
	workerWaitGroup.Done()
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

// ingestDocument builds the index and swaps the session onto the new chain.
// A failed ingestion leaves the previous chain and its history untouched.
func ingestDocument(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	job = _ragService.IngestDocument(ctx, job)
	if job.Status == jobmodel.JobStatusError {
		log.Warn("Ingestion failed, keeping the current chain", "error", job.Error.Message)
		metrics.CaptureChainActivation("failed")
		return job
	}

	job.CurrentStep = jobmodel.ChainActivation
	chain := sessionModel.Chain{
		IndexId:    job.JobPayload.IndexId,
		Collection: _ragService.Collection(),
		Documents:  job.JobPayload.Sources,
		ChunkCount: job.JobPayload.ChunkCount,
		CreatedAt:  time.Now(),
	}
	if err := _jobService.SessionStore.ActivateChain(ctx, job.SessionId, chain); err != nil {
		log.Error("Failed to activate chain", "err", err)
		metrics.CaptureChainActivation("failed")
		return jobFailure(job, http.StatusInternalServerError, "Could not activate the processed documents", true)
	}
	metrics.CaptureChainActivation("activated")
	log.Info("Activated chain", "index Id", chain.IndexId, "documents", len(chain.Documents), "chunks", chain.ChunkCount)
	return job
}

func processQuery(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	job.CurrentStep = jobmodel.SessionLoad
	session, found := _jobService.SessionStore.GetSession(ctx, job.SessionId)
	if !found {
		return jobFailure(job, http.StatusNotFound, sessionModel.ErrSessionNotFound.Error(), false)
	}
	if session.Chain == nil {
		return jobFailure(job, http.StatusConflict, sessionModel.ErrNoChain.Error(), false)
	}

	job = _ragService.ProcessRequest(ctx, job, *session.Chain, session.History)
	if job.Status == jobmodel.JobStatusError {
		return job
	}

	job.CurrentStep = jobmodel.MemorySave
	if err := _jobService.SessionStore.AppendExchange(ctx, job.SessionId, job.JobPayload.Question, job.JobPayload.Answer); err != nil {
		log.Error("Failed to save chat history", "err", err)
		return jobFailure(job, http.StatusInternalServerError, fmt.Sprintf("MEMORY_SAVE_FAILURE: %v", err), true)
	}
	return job
}

func jobFailure(job jobmodel.Job, code int, message string, retry bool) jobmodel.Job {
	job.Status = jobmodel.JobStatusError
	job.Error = jobmodel.JobError{Code: code, Message: message, Retry: retry}
	return job
}

func saveJobState(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) {
	if err := _jobService.JobStore.SaveJob(ctx, job); err != nil {
		log.Error("Failed to update job status", "err", err)
	}
}
