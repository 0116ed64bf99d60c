package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/internal/job"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

var ErrHandlerNotReady = errors.New("job handler is not initialized")

type JobHandler struct {
	service *job.Service
}

func InitJobHandler(jobService *job.Service) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logUI = logger_i.NewLogger("UIHandler")
		logJH.Info("Starting job handler")
	})
}

func CreateNewJob(newJob newJobData) {
	logJH.With("traceId", newJob.traceId, "job id", newJob.id).Info("To create new job", "ingest", newJob.isDocumentIngest)
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

// AwaitJob blocks until the job finishes or ctx ends.
func AwaitJob(ctx context.Context, id string) (jobModel.Job, error) {
	if handlerInstance == nil {
		return jobModel.Job{}, ErrHandlerNotReady
	}
	return handlerInstance.service.AwaitJob(ctx, id)
}

func NewSession(ctx context.Context) (sessionModel.Session, error) {
	if handlerInstance == nil {
		return sessionModel.Session{}, ErrHandlerNotReady
	}
	id := utils.GetNewUUID()
	logJH.WithTrace(ctx).Info("Create new session", "session Id", id)
	return handlerInstance.service.SessionStore.CreateSession(ctx, id)
}

func GetSession(ctx context.Context, id string) (sessionModel.Session, bool) {
	if handlerInstance == nil || id == "" {
		return sessionModel.Session{}, false
	}
	return handlerInstance.service.SessionStore.GetSession(ctx, id)
}

// SubmitQueryJob queues a question for the session and returns the job id.
// Callers validate the request first with ValidateChatRequest.
func SubmitQueryJob(ctx context.Context, sessionId string, question string) string {
	newJob := newJobData{
		id:        utils.GetNewUUID(),
		sessionId: sessionId,
		message:   question,
		traceId:   logger_i.TraceId(ctx),
	}
	CreateNewJob(newJob)
	return newJob.id
}

// ValidateChatRequest returns 0 for a request that can be queued, otherwise the http code
// and message to answer with.
func ValidateChatRequest(ctx context.Context, chatReq api.ChatRequest) (int, string) {
	if handlerInstance == nil {
		return http.StatusServiceUnavailable, ErrHandlerNotReady.Error()
	}
	logJH.Debug("Validating chat request", "sessionId", chatReq.SessionID)
	if chatReq.Message == "" || chatReq.SessionID == "" {
		return http.StatusBadRequest, "message and session_id are required"
	}
	session, found := handlerInstance.service.SessionStore.GetSession(ctx, chatReq.SessionID)
	if !found {
		return http.StatusBadRequest, sessionModel.ErrSessionNotFound.Error()
	}
	if session.Chain == nil {
		return http.StatusConflict, sessionModel.ErrNoChain.Error()
	}
	return 0, ""
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.SessionId = newJob.sessionId
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued

	if newJob.isDocumentIngest {
		_job.CurrentStep = jobModel.IngestInit
		_job.JobType = jobModel.JobTypeIngest
		_job.JobPayload.IngestFiles = newJob.files

	} else {
		_job.JobType = jobModel.JobTypeQuery
		_job.JobPayload.Question = newJob.message
		_job.CurrentStep = jobModel.UserQueryInit
	}

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctx, _job); err != nil {
		logJH.Error("Failed to save queued job", "err", err)
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job", "job id", _job.Id)

	//we will start a new worker every 10 requests
	// or
	//a new worker is added for a document ingestion type job
	//ingestion involves batch processing which might take time - external system call
	//worker will be removed if it has idle time

	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Signal dispatcher", "request count", accurateCount)
		h.service.DispatcherChannel <- true
	}
}
