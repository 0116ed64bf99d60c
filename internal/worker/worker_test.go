package worker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/PDFChat/internal/data/store"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/internal/job"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

// MockRagService to track if jobs are executed
type MockRagService struct {
	ProcessedCount int32
	OnProcess      func(ctx context.Context, j jobModel.Job, chain sessionModel.Chain, hist []sessionModel.Turn) jobModel.Job
	OnIngest       func(ctx context.Context, j jobModel.Job) jobModel.Job
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job, chain sessionModel.Chain, hist []sessionModel.Turn) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnProcess != nil {
		return m.OnProcess(ctx, j, chain, hist)
	}
	j.JobPayload.Answer = "answer to " + j.JobPayload.Question
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(ctx, j)
	}
	j.Status = jobModel.JobStatusComplete
	j.JobPayload.IndexId = "index-" + j.Id
	j.JobPayload.ChunkCount = 2
	j.JobPayload.Sources = []string{"a.pdf"}
	return j
}

func (m *MockRagService) Collection() string {
	return "pdf-chat"
}

type MockJobStore struct {
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

func newTestJobService(sessions sessionModel.SessionStore) (*job.Service, *store.InMemoryJobStore) {
	jobs := store.InitInMemoryJobStore()
	return &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          jobs,
		SessionStore:      sessions,
	}, jobs
}

func TestWorkerPool_Flow(t *testing.T) {
	// 1. Setup
	jobSvc := &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          &MockJobStore{},
		SessionStore:      store.InitInMemorySessionStore(),
	}
	jobSvc.SessionStore.CreateSession(context.Background(), "session-1")
	mockRag := &MockRagService{}
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	// Reset global state for test
	atomic.StoreInt64(&currentWorkerCount, 0)

	InitServices(jobSvc, mockRag)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		// Signal dispatcher to create a worker
		jobSvc.DispatcherChannel <- true

		// Give it a moment to spawn
		time.Sleep(50 * time.Millisecond)

		count := atomic.LoadInt64(&currentWorkerCount)
		if count < 1 {
			t.Errorf("Expected at least 1 worker, got %d", count)
		}
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		testJob := jobModel.Job{Id: "test-1", SessionId: "session-1", JobType: jobModel.JobTypeIngest}
		jobSvc.JobChannel <- testJob

		// Wait for worker to pick up and process
		time.Sleep(50 * time.Millisecond)

		processed := atomic.LoadInt32(&mockRag.ProcessedCount)
		if processed != 1 {
			t.Errorf("Expected 1 job processed, got %d", processed)
		}
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		// Send stop signal
		close(stopChan)

		// Wait for workers to exit
		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
			// Success
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestExecuteJob_IngestActivatesChain(t *testing.T) {
	logger = logger_i.NewLogger("TestWorkerPool")
	ctx := context.Background()
	sessions := store.InitInMemorySessionStore()
	sessions.CreateSession(ctx, "s1")
	sessions.ActivateChain(ctx, "s1", sessionModel.Chain{IndexId: "old-index"})
	sessions.AppendExchange(ctx, "s1", "old question", "old answer")

	jobSvc, jobs := newTestJobService(sessions)
	InitServices(jobSvc, &MockRagService{})

	executeJob(jobModel.Job{Id: "ingest-1", SessionId: "s1", JobType: jobModel.JobTypeIngest, Status: jobModel.JobStatusQueued})

	saved, ok := jobs.GetJob(ctx, "ingest-1")
	if !ok || saved.Status != jobModel.JobStatusComplete || saved.CurrentStep != jobModel.Complete {
		t.Fatalf("saved job = %+v", saved)
	}
	session, _ := sessions.GetSession(ctx, "s1")
	if session.Chain == nil || session.Chain.IndexId != "index-ingest-1" || session.Chain.Collection != "pdf-chat" {
		t.Fatalf("chain = %+v", session.Chain)
	}
	if session.State() != sessionModel.StateReady {
		t.Errorf("state = %s, a new chain starts with an empty history", session.State())
	}
}

func TestExecuteJob_FailedIngestKeepsChain(t *testing.T) {
	logger = logger_i.NewLogger("TestWorkerPool")
	ctx := context.Background()
	sessions := store.InitInMemorySessionStore()
	sessions.CreateSession(ctx, "s1")
	sessions.ActivateChain(ctx, "s1", sessionModel.Chain{IndexId: "old-index"})
	sessions.AppendExchange(ctx, "s1", "q", "a")

	jobSvc, jobs := newTestJobService(sessions)
	InitServices(jobSvc, &MockRagService{OnIngest: func(ctx context.Context, j jobModel.Job) jobModel.Job {
		j.Status = jobModel.JobStatusError
		j.Error = jobModel.JobError{Code: http.StatusInternalServerError, Message: "Error connecting to the vector store", Retry: true}
		return j
	}})

	executeJob(jobModel.Job{Id: "ingest-2", SessionId: "s1", JobType: jobModel.JobTypeIngest})

	saved, _ := jobs.GetJob(ctx, "ingest-2")
	if saved.Status != jobModel.JobStatusError || saved.Error.Message != "Error connecting to the vector store" {
		t.Errorf("saved job = %+v", saved)
	}
	session, _ := sessions.GetSession(ctx, "s1")
	if session.Chain == nil || session.Chain.IndexId != "old-index" || len(session.History) != 2 {
		t.Errorf("session changed after a failed ingestion: %+v", session)
	}
}

func TestExecuteJob_QueryAppendsExchange(t *testing.T) {
	logger = logger_i.NewLogger("TestWorkerPool")
	ctx := context.Background()
	sessions := store.InitInMemorySessionStore()
	sessions.CreateSession(ctx, "s1")
	sessions.ActivateChain(ctx, "s1", sessionModel.Chain{IndexId: "index-1"})

	var seenHistory [][]sessionModel.Turn
	mockRag := &MockRagService{OnProcess: func(ctx context.Context, j jobModel.Job, chain sessionModel.Chain, hist []sessionModel.Turn) jobModel.Job {
		if chain.IndexId != "index-1" {
			t.Errorf("chain = %+v", chain)
		}
		seenHistory = append(seenHistory, hist)
		j.JobPayload.Answer = "answer " + j.JobPayload.Question
		return j
	}}
	jobSvc, jobs := newTestJobService(sessions)
	InitServices(jobSvc, mockRag)

	for i, q := range []string{"one", "two", "three"} {
		id := "query-" + q
		executeJob(jobModel.Job{Id: id, SessionId: "s1", JobType: jobModel.JobTypeQuery, JobPayload: jobModel.JobPayload{Question: q}})
		saved, _ := jobs.GetJob(ctx, id)
		if saved.Status != jobModel.JobStatusComplete || saved.JobPayload.Answer != "answer "+q {
			t.Errorf("job %d = %+v", i, saved)
		}
		if len(seenHistory[i]) != 2*i {
			t.Errorf("cycle %d saw history of length %d, want %d", i, len(seenHistory[i]), 2*i)
		}
	}

	history, err := sessions.GetHistory(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 6 {
		t.Fatalf("history length = %d, want 6", len(history))
	}
	if err := sessionModel.ValidateHistory(history); err != nil {
		t.Error(err)
	}
}

func TestExecuteJob_QueryFailures(t *testing.T) {
	logger = logger_i.NewLogger("TestWorkerPool")
	ctx := context.Background()
	sessions := store.InitInMemorySessionStore()
	sessions.CreateSession(ctx, "no-chain")
	sessions.CreateSession(ctx, "with-chain")
	sessions.ActivateChain(ctx, "with-chain", sessionModel.Chain{IndexId: "index-1"})

	mockRag := &MockRagService{OnProcess: func(ctx context.Context, j jobModel.Job, chain sessionModel.Chain, hist []sessionModel.Turn) jobModel.Job {
		j.Status = jobModel.JobStatusError
		j.Error = jobModel.JobError{Code: http.StatusInternalServerError, Message: "VECTOR_DB_FAILURE: down", Retry: true}
		return j
	}}
	jobSvc, jobs := newTestJobService(sessions)
	InitServices(jobSvc, mockRag)

	tests := []struct {
		name      string
		sessionId string
		wantCode  int
	}{
		{"unknown session", "missing", http.StatusNotFound},
		{"no documents processed", "no-chain", http.StatusConflict},
		{"chain failure", "with-chain", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := "job-" + tt.sessionId
			executeJob(jobModel.Job{Id: id, SessionId: tt.sessionId, JobType: jobModel.JobTypeQuery, JobPayload: jobModel.JobPayload{Question: "q"}})
			saved, _ := jobs.GetJob(ctx, id)
			if saved.Status != jobModel.JobStatusError || saved.Error.Code != tt.wantCode {
				t.Errorf("saved job = %+v, want code %d", saved, tt.wantCode)
			}
		})
	}

	history, _ := sessions.GetHistory(ctx, "with-chain")
	if len(history) != 0 {
		t.Errorf("a failed cycle must not change the history, got %v", history)
	}
}

func TestExecuteJob_SaveFailureIsLogged(t *testing.T) {
	logger = logger_i.NewLogger("TestWorkerPool")
	saves := 0
	jobSvc := &job.Service{
		JobStore: &MockJobStore{OnSaveJob: func(ctx context.Context, j jobModel.Job) error {
			saves++
			return errors.New("redis down")
		}},
		SessionStore: store.InitInMemorySessionStore(),
	}
	InitServices(jobSvc, &MockRagService{})

	executeJob(jobModel.Job{Id: "j", SessionId: "missing", JobType: jobModel.JobTypeQuery})
	if saves != 2 {
		t.Errorf("expected a running save and a final save, got %d", saves)
	}
}

func TestWorker_IdleTimeout(t *testing.T) {
	// Temporarily override config/globals for test
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 0)
	idleWorkerTimeout = 20 * time.Millisecond
	logger = logger_i.NewLogger("TestWorkerPool")
	jobSvc := &job.Service{
		JobChannel: make(chan jobModel.Job),
	}
	InitServices(jobSvc, &MockRagService{})

	wg := &sync.WaitGroup{}
	stopChan := make(chan bool)
	workerWaitGroup = wg
	stopWorkerChannel = stopChan

	// Spawn 1 worker manually
	createWorker()
	time.Sleep(idleWorkerTimeout)

	time.Sleep(100 * time.Millisecond)
	count := atomic.LoadInt64(&currentWorkerCount)
	if count != 0 {
		t.Errorf("Assertion Failed: Worker should have timed out and retired, but count is %d", count)
	}
}

func TestRetireIdleWorker_KeepsMinimum(t *testing.T) {
	logger = logger_i.NewLogger("TestWorkerPool")
	prevMin := atomic.LoadInt64(&minWorkerCount)
	defer atomic.StoreInt64(&minWorkerCount, prevMin)

	atomic.StoreInt64(&minWorkerCount, 2)
	atomic.StoreInt64(&currentWorkerCount, 5)
	wg := &sync.WaitGroup{}
	wg.Add(3)
	workerWaitGroup = wg

	var retired int32
	var callers sync.WaitGroup
	for i := 0; i < 50; i++ {
		callers.Add(1)
		go func() {
			defer callers.Done()
			if retireIdleWorker() {
				atomic.AddInt32(&retired, 1)
			}
		}()
	}
	callers.Wait()

	if retired != 3 {
		t.Errorf("retired %d workers, want 3", retired)
	}
	if count := atomic.LoadInt64(&currentWorkerCount); count != 2 {
		t.Errorf("worker count got %d, want the minimum of 2", count)
	}
	wg.Wait()
}
