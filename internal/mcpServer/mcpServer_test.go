package mcpServer

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/akolanti/PDFChat/internal/data/store"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/internal/handlers"
	"github.com/akolanti/PDFChat/internal/job"
)

var testService *job.Service

func TestMain(m *testing.M) {
	testService = &job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          store.InitInMemoryJobStore(),
		SessionStore:      store.InitInMemorySessionStore(),
		PollInterval:      5 * time.Millisecond,
	}
	handlers.InitJobHandler(testService)
	NewServer()
	os.Exit(m.Run())
}

func TestSessionStatus(t *testing.T) {
	ctx := context.Background()
	session, _ := handlers.NewSession(ctx)

	_, res, err := sessionStatus(ctx, nil, StatusArgs{SessionId: session.Id})
	if err != nil || res.State != string(sessionModel.StateUninitialized) || len(res.Documents) != 0 {
		t.Errorf("got %+v, %v", res, err)
	}

	testService.SessionStore.ActivateChain(ctx, session.Id, sessionModel.Chain{IndexId: "idx", Documents: []string{"a.pdf"}, ChunkCount: 4})
	testService.SessionStore.AppendExchange(ctx, session.Id, "q", "a")
	_, res, err = sessionStatus(ctx, nil, StatusArgs{SessionId: session.Id})
	if err != nil || res.State != string(sessionModel.StateActive) || res.Turns != 2 || res.ChunkCount != 4 {
		t.Errorf("got %+v, %v", res, err)
	}

	if _, _, err := sessionStatus(ctx, nil, StatusArgs{SessionId: "missing"}); err == nil {
		t.Error("expected an error for an unknown session")
	}
}

func TestAskDocuments(t *testing.T) {
	ctx := context.Background()
	session, _ := handlers.NewSession(ctx)

	if _, _, err := askDocuments(ctx, nil, AskArgs{SessionId: session.Id, Question: "q"}); err == nil {
		t.Error("expected an error before documents are processed")
	}

	testService.SessionStore.ActivateChain(ctx, session.Id, sessionModel.Chain{IndexId: "idx"})
	go func() {
		j := <-testService.JobChannel
		j.Status = jobModel.JobStatusComplete
		j.JobPayload.Answer = "forty two"
		j.JobPayload.Sources = []string{"a.pdf#chunk-0 (score 0.900)"}
		testService.JobStore.SaveJob(context.Background(), j)
	}()

	_, res, err := askDocuments(ctx, nil, AskArgs{SessionId: session.Id, Question: "what is the answer?"})
	if err != nil {
		t.Fatalf("askDocuments: %v", err)
	}
	if res.Answer != "forty two" || len(res.Sources) != 1 {
		t.Errorf("got %+v", res)
	}
}
