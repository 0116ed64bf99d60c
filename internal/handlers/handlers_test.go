package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/data/store"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/internal/job"
	"github.com/go-chi/chi/v5"
)

var testService *job.Service

func TestMain(m *testing.M) {
	testService = &job.Service{
		JobChannel:        make(chan jobModel.Job, 100),
		DispatcherChannel: make(chan bool, 100),
		JobStore:          store.InitInMemoryJobStore(),
		SessionStore:      store.InitInMemorySessionStore(),
		PollInterval:      5 * time.Millisecond,
	}
	InitJobHandler(testService)
	os.Exit(m.Run())
}

func testRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Post("/sessions", CreateSessionHandler)
	r.Get("/sessions/{id}", GetSessionHandler)
	r.Post("/sessions/{id}/documents", PostDocumentsHandler)
	r.Post("/chat", ChatHandler)
	r.Get("/status/{id}", GetStatusHandler)
	r.Get("/", UIIndexHandler)
	r.Post("/ui/process", UIProcessHandler)
	r.Post("/ui/ask", UIAskHandler)
	return r
}

func newTestSession(t *testing.T, withChain bool) string {
	t.Helper()
	ctx := context.Background()
	session, err := NewSession(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if withChain {
		if err := testService.SessionStore.ActivateChain(ctx, session.Id, sessionModel.Chain{IndexId: "index-1", Documents: []string{"a.pdf"}}); err != nil {
			t.Fatal(err)
		}
	}
	return session.Id
}

func nextJob(t *testing.T) jobModel.Job {
	t.Helper()
	select {
	case j := <-testService.JobChannel:
		return j
	case <-time.After(time.Second):
		t.Fatal("no job was queued")
	}
	return jobModel.Job{}
}

// completeNextJob plays the worker for one query job.
func completeNextJob(t *testing.T, answer string) {
	t.Helper()
	go func() {
		j := <-testService.JobChannel
		ctx := context.Background()
		testService.SessionStore.AppendExchange(ctx, j.SessionId, j.JobPayload.Question, answer)
		j.JobPayload.Answer = answer
		j.Status = jobModel.JobStatusComplete
		testService.JobStore.SaveJob(ctx, j)
	}()
}

func TestSessionHandlers(t *testing.T) {
	router := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sessions", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session code = %d", rec.Code)
	}
	var created api.SessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.SessionId == "" || created.State != string(sessionModel.StateUninitialized) {
		t.Errorf("created = %+v", created)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/"+created.SessionId, nil))
	if rec.Code != http.StatusOK {
		t.Errorf("get session code = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/unknown", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown session code = %d", rec.Code)
	}
}

func TestChatHandler(t *testing.T) {
	router := testRouter()
	ready := newTestSession(t, true)
	empty := newTestSession(t, false)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"malformed json", `{"message":`, http.StatusBadRequest},
		{"missing message", `{"session_id":"` + ready + `"}`, http.StatusBadRequest},
		{"missing session", `{"message":"hi"}`, http.StatusBadRequest},
		{"unknown session", `{"message":"hi","session_id":"nope"}`, http.StatusBadRequest},
		{"no processed documents", `{"message":"hi","session_id":"` + empty + `"}`, http.StatusConflict},
		{"accepted", `{"message":"What is inside?","session_id":"` + ready + `"}`, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(tt.body)))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusAccepted {
				return
			}

			var res api.InitJobResponse
			json.NewDecoder(rec.Body).Decode(&res)
			queued := nextJob(t)
			if queued.Id != res.Id || queued.SessionId != ready || queued.JobType != jobModel.JobTypeQuery || queued.JobPayload.Question != "What is inside?" {
				t.Errorf("queued job = %+v", queued)
			}

			statusRec := httptest.NewRecorder()
			router.ServeHTTP(statusRec, httptest.NewRequest(http.MethodGet, "/"+res.StatusURL, nil))
			if statusRec.Code != http.StatusOK {
				t.Errorf("status code = %d", statusRec.Code)
			}
		})
	}
}

func TestGetStatusHandler_NotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("code = %d", rec.Code)
	}
	var res api.JobResponse
	json.NewDecoder(rec.Body).Decode(&res)
	if res.Error == nil || res.Error.Code != http.StatusNotFound {
		t.Errorf("error envelope = %+v", res.Error)
	}
}

func multipartBody(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, content := range files {
		part, err := writer.CreateFormFile(uploadFieldName, name)
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(content))
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func TestPostDocumentsHandler(t *testing.T) {
	t.Chdir(t.TempDir())
	router := testRouter()
	sessionId := newTestSession(t, false)

	t.Run("accepts a batch", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"a.pdf": "%PDF-1.4", "b.txt": "notes"})
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionId+"/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusAccepted {
			t.Fatalf("code = %d: %s", rec.Code, rec.Body.String())
		}
		queued := nextJob(t)
		if queued.JobType != jobModel.JobTypeIngest || queued.SessionId != sessionId || len(queued.JobPayload.IngestFiles) != 2 {
			t.Fatalf("queued job = %+v", queued)
		}
		for _, f := range queued.JobPayload.IngestFiles {
			if _, err := os.Stat(f.Path); err != nil {
				t.Errorf("upload %s was not stored: %v", f.Name, err)
			}
		}
	})

	t.Run("requires files", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{})
		req := httptest.NewRequest(http.MethodPost, "/sessions/"+sessionId+"/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d", rec.Code)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"a.pdf": "x"})
		req := httptest.NewRequest(http.MethodPost, "/sessions/unknown/documents", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d", rec.Code)
		}
	})
}

func TestUIHandlers(t *testing.T) {
	router := testRouter()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Chat with multiple PDFs") {
		t.Fatalf("index code = %d", rec.Code)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == config.SessionCookieName {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("index did not bind a session cookie")
	}

	ask := func(question string) string {
		req := httptest.NewRequest(http.MethodPost, "/ui/ask", strings.NewReader("question="+question))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Body.String()
	}

	if page := ask("hello"); !strings.Contains(page, "Please upload and process your documents first.") {
		t.Error("asking before processing should show an error")
	}

	testService.SessionStore.ActivateChain(context.Background(), cookie.Value, sessionModel.Chain{IndexId: "idx", Documents: []string{"manual.pdf"}})
	completeNextJob(t, "The warranty lasts two years")
	page := ask("warranty")

	userAt := strings.Index(page, "chat-message user")
	botAt := strings.Index(page, "The warranty lasts two years")
	if userAt < 0 || botAt < 0 || userAt > botAt {
		t.Errorf("page does not show the exchange in order")
	}
	if !strings.Contains(page, "manual.pdf") {
		t.Error("page does not list the processed documents")
	}
}

// completeNextIngest plays the worker for one ingest job. finish fills in the outcome.
func completeNextIngest(t *testing.T, finish func(j *jobModel.Job)) {
	t.Helper()
	go func() {
		j := <-testService.JobChannel
		ctx := context.Background()
		j.Status = jobModel.JobStatusComplete
		finish(&j)
		if j.Status != jobModel.JobStatusError {
			testService.SessionStore.ActivateChain(ctx, j.SessionId, sessionModel.Chain{IndexId: "idx-" + j.Id, Documents: j.JobPayload.Sources, ChunkCount: j.JobPayload.ChunkCount})
		}
		testService.JobStore.SaveJob(ctx, j)
	}()
}

func TestUIProcessHandler(t *testing.T) {
	t.Chdir(t.TempDir())
	router := testRouter()

	process := func(t *testing.T, cookie *http.Cookie, files map[string]string) string {
		t.Helper()
		body, contentType := multipartBody(t, files)
		req := httptest.NewRequest(http.MethodPost, "/ui/process", body)
		req.Header.Set("Content-Type", contentType)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("process code = %d", rec.Code)
		}
		return rec.Body.String()
	}

	sessionCookie := func(t *testing.T, withChain bool) *http.Cookie {
		return &http.Cookie{Name: config.SessionCookieName, Value: newTestSession(t, withChain)}
	}

	t.Run("requires files", func(t *testing.T) {
		page := process(t, sessionCookie(t, false), map[string]string{})
		if !strings.Contains(page, "Please upload at least one document.") {
			t.Error("page does not ask for a document")
		}
	})

	t.Run("reports skipped documents and replaces the document list", func(t *testing.T) {
		cookie := sessionCookie(t, true)
		completeNextIngest(t, func(j *jobModel.Job) {
			j.JobPayload.SkippedDocuments = []string{"broken.pdf"}
			j.JobPayload.Sources = []string{"report.pdf"}
			j.JobPayload.ChunkCount = 2
		})

		page := process(t, cookie, map[string]string{"broken.pdf": "not a pdf", "report.pdf": "%PDF-1.4"})

		if !strings.Contains(page, "Error reading document: broken.pdf") {
			t.Error("page does not report the skipped document")
		}
		if !strings.Contains(page, "Processed 1 document(s) into 2 chunks.") {
			t.Error("page does not confirm the processing")
		}
		if !strings.Contains(page, "<li>report.pdf</li>") || strings.Contains(page, "<li>a.pdf</li>") {
			t.Error("page does not show the new document list")
		}
	})

	t.Run("reports a vector store failure and keeps the chain", func(t *testing.T) {
		cookie := sessionCookie(t, true)
		completeNextIngest(t, func(j *jobModel.Job) {
			j.Status = jobModel.JobStatusError
			j.Error = jobModel.JobError{Code: http.StatusInternalServerError, Message: "VECTOR_DB_FAILURE: qdrant unreachable", Retry: true}
		})

		page := process(t, cookie, map[string]string{"report.pdf": "%PDF-1.4"})

		if !strings.Contains(page, "VECTOR_DB_FAILURE: qdrant unreachable") {
			t.Error("page does not report the failure")
		}
		if !strings.Contains(page, "<li>a.pdf</li>") {
			t.Error("the previous documents should still be listed")
		}
	})
}
