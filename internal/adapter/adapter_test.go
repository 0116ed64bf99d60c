package adapter

import (
	"net/http"
	"testing"

	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
)

func TestToAPIResponse(t *testing.T) {
	tests := []struct {
		name       string
		job        jobModel.Job
		wantError  bool
		wantRAG    bool
		wantIngest bool
	}{
		{
			name: "completed query",
			job: jobModel.Job{Id: "j1", SessionId: "s1", JobType: jobModel.JobTypeQuery, Status: jobModel.JobStatusComplete,
				JobPayload: jobModel.JobPayload{Question: "q", Answer: "a", Sources: []string{"doc.pdf#chunk-0"}}},
			wantRAG: true,
		},
		{
			name: "completed ingestion",
			job: jobModel.Job{Id: "j2", SessionId: "s1", JobType: jobModel.JobTypeIngest, Status: jobModel.JobStatusComplete,
				JobPayload: jobModel.JobPayload{IndexId: "idx", ChunkCount: 3, Sources: []string{"a.pdf"}}},
			wantIngest: true,
		},
		{
			name: "running query",
			job:  jobModel.Job{Id: "j3", JobType: jobModel.JobTypeQuery, Status: jobModel.JobStatusRunning},
		},
		{
			name: "failed ingestion",
			job: jobModel.Job{Id: "j4", JobType: jobModel.JobTypeIngest, Status: jobModel.JobStatusError,
				Error: jobModel.JobError{Code: http.StatusInternalServerError, Message: "Error connecting to the vector store", Retry: true}},
			wantError: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ToAPIResponse(tt.job)
			if res.Id != tt.job.Id || res.SessionId != tt.job.SessionId || res.Result.Status != string(tt.job.Status) {
				t.Errorf("unexpected envelope %+v", res)
			}
			if (res.Error != nil) != tt.wantError {
				t.Errorf("error = %+v, wantError %v", res.Error, tt.wantError)
			}
			if (res.Result.RAGExternalResponse != nil) != tt.wantRAG {
				t.Errorf("rag response = %+v", res.Result.RAGExternalResponse)
			}
			if (res.Result.IngestResponse != nil) != tt.wantIngest {
				t.Errorf("ingest response = %+v", res.Result.IngestResponse)
			}
		})
	}
}

func TestToSessionResponse(t *testing.T) {
	s := sessionModel.Session{Id: "s1"}
	if res := ToSessionResponse(s); res.State != "uninitialized" || len(res.Documents) != 0 || len(res.History) != 0 {
		t.Errorf("uninitialized session = %+v", res)
	}

	s.Chain = &sessionModel.Chain{IndexId: "idx", Documents: []string{"a.pdf", "b.pdf"}, ChunkCount: 7}
	s.History = sessionModel.Exchange("q", "a")
	res := ToSessionResponse(s)
	if res.State != "active" || len(res.Documents) != 2 || res.ChunkCount != 7 {
		t.Errorf("active session = %+v", res)
	}
	if len(res.History) != 2 || res.History[0].Role != "user" || res.History[1].Role != "assistant" {
		t.Errorf("history = %+v", res.History)
	}
}
