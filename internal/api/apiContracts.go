package api

import "time"

type JobExternalStatus string

const (
	JobStatusError JobExternalStatus = "Error"
)

type JobResponse struct {
	Id        string            `json:"id" example:"job_cz109"`
	SessionId string            `json:"session_id" example:"session_550"`
	Result    Result            `json:"result"`
	Error     *JobOutgoingError `json:"error,omitempty"`
	StartTime time.Time         `json:"start_time"`
	EndTime   time.Time         `json:"end_time,omitempty"`
}

type JobOutgoingError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Job not found"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type RAGResponse struct {
	Question           string   `json:"question"`
	StandaloneQuestion string   `json:"standalone_question,omitempty"`
	Answer             string   `json:"answer"`
	Sources            []string `json:"sources"`
	CacheHit           bool     `json:"cache_hit"`
}

type IngestResponse struct {
	IndexId          string   `json:"index_id" example:"9b1f0c4e-2f7a-4d8e-a8f5-0d3c6f1e2b7a"`
	Documents        []string `json:"documents"`
	SkippedDocuments []string `json:"skipped_documents,omitempty"`
	ChunkCount       int      `json:"chunk_count" example:"42"`
}

type Result struct {
	Status              string          `json:"status"`
	CurrentStep         string          `json:"current_step,omitempty"`
	RAGExternalResponse *RAGResponse    `json:"rag_response,omitempty"`
	IngestResponse      *IngestResponse `json:"ingest_response,omitempty"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	SessionId string `json:"session_id"`
	StatusURL string `json:"status_url"`
}

type TurnResponse struct {
	Role    string `json:"role" example:"user"`
	Content string `json:"content" example:"What is the warranty period?"`
}

type SessionResponse struct {
	SessionId  string         `json:"session_id" example:"session_550"`
	State      string         `json:"state" example:"ready"`
	Documents  []string       `json:"documents"`
	ChunkCount int            `json:"chunk_count"`
	History    []TurnResponse `json:"history"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// requests---------------------

type ChatRequest struct {
	Message   string `json:"message" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
}
