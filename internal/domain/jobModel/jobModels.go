package jobModel

import (
	"context"
	"time"
)

type JobStatus string
type InternalStatus string

type JobType string

const (
	JobStatusQueued   JobStatus = "QUEUED"
	JobStatusRunning  JobStatus = "RUNNING"
	JobStatusComplete JobStatus = "COMPLETE"
	JobStatusError    JobStatus = "Error"

	UserQueryInit    InternalStatus = "Init"
	SessionLoad      InternalStatus = "SessionLoad"
	CondenseCall     InternalStatus = "Condense"
	CacheCall        InternalStatus = "CacheCall"
	RAGCall          InternalStatus = "RAG"
	LLMCall          InternalStatus = "LLM"
	VectorDBCall     InternalStatus = "VectorDB"
	EmbeddingAPICall InternalStatus = "EmbeddingAPI"
	MemorySave       InternalStatus = "MemorySave"

	IngestInit       InternalStatus = "IngestInit"
	IngestExtract    InternalStatus = "IngestExtract"
	IngestSplit      InternalStatus = "IngestSplit"
	IngestProcessing InternalStatus = "IngestProcessing"
	ChainActivation  InternalStatus = "ChainActivation"
	Error            InternalStatus = "Error"

	Complete InternalStatus = "Complete"

	JobTypeQuery  JobType = "Query"
	JobTypeIngest JobType = "Ingest"
)

type Job struct {
	Id          string         `json:"id"`
	SessionId   string         `json:"session_id"`
	TraceId     string         `json:"trace_id"`
	JobType     JobType        `json:"job_type"`
	JobPayload  JobPayload     `json:"job_payload"`
	Error       JobError       `json:"error,omitempty"`
	CreatedTime time.Time      `json:"created_time"`
	EndTime     time.Time      `json:"end_time,omitempty"`
	Status      JobStatus      `json:"status"`
	CurrentStep InternalStatus `json:"current_step"`
}

// IsDone reports whether the job reached a terminal status.
func (j Job) IsDone() bool {
	return j.Status == JobStatusComplete || j.Status == JobStatusError
}

type JobError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Retry   bool   `json:"retry"`
}

type UploadedFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type JobPayload struct {
	Question           string   `json:"question,omitempty"`
	StandaloneQuestion string   `json:"standalone_question,omitempty"`
	Answer             string   `json:"answer,omitempty"`
	Sources            []string `json:"sources,omitempty"`
	CacheHit           bool     `json:"cache_hit,omitempty"`

	IngestFiles      []UploadedFile `json:"ingest_files,omitempty"`
	SkippedDocuments []string       `json:"skipped_documents,omitempty"`
	IndexId          string         `json:"index_id,omitempty"`
	ChunkCount       int            `json:"chunk_count,omitempty"`
}

type JobStore interface {
	GetJob(ctx context.Context, jobId string) (Job, bool)
	SaveJob(ctx context.Context, job Job) error
	DeleteJob(ctx context.Context, jobID string)
}
