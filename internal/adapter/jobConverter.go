package adapter

import (
	"fmt"
	"time"

	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
)

func ToInitJobResponse(id string, sessionId string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		SessionId: sessionId,
		StatusURL: fmt.Sprintf("status/%s", id), //pass "status/job.Id"
	}
}

func ToAPIResponse(job jobModel.Job) api.JobResponse {

	var errorPtr *api.JobOutgoingError
	if job.Error.Message != "" || job.Error.Code != 0 {
		errorPtr = &api.JobOutgoingError{
			Code:    job.Error.Code,
			Message: job.Error.Message,
			Retry:   job.Error.Retry,
		}
	}

	result := api.Result{
		Status:      string(job.Status),
		CurrentStep: string(job.CurrentStep),
	}
	if job.JobType == jobModel.JobTypeIngest {
		result.IngestResponse = ToIngestResponse(job.JobPayload)
	} else {
		result.RAGExternalResponse = ToRAGExternalStatus(job.JobPayload)
	}

	return api.JobResponse{
		Id:        job.Id,
		SessionId: job.SessionId,
		StartTime: job.CreatedTime,
		EndTime:   job.EndTime,
		Error:     errorPtr,
		Result:    result,
	}
}

func ToRAGExternalStatus(ragData jobModel.JobPayload) *api.RAGResponse {
	if ragData.Answer == "" && len(ragData.Sources) == 0 {
		return nil
	}

	return &api.RAGResponse{
		Question:           ragData.Question,
		StandaloneQuestion: ragData.StandaloneQuestion,
		Answer:             ragData.Answer,
		Sources:            ragData.Sources,
		CacheHit:           ragData.CacheHit,
	}
}

func ToIngestResponse(payload jobModel.JobPayload) *api.IngestResponse {
	if payload.IndexId == "" && len(payload.SkippedDocuments) == 0 {
		return nil
	}
	return &api.IngestResponse{
		IndexId:          payload.IndexId,
		Documents:        payload.Sources,
		SkippedDocuments: payload.SkippedDocuments,
		ChunkCount:       payload.ChunkCount,
	}
}

func BadRequest(id string, error string, code int) api.JobResponse {
	return api.JobResponse{
		Id:        id,
		SessionId: "",
		StartTime: time.Time{},
		EndTime:   time.Time{},
		Result: api.Result{
			Status: string(api.JobStatusError),
		},
		Error: &api.JobOutgoingError{
			Code:    code,
			Message: error,
			Retry:   false,
		},
	}
}
