package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/akolanti/PDFChat/internal/adapter"
	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var logRH *logger_i.Logger

type newJobData struct {
	id               string
	sessionId        string
	message          string
	traceId          string
	isDocumentIngest bool
	files            []jobModel.UploadedFile
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// CreateSessionHandler godoc
// @Summary      Create a chat session
// @Description  Creates an empty session. Documents must be processed into it before questions can be asked.
// @Tags         Sessions
// @Produce      json
// @Success      201  {object}  api.SessionResponse  "Session created"
// @Failure      500  {object}  api.JobResponse      "Session store error"
// @Router       /sessions [post]
func CreateSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}
	session, err := NewSession(r.Context())
	if err != nil {
		logRH.Error("Couldn't create session", "err", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Could not create session")
		return
	}
	writeJsonResponse(w, http.StatusCreated, adapter.ToSessionResponse(session))
}

// GetSessionHandler godoc
// @Summary      Get a session
// @Description  Returns the session state, the processed documents and the conversation history.
// @Tags         Sessions
// @Produce      json
// @Param        id   path      string  true  "Session ID"
// @Success      200  {object}  api.SessionResponse
// @Failure      404  {object}  api.JobResponse  "Session not found"
// @Router       /sessions/{id} [get]
func GetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}
	id := utils.GetChiURLParam(r, "id")
	session, found := GetSession(r.Context(), id)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, id, "Session not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToSessionResponse(session))
}

// ChatHandler godoc
// @Summary      Ask a question
// @Description  Queues a question against the session's processed documents and returns a job ID to track status.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Question and session ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Missing fields or unknown session"
// @Failure      409      {object}  api.JobResponse      "No documents have been processed for the session"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request", "remote", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the Chat handler reader", "err", err)
		}
	}(request.Body)

	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil {
		logRH.Warn("Bad Chat Request", "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
		return
	}
	if code, message := ValidateChatRequest(request.Context(), requestData); code != 0 {
		logRH.Warn("Rejected Chat Request", "code", code, "reason", message, "sessionId", requestData.SessionID)
		WriteErrorResponse(w, code, requestData.SessionID, message)
		return
	}

	newJob := queueJob(request, requestData.SessionID, requestData.Message, nil)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, newJob.sessionId))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	//use chi get the url id
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, logger_i.TraceId(r.Context()))

	logRH.Debug("Get Status Request", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostDocumentsHandler handles the upload of a batch of documents for processing.
// @Summary      Upload and process documents
// @Description  Receives one or more files via multipart/form-data and queues an ingestion job. On success the session answers from the new documents and its history is cleared.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        id         path      string  true  "Session ID"
// @Param        documents  formData  file    true  "PDF files (DOCX, RTF, ODT and TXT are accepted too)"
// @Success      202  {object}  api.InitJobResponse "Accepted - returns job id"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing files or file too large"
// @Failure      404  {object}  api.JobResponse "Session not found"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Write Error"
// @Router       /sessions/{id}/documents [post]
func PostDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request", "remote", r.RemoteAddr)
		return
	}

	sessionId := utils.GetChiURLParam(r, "id")
	if _, found := GetSession(r.Context(), sessionId); !found {
		WriteErrorResponse(w, http.StatusNotFound, sessionId, "Session not found")
		return
	}

	files, code, errString := saveUploads(w, r)
	if errString != "" {
		WriteErrorResponse(w, code, sessionId, errString)
		return
	}

	newJob := queueJob(r, sessionId, "", files)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, sessionId))
}
