package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/akolanti/PDFChat/internal/adapter"
	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

const uploadFieldName = "documents"

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "err", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.WithTrace(ctx).Warn("context error", "err", ctx.Err())
		return false
	}
	return true
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

func getTargetDirectory() (string, string) {
	root, err := os.Getwd()
	if err != nil {
		return "", "Storage Error"
	}

	targetDir := filepath.Join(root, config.UploadDirectory)
	if err := os.MkdirAll(targetDir, 0750); err != nil {
		return "", "Storage Error"
	}
	return targetDir, ""
}

// saveUploads copies every file of the multipart "documents" field to the upload directory.
// On failure it returns the http code and message to answer with, and removes what it wrote.
func saveUploads(w http.ResponseWriter, r *http.Request) ([]jobModel.UploadedFile, int, string) {
	targetDir, errString := getTargetDirectory()
	if errString != "" {
		logRH.Error("Couldn't get target directory", "err", errString)
		return nil, http.StatusInternalServerError, errString
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		return nil, http.StatusBadRequest, "File too large or bad request"
	}

	headers := r.MultipartForm.File[uploadFieldName]
	if len(headers) == 0 {
		return nil, http.StatusBadRequest, "At least one file is required in the documents field"
	}

	files := make([]jobModel.UploadedFile, 0, len(headers))
	for _, header := range headers {
		uploaded, err := saveUpload(targetDir, header)
		if err != nil {
			logRH.Error("Couldn't store upload", "document", header.Filename, "err", err)
			for _, f := range files {
				os.Remove(f.Path)
			}
			return nil, http.StatusInternalServerError, "Storage error"
		}
		files = append(files, uploaded)
	}
	return files, 0, ""
}

func saveUpload(targetDir string, header *multipart.FileHeader) (jobModel.UploadedFile, error) {
	fileReader, err := header.Open()
	if err != nil {
		return jobModel.UploadedFile{}, err
	}
	defer fileReader.Close()

	name := filepath.Base(header.Filename)
	tempFilePath := filepath.Join(targetDir, fmt.Sprintf("%d-%s", time.Now().UnixNano(), name))
	destinationFileWriter, err := os.Create(tempFilePath)
	if err != nil {
		return jobModel.UploadedFile{}, err
	}
	defer destinationFileWriter.Close()

	if _, err := io.Copy(destinationFileWriter, fileReader); err != nil {
		os.Remove(tempFilePath)
		return jobModel.UploadedFile{}, err
	}
	return jobModel.UploadedFile{Name: name, Path: tempFilePath}, nil
}

func queueJob(request *http.Request, sessionId string, message string, files []jobModel.UploadedFile) newJobData {
	newJob := newJobData{
		id:               utils.GetNewUUID(),
		sessionId:        sessionId,
		message:          message,
		traceId:          logger_i.TraceId(request.Context()),
		isDocumentIngest: files != nil,
		files:            files,
	}
	CreateNewJob(newJob)
	return newJob
}
