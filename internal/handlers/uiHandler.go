package handlers

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/domain/sessionModel"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/*.html"))

var logUI *logger_i.Logger

type pageData struct {
	Documents []string
	History   []sessionModel.Turn
	Errors    []string
	Notices   []string
}

// UIIndexHandler renders the chat page for the session bound to the browser cookie.
func UIIndexHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := uiSession(w, r)
	if !ok {
		return
	}
	renderPage(w, session, pageData{})
}

// UIProcessHandler stores the uploaded batch, runs the ingestion and waits for it.
func UIProcessHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := uiSession(w, r)
	if !ok {
		return
	}

	files, _, errString := saveUploads(w, r)
	if errString != "" {
		renderPage(w, session, pageData{Errors: []string{"Please upload at least one document. " + errString}})
		return
	}

	newJob := queueJob(r, session.Id, "", files)
	finished, err := awaitUIJob(r.Context(), newJob.id)
	page := pageData{}
	if err != nil {
		logUI.WithTrace(r.Context()).Error("Waiting for ingestion failed", "job id", newJob.id, "err", err)
		page.Errors = append(page.Errors, fmt.Sprintf("Processing is still running (job %s). Refresh the page in a moment.", newJob.id))
	} else {
		for _, skipped := range finished.JobPayload.SkippedDocuments {
			page.Errors = append(page.Errors, "Error reading document: "+skipped)
		}
		if finished.Status == jobModel.JobStatusError {
			page.Errors = append(page.Errors, finished.Error.Message)
		} else {
			page.Notices = append(page.Notices, fmt.Sprintf("Processed %d document(s) into %d chunks.", len(finished.JobPayload.Sources), finished.JobPayload.ChunkCount))
		}
	}

	renderPage(w, reloadSession(r.Context(), session), page)
}

// UIAskHandler runs one question/answer cycle and renders the whole history.
func UIAskHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := uiSession(w, r)
	if !ok {
		return
	}

	question := strings.TrimSpace(r.FormValue("question"))
	if question == "" {
		renderPage(w, session, pageData{})
		return
	}
	if session.Chain == nil {
		renderPage(w, session, pageData{Errors: []string{"Please upload and process your documents first."}})
		return
	}

	newJob := queueJob(r, session.Id, question, nil)
	finished, err := awaitUIJob(r.Context(), newJob.id)
	page := pageData{}
	switch {
	case err != nil:
		logUI.WithTrace(r.Context()).Error("Waiting for answer failed", "job id", newJob.id, "err", err)
		page.Errors = append(page.Errors, "An unexpected error occurred: "+err.Error())
	case finished.Status == jobModel.JobStatusError:
		page.Errors = append(page.Errors, "An unexpected error occurred: "+finished.Error.Message)
	}

	renderPage(w, reloadSession(r.Context(), session), page)
}

func awaitUIJob(ctx context.Context, id string) (jobModel.Job, error) {
	waitCtx, cancel := context.WithTimeout(ctx, config.UIJobWaitTimeout)
	defer cancel()
	return AwaitJob(waitCtx, id)
}

// uiSession returns the cookie's session, creating a new one when the cookie is missing or stale.
func uiSession(w http.ResponseWriter, r *http.Request) (sessionModel.Session, bool) {
	if cookie, err := r.Cookie(config.SessionCookieName); err == nil {
		if session, found := GetSession(r.Context(), cookie.Value); found {
			return session, true
		}
	}

	session, err := NewSession(r.Context())
	if err != nil {
		logUI.WithTrace(r.Context()).Error("Couldn't create session", "err", err)
		http.Error(w, "Could not create session", http.StatusInternalServerError)
		return sessionModel.Session{}, false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     config.SessionCookieName,
		Value:    session.Id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(config.RedisSessionStoreTTL.Seconds()),
	})
	return session, true
}

func reloadSession(ctx context.Context, session sessionModel.Session) sessionModel.Session {
	if fresh, found := GetSession(ctx, session.Id); found {
		return fresh
	}
	return session
}

func renderPage(w http.ResponseWriter, session sessionModel.Session, page pageData) {
	page.History = session.History
	if session.Chain != nil {
		page.Documents = session.Chain.Documents
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.ExecuteTemplate(w, "index.html", page); err != nil {
		logUI.Error("Error rendering page", "err", err)
	}
}
