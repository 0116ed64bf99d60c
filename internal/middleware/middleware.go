package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/PDFChat/internal/adapter/utils"
	"github.com/akolanti/PDFChat/internal/handlers"
	"github.com/akolanti/PDFChat/internal/metrics"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var GetHandler = WrapPublic(handlers.GetHandler)

// api
var CreateSessionHandler = Wrap(handlers.CreateSessionHandler)
var GetSessionHandler = Wrap(handlers.GetSessionHandler)
var PostDocumentsHandler = Wrap(handlers.PostDocumentsHandler)
var ChatHandler = Wrap(handlers.ChatHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)

// browser ui, bound to the session cookie instead of a bearer token
var UIIndexHandler = WrapPublic(handlers.UIIndexHandler)
var UIProcessHandler = WrapPublic(handlers.UIProcessHandler)
var UIAskHandler = WrapPublic(handlers.UIAskHandler)

// Wrap runs trace injection, bearer auth and rate limiting before next.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, true)
}

// WrapPublic is Wrap without the bearer token check.
func WrapPublic(next http.HandlerFunc) http.HandlerFunc {
	return wrap(next, false)
}

// WrapHandler guards a mounted handler such as the MCP endpoint.
func WrapHandler(next http.Handler) http.HandlerFunc {
	return Wrap(next.ServeHTTP)
}

func wrap(next http.HandlerFunc, withAuth bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec}, withAuth)

		if !re.badRequest.isBadRequest {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(utils.GetRoutePattern(re.req), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct, withAuth bool) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received")

	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re
	}
	if withAuth {
		re = authenticate(re)
		if re.badRequest.isBadRequest {
			handleBadRequest(re)
			return re //stop if auth fails
		}
	}
	re = rateLimiter(re)
	if re.badRequest.isBadRequest {
		handleBadRequest(re)
		return re //stop here if rate limit fails
	}

	return re
}
