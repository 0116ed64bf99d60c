package mcpServer

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/akolanti/PDFChat/internal/api"
	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/handlers"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	serverName    = "pdfchat"
	serverVersion = "v1.0.0"
	// a query job can wait in the queue before its own timeout starts
	askWaitTimeout = config.QueryJobTimeout + 30*time.Second
)

type AskArgs struct {
	SessionId string `json:"session_id" jsonschema:"id of a session with processed documents"`
	Question  string `json:"question" jsonschema:"question about the session's documents"`
}

type AskResult struct {
	Answer             string   `json:"answer"`
	StandaloneQuestion string   `json:"standalone_question,omitempty"`
	Sources            []string `json:"sources"`
	CacheHit           bool     `json:"cache_hit"`
}

type StatusArgs struct {
	SessionId string `json:"session_id" jsonschema:"id of the session"`
}

type StatusResult struct {
	State      string   `json:"state"`
	Documents  []string `json:"documents"`
	ChunkCount int      `json:"chunk_count"`
	Turns      int      `json:"turns"`
}

var logger *logger_i.Logger

// NewServer registers the document tools on a fresh MCP server.
func NewServer() *mcp.Server {
	logger = logger_i.NewLogger("MCP")
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_documents",
		Description: "Ask a question about the documents processed into a session. The exchange is added to the session history.",
	}, askDocuments)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "session_status",
		Description: "Report whether a session has processed documents and how long its conversation is.",
	}, sessionStatus)

	return server
}

// Handler serves the server over streamable HTTP.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, nil)
}

func askDocuments(ctx context.Context, _ *mcp.CallToolRequest, args AskArgs) (*mcp.CallToolResult, AskResult, error) {
	log := logger.WithTrace(ctx).With("session Id", args.SessionId)
	if code, message := handlers.ValidateChatRequest(ctx, api.ChatRequest{Message: args.Question, SessionID: args.SessionId}); code != 0 {
		log.Warn("Rejected ask_documents call", "code", code, "reason", message)
		return nil, AskResult{}, errors.New(message)
	}

	jobId := handlers.SubmitQueryJob(ctx, args.SessionId, args.Question)
	waitCtx, cancel := context.WithTimeout(ctx, askWaitTimeout)
	defer cancel()

	finished, err := handlers.AwaitJob(waitCtx, jobId)
	if err != nil {
		log.Error("Waiting for answer failed", "job id", jobId, "err", err)
		return nil, AskResult{}, err
	}
	if finished.Status == jobModel.JobStatusError {
		return nil, AskResult{}, errors.New(finished.Error.Message)
	}

	return nil, AskResult{
		Answer:             finished.JobPayload.Answer,
		StandaloneQuestion: finished.JobPayload.StandaloneQuestion,
		Sources:            finished.JobPayload.Sources,
		CacheHit:           finished.JobPayload.CacheHit,
	}, nil
}

func sessionStatus(ctx context.Context, _ *mcp.CallToolRequest, args StatusArgs) (*mcp.CallToolResult, StatusResult, error) {
	session, found := handlers.GetSession(ctx, args.SessionId)
	if !found {
		return nil, StatusResult{}, errors.New("session not found")
	}

	res := StatusResult{
		State:     string(session.State()),
		Documents: []string{},
		Turns:     len(session.History),
	}
	if session.Chain != nil {
		res.Documents = session.Chain.Documents
		res.ChunkCount = session.Chain.ChunkCount
	}
	return nil, res, nil
}
