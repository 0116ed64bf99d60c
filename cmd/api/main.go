// @title           PDF Chat API
// @version         1.0
// @description     Upload documents into a session, process them into a vector index and ask questions about them.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/data/store"
	jobmodel "github.com/akolanti/PDFChat/internal/domain/jobModel"
	"github.com/akolanti/PDFChat/internal/handlers"
	"github.com/akolanti/PDFChat/internal/job"
	"github.com/akolanti/PDFChat/internal/mcpServer"
	"github.com/akolanti/PDFChat/internal/rag"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/PDFChat/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/PDFChat/internal/rag/llm"
	"github.com/akolanti/PDFChat/internal/rag/llm/gemini"
	"github.com/akolanti/PDFChat/internal/rag/llm/openaiLLM"
	"github.com/akolanti/PDFChat/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/PDFChat/internal/server"
	"github.com/akolanti/PDFChat/internal/worker"
	"github.com/akolanti/PDFChat/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	config.Load()
	logger_i.Init()
	var logger = logger_i.NewLogger("main")

	//config
	flag.StringVar(&listenAddr, "listen-addr", config.ServerListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service, job store and session store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	if jobStore := store.GetRedisJobStore(serviceContext); jobStore != nil {
		serviceConfig.JobStore = jobStore
	} else {
		logger.Error("Redis job store is offline, using in-memory store")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
	}
	if sessionStore := store.GetRedisSessionStore(serviceContext); sessionStore != nil {
		serviceConfig.SessionStore = sessionStore
	} else {
		logger.Error("Redis session store is offline, using in-memory store")
		serviceConfig.SessionStore = store.InitInMemorySessionStore()
	}
	service := job.InitJobService(serviceConfig)

	vectorDB := qdrantDB.GetQuadrantClient(serviceContext)
	embeddingService := newEmbedder(serviceContext)
	llmProvider := newLLMProvider(serviceContext)

	if vectorDB == nil || embeddingService == nil || llmProvider == nil {
		logger.Error("One or more external services failed to initialize. Shutting down.")
		logger.Debug("Available services", "VectorDB", vectorDB != nil, "EmbeddingService", embeddingService != nil, "LLMProvider", llmProvider != nil)
		return
	}
	logger.Info("External services ready", "llm", llmProvider.Name(), "embedding", embeddingService.ModelName(), "collection", config.QdrantCollectionName)

	ragService := rag.NewService(vectorDB, llmProvider, embeddingService, rag.WithCollection(config.QdrantCollectionName))

	handlers.InitJobHandler(service)

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	mcpHandler := mcpServer.Handler(mcpServer.NewServer())

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, mcpHandler)

	<-stopExecution
	logger.Info("Server stopped")
}

func newEmbedder(ctx context.Context) embedding.Embedder {
	if config.EmbeddingProvider == config.ProviderGemini {
		return googleEmbedding.GetGoogleEmbeddingClient(ctx, config.GoogleEmbeddingModel, config.GoogleAPIKey)
	}
	return openaiEmbedding.GetOpenAIEmbeddingClient(config.OpenAIEmbedName, config.OpenAIAPIKey)
}

func newLLMProvider(ctx context.Context) llm.Provider {
	if config.LLMProvider == config.ProviderGemini {
		return gemini.GetGeminiClient(ctx, config.GeminiModelName, config.GoogleAPIKey)
	}
	return openaiLLM.GetOpenAIClient(config.OpenAIChatName, config.OpenAIAPIKey)
}
