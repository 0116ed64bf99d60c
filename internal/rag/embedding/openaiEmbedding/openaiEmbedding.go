package openaiEmbedding

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/akolanti/PDFChat/internal/config"
	"github.com/akolanti/PDFChat/internal/customHttpClient"
	"github.com/akolanti/PDFChat/internal/rag/embedding"
	"github.com/akolanti/PDFChat/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// the embeddings endpoint accepts at most 2048 inputs per request
const maxInputsPerRequest = 2048

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	openAi openai.Client
	model  string
}

func GetOpenAIEmbeddingClient(modelName string, apikey string) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		if apikey == "" {
			logger.Error("OPENAI_API_KEY is not set")
			return
		}
		embeddingClient = &client{
			openAi: openai.NewClient(
				option.WithAPIKey(apikey),
				option.WithHTTPClient(customHttpClient.GetPooledClient()),
			),
			model: modelName,
		}
		logger.Info("OpenAI Embedding client created", "model", modelName)
	})

	if embeddingClient == nil {
		return nil
	}
	return &client{openAi: embeddingClient.openAi, model: embeddingClient.model}
}

func (c *client) ModelName() string {
	return c.model
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	vectors, err := c.embed(ctx, []string{query})
	if err != nil {
		logger.WithTrace(ctx).Error("Error getting Embeddings from OpenAI", "error", err)
		return nil, err
	}
	return vectors[0], nil
}

// BatchEmbedding keeps the order of chunks. isHugeDataSet only changes the request size.
func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error) {
	log := logger.WithTrace(ctx)
	step := maxInputsPerRequest
	if !isHugeDataSet && len(chunks) < step {
		step = len(chunks)
	}

	results := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += step {
		end := min(start+step, len(chunks))
		vectors, err := c.embed(ctx, chunks[start:end])
		if err != nil {
			log.Error("Error getting batch Embeddings from OpenAI", "error", err, "batch start", start)
			return nil, err
		}
		results = append(results, vectors...)
	}
	return results, nil
}

func (c *client) embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	res, err := c.openAi.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: inputs},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(int64(config.EmbeddingOutputDimensionality)),
	})
	if err != nil {
		return nil, fmt.Errorf("openai embeddings: %w", err)
	}
	if len(res.Data) != len(inputs) {
		return nil, fmt.Errorf("openai embeddings: got %d vectors for %d inputs", len(res.Data), len(inputs))
	}

	vectors := make([][]float32, len(inputs))
	for _, d := range res.Data {
		if d.Index < 0 || int(d.Index) >= len(inputs) {
			return nil, errors.New("openai embeddings: index out of range")
		}
		vectors[d.Index] = toFloat32(d.Embedding)
	}
	return vectors, nil
}

func toFloat32(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
