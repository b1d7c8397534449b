package embedding

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Client produces embeddings through any OpenAI-compatible /embeddings endpoint.
type Client struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
}

// NewClient builds a Client. dimensions <= 0 keeps the model's native size.
func NewClient(baseURL, apiKey, model string, dimensions int) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimSuffix(baseURL, "/")
	}
	return &Client{
		client:     openai.NewClientWithConfig(cfg),
		model:      openai.EmbeddingModel(model),
		dimensions: dimensions,
	}
}

// Model is recorded as the analysis version of every vector this client produces.
func (c *Client) Model() string {
	return string(c.model)
}

const maxBatchSize = 256

// Embed returns one vector per input text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, len(texts))
	for start := 0; start < len(texts); start += maxBatchSize {
		end := min(start+maxBatchSize, len(texts))
		batch := texts[start:end]

		req := openai.EmbeddingRequest{
			Input: batch,
			Model: c.model,
		}
		if c.dimensions > 0 {
			req.Dimensions = c.dimensions
		}

		resp, err := c.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("embedding: creating embeddings (batch %d-%d): %w", start, end, err)
		}

		for _, emb := range resp.Data {
			if emb.Index < 0 || emb.Index >= len(batch) {
				return nil, fmt.Errorf("embedding: response index %d out of range", emb.Index)
			}
			vectors[start+emb.Index] = emb.Embedding
		}
	}

	for i, v := range vectors {
		if v == nil {
			return nil, fmt.Errorf("embedding: no vector returned for input %d", i)
		}
	}
	return vectors, nil
}
