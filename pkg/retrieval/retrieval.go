// Package retrieval is the client for the ranked-passage retrieval
// collaborator. The query is embedded locally through the OpenAI embeddings
// API and the vector is sent to the nearest-neighbor index service over
// REST; index building lives outside this repository.
package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	openaisdk "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const maxResponseSizeBytes = 2 << 20

var ErrEmptyQuery = errors.New("retrieval query is empty")

type Config struct {
	URL        string        `envconfig:"URL" split_words:"true" required:"true"`
	APIKey     string        `envconfig:"API_KEY" split_words:"true" required:"true"`
	EmbedModel string        `envconfig:"EMBED_MODEL" split_words:"true" default:"text-embedding-3-small"`
	TopK       int           `envconfig:"TOP_K" split_words:"true" default:"2"`
	Timeout    time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"10s"`
}

// Passage is one ranked result returned by the index service.
type Passage struct {
	Content string  `json:"content"`
	Source  string  `json:"source,omitempty"`
	Score   float64 `json:"score"`
}

// Embedder turns a text query into a vector in the index's embedding space.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

type Client struct {
	baseURL    string
	topK       int
	httpClient *http.Client
	embedder   Embedder
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithEmbedder(embedder Embedder) Option {
	return func(c *Client) {
		if embedder != nil {
			c.embedder = embedder
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("retrieval index url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid retrieval index url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = 2
	}

	c := &Client{
		baseURL:    baseURL,
		topK:       topK,
		httpClient: &http.Client{Timeout: timeout},
		embedder:   newOpenAIEmbedder(cfg),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type searchRequest struct {
	Vector []float64 `json:"vector"`
	K      int       `json:"k"`
}

type searchResponse struct {
	Passages []Passage `json:"passages"`
	Error    string    `json:"error,omitempty"`
}

// Search embeds the query and returns the top-k ranked passages.
func (c *Client) Search(ctx context.Context, query string) ([]Passage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}

	vector, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	body, err := json.Marshal(searchRequest{Vector: vector, K: c.topK})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("index http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed searchResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if parsed.Error != "" {
		return nil, errors.New(parsed.Error)
	}
	return parsed.Passages, nil
}

type openAIEmbedder struct {
	client *openaisdk.Client
	model  openaisdk.EmbeddingModel
}

func newOpenAIEmbedder(cfg Config) *openAIEmbedder {
	client := openaisdk.NewClient(option.WithAPIKey(strings.TrimSpace(cfg.APIKey)))
	return &openAIEmbedder{
		client: &client,
		model:  openaisdk.EmbeddingModel(strings.TrimSpace(cfg.EmbedModel)),
	}
}

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := e.client.Embeddings.New(ctx, openaisdk.EmbeddingNewParams{
		Input: openaisdk.EmbeddingNewParamsInputUnion{
			OfString: openaisdk.String(text),
		},
		Model: e.model,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("embedding response has no data")
	}
	return resp.Data[0].Embedding, nil
}
