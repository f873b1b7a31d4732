package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/fn"
	"github.com/aryanmundre/MaqroDealerships-sub000/pkg/resilience"
	"golang.org/x/time/rate"
)

// Options configures the remote embeddings client.
type Options struct {
	// Model is the embedding model identifier sent with every request.
	Model string
	// BatchSize is the maximum texts per request. Defaults to 100.
	BatchSize int
	// Timeout bounds a single HTTP request. Defaults to 30s.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound calls. 0 disables throttling.
	RequestsPerSecond float64
	// Retry controls backoff for transient upstream failures.
	Retry fn.RetryOpts
}

// DefaultOptions returns sensible client defaults.
func DefaultOptions(model string) Options {
	return Options{
		Model:     model,
		BatchSize: 100,
		Timeout:   30 * time.Second,
		Retry:     fn.DefaultRetry,
	}
}

// Client calls an OpenAI-compatible embeddings endpoint. Rate-limit and 5xx
// responses surface as retryable errors; the circuit breaker rejects calls
// fast while the upstream is down.
type Client struct {
	baseURL string
	apiKey  string
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewClient creates an embeddings client for the given base URL.
func NewClient(baseURL, apiKey string, opts Options) *Client {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = fn.DefaultRetry
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: limiter,
		breaker: resilience.NewBreaker(resilience.DefaultBreakerOpts),
	}
}

// EmbedText implements Provider.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedTexts implements Provider. Input is chunked by BatchSize; chunks are
// sent in order and any chunk failure aborts the whole call.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if err := validateTexts(texts); err != nil {
		return nil, err
	}

	out := make([][]float32, 0, len(texts))
	for i, chunk := range fn.Chunk(texts, c.opts.BatchSize) {
		vecs, err := c.embedChunk(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("embed: chunk %d: %w", i, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) embedChunk(ctx context.Context, chunk []string) ([][]float32, error) {
	result := fn.Retry(ctx, c.opts.Retry, func(ctx context.Context) fn.Result[[][]float32] {
		return resilience.CallResult(c.breaker, ctx, func(ctx context.Context) fn.Result[[][]float32] {
			return fn.FromPair(c.doRequest(ctx, chunk))
		})
	})
	return result.Unwrap()
}

func (c *Client) doRequest(ctx context.Context, chunk []string) ([][]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(embedRequest{Model: c.opts.Model, Input: chunk})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Read a little of the body for the error message, then discard.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings API status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode embeddings response: %w", err)
	}
	if len(parsed.Data) != len(chunk) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(parsed.Data), len(chunk))
	}

	// The API documents order-preserving responses; sort by index anyway so
	// a reordered response cannot mis-assign vectors.
	sort.Slice(parsed.Data, func(i, j int) bool { return parsed.Data[i].Index < parsed.Data[j].Index })

	out := make([][]float32, len(parsed.Data))
	for i, d := range parsed.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("embeddings API returned empty vector at index %d", i)
		}
		out[i] = d.Embedding
	}
	return out, nil
}
