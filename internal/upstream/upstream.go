// Package upstream talks to the NVIDIA NIM chat completions API.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/traian1744/openai-nim-proxy/internal/credentials"
	"github.com/traian1744/openai-nim-proxy/internal/metrics"
	"github.com/traian1744/openai-nim-proxy/internal/schema"
)

// maxErrorBody caps how much of a failed reply is buffered.
const maxErrorBody = 1 << 20

// HTTPClient is an interface for making HTTP requests
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type Options struct {
	BaseURL        string
	RequestTimeout time.Duration
	ProbeTimeout   time.Duration
	HTTPClient     HTTPClient
}

type Client struct {
	baseURL        string
	requestTimeout time.Duration
	probeTimeout   time.Duration
	httpClient     HTTPClient
	creds          credentials.Fetcher
	logger         zerolog.Logger
}

func New(opts Options, creds credentials.Fetcher, logger zerolog.Logger) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		requestTimeout: opts.RequestTimeout,
		probeTimeout:   opts.ProbeTimeout,
		httpClient:     httpClient,
		creds:          creds,
		logger:         logger,
	}
}

// ChatCompletion sends a non-streaming request and decodes the whole reply.
func (c *Client) ChatCompletion(ctx context.Context, req schema.UpstreamRequest) (*schema.UpstreamReply, error) {
	req.Stream = false
	ctx, cancel := withTimeout(ctx, c.requestTimeout)
	defer cancel()

	resp, err := c.post(ctx, "chat", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var reply schema.UpstreamReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("failed to decode upstream reply: %w", err)
	}
	return &reply, nil
}

// StreamChatCompletion starts a streaming request and returns the event
// stream body. No deadline is applied; the stream lives as long as ctx.
// The caller must close the returned body.
func (c *Client) StreamChatCompletion(ctx context.Context, req schema.UpstreamRequest) (io.ReadCloser, error) {
	req.Stream = true
	resp, err := c.post(ctx, "stream", req)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// Probe asks NIM for a one-token completion from model. A 2xx reply reports
// true. Any other reply below 500 means the model is not available and is not
// an error; 5xx replies, transport failures and timeouts are.
func (c *Client) Probe(ctx context.Context, model string) (bool, error) {
	ctx, cancel := withTimeout(ctx, c.probeTimeout)
	defer cancel()

	maxTokens := 1
	content := `"test"`
	req := schema.UpstreamRequest{
		Model:     model,
		Messages:  []schema.ChatMessage{{Role: "user", Content: json.RawMessage(content)}},
		MaxTokens: &maxTokens,
	}

	resp, err := c.post(ctx, "probe", req)
	if err != nil {
		var uerr *Error
		if errors.As(err, &uerr) && uerr.StatusCode < http.StatusInternalServerError {
			return false, nil
		}
		return false, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return true, nil
}

func (c *Client) post(ctx context.Context, operation string, payload schema.UpstreamRequest) (*http.Response, error) {
	key, err := c.creds.APIKey()
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal upstream request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+bareToken(key))
	req.Header.Set("Content-Type", "application/json")
	if payload.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.UpstreamLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	c.logger.Debug().
		Str("operation", operation).
		Str("model", payload.Model).
		Int("status_code", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("Upstream responded")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newError(resp.StatusCode, errBody)
	}
	return resp, nil
}

// bareToken strips a leading "Bearer " so the header is never doubled.
func bareToken(token string) string {
	token = strings.TrimSpace(token)
	if len(token) >= 7 && strings.EqualFold(token[:7], "Bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
