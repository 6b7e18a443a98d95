package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/traian1744/openai-nim-proxy/internal/credentials"
	"github.com/traian1744/openai-nim-proxy/internal/schema"
)

func newTestClient(t *testing.T, h http.HandlerFunc, key string) *Client {
	t.Helper()
	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return New(Options{
		BaseURL:        ts.URL + "/v1/",
		RequestTimeout: 2 * time.Second,
		ProbeTimeout:   200 * time.Millisecond,
	}, credentials.NewStaticFetcher(key), zerolog.Nop())
}

func userRequest(model string) schema.UpstreamRequest {
	return schema.UpstreamRequest{
		Model:    model,
		Messages: []schema.ChatMessage{{Role: "user", Content: json.RawMessage(`"hi"`)}},
	}
}

func TestChatCompletion(t *testing.T) {
	bodies := make(chan map[string]interface{}, 1)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer nvapi-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		bodies <- body

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"C","reasoning_content":"R"},"finish_reason":"stop"}],"usage":{"prompt_tokens":1,"completion_tokens":2,"total_tokens":3}}`)
	}, "Bearer nvapi-key")

	req := userRequest("deepseek-ai/deepseek-v3.1")
	req.Stream = true
	reply, err := c.ChatCompletion(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, reply.Choices, 1)
	assert.Equal(t, "C", *reply.Choices[0].Message.Content)
	assert.Equal(t, "R", *reply.Choices[0].Message.ReasoningContent)
	assert.Equal(t, 3, reply.Usage.TotalTokens)

	got := <-bodies
	assert.Equal(t, false, got["stream"])
	assert.Equal(t, "deepseek-ai/deepseek-v3.1", got["model"])
}

func TestChatCompletion_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"status":404,"title":"Not Found","detail":"Function not found for account"}`)
	}, "k")

	_, err := c.ChatCompletion(context.Background(), userRequest("nope"))
	var uerr *Error
	require.True(t, errors.As(err, &uerr), "got %v", err)
	assert.Equal(t, 404, uerr.StatusCode)
	assert.Equal(t, "Function not found for account", uerr.Message)
	assert.JSONEq(t, `{"status":404,"title":"Not Found","detail":"Function not found for account"}`, string(uerr.Details))
}

func TestChatCompletion_MissingKey(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true }, "")

	_, err := c.ChatCompletion(context.Background(), userRequest("m"))
	assert.ErrorIs(t, err, credentials.ErrMissingAPIKey)
	assert.False(t, called)
}

func TestChatCompletion_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, "k")
	defer close(release)
	c.requestTimeout = 50 * time.Millisecond

	_, err := c.ChatCompletion(context.Background(), userRequest("m"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestStreamChatCompletion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))
		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, true, body["stream"])
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {}\n\ndata: [DONE]\n\n")
	}, "k")

	body, err := c.StreamChatCompletion(context.Background(), userRequest("m"))
	require.NoError(t, err)
	defer body.Close()
	b, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {}\n\ndata: [DONE]\n\n", string(b))
}

func TestProbe(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantFound bool
		wantErr   bool
	}{
		{name: "ok", status: 200, wantFound: true},
		{name: "not found", status: 404},
		{name: "bad request", status: 400},
		{name: "server error", status: 502, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				var body map[string]interface{}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				assert.Equal(t, float64(1), body["max_tokens"])
				assert.Equal(t, "vendor/model", body["model"])
				w.WriteHeader(tt.status)
				io.WriteString(w, `{}`)
			}, "k")

			found, err := c.Probe(context.Background(), "vendor/model")
			assert.Equal(t, tt.wantFound, found)
			if tt.wantErr {
				var uerr *Error
				require.True(t, errors.As(err, &uerr))
				assert.Equal(t, tt.status, uerr.StatusCode)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestProbe_Timeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}, "k")
	defer close(release)

	found, err := c.Probe(context.Background(), "slow/model")
	assert.False(t, found)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewError(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantMessage string
		wantDetails string
	}{
		{name: "openai style", body: `{"error":{"message":"bad model"}}`, wantMessage: "bad model", wantDetails: `{"error":{"message":"bad model"}}`},
		{name: "string error", body: `{"error":"quota"}`, wantMessage: "quota", wantDetails: `{"error":"quota"}`},
		{name: "plain text", body: "gateway down", wantMessage: "Request failed with status code 503 (Service Unavailable)", wantDetails: `"gateway down"`},
		{name: "empty", body: "", wantMessage: "Request failed with status code 503 (Service Unavailable)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newError(503, []byte(tt.body))
			assert.Equal(t, tt.wantMessage, e.Message)
			if tt.wantDetails == "" {
				assert.Nil(t, e.Details)
			} else {
				assert.JSONEq(t, tt.wantDetails, string(e.Details))
			}
			assert.Contains(t, e.Error(), "503")
		})
	}
}

func TestBareToken(t *testing.T) {
	assert.Equal(t, "abc", bareToken("abc"))
	assert.Equal(t, "abc", bareToken("Bearer abc"))
	assert.Equal(t, "abc", bareToken("  bearer   abc "))
}
