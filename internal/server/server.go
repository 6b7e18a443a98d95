package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/traian1744/openai-nim-proxy/internal/credentials"
	"github.com/traian1744/openai-nim-proxy/internal/metrics"
	"github.com/traian1744/openai-nim-proxy/internal/models"
	"github.com/traian1744/openai-nim-proxy/internal/schema"
)

const (
	serviceName = "OpenAI to NVIDIA NIM Proxy"

	// maxBodyBytes caps inbound request bodies at 100 MiB.
	maxBodyBytes = 100 << 20
)

// sseFlushWriter wraps a ResponseWriter to flush after each write.
type sseFlushWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

func (fw sseFlushWriter) Write(p []byte) (int, error) {
	n, err := fw.w.Write(p)
	if err == nil {
		fw.f.Flush()
	}
	return n, err
}

// Upstream is the subset of the NIM client the handlers need.
type Upstream interface {
	ChatCompletion(ctx context.Context, req schema.UpstreamRequest) (*schema.UpstreamReply, error)
	StreamChatCompletion(ctx context.Context, req schema.UpstreamRequest) (io.ReadCloser, error)
}

type Options struct {
	Upstream    Upstream
	Resolver    *models.Resolver
	Credentials credentials.Fetcher

	ShowReasoning    bool
	ThinkingMode     bool
	CloseOnStreamEnd bool

	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath string
}

type Server struct {
	opts   Options
	mux    *http.ServeMux
	logger zerolog.Logger
}

func New(logger zerolog.Logger, opts Options) *Server {
	s := &Server{
		opts:   opts,
		mux:    http.NewServeMux(),
		logger: logger,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/v1/chat/completions", s.chatCompletionsHandler)
	s.mux.HandleFunc("/v1/models", s.modelsHandler)
	s.mux.HandleFunc("/health", s.healthHandler)
	if s.opts.MetricsPath != "" {
		s.mux.Handle(s.opts.MetricsPath, metrics.Handler())
	}
	s.mux.HandleFunc("/", s.notFoundHandler)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.loggingMiddleware(corsMiddleware(s.mux)).ServeHTTP(w, r)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote_addr", r.RemoteAddr).
			Str("user_agent", r.UserAgent()).
			Msg("Incoming request")
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Dur("duration", time.Since(start)).
			Msg("Finished request")
	})
}

// corsMiddleware allows any origin and answers preflight requests directly.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")
		if reqHeaders := r.Header.Get("Access-Control-Request-Headers"); reqHeaders != "" {
			h.Set("Access-Control-Allow-Headers", reqHeaders)
			h.Add("Vary", "Access-Control-Request-Headers")
		} else {
			h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}

		if r.Method == http.MethodOptions {
			h.Set("Content-Length", "0")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	ReasoningDisplay bool   `json:"reasoning_display"`
	ThinkingMode     bool   `json:"thinking_mode"`
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		Service:          serviceName,
		ReasoningDisplay: s.opts.ShowReasoning,
		ThinkingMode:     s.opts.ThinkingMode,
	})
}

func (s *Server) modelsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, schema.ModelList{
		Object: "list",
		Data:   s.opts.Resolver.List(time.Now().Unix()),
	})
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Warn().
		Str("method", r.Method).
		Str("uri", r.RequestURI).
		Str("remote_addr", r.RemoteAddr).
		Str("user_agent", r.UserAgent()).
		Msg("Unhandled route")
	s.writeJSON(w, http.StatusNotFound, schema.ErrorResponse{
		Error: schema.ErrorBody{
			Message: "Endpoint " + r.URL.Path + " not found",
			Type:    errorType,
			Code:    http.StatusNotFound,
		},
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
