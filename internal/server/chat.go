package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/traian1744/openai-nim-proxy/internal/metrics"
	"github.com/traian1744/openai-nim-proxy/internal/schema"
	"github.com/traian1744/openai-nim-proxy/internal/sse"
	"github.com/traian1744/openai-nim-proxy/internal/translate"
)

func (s *Server) chatCompletionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req schema.ChatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.logger.Error().Err(err).Msg("Error decoding request body")
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeJSON(w, status, schema.ErrorResponse{Error: schema.ErrorBody{
			Message: "Failed to parse request body: " + err.Error(),
			Type:    errorType,
			Code:    status,
		}})
		return
	}

	mode := "complete"
	if req.Stream {
		mode = "stream"
	}

	// The key is checked before resolution so a misconfigured proxy never
	// probes upstream.
	if _, err := s.opts.Credentials.APIKey(); err != nil {
		s.logger.Error().Err(err).Msg("Cannot serve chat completion")
		s.countRequest(mode, s.writeError(w, err))
		return
	}

	res := s.opts.Resolver.Resolve(r.Context(), req.Model)
	upReq := translate.Request(req, res.Upstream, s.opts.ThinkingMode)

	s.logger.Info().
		Str("requested_model", res.Requested).
		Str("upstream_model", res.Upstream).
		Str("resolution", string(res.Source)).
		Int("message_count", len(req.Messages)).
		Bool("stream", req.Stream).
		Msg("Processing chat completion request")

	if req.Stream {
		s.countRequest(mode, s.streamCompletion(w, r, upReq))
		return
	}
	s.countRequest(mode, s.completeCompletion(w, r, upReq, req.Model))
}

func (s *Server) completeCompletion(w http.ResponseWriter, r *http.Request, upReq schema.UpstreamRequest, requestedModel string) int {
	reply, err := s.opts.Upstream.ChatCompletion(r.Context(), upReq)
	if err != nil {
		s.logger.Error().Err(err).Str("upstream_model", upReq.Model).Msg("Upstream chat completion failed")
		return s.writeError(w, err)
	}

	s.writeJSON(w, http.StatusOK, translate.Response(reply, requestedModel, s.opts.ShowReasoning))
	return http.StatusOK
}

func (s *Server) streamCompletion(w http.ResponseWriter, r *http.Request, upReq schema.UpstreamRequest) int {
	body, err := s.opts.Upstream.StreamChatCompletion(r.Context(), upReq)
	if err != nil {
		s.logger.Error().Err(err).Str("upstream_model", upReq.Model).Msg("Upstream stream failed to start")
		return s.writeError(w, err)
	}
	defer body.Close()

	metrics.ActiveStreams.Inc()
	defer metrics.ActiveStreams.Dec()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	var out io.Writer = w
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
		out = sseFlushWriter{w: w, f: flusher}
	} else {
		s.logger.Warn().Msg("ResponseWriter does not support flushing - streaming may be buffered")
	}

	rw := translate.NewStreamRewriter(s.opts.ShowReasoning, s.opts.CloseOnStreamEnd)
	frames := 0
	start := time.Now()

	for line, err := range sse.Frames(body) {
		if err != nil {
			if r.Context().Err() != nil {
				s.logger.Debug().Err(err).Msg("Client went away during stream")
				return http.StatusOK
			}
			s.logger.Error().Err(err).Msg("Error reading upstream stream")
			s.writeStreamError(out, err)
			return http.StatusOK
		}

		b, outcome := rw.Rewrite(line)
		if line == "" {
			continue
		}
		metrics.StreamFramesTotal.WithLabelValues(outcome.String()).Inc()
		if outcome == translate.FrameMalformed {
			s.logger.Warn().Str("frame", truncate(line, 200)).Msg("Passing through unparseable stream frame")
		}
		if _, err := out.Write(b); err != nil {
			s.logger.Debug().Err(err).Msg("Client write failed, ending stream")
			return http.StatusOK
		}
		frames++
	}

	if tail := rw.Finish(); len(tail) > 0 {
		if _, err := out.Write(tail); err != nil {
			return http.StatusOK
		}
	}

	s.logger.Debug().
		Int("frames", frames).
		Bool("reasoning_open", rw.ReasoningOpen()).
		Dur("elapsed", time.Since(start)).
		Msg("Streaming response completed")
	return http.StatusOK
}

// writeStreamError reports a failure after the stream has started, when the
// status line can no longer change.
func (s *Server) writeStreamError(out io.Writer, err error) {
	_, envelope := errorEnvelope(fmt.Errorf("stream error: %w", err))
	b, merr := json.Marshal(envelope)
	if merr != nil {
		return
	}
	fmt.Fprintf(out, "%s%s\n\n", sse.DataPrefix, b)
}

func (s *Server) countRequest(mode string, status int) {
	metrics.RequestsTotal.WithLabelValues(mode, strconv.Itoa(status)).Inc()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
