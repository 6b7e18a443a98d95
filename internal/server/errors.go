package server

import (
	"errors"
	"net/http"

	"github.com/traian1744/openai-nim-proxy/internal/schema"
	"github.com/traian1744/openai-nim-proxy/internal/upstream"
)

const errorType = "invalid_request_error"

// errorEnvelope maps err onto the caller-facing error body. Upstream failures
// keep their status code and body; everything else is a 500.
func errorEnvelope(err error) (int, schema.ErrorResponse) {
	status := http.StatusInternalServerError
	body := schema.ErrorBody{
		Message: err.Error(),
		Type:    errorType,
	}

	var uerr *upstream.Error
	if errors.As(err, &uerr) {
		status = uerr.StatusCode
		body.Message = uerr.Message
		body.Details = uerr.Details
	}

	body.Code = status
	return status, schema.ErrorResponse{Error: body}
}

func (s *Server) writeError(w http.ResponseWriter, err error) int {
	status, envelope := errorEnvelope(err)
	s.writeJSON(w, status, envelope)
	return status
}
