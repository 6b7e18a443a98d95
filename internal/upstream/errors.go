package upstream

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Error is a non-2xx reply from NIM. StatusCode is mirrored back to the
// caller and Details carries the upstream body.
type Error struct {
	StatusCode int
	Message    string
	Details    json.RawMessage
}

func (e *Error) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Message)
}

var messagePaths = []string{"error.message", "error", "detail", "message", "title"}

func newError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}

	if len(body) > 0 && gjson.ValidBytes(body) {
		e.Details = json.RawMessage(body)
		parsed := gjson.ParseBytes(body)
		for _, p := range messagePaths {
			if v := parsed.Get(p); v.Type == gjson.String && v.Str != "" {
				e.Message = v.Str
				break
			}
		}
	} else if len(body) > 0 {
		e.Details, _ = json.Marshal(string(body))
	}

	if e.Message == "" {
		e.Message = fmt.Sprintf("Request failed with status code %d", status)
		if text := http.StatusText(status); text != "" {
			e.Message += " (" + text + ")"
		}
	}
	return e
}
