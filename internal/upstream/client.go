//go:build !js || !wasm

package upstream

import "net/http"

// NewHTTPClient creates a new HTTP client for regular environments. Deadlines
// come from the request context so streaming bodies are not cut off.
func NewHTTPClient() HTTPClient {
	return &http.Client{}
}
