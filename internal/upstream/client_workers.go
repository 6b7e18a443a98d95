//go:build js && wasm

package upstream

import "github.com/syumai/workers/cloudflare/fetch"

// NewHTTPClient creates an HTTP client backed by the Workers fetch API
func NewHTTPClient() HTTPClient {
	return fetch.NewClient().HTTPClient(fetch.RedirectModeFollow)
}
