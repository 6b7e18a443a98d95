//go:build js && wasm

package env

import "github.com/syumai/workers/cloudflare"

// Get returns the value of the named Worker binding. Bindings that are unset
// and bindings set to "" are indistinguishable here.
func Get(name string) (string, bool) {
	v := cloudflare.Getenv(name)
	return v, v != ""
}
