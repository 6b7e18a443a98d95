//go:build !js || !wasm

// Package env reads process configuration from the environment, or from
// Worker bindings when built for Cloudflare Workers.
package env

import "os"

// Get returns the value of the named variable and whether it was set.
func Get(name string) (string, bool) {
	return os.LookupEnv(name)
}
