//go:build js && wasm

package main

import (
	"github.com/syumai/workers"

	"github.com/traian1744/openai-nim-proxy/internal/app"
	"github.com/traian1744/openai-nim-proxy/internal/config"
	"github.com/traian1744/openai-nim-proxy/internal/logger"
)

func main() {
	log := logger.New()

	// Workers have no filesystem; configuration comes from bindings only.
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	cfg.Upstream.APIKeyFile = ""

	srv := app.NewServer(cfg, app.Credentials(cfg), log)

	// Serve using workers - it handles all the HTTP server setup
	workers.Serve(srv)
}
