// Package app wires configuration into a ready-to-serve proxy.
package app

import (
	"github.com/rs/zerolog"

	"github.com/traian1744/openai-nim-proxy/internal/config"
	"github.com/traian1744/openai-nim-proxy/internal/credentials"
	"github.com/traian1744/openai-nim-proxy/internal/models"
	"github.com/traian1744/openai-nim-proxy/internal/server"
	"github.com/traian1744/openai-nim-proxy/internal/upstream"
)

// Credentials builds the key lookup chain: NIM_API_KEY first, then the key
// from the config file, then the key file.
func Credentials(cfg *config.Config) credentials.Fetcher {
	chain := credentials.Chain{credentials.NewEnvFetcher()}
	if cfg.Upstream.APIKey != "" {
		chain = append(chain, credentials.NewStaticFetcher(cfg.Upstream.APIKey))
	}
	keyFile := cfg.Upstream.APIKeyFile
	if keyFile == "" {
		if p := credentials.DefaultKeyPath(); p != "" && credentials.FileExists(p) {
			keyFile = p
		}
	}
	if keyFile != "" {
		chain = append(chain, credentials.NewFSFetcher(keyFile))
	}
	return chain
}

// NewServer creates a new server instance from cfg
func NewServer(cfg *config.Config, creds credentials.Fetcher, logger zerolog.Logger) *server.Server {
	return NewServerWithClient(cfg, creds, nil, logger)
}

// NewServerWithClient is NewServer with an explicit HTTP client for upstream
// calls. A nil client selects the platform default.
func NewServerWithClient(cfg *config.Config, creds credentials.Fetcher, httpClient upstream.HTTPClient, logger zerolog.Logger) *server.Server {
	client := upstream.New(upstream.Options{
		BaseURL:        cfg.Upstream.BaseURL,
		RequestTimeout: cfg.Upstream.RequestTimeout,
		ProbeTimeout:   cfg.Upstream.ProbeTimeout,
		HTTPClient:     httpClient,
	}, creds, logger.With().Str("component", "upstream").Logger())

	resolver := models.NewResolver(cfg.Models.Mapping, models.Tiers{
		Flagship: cfg.Models.Flagship,
		Mid:      cfg.Models.Mid,
		Small:    cfg.Models.Small,
	}, client, logger.With().Str("component", "resolver").Logger())

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	return server.New(logger, server.Options{
		Upstream:         client,
		Resolver:         resolver,
		Credentials:      creds,
		ShowReasoning:    cfg.Reasoning.Show,
		ThinkingMode:     cfg.Reasoning.ThinkingMode,
		CloseOnStreamEnd: cfg.Reasoning.CloseOnStreamEnd,
		MetricsPath:      metricsPath,
	})
}
