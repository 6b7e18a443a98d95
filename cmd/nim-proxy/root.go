package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/traian1744/openai-nim-proxy/internal/app"
	"github.com/traian1744/openai-nim-proxy/internal/config"
	"github.com/traian1744/openai-nim-proxy/internal/credentials"
	"github.com/traian1744/openai-nim-proxy/internal/logger"
)

type rootCommander struct {
	configPath    string
	port          int
	showReasoning bool
	thinkingMode  bool

	cfg *config.Config
	log zerolog.Logger
}

const rootLongDesc string = `Run an OpenAI-compatible chat completions proxy in front of NVIDIA NIM.

Requests to /v1/chat/completions are translated to NIM, model names are
mapped or probed, and NIM's reasoning channel is folded into the reply
content as a <think> block when reasoning display is on.

Configuration is read from a YAML file (--config, NIM_PROXY_CONFIG or
./nim-proxy.yaml), then environment variables, then flags.`

func newRootCmd() *cobra.Command {
	return buildRootCmd(&rootCommander{})
}

func buildRootCmd(cmder *rootCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "nim-proxy",
		Short:         "OpenAI to NVIDIA NIM proxy",
		Long:          rootLongDesc,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.log = logger.New()
			cfg, err := config.Load(cmder.configPath)
			if err != nil {
				cmder.log.Error().Err(err).Msg("Failed to load configuration")
				return err
			}
			cmder.applyFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				cmder.log.Error().Err(err).Msg("Invalid configuration")
				return err
			}
			cmder.cfg = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.serve(cmd.Context())
		},
	}

	defaults := config.Defaults()
	cmd.PersistentFlags().StringVarP(&cmder.configPath, "config", "c", "", "Path to YAML config file")
	cmd.Flags().IntVarP(&cmder.port, "port", "p", defaults.Server.Port, "Port to listen on")
	cmd.Flags().BoolVar(&cmder.showReasoning, "show-reasoning", defaults.Reasoning.Show, "Fold model reasoning into replies as <think> blocks")
	cmd.Flags().BoolVar(&cmder.thinkingMode, "thinking-mode", defaults.Reasoning.ThinkingMode, "Ask NIM to produce reasoning")

	cmd.AddCommand(newSetKeyCmd(cmder))
	return cmd
}

// applyFlags copies explicitly set flags over the loaded configuration.
func (c *rootCommander) applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Lookup("port") != nil && flags.Changed("port") {
		cfg.Server.Port = c.port
	}
	if flags.Lookup("show-reasoning") != nil && flags.Changed("show-reasoning") {
		cfg.Reasoning.Show = c.showReasoning
	}
	if flags.Lookup("thinking-mode") != nil && flags.Changed("thinking-mode") {
		cfg.Reasoning.ThinkingMode = c.thinkingMode
	}
}

func (c *rootCommander) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	creds := app.Credentials(c.cfg)
	validateCredentialsAtStartup(creds, c.log)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(c.cfg.Server.Port),
		Handler:           app.NewServer(c.cfg, creds, c.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		c.log.Info().
			Int("port", c.cfg.Server.Port).
			Str("upstream", c.cfg.Upstream.BaseURL).
			Bool("show_reasoning", c.cfg.Reasoning.Show).
			Bool("thinking_mode", c.cfg.Reasoning.ThinkingMode).
			Int("mapped_models", len(c.cfg.Models.Mapping)).
			Msg("Starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		c.log.Error().Err(err).Msg("Server failed to start")
		return err
	case <-ctx.Done():
	}

	c.log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func validateCredentialsAtStartup(creds credentials.Fetcher, log zerolog.Logger) {
	key, err := creds.APIKey()
	if err != nil {
		log.Warn().Err(err).Msg("No NIM API key found, chat completions will fail until one is configured")
		return
	}
	log.Info().Int("key_length", len(key)).Msg("NIM API key loaded")
}
