// Package config holds the proxy configuration and its layered loader.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Reasoning ReasoningConfig `yaml:"reasoning"`
	Models    ModelsConfig    `yaml:"models"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// UpstreamConfig describes the NIM endpoint. APIKey and APIKeyFile are
// optional; when both are empty the key is read from NIM_API_KEY per call.
type UpstreamConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	APIKeyFile     string        `yaml:"api_key_file"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
}

type ReasoningConfig struct {
	Show             bool `yaml:"show"`
	ThinkingMode     bool `yaml:"thinking_mode"`
	CloseOnStreamEnd bool `yaml:"close_on_stream_end"`
}

// ModelsConfig maps caller-facing model names to NIM model ids and names the
// fallback tiers used when neither the mapping nor a probe yields a model.
type ModelsConfig struct {
	Mapping  map[string]string `yaml:"mapping"`
	Flagship string            `yaml:"flagship"`
	Mid      string            `yaml:"mid"`
	Small    string            `yaml:"small"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

const DefaultBaseURL = "https://integrate.api.nvidia.com/v1"

// DefaultMapping returns a fresh copy of the built-in model mapping.
func DefaultMapping() map[string]string {
	return map[string]string{
		"gpt-3.5-turbo":   "nvidia/llama-3.1-nemotron-ultra-253b-v1",
		"gpt-4":           "qwen/qwen3-coder-480b-a35b-instruct",
		"gpt-4-turbo":     "moonshotai/kimi-k2-instruct-0905",
		"gpt-4o":          "deepseek-ai/deepseek-v3.1",
		"claude-3-opus":   "openai/gpt-oss-120b",
		"claude-3-sonnet": "openai/gpt-oss-20b",
		"gemini-pro":      "qwen/qwen3-next-80b-a3b-thinking",
	}
}

// Defaults returns a Config populated with the built-in values.
func Defaults() Config {
	return Config{
		Server: ServerConfig{Port: 3000},
		Upstream: UpstreamConfig{
			BaseURL:        DefaultBaseURL,
			RequestTimeout: 30 * time.Second,
			ProbeTimeout:   5 * time.Second,
		},
		Models: ModelsConfig{
			Mapping:  DefaultMapping(),
			Flagship: "meta/llama-3.1-405b-instruct",
			Mid:      "meta/llama-3.1-70b-instruct",
			Small:    "meta/llama-3.1-8b-instruct",
		},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

// Validate checks the configuration for errors. A missing API key is not one
// of them: it only fails the calls that need it.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.base_url is required"))
	} else if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("upstream.base_url %q is not an absolute URL", c.Upstream.BaseURL))
	}
	if c.Upstream.RequestTimeout <= 0 {
		errs = append(errs, errors.New("upstream.request_timeout must be positive"))
	}
	if c.Upstream.ProbeTimeout <= 0 {
		errs = append(errs, errors.New("upstream.probe_timeout must be positive"))
	}

	if c.Models.Flagship == "" || c.Models.Mid == "" || c.Models.Small == "" {
		errs = append(errs, errors.New("models.flagship, models.mid and models.small are required"))
	}
	for name, target := range c.Models.Mapping {
		if strings.TrimSpace(target) == "" {
			errs = append(errs, fmt.Errorf("models.mapping[%q] has an empty target", name))
		}
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with /, got %q", c.Metrics.Path))
	}

	return errors.Join(errs...)
}
