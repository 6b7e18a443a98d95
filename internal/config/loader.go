package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/traian1744/openai-nim-proxy/internal/env"
)

const (
	ConfigPathEnvVar  = "NIM_PROXY_CONFIG"
	defaultConfigFile = "nim-proxy.yaml"
)

// Load builds the configuration in layers:
//  1. Built-in defaults
//  2. YAML file (explicit path, NIM_PROXY_CONFIG, ./nim-proxy.yaml)
//  3. Environment variable overrides
//  4. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	if path := discoverConfigFile(configPath); path != "" {
		if err := loadYAMLFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return &cfg, nil
}

func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}
	if p, ok := env.Get(ConfigPathEnvVar); ok && p != "" {
		return p
	}
	if _, err := os.Stat(defaultConfigFile); err == nil {
		return defaultConfigFile
	}
	return ""
}

// loadYAMLFile decodes path over cfg. Keys absent from the file keep their
// current values, except models.mapping which replaces the default table
// when present.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var probe struct {
		Models struct {
			Mapping map[string]string `yaml:"mapping"`
		} `yaml:"models"`
	}
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Models.Mapping != nil {
		cfg.Models.Mapping = nil
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnvOverrides(cfg *Config) error {
	if v, ok := env.Get("NIM_API_BASE"); ok && v != "" {
		cfg.Upstream.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := env.Get("NIM_API_KEY_FILE"); ok && v != "" {
		cfg.Upstream.APIKeyFile = v
	}
	if v, ok := env.Get("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	flags := []struct {
		name string
		dst  *bool
	}{
		{"SHOW_REASONING", &cfg.Reasoning.Show},
		{"ENABLE_THINKING_MODE", &cfg.Reasoning.ThinkingMode},
		{"CLOSE_REASONING_ON_STREAM_END", &cfg.Reasoning.CloseOnStreamEnd},
		{"METRICS_ENABLED", &cfg.Metrics.Enabled},
	}
	for _, f := range flags {
		v, ok := env.Get(f.name)
		if !ok || v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = b
	}
	return nil
}
