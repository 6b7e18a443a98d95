package credentials

import (
	"strings"

	"github.com/traian1744/openai-nim-proxy/internal/env"
)

// APIKeyEnvVar names the environment variable holding the NIM API key
const APIKeyEnvVar = "NIM_API_KEY"

// EnvFetcher reads the API key from the environment on every call, so a
// rotated key is picked up without a restart
type EnvFetcher struct{}

// NewEnvFetcher creates a new environment-based fetcher
func NewEnvFetcher() *EnvFetcher {
	return &EnvFetcher{}
}

func (e *EnvFetcher) APIKey() (string, error) {
	key, _ := env.Get(APIKeyEnvVar)
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// StaticFetcher returns a key fixed at startup, typically from the config file
type StaticFetcher struct {
	key string
}

func NewStaticFetcher(key string) *StaticFetcher {
	return &StaticFetcher{key: strings.TrimSpace(key)}
}

func (s *StaticFetcher) APIKey() (string, error) {
	if s.key == "" {
		return "", ErrMissingAPIKey
	}
	return s.key, nil
}
