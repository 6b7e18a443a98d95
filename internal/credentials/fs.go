package credentials

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

type fsKey struct {
	APIKey string `json:"api_key"`
}

// FSFetcher reads the API key from a file on every call. The file holds
// either the bare key or a JSON object {"api_key": "..."}.
type FSFetcher struct {
	Path string
}

func NewFSFetcher(path string) *FSFetcher {
	return &FSFetcher{Path: path}
}

func (f *FSFetcher) APIKey() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("failed to read API key file: %w", err)
	}
	b = bytes.TrimSpace(b)

	key := string(b)
	if bytes.HasPrefix(b, []byte("{")) {
		var k fsKey
		if err := json.Unmarshal(b, &k); err != nil {
			return "", fmt.Errorf("failed to parse API key file: %w", err)
		}
		key = k.APIKey
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("%s: %w", f.Path, ErrMissingAPIKey)
	}
	return key, nil
}

// WriteKeyFile stores key at path as JSON, creating parent directories.
func WriteKeyFile(path, key string) error {
	if err := EnsureParentDir(path); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fsKey{APIKey: key}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal API key file: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write API key file: %w", err)
	}
	return nil
}
