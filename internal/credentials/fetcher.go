package credentials

import "errors"

// ErrMissingAPIKey is returned when no NIM API key is configured. Calls that
// hit it fail as a whole before anything is sent upstream.
var ErrMissingAPIKey = errors.New("NIM API key is not configured")

// Fetcher supplies the API key used to authenticate against NVIDIA NIM
type Fetcher interface {
	APIKey() (string, error)
}

// Chain tries each fetcher in order and returns the first key found. When
// none has a key, the first failure other than ErrMissingAPIKey is reported.
type Chain []Fetcher

func (c Chain) APIKey() (string, error) {
	var firstErr error
	for _, f := range c {
		key, err := f.APIKey()
		if err == nil {
			return key, nil
		}
		if firstErr == nil && !errors.Is(err, ErrMissingAPIKey) {
			firstErr = err
		}
	}
	if firstErr != nil {
		return "", firstErr
	}
	return "", ErrMissingAPIKey
}
