package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDevelopment(t *testing.T) {
	for _, mode := range []string{"", "dev", "development"} {
		assert.True(t, isDevelopment(mode), mode)
	}
	for _, mode := range []string{"production", "prod", "staging"} {
		assert.False(t, isDevelopment(mode), mode)
	}
}

func TestSetLevel(t *testing.T) {
	orig := zerolog.GlobalLevel()
	t.Cleanup(func() { zerolog.SetGlobalLevel(orig) })

	assert.True(t, SetLevel(" WARN "))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())

	assert.False(t, SetLevel("loud"))
	assert.Equal(t, zerolog.WarnLevel, zerolog.GlobalLevel())
}

func TestNewProduction(t *testing.T) {
	var buf bytes.Buffer
	log := NewProduction(&buf)
	log.Info().Str("model", "gpt-4o").Msg("resolved")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "gpt-4o", line["model"])
	assert.Equal(t, "resolved", line["message"])
	assert.Contains(t, line, "time")
}

func TestNewDevelopment(t *testing.T) {
	var buf bytes.Buffer
	log := NewDevelopment(&buf)
	log.Warn().Msg("probe failed")

	out := buf.String()
	assert.Contains(t, out, "WRN")
	assert.True(t, strings.Contains(out, "probe failed"))
}
