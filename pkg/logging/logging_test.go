package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
}

func TestNewWithWriter(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "ledger", "info")

	log.Debug().Msg("hidden")
	log.Info().Str("address", "abc").Msg("record created")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "ledger", entry["role"])
	assert.Equal(t, "abc", entry["address"])
	assert.Equal(t, "record created", entry["message"])
	assert.Contains(t, entry, "func")
}

func TestChild(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(&buf, "server", "debug").Child("api")
	log.Info().Msg("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "api", entry["component"])
}

func TestFromContext(t *testing.T) {
	t.Run("no logger attached", func(t *testing.T) {
		log := FromContext(context.Background())
		require.NotNil(t, log)
		assert.Equal(t, zerolog.Disabled, log.GetLevel())
	})

	t.Run("round trip", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, "cli", "info")
		ctx := log.WithContext(context.Background())

		FromContext(ctx).Info().Msg("from ctx")
		assert.Contains(t, buf.String(), "from ctx")
	})
}
