package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeKVsRedactsSecrets(t *testing.T) {
	out := sanitizeKVs([]interface{}{"dataset", "ferag-00001", "fuseki_password", "hunter2", "Authorization", "Basic abc"})
	require.Len(t, out, 6)
	assert.Equal(t, "ferag-00001", out[1])
	assert.Equal(t, "[REDACTED]", out[3])
	assert.Equal(t, "[REDACTED]", out[5])
}

func TestSanitizeKVsOddLength(t *testing.T) {
	out := sanitizeKVs([]interface{}{"task_id", 7, "dangling"})
	assert.Equal(t, []interface{}{"task_id", 7, "dangling"}, out)
}

func TestNewWithLevelRejectsUnknownLevel(t *testing.T) {
	_, err := NewWithLevel("development", "loud")
	require.Error(t, err)

	log, err := NewWithLevel("production", "warn")
	require.NoError(t, err)
	log.Info("suppressed")
	log.Sync()
}
