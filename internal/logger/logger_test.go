package logger

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSanitizeValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value interface{}
		check func(t *testing.T, got interface{})
	}{
		{
			name:  "session token redacted",
			key:   "session_token",
			value: "abc123",
			check: func(t *testing.T, got interface{}) { assert.Equal(t, "[REDACTED]", got) },
		},
		{
			name:  "phone hashed",
			key:   "phone",
			value: "01012345678",
			check: func(t *testing.T, got interface{}) {
				s, ok := got.(string)
				require.True(t, ok)
				assert.True(t, strings.HasPrefix(s, "hash:"))
				assert.NotContains(t, s, "01012345678")
			},
		},
		{
			name:  "plain value passes through",
			key:   "chapter_id",
			value: "rec123",
			check: func(t *testing.T, got interface{}) { assert.Equal(t, "rec123", got) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, sanitizeValue(tt.key, tt.value))
		})
	}
}

func TestLoggerRedactsKeyValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("admin login", "password", "hunter2", "username", "admin")

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["password"])
	assert.Equal(t, "admin", fields["username"])
}
