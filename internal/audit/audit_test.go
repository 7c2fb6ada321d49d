package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestLogEmitsStructuredEvent(t *testing.T) {
	buf := captureLogs(t)

	NewSlogLogger().Log(context.Background(), Event{
		Type:       TypeSelectionProbeBlocked,
		Path:       "/business-selection",
		Reason:     "legacy-redirect-blocked",
		IPAddress:  "1.2.3.4",
		BusinessID: "biz-1",
	})

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "audit_event", record["msg"])
	assert.Equal(t, TypeSelectionProbeBlocked, record["audit_type"])
	assert.Equal(t, "/business-selection", record["path"])
	assert.Equal(t, "1.2.3.4", record["ip_address"])
	assert.NotEmpty(t, record["audit_id"])
}

func TestLogRedactsSecretMetadata(t *testing.T) {
	buf := captureLogs(t)

	NewSlogLogger().Log(context.Background(), Event{
		Type: TypeSessionValidationFailed,
		Metadata: map[string]any{
			"sessionToken": "super-secret",
			"attempted":    "/admin",
		},
	})

	out := buf.String()
	assert.NotContains(t, out, "super-secret")
	assert.Contains(t, out, "[REDACTED]")
	assert.Contains(t, out, "/admin")
}
