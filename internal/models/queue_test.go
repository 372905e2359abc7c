package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueEntryDecodingOpaqueData(t *testing.T) {
	// The data column is an opaque mapping owned by the queue producers;
	// numbers, booleans and nested objects all appear in real rows.
	raw := `{
		"id": 9,
		"user_id": "user-1",
		"title": "Reminder",
		"body": "You have items waiting",
		"data": {"count": 2, "urgent": true, "ref": {"kind": "order", "id": "o-77"}},
		"priority": 1,
		"status": "pending",
		"scheduled_for": "2026-08-28T12:00:00Z"
	}`

	var entry QueueEntry
	require.NoError(t, json.Unmarshal([]byte(raw), &entry))

	assert.Equal(t, float64(2), entry.Data["count"])
	assert.Equal(t, true, entry.Data["urgent"])

	ref, ok := entry.Data["ref"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "order", ref["kind"])
}
