package contracts

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent_WireShape(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ev := NewEvent(EventOrderPlaced, "o-1", map[string]any{"userId": "u-1"}, now)

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.NotEmpty(t, decoded["event_id"])
	assert.Equal(t, "order.placed", decoded["type"])
	assert.Equal(t, "o-1", decoded["order_id"])
	assert.Equal(t, "2026-01-02T03:04:05Z", decoded["created_at"])
	assert.Equal(t, "u-1", decoded["payload"].(map[string]any)["userId"])
}
