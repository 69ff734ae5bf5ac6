package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublishing(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	msg, err := newPublishing(map[string]any{"order_id": "o1", "total": "400.00"}, now)
	require.NoError(t, err)

	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, now, msg.Timestamp)

	var body map[string]string
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "o1", body["order_id"])
}

func TestNewPublishingRejectsUnmarshalable(t *testing.T) {
	_, err := newPublishing(map[string]any{"bad": make(chan int)}, time.Now())
	assert.Error(t, err)
}
