package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	WriteMessagesFunc func(ctx context.Context, msgs ...kafka.Message) error
	closed            bool
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.WriteMessagesFunc(ctx, msgs...)
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestPublisher_Publish(t *testing.T) {
	var got []kafka.Message
	w := &mockWriter{
		WriteMessagesFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			got = append(got, msgs...)
			return nil
		},
	}
	p := NewPublisher(w)

	err := p.Publish(context.Background(), "order-1", map[string]string{"type": "order.placed"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, "order-1", string(got[0].Key))
	var body map[string]string
	require.NoError(t, json.Unmarshal(got[0].Value, &body))
	assert.Equal(t, "order.placed", body["type"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_PublishWriteError(t *testing.T) {
	w := &mockWriter{
		WriteMessagesFunc: func(ctx context.Context, msgs ...kafka.Message) error {
			return errors.New("broker down")
		},
	}

	err := NewPublisher(w).Publish(context.Background(), "k", struct{}{})

	assert.ErrorContains(t, err, "broker down")
}

func TestPublisher_PublishMarshalError(t *testing.T) {
	w := &mockWriter{}

	err := NewPublisher(w).Publish(context.Background(), "k", make(chan int))

	assert.ErrorContains(t, err, "marshaling event")
}
