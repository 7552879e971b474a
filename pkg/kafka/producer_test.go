package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestProducerPublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w, "snappy")

	err := p.Publish(context.Background(), "regime.snapshots", []byte("k"), map[string]int{"seq": 3})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "regime.snapshots", w.msgs[0].Topic)
	assert.Equal(t, []byte("k"), w.msgs[0].Key)
	assert.JSONEq(t, `{"seq":3}`, string(w.msgs[0].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerPublishWrapsWriterError(t *testing.T) {
	boom := errors.New("broker down")
	p := newProducer(&fakeWriter{err: boom}, "snappy")

	err := p.Publish(context.Background(), "regime.logs", nil, "raw")
	assert.ErrorIs(t, err, boom)
}
