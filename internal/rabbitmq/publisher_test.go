package rabbitmq

import (
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (f *fakeChannel) Publish(exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.exchange = exchange
	f.key = key
	f.msg = msg
	return f.err
}

func TestPublishMessage(t *testing.T) {
	ch := &fakeChannel{}
	err := PublishMessage(ch, "analytics", "beat.downloaded", map[string]string{"beat_id": "b1"})
	require.NoError(t, err)

	assert.Equal(t, "analytics", ch.exchange)
	assert.Equal(t, "beat.downloaded", ch.key)
	assert.Equal(t, "application/json", ch.msg.ContentType)
	assert.Equal(t, uint8(amqp.Persistent), ch.msg.DeliveryMode)
	assert.JSONEq(t, `{"beat_id":"b1"}`, string(ch.msg.Body))
}

func TestPublishMessage_PublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	err := PublishMessage(ch, "analytics", "beat.downloaded", "x")
	assert.ErrorContains(t, err, "rabbitmq.PublishMessage")
}

func TestPublishMessage_MarshalError(t *testing.T) {
	ch := &fakeChannel{}
	err := PublishMessage(ch, "analytics", "beat.downloaded", make(chan int))
	assert.Error(t, err)
	assert.Empty(t, ch.exchange, "nothing must be published")
}
