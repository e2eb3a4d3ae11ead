package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func TestPublishNotification(t *testing.T) {
	type accountMsg struct {
		Recipient string `json:"recipient"`
		Kind      string `json:"kind"`
		Token     string `json:"token"`
	}
	msg := accountMsg{Recipient: "user@example.com", Kind: "password_reset", Token: "signed-token"}

	t.Run("success", func(t *testing.T) {
		ch := new(MockChannel)
		var published amqp.Publishing
		ch.On("Publish", NotificationsExchange, AccountRoutingKey, false, false, mock.Anything).
			Run(func(args mock.Arguments) { published = args.Get(4).(amqp.Publishing) }).
			Return(nil).Once()

		err := PublishNotification(context.Background(), ch, AccountRoutingKey, msg.Kind, msg)
		require.NoError(t, err)
		ch.AssertExpectations(t)

		var got accountMsg
		require.NoError(t, json.Unmarshal(published.Body, &got))
		assert.Equal(t, msg, got)
		assert.Equal(t, "application/json", published.ContentType)
		assert.Equal(t, amqp.Persistent, published.DeliveryMode)
		assert.Equal(t, "password_reset", published.Type)
		assert.NotEmpty(t, published.MessageId)
		assert.False(t, published.Timestamp.IsZero())
	})

	t.Run("message ids are unique", func(t *testing.T) {
		ch := new(MockChannel)
		var ids []string
		ch.On("Publish", mock.Anything, mock.Anything, false, false, mock.Anything).
			Run(func(args mock.Arguments) { ids = append(ids, args.Get(4).(amqp.Publishing).MessageId) }).
			Return(nil).Twice()

		require.NoError(t, PublishNotification(context.Background(), ch, AccountRoutingKey, msg.Kind, msg))
		require.NoError(t, PublishNotification(context.Background(), ch, AccountRoutingKey, msg.Kind, msg))
		require.Len(t, ids, 2)
		assert.NotEqual(t, ids[0], ids[1])
	})

	t.Run("marshal error", func(t *testing.T) {
		ch := new(MockChannel)
		// В json marshal нельзя сериализовать канал
		badMsg := struct {
			Ch chan int `json:"ch"`
		}{
			Ch: make(chan int),
		}

		err := PublishNotification(context.Background(), ch, AccountRoutingKey, "bad", badMsg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "rabbitmq.PublishNotification")
		ch.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("canceled context", func(t *testing.T) {
		ch := new(MockChannel)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := PublishNotification(ctx, ch, AccountRoutingKey, msg.Kind, msg)
		assert.ErrorIs(t, err, context.Canceled)
		ch.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish error", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("Publish", mock.Anything, mock.Anything, false, false, mock.Anything).
			Return(errors.New("channel closed")).Once()

		err := PublishNotification(context.Background(), ch, AccountRoutingKey, msg.Kind, msg)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "channel closed")
	})
}
