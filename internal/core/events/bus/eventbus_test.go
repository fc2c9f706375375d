package bus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_DeliversInSubscriptionOrder(t *testing.T) {
	b := New()
	var order []int
	for i := 0; i < 3; i++ {
		i := i
		_, err := b.Subscribe("ship.destroyed", func(Event) error {
			order = append(order, i)
			return nil
		})
		require.NoError(t, err)
	}

	require.NoError(t, b.Publish(NewEvent("ship.destroyed", "test", nil, nil)))
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, uint64(3), b.GetMetrics().DeliveredHandlers)
}

func TestPublish_JoinsHandlerErrors(t *testing.T) {
	b := New()
	first := errors.New("first")
	second := errors.New("second")
	_, _ = b.Subscribe("x", func(Event) error { return first })
	_, _ = b.Subscribe("x", func(Event) error { return second })

	err := b.Publish(NewEvent("x", "test", nil, nil))
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
	assert.Equal(t, uint64(1), b.GetMetrics().Errors)
}

func TestUnsubscribe_StopsDelivery(t *testing.T) {
	b := New()
	calls := 0
	sub, err := b.Subscribe("x", func(Event) error { calls++; return nil })
	require.NoError(t, err)

	require.NoError(t, b.Publish(NewEvent("x", "test", nil, nil)))
	require.NoError(t, b.Unsubscribe(sub))
	require.NoError(t, sub.Cancel())
	require.NoError(t, b.Publish(NewEvent("x", "test", nil, nil)))

	assert.Equal(t, 1, calls)
	assert.False(t, sub.IsActive())
	assert.Zero(t, b.GetMetrics().SubscribersActive)
	assert.NoError(t, b.Unsubscribe(nil))
}

func TestPublish_CancelDuringDelivery(t *testing.T) {
	b := New()
	var second Subscription
	secondCalls := 0
	_, _ = b.Subscribe("x", func(Event) error {
		return second.Cancel()
	})
	second, _ = b.Subscribe("x", func(Event) error { secondCalls++; return nil })

	require.NoError(t, b.Publish(NewEvent("x", "test", nil, nil)))
	assert.Zero(t, secondCalls)
}

func TestPublishWithFilters(t *testing.T) {
	b := New()
	calls := 0
	_, _ = b.Subscribe("x", func(Event) error { calls++; return nil })

	reject := func(Event) bool { return false }
	require.NoError(t, b.PublishWithFilters(NewEvent("x", "test", nil, nil), reject))
	assert.Zero(t, calls)
	assert.Equal(t, uint64(1), b.GetMetrics().DroppedByFilters)
}
