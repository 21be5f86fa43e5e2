package bus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New(4)
	ch, cancel := b.Subscribe("transactions")
	defer cancel()

	b.Publish("transactions", []byte("hello"))

	select {
	case msg := <-ch:
		assert.Equal(t, "hello", string(msg))
	case <-time.After(time.Second):
		t.Fatal("did not receive published message")
	}
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	b := New(4)
	ch1, cancel1 := b.Subscribe("topic")
	ch2, cancel2 := b.Subscribe("topic")
	defer cancel1()
	defer cancel2()

	b.Publish("topic", []byte("x"))

	for _, ch := range []<-chan []byte{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive message")
		}
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New(4)
	ch, cancel := b.Subscribe("topic")
	cancel()

	b.Publish("topic", []byte("x"))

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after cancel")
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	b := New(1)
	_, cancel := b.Subscribe("topic")
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			b.Publish("topic", []byte("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber buffer")
	}
}

func TestPublishReturnsNilWithNoSubscribers(t *testing.T) {
	b := New(4)
	assert.NoError(t, b.Publish("nobody-listening", []byte("x")))
}

func TestPublishReturnsErrorWhenEverySubscriberIsFull(t *testing.T) {
	b := New(1)
	ch, cancel := b.Subscribe("topic")
	defer cancel()

	require.NoError(t, b.Publish("topic", []byte("first"))) // fills the buffer
	assert.ErrorIs(t, b.Publish("topic", []byte("second")), ErrAllSubscribersBlocked)

	<-ch // drain so the deferred cancel doesn't race a full channel
}

func TestPublishReturnsNilWhenAtLeastOneSubscriberReceives(t *testing.T) {
	b := New(1)
	full, cancelFull := b.Subscribe("topic")
	empty, cancelEmpty := b.Subscribe("topic")
	defer cancelFull()
	defer cancelEmpty()

	require.NoError(t, b.Publish("topic", []byte("fill"))) // both buffers now hold one message
	<-empty                                                // drain only "empty", leaving "full" still full

	assert.NoError(t, b.Publish("topic", []byte("x")), "empty subscriber still received it")

	<-full
	<-empty
}
