package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive[T any](t *testing.T, s *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.C():
		require.True(t, ok, "subscription closed")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
	}
	var zero T
	return zero
}

func TestTopic_DeliversInPublishOrder(t *testing.T) {
	topic := NewTopic[int]()
	sub := topic.Subscribe()
	defer sub.Close()

	for i := 0; i < 100; i++ {
		topic.Publish(i)
	}
	for i := 0; i < 100; i++ {
		assert.Equal(t, i, receive(t, sub))
	}
}

func TestTopic_InitialValuesComeFirst(t *testing.T) {
	topic := NewTopic[string]()
	sub := topic.Subscribe("snapshot")
	defer sub.Close()

	topic.Publish("next")

	assert.Equal(t, "snapshot", receive(t, sub))
	assert.Equal(t, "next", receive(t, sub))
}

func TestTopic_SlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	topic := NewTopic[int]()
	slow := topic.Subscribe()
	defer slow.Close()
	fast := topic.Subscribe()
	defer fast.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			topic.Publish(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on an unread subscriber")
	}
	assert.Equal(t, 0, receive(t, fast))
	assert.Equal(t, 0, receive(t, slow))
}

func TestTopic_CloseEndsSubscriptions(t *testing.T) {
	topic := NewTopic[int]()
	sub := topic.Subscribe()

	topic.Close()

	select {
	case _, ok := <-sub.C():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed")
	}

	late := topic.Subscribe(1)
	select {
	case _, ok := <-late.C():
		if ok {
			// the pump may deliver the initial value before observing done
			_, ok = <-late.C()
		}
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("late subscription not closed")
	}
}
