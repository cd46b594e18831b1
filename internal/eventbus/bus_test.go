package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/signaldock/signaldock/internal/model"
)

func testEvent(sourceType string) model.SignalEvent {
	return model.NewSignalEvent(sourceType, "test", model.EventValueChanged, map[string]any{"x": 1}, nil)
}

func TestBus_PublishDeliversToSubscriber(t *testing.T) {
	b := New(nil)
	ch := b.Subscribe(4)

	b.Publish(testEvent("cpu"))

	select {
	case e := <-ch:
		require.Equal(t, "cpu", e.SourceType)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_PublishOnNilIsNoop(t *testing.T) {
	var b *Bus
	require.NotPanics(t, func() { b.Publish(testEvent("cpu")) })
}

func TestBus_DropsWhenFullAndCounts(t *testing.T) {
	b := New(nil)
	ch := b.Subscribe(1)

	b.Publish(testEvent("cpu"))
	b.Publish(testEvent("cpu")) // channel already full, dropped

	require.Equal(t, int64(1), b.DroppedCount())
	<-ch // drain the one delivered event
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	b := New(nil)
	ch := b.Subscribe(1)
	b.Unsubscribe(ch)

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after Unsubscribe")
	require.Equal(t, 0, b.SubscriberCount())
}

func TestBus_MultipleSubscribersEachReceive(t *testing.T) {
	b := New(nil)
	a := b.Subscribe(2)
	c := b.Subscribe(2)

	b.Publish(testEvent("battery"))

	select {
	case <-a:
	case <-time.After(time.Second):
		t.Fatal("subscriber a missed event")
	}
	select {
	case <-c:
	case <-time.After(time.Second):
		t.Fatal("subscriber c missed event")
	}
}
