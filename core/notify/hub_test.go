package notify

import (
	"encoding/json"
	"testing"
	"time"

	"TuneLib/core/library"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func receive(t *testing.T, c *Client) library.Event {
	t.Helper()
	select {
	case msg, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var evt library.Event
		require.NoError(t, json.Unmarshal(msg, &evt))
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return library.Event{}
	}
}

func TestHub_PublishReachesAllConnectionsOfUser(t *testing.T) {
	hub := startHub(t)

	tab1 := NewClient(hub, nil, "a@x.com")
	tab2 := NewClient(hub, nil, "a@x.com")
	other := NewClient(hub, nil, "b@x.com")
	hub.Register(tab1)
	hub.Register(tab2)
	hub.Register(other)

	hub.Publish("a@x.com", library.Event{Type: library.EventLiked, SongID: 42, Timestamp: 1})

	for _, c := range []*Client{tab1, tab2} {
		evt := receive(t, c)
		assert.Equal(t, library.EventLiked, evt.Type)
		assert.Equal(t, int64(42), evt.SongID)
	}

	assert.Eventually(t, func() bool { return hub.ConnectionCount("a@x.com") == 2 }, time.Second, 10*time.Millisecond)
	select {
	case <-other.Send:
		t.Fatal("event leaked to another user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := startHub(t)

	c := NewClient(hub, nil, "a@x.com")
	hub.Register(c)
	assert.Eventually(t, func() bool { return hub.ConnectionCount("a@x.com") == 1 }, time.Second, 10*time.Millisecond)

	hub.Unregister(c)
	_, ok := <-c.Send
	assert.False(t, ok, "send channel is closed on unregister")
	assert.Equal(t, 0, hub.ConnectionCount("a@x.com"))

	// 重复注销不会 panic
	hub.Unregister(c)
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	hub := startHub(t)

	c := NewClient(hub, nil, "slow@x.com")
	hub.Register(c)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.Publish("slow@x.com", library.Event{Type: library.EventPlaylistAdd, SongID: int64(i)})
	}

	assert.Eventually(t, func() bool { return hub.ConnectionCount("slow@x.com") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_ImplementsNotifier(t *testing.T) {
	var _ library.Notifier = NewHub()
}
