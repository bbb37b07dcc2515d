package websocket

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distrack-profile/internal/domain"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	go hub.Run()
	t.Cleanup(hub.Stop)
	return hub
}

func newTestClient(hub *Hub, id string) *Client {
	return &Client{
		id:   id,
		hub:  hub,
		send: make(chan []byte, 8),
	}
}

func receiveMessage(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case frame := <-c.send:
		var msg Message
		require.NoError(t, json.Unmarshal(frame, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHubRoutesRankUpdatesToWatchers(t *testing.T) {
	hub := newTestHub(t)

	watcher := newTestClient(hub, "watcher")
	other := newTestClient(hub, "other")
	hub.Register(watcher)
	hub.Register(other)

	hub.Watch(watcher, "u1")
	require.Eventually(t, func() bool {
		return hub.GetWatcherCount("u1") == 1
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastRank("u1", domain.LeaderboardEntry{
		Rank:         2,
		UserID:       "u1",
		TotalSeconds: 5400,
	})

	msg := receiveMessage(t, watcher)
	assert.Equal(t, MessageTypeRankUpdate, msg.Type)
	assert.Equal(t, "u1", msg.UserID)

	select {
	case frame := <-other.send:
		t.Fatalf("non-watcher received rank update: %s", frame)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubBroadcastsLeaderboardToAll(t *testing.T) {
	hub := newTestHub(t)

	a := newTestClient(hub, "a")
	b := newTestClient(hub, "b")
	hub.Register(a)
	hub.Register(b)
	require.Eventually(t, func() bool {
		return hub.GetTotalConnections() == 2
	}, time.Second, 10*time.Millisecond)

	hub.BroadcastLeaderboard([]domain.LeaderboardEntry{
		{Rank: 1, UserID: "u1", TotalSeconds: 9000},
	}, 42)

	for _, c := range []*Client{a, b} {
		msg := receiveMessage(t, c)
		assert.Equal(t, MessageTypeLeaderboardUpdate, msg.Type)
	}
}

func TestHubUnwatchAndUnregisterDropWatchers(t *testing.T) {
	hub := newTestHub(t)

	c := newTestClient(hub, "c")
	hub.Register(c)

	hub.Watch(c, "u1")
	require.Eventually(t, func() bool {
		return hub.GetWatcherCount("u1") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Unwatch(c, "u1")
	require.Eventually(t, func() bool {
		return hub.GetWatcherCount("u1") == 0
	}, time.Second, 10*time.Millisecond)

	hub.Watch(c, "u2")
	require.Eventually(t, func() bool {
		return hub.GetWatcherCount("u2") == 1
	}, time.Second, 10*time.Millisecond)

	hub.Unregister(c)
	require.Eventually(t, func() bool {
		return hub.GetTotalConnections() == 0 && hub.GetWatcherCount("u2") == 0
	}, time.Second, 10*time.Millisecond)
}
