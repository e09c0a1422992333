package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"coverage-compare-be/internal/dto"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attach(h *Hub, sessionID string, buffer int) *Client {
	c := &Client{Hub: h, SessionID: sessionID, Send: make(chan []byte, buffer)}
	h.register(c)
	return c
}

func decodeView(t *testing.T, raw []byte) dto.SessionViewResponse {
	t.Helper()
	var frame struct {
		Type string                  `json:"type"`
		Data dto.SessionViewResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, "session_view", frame.Type)
	return frame.Data
}

func TestHub_PushViewTargetsSession(t *testing.T) {
	h := NewHub(nil, nil)
	a := attach(h, "s1", 4)
	b := attach(h, "s2", 4)

	h.PushView("s1", dto.SessionViewResponse{Id: "s1"})

	require.Len(t, a.Send, 1)
	assert.Equal(t, "s1", decodeView(t, <-a.Send).Id)
	assert.Empty(t, b.Send)
}

func TestHub_DropsStalledClient(t *testing.T) {
	h := NewHub(nil, nil)
	c := attach(h, "s1", 1)

	h.PushView("s1", dto.SessionViewResponse{Id: "s1"})
	h.PushView("s1", dto.SessionViewResponse{Id: "s1"})

	assert.Equal(t, 0, h.ClientCount("s1"))
	<-c.Send
	_, open := <-c.Send
	assert.False(t, open)

	// a second unregister is a no-op
	h.unregister(c)
}

func TestHub_RunClosesClientsOnShutdown(t *testing.T) {
	h := NewHub(nil, nil)
	c := attach(h, "s1", 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Run(ctx) }()
	cancel()

	require.NoError(t, <-done)
	_, open := <-c.Send
	assert.False(t, open)
}

func TestHub_RedisFanout(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client { return redis.NewClient(&redis.Options{Addr: mr.Addr()}) }

	origin := NewHub(newClient(), nil)
	remote := NewHub(newClient(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go origin.Run(ctx)
	go remote.Run(ctx)

	local := attach(origin, "s1", 64)
	peer := attach(remote, "s1", 64)

	require.Eventually(t, func() bool {
		origin.PushView("s1", dto.SessionViewResponse{Id: "s1"})
		return len(peer.Send) > 0
	}, 2*time.Second, 50*time.Millisecond)

	assert.Equal(t, "s1", decodeView(t, <-peer.Send).Id)

	// the origin hears its own publish but must not deliver it twice
	pushes := len(local.Send)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, pushes, len(local.Send))
}
