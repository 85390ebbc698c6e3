package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"corp-tax-agent-be/internal/pkg/logger"
	"corp-tax-agent-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_NotifyReachesOnlyTheSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(nil, logger.NewNopLogger())
	go hub.Run(ctx)

	watched, other := uuid.New(), uuid.New()
	a := &Client{Hub: hub, SessionID: watched, Send: make(chan []byte, 4)}
	b := &Client{Hub: hub, SessionID: other, Send: make(chan []byte, 4)}
	hub.register <- a
	hub.register <- b
	require.Eventually(t, func() bool { return hub.Clients(watched) == 1 && hub.Clients(other) == 1 }, time.Second, 5*time.Millisecond)

	evt := events.NewPipelineEvent(events.TypeStageEntered, watched.String(), map[string]interface{}{"stage": "FETCH"})
	hub.Notify(ctx, watched, evt)

	select {
	case raw := <-a.Send:
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, events.TypeStageEntered, msg.Type)
		assert.Equal(t, watched.String(), msg.SessionId)
		assert.Equal(t, "FETCH", msg.Data["stage"])
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
	assert.Len(t, b.Send, 0)

	hub.unregister <- a
	require.Eventually(t, func() bool { return hub.Clients(watched) == 0 }, time.Second, 5*time.Millisecond)
	_, open := <-a.Send
	assert.False(t, open)
}

func TestHub_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub(nil, logger.NewNopLogger())
	sid := uuid.New()
	c := &Client{Hub: hub, SessionID: sid, Send: make(chan []byte, 1)}
	hub.clients[sid] = []*Client{c}

	evt := events.NewPipelineEvent(events.TypeTurnCompleted, sid.String(), nil)
	hub.Notify(context.Background(), sid, evt)
	hub.Notify(context.Background(), sid, evt)

	assert.Len(t, c.Send, 1)
}
