package events

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_RoundTrip(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	messages, err := pubSub.Subscribe(ctx, PipelineTopic)
	require.NoError(t, err)

	bus := NewBus(pubSub, PipelineTopic)
	evt := NewPipelineEvent(TypeStageEntered, "s-1", map[string]interface{}{"stage": "FETCH"})
	require.NoError(t, bus.Publish(ctx, evt))

	select {
	case msg := <-messages:
		got, err := Decode(msg)
		require.NoError(t, err)
		msg.Ack()
		assert.Equal(t, TypeStageEntered, got.EventType())
		assert.Equal(t, "FETCH", got.Payload()["stage"])
		assert.Equal(t, "s-1", got.Payload()["session_id"])
		assert.Equal(t, TypeStageEntered, msg.Metadata.Get("event_type"))
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
