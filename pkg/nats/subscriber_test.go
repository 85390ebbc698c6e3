package nats

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	header := nats.Header{}
	header.Set("Occurred-At", ts.Format(time.RFC3339Nano))

	tests := []struct {
		name     string
		subject  string
		header   nats.Header
		data     string
		wantType string
		wantTime *time.Time
		wantErr  bool
	}{
		{name: "with timestamp", subject: Subject("RESULT_ACCEPTED"), header: header, data: `{"session_id":"s1"}`, wantType: "RESULT_ACCEPTED", wantTime: &ts},
		{name: "without header", subject: Subject("TURN_COMPLETED"), data: `{"status":"ok"}`, wantType: "TURN_COMPLETED"},
		{name: "bad payload", subject: Subject("X"), data: `not json`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := Decode(tt.subject, tt.header, []byte(tt.data))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, evt.EventType())
			assert.NotEmpty(t, evt.Payload())
			if tt.wantTime != nil {
				assert.True(t, tt.wantTime.Equal(evt.Timestamp()))
			}
		})
	}
}
