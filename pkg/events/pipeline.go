package events

import "time"

// Event is anything the bus and the NATS relay can carry.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// BaseEvent is the only Event implementation; relayed events decode into it
// as well.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string               { return e.Type }
func (e BaseEvent) Payload() map[string]interface{} { return e.Data }
func (e BaseEvent) Timestamp() time.Time            { return e.OccurredAt }

// Pipeline event types published by the orchestrator.
const (
	TypeStageEntered       = "STAGE_ENTERED"
	TypeResultAccepted     = "RESULT_ACCEPTED"
	TypeResultRejected     = "RESULT_REJECTED"
	TypeReportMaterialized = "REPORT_MATERIALIZED"
	TypeReportFailed       = "REPORT_FAILED"
	TypeTurnCompleted      = "TURN_COMPLETED"
)

// PipelineTopic is the in-process topic the orchestrator publishes to.
const PipelineTopic = "pipeline.events"

const payloadSessionID = "session_id"

// NewPipelineEvent builds an event stamped now. sessionID is always part of
// the payload so consumers can route per session.
func NewPipelineEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload[payloadSessionID] = sessionID
	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: time.Now().UTC(),
	}
}

// SessionOf returns the session id carried in a pipeline event payload, or
// "" when there is none.
func SessionOf(e Event) string {
	sid, _ := e.Payload()[payloadSessionID].(string)
	return sid
}
