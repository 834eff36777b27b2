package v1

import (
	"encoding/json"
	"time"
)

// Envelope wraps every election event written to the outbox and published on
// the bus. Data holds the event-specific JSON payload; consumers key on
// EventType and route by PartitionKey, which is always the election id.
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}
