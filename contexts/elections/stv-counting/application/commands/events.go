package commands

import (
	"encoding/json"
	"time"

	"wrightstv/contexts/elections/stv-counting/ports"
)

const (
	EventElectionCreated = "election.created"
	EventBallotCast      = "ballot.cast"
	EventElectionCounted = "election.counted"
)

func newElectionEnvelope(
	eventID string,
	eventType string,
	electionID string,
	occurredAt time.Time,
	data map[string]any,
) (ports.EventEnvelope, error) {
	// Every event is partitioned by election so consumers see an election's
	// ballots before its count.
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "stv-counting",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: "election_id",
		PartitionKey:     electionID,
		Data:             payload,
	}, nil
}
