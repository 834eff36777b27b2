package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	application "wrightstv/contexts/elections/stv-counting/application"
	"wrightstv/contexts/elections/stv-counting/ports"
)

// OutboxRelay publishes persisted outbox records to the event bus.
type OutboxRelay struct {
	Outbox    ports.OutboxRepository
	Publisher ports.EventPublisher
	Clock     ports.Clock
	BatchSize int
	Logger    *slog.Logger
}

// RunOnce publishes a bounded batch of pending outbox rows in write order and
// marks each row published once the bus has taken it. A row that fails holds
// back the rest of its election's rows for this cycle, so an election's
// events never overtake each other, while other elections keep flowing.
func (r OutboxRelay) RunOnce(ctx context.Context) error {
	logger := application.ResolveLogger(r.Logger)
	limit := r.BatchSize
	if limit <= 0 {
		limit = 100
	}

	pending, err := r.Outbox.ListPendingOutbox(ctx, limit)
	if err != nil {
		logger.Error("election outbox list failed",
			"event", "stv_outbox_list_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"error", err.Error(),
		)
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	now := time.Now().UTC()
	if r.Clock != nil {
		now = r.Clock.Now().UTC()
	}

	held := make(map[string]bool)
	var failures []error
	published := 0
	for _, row := range pending {
		electionID := row.PartitionKey
		if held[electionID] {
			continue
		}
		if err := r.relay(ctx, row, now); err != nil {
			logger.Error("election outbox row held back",
				"event", "stv_outbox_row_failed",
				"module", application.ModuleName,
				"layer", "worker",
				"outbox_id", row.OutboxID,
				"election_id", electionID,
				"event_type", row.EventType,
				"error", err.Error(),
			)
			held[electionID] = true
			failures = append(failures, fmt.Errorf("election %s: %w", electionID, err))
			continue
		}
		published++
	}

	logger.Info("election outbox relay cycle completed",
		"event", "stv_outbox_relay_completed",
		"module", application.ModuleName,
		"layer", "worker",
		"published_count", published,
		"held_elections", len(held),
	)
	return errors.Join(failures...)
}

func (r OutboxRelay) relay(ctx context.Context, row ports.OutboxMessage, now time.Time) error {
	var event ports.EventEnvelope
	if err := json.Unmarshal(row.Payload, &event); err != nil {
		return fmt.Errorf("decode outbox row %s: %w", row.OutboxID, err)
	}
	if event.PartitionKey == "" {
		event.PartitionKey = row.PartitionKey
	}
	topic := event.EventType
	if topic == "" {
		topic = row.EventType
	}
	if err := r.Publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s: %w", event.EventID, err)
	}
	return r.Outbox.MarkOutboxPublished(ctx, row.OutboxID, now)
}
