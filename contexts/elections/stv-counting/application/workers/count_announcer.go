package workers

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	application "wrightstv/contexts/elections/stv-counting/application"
	"wrightstv/contexts/elections/stv-counting/ports"
)

const (
	electionCountedTopic = "election.counted"
	defaultAnnouncerCG   = "stv-counting-announcer-cg"
)

// CountedElection is the decoded election.counted payload.
type CountedElection struct {
	ElectionID      string   `json:"election_id"`
	Quota           int      `json:"quota"`
	TotalBallots    int      `json:"total_ballots"`
	Winners         []string `json:"winners"`
	FilledByDefault bool     `json:"filled_by_default"`
	Rounds          int      `json:"rounds"`
}

// CountAnnouncer consumes election.counted events and hands each decoded
// result to Notify. Without Notify the result is only logged.
type CountAnnouncer struct {
	Subscriber    ports.EventSubscriber
	ConsumerGroup string
	Disabled      bool
	Notify        func(context.Context, CountedElection) error
	Logger        *slog.Logger
}

func (a CountAnnouncer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(a.Logger)
	if a.Disabled {
		logger.Info("count announcer disabled by feature flag",
			"event", "stv_count_announcer_disabled",
			"module", application.ModuleName,
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(a.ConsumerGroup)
	if group == "" {
		group = defaultAnnouncerCG
	}
	if err := a.Subscriber.Subscribe(ctx, electionCountedTopic, group, a.handleElectionCounted); err != nil {
		logger.Error("count announcer subscribe failed",
			"event", "stv_count_announcer_subscribe_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"topic", electionCountedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("count announcer subscription active",
		"event", "stv_count_announcer_started",
		"module", application.ModuleName,
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (a CountAnnouncer) handleElectionCounted(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(a.Logger)
	var payload CountedElection
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("election.counted payload decode failed",
			"event", "stv_election_counted_decode_failed",
			"module", application.ModuleName,
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("election result announced",
		"event", "stv_election_result_announced",
		"module", application.ModuleName,
		"layer", "worker",
		"event_id", event.EventID,
		"election_id", payload.ElectionID,
		"quota", payload.Quota,
		"winners", strings.Join(payload.Winners, ","),
		"filled_by_default", payload.FilledByDefault,
	)
	if a.Notify == nil {
		return nil
	}
	return a.Notify(ctx, payload)
}
