package ports

import (
	"context"
	"time"

	contractsv1 "wrightstv/contracts/gen/events/v1"
	"wrightstv/contexts/elections/stv-counting/domain/entities"
)

// ElectionRepository guards the ballot box: SaveBallot fails with
// ErrElectionClosed once CloseElection has run, and RecordCount stores the
// result together with the counted status.
type ElectionRepository interface {
	CreateElection(ctx context.Context, election entities.Election) error
	GetElection(ctx context.Context, electionID string) (entities.Election, error)
	CloseElection(ctx context.Context, electionID string, at time.Time) (entities.Election, error)
	SaveBallot(ctx context.Context, ballot entities.Ballot) error
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error)
	ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error)
	CountBallots(ctx context.Context, electionID string) (int, error)
	RecordCount(ctx context.Context, result entities.CountResult) (entities.Election, error)
	GetResult(ctx context.Context, electionID string) (entities.CountResult, bool, error)
}

// IdempotencyRecord binds a client key to the request it first arrived with
// and the resource it produced.
type IdempotencyRecord struct {
	Key         string
	RequestHash string
	ResourceID  string
	ExpiresAt   time.Time
}

type IdempotencyStore interface {
	Get(ctx context.Context, key string, now time.Time) (IdempotencyRecord, bool, error)
	Put(ctx context.Context, record IdempotencyRecord) error
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// EventEnvelope reuses the canonical cross-runtime envelope contract.
type EventEnvelope = contractsv1.Envelope

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, EventEnvelope) error,
	) error
}
