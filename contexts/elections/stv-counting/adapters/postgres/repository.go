package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"wrightstv/contexts/elections/stv-counting/domain/entities"
	domainerrors "wrightstv/contexts/elections/stv-counting/domain/errors"
	"wrightstv/contexts/elections/stv-counting/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Migrate creates or updates the module tables.
func (r *Repository) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(
		&electionModel{},
		&candidateModel{},
		&ballotModel{},
		&countResultModel{},
		&idempotencyModel{},
		&outboxModel{},
	); err != nil {
		return r.logError("stv_repo_migrate_failed", err)
	}
	return nil
}

func (r *Repository) CreateElection(ctx context.Context, election entities.Election) error {
	row := electionModelFromEntity(election)
	candidates := candidateModelsFromEntity(election)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		if len(candidates) == 0 {
			return nil
		}
		return tx.Create(&candidates).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			return domainerrors.ErrConflict
		}
		return r.logError("stv_repo_create_election_failed", err,
			"election_id", strings.TrimSpace(election.ElectionID),
		)
	}
	return nil
}

func (r *Repository) GetElection(ctx context.Context, electionID string) (entities.Election, error) {
	election, err := r.loadElection(r.db.WithContext(ctx), electionID)
	if err != nil {
		if errors.Is(err, domainerrors.ErrElectionNotFound) {
			return entities.Election{}, err
		}
		return entities.Election{}, r.logError("stv_repo_get_election_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return election, nil
}

// CloseElection takes the election row lock, so it waits for ballots still
// being saved and every later SaveBallot sees the closed status.
func (r *Repository) CloseElection(ctx context.Context, electionID string, at time.Time) (entities.Election, error) {
	electionID = strings.TrimSpace(electionID)
	var election entities.Election
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row electionModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", electionID).
			First(&row).Error; err != nil {
			return err
		}
		if row.Status == string(entities.ElectionStatusOpen) {
			if err := tx.Model(&electionModel{}).
				Where("id = ?", electionID).
				Updates(map[string]any{
					"status":     string(entities.ElectionStatusClosed),
					"updated_at": at.UTC(),
				}).Error; err != nil {
				return err
			}
		}
		loaded, err := r.loadElection(tx, electionID)
		if err != nil {
			return err
		}
		election = loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, domainerrors.ErrElectionNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, r.logError("stv_repo_close_election_failed", err,
			"election_id", electionID,
		)
	}
	return election, nil
}

// SaveBallot holds a share lock on the election row while inserting, so a
// ballot either lands before CloseElection or is refused.
func (r *Repository) SaveBallot(ctx context.Context, ballot entities.Ballot) error {
	row, err := ballotModelFromEntity(ballot)
	if err != nil {
		return r.logError("stv_repo_save_ballot_marshal_failed", err,
			"ballot_id", strings.TrimSpace(ballot.BallotID),
		)
	}
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var election electionModel
		if err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Where("id = ?", row.ElectionID).
			First(&election).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainerrors.ErrElectionNotFound
			}
			return err
		}
		if election.Status != string(entities.ElectionStatusOpen) {
			return domainerrors.ErrElectionClosed
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, domainerrors.ErrElectionNotFound), errors.Is(err, domainerrors.ErrElectionClosed):
			return err
		case isUniqueViolation(err):
			return domainerrors.ErrAlreadyVoted
		}
		return r.logError("stv_repo_save_ballot_failed", err,
			"ballot_id", row.ID,
			"election_id", row.ElectionID,
		)
	}
	return nil
}

func (r *Repository) GetBallot(ctx context.Context, ballotID string) (entities.Ballot, error) {
	var row ballotModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(ballotID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Ballot{}, domainerrors.ErrInvalidBallot
		}
		return entities.Ballot{}, r.logError("stv_repo_get_ballot_failed", err,
			"ballot_id", strings.TrimSpace(ballotID),
		)
	}
	return row.toEntity()
}

func (r *Repository) ListBallots(ctx context.Context, electionID string) ([]entities.Ballot, error) {
	var rows []ballotModel
	if err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Order("cast_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("stv_repo_list_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	items := make([]entities.Ballot, 0, len(rows))
	for _, row := range rows {
		ballot, err := row.toEntity()
		if err != nil {
			return nil, r.logError("stv_repo_decode_ballot_failed", err, "ballot_id", row.ID)
		}
		items = append(items, ballot)
	}
	return items, nil
}

func (r *Repository) CountBallots(ctx context.Context, electionID string) (int, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&ballotModel{}).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		Count(&count).Error; err != nil {
		return 0, r.logError("stv_repo_count_ballots_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	return int(count), nil
}

// RecordCount inserts the result and flips the election to counted in one
// transaction.
func (r *Repository) RecordCount(ctx context.Context, result entities.CountResult) (entities.Election, error) {
	row, err := countResultModelFromEntity(result)
	if err != nil {
		return entities.Election{}, r.logError("stv_repo_save_result_marshal_failed", err,
			"election_id", strings.TrimSpace(result.ElectionID),
		)
	}
	countedAt := result.CountedAt.UTC()
	var election entities.Election
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		create := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "election_id"}},
			DoNothing: true,
		}).Create(&row)
		if create.Error != nil {
			return create.Error
		}
		if create.RowsAffected == 0 {
			return domainerrors.ErrConflict
		}
		update := tx.Model(&electionModel{}).
			Where("id = ?", row.ElectionID).
			Updates(map[string]any{
				"status":     string(entities.ElectionStatusCounted),
				"updated_at": countedAt,
				"counted_at": countedAt,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return domainerrors.ErrElectionNotFound
		}
		loaded, err := r.loadElection(tx, row.ElectionID)
		if err != nil {
			return err
		}
		election = loaded
		return nil
	})
	if err != nil {
		if errors.Is(err, domainerrors.ErrConflict) || errors.Is(err, domainerrors.ErrElectionNotFound) {
			return entities.Election{}, err
		}
		return entities.Election{}, r.logError("stv_repo_record_count_failed", err,
			"election_id", row.ElectionID,
		)
	}
	return election, nil
}

func (r *Repository) GetResult(ctx context.Context, electionID string) (entities.CountResult, bool, error) {
	var row countResultModel
	err := r.db.WithContext(ctx).
		Where("election_id = ?", strings.TrimSpace(electionID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CountResult{}, false, nil
		}
		return entities.CountResult{}, false, r.logError("stv_repo_get_result_failed", err,
			"election_id", strings.TrimSpace(electionID),
		)
	}
	result, err := row.toEntity()
	if err != nil {
		return entities.CountResult{}, false, r.logError("stv_repo_decode_result_failed", err,
			"election_id", row.ElectionID,
		)
	}
	return result, true, nil
}

func (r *Repository) Get(ctx context.Context, key string, now time.Time) (ports.IdempotencyRecord, bool, error) {
	var row idempotencyModel
	err := r.db.WithContext(ctx).
		Where("key = ?", strings.TrimSpace(key)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.IdempotencyRecord{}, false, nil
		}
		return ports.IdempotencyRecord{}, false, r.logError("stv_repo_idempotency_get_failed", err,
			"idempotency_key", strings.TrimSpace(key),
		)
	}
	if !row.ExpiresAt.UTC().After(now.UTC()) {
		if err := r.db.WithContext(ctx).
			Where("key = ?", strings.TrimSpace(key)).
			Delete(&idempotencyModel{}).Error; err != nil {
			return ports.IdempotencyRecord{}, false, r.logError("stv_repo_idempotency_expire_delete_failed", err,
				"idempotency_key", strings.TrimSpace(key),
			)
		}
		return ports.IdempotencyRecord{}, false, nil
	}
	return ports.IdempotencyRecord{
		Key:         row.Key,
		RequestHash: row.RequestHash,
		ResourceID:  row.ResourceID,
		ExpiresAt:   row.ExpiresAt.UTC(),
	}, true, nil
}

func (r *Repository) Put(ctx context.Context, record ports.IdempotencyRecord) error {
	row := idempotencyModel{
		Key:         strings.TrimSpace(record.Key),
		RequestHash: strings.TrimSpace(record.RequestHash),
		ResourceID:  strings.TrimSpace(record.ResourceID),
		ExpiresAt:   record.ExpiresAt.UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("stv_repo_idempotency_put_failed", create.Error, "idempotency_key", row.Key)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing idempotencyModel
	if err := r.db.WithContext(ctx).
		Where("key = ?", row.Key).
		First(&existing).Error; err != nil {
		return r.logError("stv_repo_idempotency_load_existing_failed", err, "idempotency_key", row.Key)
	}
	if existing.RequestHash != row.RequestHash || existing.ResourceID != row.ResourceID {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("stv_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("stv_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("stv_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrIdempotencyConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("stv_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("stv_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) loadElection(tx *gorm.DB, electionID string) (entities.Election, error) {
	var row electionModel
	if err := tx.Where("id = ?", strings.TrimSpace(electionID)).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Election{}, domainerrors.ErrElectionNotFound
		}
		return entities.Election{}, err
	}
	var candidates []candidateModel
	if err := tx.Where("election_id = ?", row.ID).
		Order("position ASC").
		Find(&candidates).Error; err != nil {
		return entities.Election{}, err
	}
	return row.toEntity(candidates), nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "elections/stv-counting",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("election repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func normalizeOptionalTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	utc := value.UTC()
	return &utc
}

var _ ports.ElectionRepository = (*Repository)(nil)
var _ ports.IdempotencyStore = (*Repository)(nil)
var _ ports.OutboxWriter = (*Repository)(nil)
var _ ports.OutboxRepository = (*Repository)(nil)
