package audit

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Repository writes audit entries to postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs an audit repository.
func NewRepository(db *sql.DB) *Repository {
	if db == nil {
		return nil
	}
	return &Repository{db: db}
}

// Log appends one audit entry in its own transaction.
func (r *Repository) Log(ctx context.Context, entry Entry) error {
	if r == nil || r.db == nil {
		return errors.New("audit repo: nil db")
	}
	changes, err := marshalChanges(entry.Changes)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO audit_logs (entity_type, entity_id, action, actor_id, changes, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		NormalizeEntityType(entry.EntityType), entry.EntityID, entry.Action, entry.ActorID, changes, entry.CreatedAt)
	return err
}

// InsertTx appends one audit entry inside the caller's transaction, so the
// data mutation and its audit row commit or roll back as one unit.
func InsertTx(ctx context.Context, tx *sql.Tx, entry Entry) error {
	if tx == nil {
		return errors.New("audit: nil tx")
	}
	changes, err := marshalChanges(entry.Changes)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO audit_logs (entity_type, entity_id, action, actor_id, changes, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`,
		NormalizeEntityType(entry.EntityType), entry.EntityID, entry.Action, entry.ActorID, changes, entry.CreatedAt)
	return err
}
