package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/edulink/admin-api/internal/models"
)

// RevenueRepository maintains the append-only revenue ledger.
type RevenueRepository struct {
	db *sqlx.DB
}

// NewRevenueRepository constructs the repository.
func NewRevenueRepository(db *sqlx.DB) *RevenueRepository {
	return &RevenueRepository{db: db}
}

// Insert appends a ledger entry. The transition_key unique constraint makes
// the insert idempotent: a retried dispatch after a crash lands on ON
// CONFLICT DO NOTHING instead of double-booking. Returns whether a row was
// actually written.
func (r *RevenueRepository) Insert(ctx context.Context, entry *models.RevenueEntry) (bool, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO revenue_entries (id, entity_kind, entity_id, transition_key, amount_cents, created_at)
        VALUES (:id, :entity_kind, :entity_id, :transition_key, :amount_cents, :created_at)
        ON CONFLICT (transition_key) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, entry)
	if err != nil {
		return false, fmt.Errorf("insert revenue entry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert revenue entry rows: %w", err)
	}
	return affected > 0, nil
}

// TotalCents returns the net recognized revenue across the ledger. Refund
// reversals are negative rows, so a plain SUM nets them out.
func (r *RevenueRepository) TotalCents(ctx context.Context) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount_cents), 0) FROM revenue_entries`
	var total int64
	if err := r.db.GetContext(ctx, &total, query); err != nil {
		return 0, fmt.Errorf("sum revenue: %w", err)
	}
	return total, nil
}

// ListByEntity returns the ledger rows for one workflow entity.
func (r *RevenueRepository) ListByEntity(ctx context.Context, entityID string) ([]models.RevenueEntry, error) {
	const query = `SELECT id, entity_kind, entity_id, transition_key, amount_cents, created_at
        FROM revenue_entries WHERE entity_id = $1 ORDER BY created_at ASC`
	var entries []models.RevenueEntry
	if err := r.db.SelectContext(ctx, &entries, query, entityID); err != nil {
		return nil, fmt.Errorf("list revenue entries: %w", err)
	}
	return entries, nil
}
