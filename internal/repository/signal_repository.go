package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
	"github.com/glyph-id/glyph/pkg/database"
	"github.com/google/uuid"
)

// signalRepository implements SignalRepository interface
type signalRepository struct {
	db *database.Postgres
}

// NewSignalRepository creates a new trust signal repository
func NewSignalRepository(db *database.Postgres) SignalRepository {
	return &signalRepository{db: db}
}

// Upsert inserts a signal or accumulates an existing
// (user, issuer, kind) row: count is incremented and weight,
// credibility and signature are refreshed from the new report.
func (r *signalRepository) Upsert(ctx context.Context, signal *domain.TrustSignal) error {
	query := `
		INSERT INTO trust_signals (
			id, user_id, issuer, kind, count, weight, independence_factor,
			credibility, jws, consent_granted, consent_scope, metadata,
			since, expires_at, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (user_id, issuer, kind) DO UPDATE SET
			count = trust_signals.count + EXCLUDED.count,
			weight = EXCLUDED.weight,
			credibility = EXCLUDED.credibility,
			jws = EXCLUDED.jws,
			metadata = EXCLUDED.metadata,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, count, consent_granted, consent_scope, since, created_at
	`

	if signal.ID == "" {
		signal.ID = uuid.New().String()
	}
	if signal.Count <= 0 {
		signal.Count = 1
	}

	now := time.Now()
	if signal.CreatedAt.IsZero() {
		signal.CreatedAt = now
	}
	signal.UpdatedAt = now
	if signal.Since.IsZero() {
		signal.Since = now
	}
	if signal.ConsentScope == nil {
		signal.ConsentScope = domain.ConsentScope{}
	}
	if signal.Metadata == nil {
		signal.Metadata = domain.Metadata{}
	}

	err := r.db.DB.QueryRowContext(ctx, query,
		signal.ID,
		signal.UserID,
		signal.Issuer,
		signal.Kind,
		signal.Count,
		signal.Weight,
		signal.IndependenceFactor,
		signal.Credibility,
		signal.JWS,
		signal.ConsentGranted,
		signal.ConsentScope,
		signal.Metadata,
		signal.Since,
		signal.ExpiresAt,
		signal.CreatedAt,
		signal.UpdatedAt,
	).Scan(
		&signal.ID,
		&signal.Count,
		&signal.ConsentGranted,
		&signal.ConsentScope,
		&signal.Since,
		&signal.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert trust signal: %w", err)
	}

	return nil
}

// ListByUser retrieves all trust signals for a user
func (r *signalRepository) ListByUser(ctx context.Context, userID string) ([]domain.TrustSignal, error) {
	query := `
		SELECT id, user_id, issuer, kind, count, weight, independence_factor,
		       credibility, jws, consent_granted, consent_scope, metadata,
		       since, expires_at, created_at, updated_at
		FROM trust_signals
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trust signals: %w", err)
	}
	defer rows.Close()

	var signals []domain.TrustSignal
	for rows.Next() {
		var signal domain.TrustSignal
		var jws sql.NullString
		var expiresAt sql.NullTime

		err := rows.Scan(
			&signal.ID,
			&signal.UserID,
			&signal.Issuer,
			&signal.Kind,
			&signal.Count,
			&signal.Weight,
			&signal.IndependenceFactor,
			&signal.Credibility,
			&jws,
			&signal.ConsentGranted,
			&signal.ConsentScope,
			&signal.Metadata,
			&signal.Since,
			&expiresAt,
			&signal.CreatedAt,
			&signal.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trust signal: %w", err)
		}

		if jws.Valid {
			signal.JWS = jws.String
		}
		if expiresAt.Valid {
			signal.ExpiresAt = &expiresAt.Time
		}

		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trust signals: %w", err)
	}

	return signals, nil
}

// UpdateConsent sets the consent flag and scope on a (user, issuer, kind) row
func (r *signalRepository) UpdateConsent(ctx context.Context, userID, issuer, kind string, granted bool, scope domain.ConsentScope) error {
	query := `
		UPDATE trust_signals
		SET consent_granted = $4, consent_scope = $5, updated_at = $6
		WHERE user_id = $1 AND issuer = $2 AND kind = $3
	`

	if scope == nil {
		scope = domain.ConsentScope{}
	}

	result, err := r.db.DB.ExecContext(ctx, query, userID, issuer, kind, granted, scope, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update consent: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("trust signal for issuer %s not found: %w", issuer, ErrNotFound)
	}

	return nil
}

// DeleteOlderThan removes signals whose first occurrence predates the
// cutoff. Used by the retention sweeper.
func (r *signalRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM trust_signals WHERE since < $1`

	result, err := r.db.DB.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired trust signals: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
