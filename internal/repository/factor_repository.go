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

// factorRepository implements FactorRepository interface
type factorRepository struct {
	db *database.Postgres
}

// NewFactorRepository creates a new factor ledger repository
func NewFactorRepository(db *database.Postgres) FactorRepository {
	return &factorRepository{db: db}
}

// Upsert inserts a factor or, when a row for the same
// (user, factor type, provider) already exists, bumps its last-used
// timestamp and refreshes provider id and metadata. The unique
// constraint plus ON CONFLICT serializes concurrent logins via the
// same method without application-level locking.
func (r *factorRepository) Upsert(ctx context.Context, factor *domain.AuthFactor) error {
	query := `
		INSERT INTO auth_factors (
			id, user_id, factor_type, provider, provider_user_id,
			base_weight, independence_factor, metadata, last_used_at,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, factor_type, provider) DO UPDATE SET
			provider_user_id = COALESCE(NULLIF(EXCLUDED.provider_user_id, ''), auth_factors.provider_user_id),
			metadata = EXCLUDED.metadata,
			last_used_at = EXCLUDED.last_used_at,
			updated_at = EXCLUDED.updated_at
		RETURNING id, base_weight, independence_factor, created_at
	`

	if factor.ID == "" {
		factor.ID = uuid.New().String()
	}

	now := time.Now()
	if factor.CreatedAt.IsZero() {
		factor.CreatedAt = now
	}
	factor.UpdatedAt = now
	if factor.LastUsedAt == nil {
		factor.LastUsedAt = &now
	}
	if factor.Metadata == nil {
		factor.Metadata = domain.Metadata{}
	}

	err := r.db.DB.QueryRowContext(ctx, query,
		factor.ID,
		factor.UserID,
		factor.FactorType,
		factor.Provider,
		factor.ProviderUserID,
		factor.BaseWeight,
		factor.IndependenceFactor,
		factor.Metadata,
		factor.LastUsedAt,
		factor.CreatedAt,
		factor.UpdatedAt,
	).Scan(
		&factor.ID,
		&factor.BaseWeight,
		&factor.IndependenceFactor,
		&factor.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert auth factor: %w", err)
	}

	return nil
}

// ListByUser retrieves all auth factors for a user
func (r *factorRepository) ListByUser(ctx context.Context, userID string) ([]domain.AuthFactor, error) {
	query := `
		SELECT id, user_id, factor_type, provider, provider_user_id,
		       base_weight, independence_factor, metadata, last_used_at,
		       created_at, updated_at
		FROM auth_factors
		WHERE user_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list auth factors: %w", err)
	}
	defer rows.Close()

	var factors []domain.AuthFactor
	for rows.Next() {
		var factor domain.AuthFactor
		var lastUsedAt sql.NullTime

		err := rows.Scan(
			&factor.ID,
			&factor.UserID,
			&factor.FactorType,
			&factor.Provider,
			&factor.ProviderUserID,
			&factor.BaseWeight,
			&factor.IndependenceFactor,
			&factor.Metadata,
			&lastUsedAt,
			&factor.CreatedAt,
			&factor.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan auth factor: %w", err)
		}

		if lastUsedAt.Valid {
			factor.LastUsedAt = &lastUsedAt.Time
		}

		factors = append(factors, factor)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate auth factors: %w", err)
	}

	return factors, nil
}
