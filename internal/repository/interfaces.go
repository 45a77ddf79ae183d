package repository

import (
	"context"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
)

// UserRepository defines methods for user operations
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	MarkEmailVerified(ctx context.Context, userID string) error
}

// FactorRepository defines methods on the factor ledger. Upsert keys on
// (user_id, factor_type, provider) so concurrent logins via the same
// method never produce a second row.
type FactorRepository interface {
	Upsert(ctx context.Context, factor *domain.AuthFactor) error
	ListByUser(ctx context.Context, userID string) ([]domain.AuthFactor, error)
}

// SignalRepository defines methods for trust signal operations. Upsert
// keys on (user_id, issuer, kind): repeated reports accumulate count
// and refresh weight/credibility.
type SignalRepository interface {
	Upsert(ctx context.Context, signal *domain.TrustSignal) error
	ListByUser(ctx context.Context, userID string) ([]domain.TrustSignal, error)
	UpdateConsent(ctx context.Context, userID, issuer, kind string, granted bool, scope domain.ConsentScope) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
