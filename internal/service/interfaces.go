package service

import (
	"context"
	"time"

	"github.com/glyph-id/glyph/internal/domain"
)

// UserService defines user lookup and factor ledger ingestion.
type UserService interface {
	GetOrCreateUser(ctx context.Context, email string, emailVerified bool) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpsertFactor(ctx context.Context, userID, factorType, provider, providerUserID string, metadata domain.Metadata) (*domain.AuthFactor, error)
	ListFactors(ctx context.Context, userID string) ([]domain.AuthFactor, error)
}

// IssuerService issues and validates Glyph credentials.
type IssuerService interface {
	IssueForUser(ctx context.Context, userID string) (*domain.TokenPair, *domain.GlyphClaims, error)
	Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error)
	ValidateToken(ctx context.Context, token string) (*domain.TokenClaims, error)
	TrustSummary(ctx context.Context, userID string) (*TrustSummary, error)
}

// SignalService ingests trust signal reports and runs retention
// housekeeping.
type SignalService interface {
	Report(ctx context.Context, report *SignalReport) (*domain.TrustSignal, error)
	UpdateConsent(ctx context.Context, userID, issuer, kind string, granted bool, scope domain.ConsentScope) error
	SweepExpired(ctx context.Context) (int64, error)
}

// TrustSummary is the risk explanation returned to the user.
type TrustSummary struct {
	Score      int                      `json:"score"`
	Band       domain.RiskBand          `json:"band"`
	Provenance []domain.TrustProvenance `json:"provenance"`
}

// SignalReport is a normalized signal report from an external issuer.
type SignalReport struct {
	UserID             string
	Issuer             string
	Kind               string
	Count              int
	Weight             float64
	IndependenceFactor float64
	Credibility        float64
	JWS                string
	Since              *time.Time
	ExpiresAt          *time.Time
	ConsentGranted     bool
	ConsentScope       domain.ConsentScope
	Metadata           domain.Metadata
}
